package dmx

import (
	"fmt"
	"net"
)

// FindArtNetIP returns the address of the first local interface inside the
// Art-Net network. Which network carries Art-Net is a deployment property,
// so the CIDR comes from the output configuration.
func FindArtNetIP(cidr string) (net.IP, error) {
	_, cidrNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("invalid art-net network %q: %w", cidr, err)
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("error getting ips: %w", err)
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil {
			continue
		}
		if cidrNet.Contains(ip) {
			return ip, nil
		}
	}

	return nil, fmt.Errorf("no interface found in art-net network %s", cidr)
}

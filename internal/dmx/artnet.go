package dmx

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/Haba1234/go-artnet"

	"mqtt2dmx/internal/logger"
)

// ArtNetSender transmits universe frames as Art-Net DMX packets instead of
// driving a serial adapter. It satisfies FrameSender, so the scheduler does
// not care which transport is configured.
type ArtNetSender struct {
	log       logger.Logger
	sender    *artnet.Controller
	address   artnet.Address
	connected bool
}

// NewArtNetSender builds an Art-Net controller bound to the interface on
// the configured Art-Net network, targeting the given universe.
func NewArtNetSender(log logger.Logger, universe uint16, cidr string) (*ArtNetSender, error) {
	ip, err := FindArtNetIP(cidr)
	if err != nil {
		return nil, fmt.Errorf("failed to find the art-net IP: %w", err)
	}

	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve hostname: %w", err)
	}
	host = strings.ToLower(strings.Split(host, ".")[0])
	log.With(logger.Fields{"module": "art-net"}).Infof("using ArtNet IP %s and hostname %s", ip.String(), host)

	senderLogger := artnet.NewDefaultLogger("info")

	return &ArtNetSender{
		log:     log,
		sender:  artnet.NewController(host, ip, senderLogger, artnet.MaxFPS(40)),
		address: universeToAddress(universe),
	}, nil
}

// Connect starts the Art-Net controller (node discovery, send loop).
func (s *ArtNetSender) Connect() error {
	if err := s.sender.Start(); err != nil {
		return fmt.Errorf("%w: start art-net controller: %v", ErrPortUnavailable, err)
	}
	s.connected = true
	return nil
}

// SendFrame sends the 512 channel values of the frame to the configured
// universe. Break/MAB framing is the receiving node's concern.
func (s *ArtNetSender) SendFrame(f *FrameBuffer) error {
	if !s.connected {
		return fmt.Errorf("%w: art-net controller not started", ErrTransmit)
	}
	s.sender.SendDMXToAddress(f.Channels(), s.address)
	return nil
}

// Connected reports whether the controller has been started.
func (s *ArtNetSender) Connected() bool {
	return s.connected
}

// Disconnect stops the Art-Net controller. Safe to call multiple times.
func (s *ArtNetSender) Disconnect() error {
	if !s.connected {
		return nil
	}
	s.sender.Stop()
	s.connected = false
	return nil
}

// universeToAddress converts a DMX universe number to an art-net address:
// high byte Net, low byte SubUni.
func universeToAddress(universe uint16) artnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe)

	return artnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}

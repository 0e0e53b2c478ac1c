package fixture

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// SlotChannels is the number of channels reserved per fixture slot,
	// regardless of group: fixture 1 @ 1, fixture 2 @ 9, fixture 3 @ 17, …
	SlotChannels = 8

	// UniverseChannels is the DMX512 address space.
	UniverseChannels = 512
)

var (
	// ErrConfig reports a fixture patch that does not fit the universe.
	ErrConfig = errors.New("invalid fixture configuration")
	// ErrInvalidFixture reports a fixture index outside the configured patch.
	ErrInvalidFixture = errors.New("fixture index out of range")
)

// Group identifies the color-channel layout of a fixture inside its
// 8-channel block.
type Group uint8

const (
	// GroupA - Red/Green/Blue at offsets +1/+2/+3, no white channel.
	GroupA Group = iota
	// GroupB - Red/Green/Blue/White at offsets +4/+5/+6/+7.
	GroupB
)

// ParseGroup converts the configuration/wire spelling ("A"/"B") to a Group.
func ParseGroup(s string) (Group, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A":
		return GroupA, nil
	case "B":
		return GroupB, nil
	}
	return GroupA, fmt.Errorf("%w: unknown channel group %q", ErrConfig, s)
}

func (g Group) String() string {
	if g == GroupA {
		return "A"
	}
	return "B"
}

// Span is the number of channels the group actually occupies from the
// fixture's start address. The remaining channels of the 8-channel slot
// are headroom for other controls on the physical fixture.
func (g Group) Span() int {
	if g == GroupA {
		return 4
	}
	return 8
}

// offsets are the relative color-channel positions from the start address.
func (g Group) offsets() (r, gr, b, w int, hasWhite bool) {
	if g == GroupA {
		return 1, 2, 3, 0, false
	}
	return 4, 5, 6, 7, true
}

// Offsets holds the absolute universe channel indices (1..512) of one
// fixture's color channels. White is 0 when HasWhite is false.
type Offsets struct {
	Red      int
	Green    int
	Blue     int
	White    int
	HasWhite bool
}

// Fixture is one patched light.
type Fixture struct {
	Index        int
	StartAddress int
	Group        Group
}

// Registry maps fixture indices to start addresses and channel layouts.
// It is immutable after construction; reconfiguration builds a new one.
type Registry struct {
	fixtures []Fixture
}

// StartAddress returns the DMX start address for a fixture slot.
func StartAddress(index int) int {
	return 1 + SlotChannels*index
}

// New builds a registry for count fixtures. groups lists the channel group
// per fixture; when shorter than count the last entry repeats, and an empty
// list defaults everything to GroupB. Fails when any fixture's reserved
// span would cross channel 512.
func New(count int, groups []Group) (*Registry, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: fixture count %d", ErrConfig, count)
	}

	fixtures := make([]Fixture, count)
	for i := 0; i < count; i++ {
		g := GroupB
		if len(groups) > 0 {
			if i < len(groups) {
				g = groups[i]
			} else {
				g = groups[len(groups)-1]
			}
		}

		start := StartAddress(i)
		if start+g.Span()-1 > UniverseChannels {
			return nil, fmt.Errorf("%w: fixture %d at address %d (group %s) exceeds channel %d",
				ErrConfig, i+1, start, g, UniverseChannels)
		}
		fixtures[i] = Fixture{Index: i, StartAddress: start, Group: g}
	}

	return &Registry{fixtures: fixtures}, nil
}

// Count returns the number of patched fixtures.
func (r *Registry) Count() int {
	return len(r.fixtures)
}

// Fixture returns the patched fixture at index.
func (r *Registry) Fixture(index int) (Fixture, error) {
	if index < 0 || index >= len(r.fixtures) {
		return Fixture{}, fmt.Errorf("%w: %d of %d", ErrInvalidFixture, index, len(r.fixtures))
	}
	return r.fixtures[index], nil
}

// ChannelOffsets returns the absolute color-channel indices for the
// fixture at index. Pure lookup, no side effects.
func (r *Registry) ChannelOffsets(index int) (Offsets, error) {
	f, err := r.Fixture(index)
	if err != nil {
		return Offsets{}, err
	}

	ro, g, b, w, hasWhite := f.Group.offsets()
	off := Offsets{
		Red:      f.StartAddress + ro,
		Green:    f.StartAddress + g,
		Blue:     f.StartAddress + b,
		HasWhite: hasWhite,
	}
	if hasWhite {
		off.White = f.StartAddress + w
	}
	return off, nil
}

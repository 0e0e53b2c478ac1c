package scheduler

import (
	"sync"
	"sync/atomic"

	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/effect"
	"mqtt2dmx/internal/fixture"
)

// Snapshot is the complete animation state as seen by one tick. The whole
// value is replaced atomically on every change, so a tick never observes a
// half-applied update. The registry pointer rides in the snapshot, which
// makes fixture reconfiguration atomic with respect to a tick as well.
type Snapshot struct {
	Mode       effect.Mode
	Brightness uint8
	Manual     dmx.Color
	Registry   *fixture.Registry
}

// State is the shared animation state between the configuring side and the
// scheduler worker. Reads are lock-free; writers serialize among themselves.
type State struct {
	mu sync.Mutex // serializes writers
	v  atomic.Value
}

// NewState returns shared state initialized with the given snapshot.
func NewState(snap Snapshot) *State {
	s := &State{}
	s.v.Store(snap)
	return s
}

// Snapshot returns the current animation state.
func (s *State) Snapshot() Snapshot {
	return s.v.Load().(Snapshot)
}

// SetMode selects the effect mode, applied on the next tick.
func (s *State) SetMode(m effect.Mode) {
	s.swap(func(snap *Snapshot) { snap.Mode = m })
}

// SetBrightness sets the master brightness, applied on the next tick.
func (s *State) SetBrightness(b uint8) {
	s.swap(func(snap *Snapshot) { snap.Brightness = b })
}

// SetManual sets the manual color, applied on the next tick.
func (s *State) SetManual(c dmx.Color) {
	s.swap(func(snap *Snapshot) { snap.Manual = c })
}

// SetRegistry swaps in a new fixture patch, applied on the next tick.
func (s *State) SetRegistry(r *fixture.Registry) {
	s.swap(func(snap *Snapshot) { snap.Registry = r })
}

func (s *State) swap(mutate func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.v.Load().(Snapshot)
	mutate(&snap)
	s.v.Store(snap)
}

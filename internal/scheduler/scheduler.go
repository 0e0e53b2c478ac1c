package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/effect"
	"mqtt2dmx/internal/logger"
)

const (
	// DefaultPeriod is the target tick period (≈40 Hz).
	DefaultPeriod = 25 * time.Millisecond

	// DefaultMaxFailures is the number of consecutive transmit failures
	// tolerated before the scheduler stops with a fatal error.
	DefaultMaxFailures = 5

	// stopTimeoutPeriods bounds how many tick periods Stop waits for the
	// worker to exit.
	stopTimeoutPeriods = 10
)

var (
	// ErrNotConnected - Start was called without a connected sender.
	ErrNotConnected = errors.New("transmitter not connected")
	// ErrAlreadyRunning - Start was called while the worker is active.
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrStopTimeout - the worker did not exit within the stop bound.
	ErrStopTimeout = errors.New("scheduler worker did not stop in time")
)

// Status is one entry of the status/error surface exposed to the
// controlling side.
type Status struct {
	Running   bool
	Connected bool
	Mode      effect.Mode
	Err       error
	Fatal     bool
}

// Options tune the scheduler. Zero values use the defaults.
type Options struct {
	Period      time.Duration
	MaxFailures int
}

// Scheduler runs the single animation worker: every tick it snapshots the
// shared state, computes colors for every fixture, fills a frame and hands
// it to the sender. Frames are never queued; at most one is in flight.
type Scheduler struct {
	log    logger.Logger
	engine *effect.Engine
	sender dmx.FrameSender
	state  *State

	period      time.Duration
	maxFailures int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	lastErr error

	statusCh chan Status
}

// New wires a scheduler. The sender must be connected before Start.
func New(log logger.Logger, engine *effect.Engine, sender dmx.FrameSender, state *State, opts Options) *Scheduler {
	if opts.Period <= 0 {
		opts.Period = DefaultPeriod
	}
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = DefaultMaxFailures
	}
	return &Scheduler{
		log:         log,
		engine:      engine,
		sender:      sender,
		state:       state,
		period:      opts.Period,
		maxFailures: opts.MaxFailures,
		statusCh:    make(chan Status, 8),
	}
}

// Status returns the status channel. Events are dropped rather than
// blocking the worker when nobody reads them.
func (s *Scheduler) Status() <-chan Status {
	return s.statusCh
}

// Running reports whether the worker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// LastError returns the most recent transmit or engine error, nil if none.
func (s *Scheduler) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start launches the periodic worker. It fails with ErrNotConnected when
// the sender has no open connection; no worker is launched in that case.
func (s *Scheduler) Start() error {
	if !s.sender.Connected() {
		return ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.run(s.stopCh, s.doneCh)

	s.log.With(logger.Fields{"module": "scheduler"}).Infof("animation worker started, period %v", s.period)
	s.report(Status{Running: true, Connected: true, Mode: s.state.Snapshot().Mode})
	return nil
}

// Stop asks the worker to exit at its next tick boundary and waits for it,
// bounded by stopTimeoutPeriods tick periods. Safe to call multiple times.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
	case <-time.After(stopTimeoutPeriods * s.period):
		return ErrStopTimeout
	}

	s.log.With(logger.Fields{"module": "scheduler"}).Info("animation worker stopped")
	s.report(Status{Running: false, Connected: s.sender.Connected(), Mode: s.state.Snapshot().Mode})
	return nil
}

// run is the tick loop. The ticker drops missed ticks, so an overrunning
// tick is followed by an immediate one with no backlog.
func (s *Scheduler) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	frame := dmx.NewFrame()
	elapsed := 0.0
	last := time.Now()
	failures := 0

	for {
		select {
		case <-stopCh:
			return

		case now := <-ticker.C:
			// Advance by the measured interval, not the nominal
			// period, to stay accurate under scheduling jitter.
			elapsed += now.Sub(last).Seconds()
			last = now

			snap := s.state.Snapshot()
			frame.Reset()
			if err := s.renderFrame(frame, snap, elapsed); err != nil {
				// Registry/engine contract violation; not recoverable by ticking on.
				s.fail(fmt.Errorf("render: %w", err), snap.Mode)
				return
			}

			if err := s.sender.SendFrame(frame); err != nil {
				failures++
				s.log.With(logger.Fields{"module": "scheduler"}).Errorf("tick abandoned (%d consecutive): %v", failures, err)
				if failures >= s.maxFailures {
					s.fail(fmt.Errorf("%d consecutive transmit failures: %w", failures, err), snap.Mode)
					return
				}
				s.setLastErr(err)
				s.report(Status{Running: true, Connected: s.sender.Connected(), Mode: snap.Mode, Err: err})
				continue
			}
			failures = 0
		}
	}
}

// renderFrame computes every fixture's color and writes it into the frame.
func (s *Scheduler) renderFrame(f *dmx.FrameBuffer, snap Snapshot, t float64) error {
	n := snap.Registry.Count()
	for i := 0; i < n; i++ {
		c, err := s.engine.Compute(snap.Mode, i, n, t, snap.Brightness, snap.Manual)
		if err != nil {
			return err
		}
		if err := f.WriteColor(snap.Registry, i, c); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) fail(err error, mode effect.Mode) {
	s.mu.Lock()
	s.running = false
	s.lastErr = err
	s.mu.Unlock()

	s.log.With(logger.Fields{"module": "scheduler"}).Errorf("fatal, worker stopping: %v", err)
	s.report(Status{Running: false, Connected: s.sender.Connected(), Mode: mode, Err: err, Fatal: true})
}

func (s *Scheduler) setLastErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

func (s *Scheduler) report(st Status) {
	select {
	case s.statusCh <- st:
	default:
	}
}

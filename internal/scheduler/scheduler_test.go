package scheduler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"mqtt2dmx/internal/config"
	"mqtt2dmx/internal/dmx"
	"mqtt2dmx/internal/effect"
	"mqtt2dmx/internal/fixture"
	"mqtt2dmx/internal/logger"
)

// fakeSender captures frames instead of touching hardware.
type fakeSender struct {
	mu        sync.Mutex
	connected bool
	err       error
	frames    [][]byte
}

func (f *fakeSender) SendFrame(frame *dmx.FrameBuffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	buf := make([]byte, dmx.FrameSize)
	copy(buf, frame.Bytes())
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeSender) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSender) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func newTestLogger(t *testing.T) *logger.Log {
	t.Helper()
	log, err := logger.NewLogger(config.LogConf{Level: "error"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func newTestState(t *testing.T, count int, g fixture.Group, snap Snapshot) *State {
	t.Helper()
	reg, err := fixture.New(count, []fixture.Group{g})
	if err != nil {
		t.Fatal(err)
	}
	snap.Registry = reg
	return NewState(snap)
}

func TestStartRequiresConnectedSender(t *testing.T) {
	state := newTestState(t, 1, fixture.GroupB, Snapshot{Mode: effect.ModeOff})
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), &fakeSender{}, state, Options{})

	if err := s.Start(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Start error = %v, want ErrNotConnected", err)
	}
	if s.Running() {
		t.Fatal("worker launched despite failed Start")
	}
}

func TestRenderManualColorFrame(t *testing.T) {
	state := newTestState(t, 3, fixture.GroupA, Snapshot{
		Mode:       effect.ModeManualColor,
		Brightness: 128,
		Manual:     dmx.Color{R: 255},
	})
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), &fakeSender{connected: true}, state, Options{})

	frame := dmx.NewFrame()
	if err := s.renderFrame(frame, state.Snapshot(), 0.5); err != nil {
		t.Fatal(err)
	}

	buf := frame.Bytes()
	redChannels := map[int]bool{2: true, 10: true, 18: true}
	for i, b := range buf {
		switch {
		case redChannels[i]:
			if b != 128 {
				t.Errorf("red channel %d = %d, want 128", i, b)
			}
		default:
			if b != 0 {
				t.Errorf("channel %d = %d, want 0", i, b)
			}
		}
	}
}

func TestSchedulerTicksAndStops(t *testing.T) {
	state := newTestState(t, 2, fixture.GroupB, Snapshot{Mode: effect.ModeRainbowFade, Brightness: 255})
	sender := &fakeSender{connected: true}
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), sender, state, Options{Period: 5 * time.Millisecond})

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start error = %v, want ErrAlreadyRunning", err)
	}

	deadline := time.After(2 * time.Second)
	for sender.frameCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d frames after 2s", sender.frameCount())
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	if s.Running() {
		t.Fatal("Running() = true after Stop")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop = %v, want nil", err)
	}

	// No frames after the worker joined.
	n := sender.frameCount()
	time.Sleep(25 * time.Millisecond)
	if sender.frameCount() != n {
		t.Fatal("frames transmitted after Stop returned")
	}
}

func TestStateChangesApplyOnNextTick(t *testing.T) {
	state := newTestState(t, 1, fixture.GroupA, Snapshot{Mode: effect.ModeOff, Brightness: 255})
	sender := &fakeSender{connected: true}
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), sender, state, Options{Period: 5 * time.Millisecond})

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	state.SetMode(effect.ModeManualColor)
	state.SetManual(dmx.Color{G: 200})

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("manual color never reached a transmitted frame")
		case <-time.After(5 * time.Millisecond):
		}
		sender.mu.Lock()
		var hit bool
		for _, f := range sender.frames {
			if f[3] == 200 { // green of group A fixture @ 1
				hit = true
			}
		}
		sender.mu.Unlock()
		if hit {
			return
		}
	}
}

func TestConsecutiveFailuresEscalate(t *testing.T) {
	state := newTestState(t, 1, fixture.GroupB, Snapshot{Mode: effect.ModeOff})
	sender := &fakeSender{connected: true, err: errors.New("wire pulled")}
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), sender, state, Options{
		Period:      2 * time.Millisecond,
		MaxFailures: 3,
	})

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-s.Status():
			if st.Fatal {
				if st.Err == nil {
					t.Fatal("fatal status without error")
				}
				// Worker stopped on its own; Stop is a no-op now.
				if err := s.Stop(); err != nil {
					t.Fatalf("Stop after fatal = %v", err)
				}
				if s.Running() {
					t.Fatal("Running() = true after fatal stop")
				}
				if s.LastError() == nil {
					t.Fatal("LastError() = nil after fatal stop")
				}
				return
			}
		case <-deadline:
			t.Fatal("no fatal status within 2s")
		}
	}
}

// blockingSender parks SendFrame until released, simulating a transmit
// that outlives the stop bound.
type blockingSender struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingSender) SendFrame(*dmx.FrameBuffer) error {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return nil
}

func (b *blockingSender) Connected() bool { return true }

func TestStopTimesOutOnStuckTransmit(t *testing.T) {
	state := newTestState(t, 1, fixture.GroupB, Snapshot{Mode: effect.ModeOff})
	sender := &blockingSender{
		release: make(chan struct{}),
		started: make(chan struct{}),
	}
	s := New(newTestLogger(t), effect.NewEngine(effect.Params{}), sender, state, Options{Period: 5 * time.Millisecond})

	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	// Let the worker get stuck inside SendFrame before asking it to stop.
	t.Cleanup(func() { close(sender.release) })
	select {
	case <-sender.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never reached SendFrame")
	}

	if err := s.Stop(); !errors.Is(err, ErrStopTimeout) {
		t.Fatalf("Stop = %v, want ErrStopTimeout", err)
	}
	if s.Running() {
		t.Fatal("Running() = true after timed-out Stop")
	}
}

func TestSnapshotSwapIsAtomic(t *testing.T) {
	state := newTestState(t, 2, fixture.GroupB, Snapshot{Mode: effect.ModeOff, Brightness: 10})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			state.SetBrightness(uint8(i % 256))
			state.SetManual(dmx.Color{R: uint8(i % 256)})
		}
	}()

	for i := 0; i < 1000; i++ {
		snap := state.Snapshot()
		if snap.Registry == nil {
			t.Fatal("snapshot lost its registry")
		}
	}
	<-done
}

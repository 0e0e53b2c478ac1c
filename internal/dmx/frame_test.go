package dmx

import (
	"errors"
	"testing"

	"mqtt2dmx/internal/fixture"
)

func TestNewFrameIsZeroed(t *testing.T) {
	f := NewFrame()
	buf := f.Bytes()
	if len(buf) != FrameSize {
		t.Fatalf("Bytes() length = %d, want %d", len(buf), FrameSize)
	}
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestWriteColor(t *testing.T) {
	reg, err := fixture.New(2, []fixture.Group{fixture.GroupA, fixture.GroupB})
	if err != nil {
		t.Fatal(err)
	}

	f := NewFrame()
	if err := f.WriteColor(reg, 0, Color{R: 10, G: 20, B: 30, W: 40}); err != nil {
		t.Fatal(err)
	}
	if err := f.WriteColor(reg, 1, Color{R: 1, G: 2, B: 3, W: 4}); err != nil {
		t.Fatal(err)
	}

	buf := f.Bytes()
	// Group A fixture @ 1: R/G/B on channels 2/3/4, no white written.
	for ch, want := range map[int]byte{2: 10, 3: 20, 4: 30, 5: 0} {
		if buf[ch] != want {
			t.Errorf("channel %d = %d, want %d", ch, buf[ch], want)
		}
	}
	// Group B fixture @ 9: R/G/B/W on channels 13..16.
	for ch, want := range map[int]byte{13: 1, 14: 2, 15: 3, 16: 4} {
		if buf[ch] != want {
			t.Errorf("channel %d = %d, want %d", ch, buf[ch], want)
		}
	}
	if buf[0] != 0 {
		t.Errorf("start code = %d, want 0", buf[0])
	}
}

func TestWriteColorInvalidFixture(t *testing.T) {
	reg, err := fixture.New(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	f := NewFrame()
	if err := f.WriteColor(reg, 5, Color{R: 255}); !errors.Is(err, fixture.ErrInvalidFixture) {
		t.Fatalf("WriteColor error = %v, want ErrInvalidFixture", err)
	}
}

func TestStartCodeNeverWritten(t *testing.T) {
	f := NewFrame()
	f.SetChannel(0, 0xFF)
	f.SetChannel(-4, 0xFF)
	f.SetChannel(513, 0xFF)
	f.SetChannel(1, 0xFF)
	f.SetChannel(512, 0xFF)

	buf := f.Bytes()
	if buf[0] != 0 {
		t.Fatalf("start code = %d, want 0", buf[0])
	}
	if buf[1] != 0xFF || buf[512] != 0xFF {
		t.Fatalf("in-range channels not written: ch1=%d ch512=%d", buf[1], buf[512])
	}
}

func TestResetKeepsStartCode(t *testing.T) {
	f := NewFrame()
	for ch := 1; ch <= 512; ch++ {
		f.SetChannel(ch, 0x7F)
	}
	f.Reset()
	for i, b := range f.Bytes() {
		if b != 0 {
			t.Fatalf("byte %d = %d after Reset, want 0", i, b)
		}
	}
}

func TestChannelsDropsStartCode(t *testing.T) {
	f := NewFrame()
	f.SetChannel(1, 11)
	f.SetChannel(512, 22)

	ch := f.Channels()
	if ch[0] != 11 || ch[511] != 22 {
		t.Fatalf("Channels() = [%d … %d], want [11 … 22]", ch[0], ch[511])
	}
}

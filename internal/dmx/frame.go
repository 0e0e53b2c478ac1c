package dmx

import (
	"mqtt2dmx/internal/fixture"
)

const (
	// FrameSize is the full DMX512 packet: the start code plus 512 channels.
	FrameSize = 513

	// startCode 0x00 marks a standard dimmer-data packet.
	startCode = 0x00
)

// Color is one fixture's computed output. W is ignored for fixtures whose
// channel group has no white channel.
type Color struct {
	R, G, B, W uint8
}

// FrameBuffer is one universe frame. Byte 0 is the start code and is never
// written by WriteColor; the buffer is never resized.
type FrameBuffer struct {
	data [FrameSize]byte
}

// NewFrame returns a zeroed universe frame.
func NewFrame() *FrameBuffer {
	return &FrameBuffer{}
}

// Reset blacks out all 512 channels, keeping the start code.
func (f *FrameBuffer) Reset() {
	for i := 1; i < FrameSize; i++ {
		f.data[i] = 0
	}
}

// SetChannel writes a single channel (1..512). Out-of-range channels are
// ignored; channel 0 is the start code and cannot be addressed.
func (f *FrameBuffer) SetChannel(channel int, value byte) {
	if channel >= 1 && channel <= fixture.UniverseChannels {
		f.data[channel] = value
	}
}

// WriteColor stores a fixture's color channels, resolving absolute channel
// indices through the registry.
func (f *FrameBuffer) WriteColor(reg *fixture.Registry, index int, c Color) error {
	off, err := reg.ChannelOffsets(index)
	if err != nil {
		return err
	}

	f.SetChannel(off.Red, c.R)
	f.SetChannel(off.Green, c.G)
	f.SetChannel(off.Blue, c.B)
	if off.HasWhite {
		f.SetChannel(off.White, c.W)
	}
	return nil
}

// Bytes exposes the full 513-byte packet for transmission.
func (f *FrameBuffer) Bytes() []byte {
	f.data[0] = startCode
	return f.data[:]
}

// Channels returns the 512 channel values without the start code, in the
// fixed-size form the Art-Net sender consumes.
func (f *FrameBuffer) Channels() [512]byte {
	var out [512]byte
	copy(out[:], f.data[1:])
	return out
}

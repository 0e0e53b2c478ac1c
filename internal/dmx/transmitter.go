package dmx

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"mqtt2dmx/internal/logger"
)

const (
	// BaudRate is the DMX512-A line rate (250 kbit/s, 8 data bits,
	// 2 stop bits, no parity).
	BaudRate = 250000

	// breakTime is held low before each frame. The protocol minimum is
	// 88 µs; 100 µs keeps a margin.
	breakTime = 100 * time.Microsecond

	// mabTime is the mark-after-break (minimum 8 µs).
	mabTime = 16 * time.Microsecond
)

var (
	// ErrPortUnavailable reports a serial open failure.
	ErrPortUnavailable = errors.New("dmx port unavailable")
	// ErrTransmit reports a failed frame transmission.
	ErrTransmit = errors.New("dmx transmit failed")
)

// FrameSender is the seam between the scheduler and an output transport.
type FrameSender interface {
	SendFrame(f *FrameBuffer) error
	Connected() bool
}

// Transmitter owns the serial connection to a serial-to-DMX adapter and
// emits break, mark-after-break and the 513-byte frame.
type Transmitter struct {
	log logger.Logger

	mu   sync.Mutex
	port serial.Port
	name string
}

// NewTransmitter returns a disconnected transmitter.
func NewTransmitter(log logger.Logger) *Transmitter {
	return &Transmitter{log: log}
}

// Connect opens the serial device with DMX512 framing.
func (t *Transmitter) Connect(portName string) error {
	mode := &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrPortUnavailable, portName, err)
	}

	t.mu.Lock()
	if t.port != nil {
		t.port.Close()
	}
	t.port = port
	t.name = portName
	t.mu.Unlock()

	t.log.With(logger.Fields{"module": "dmx"}).Infof("connected to DMX port %s", portName)
	return nil
}

// SendFrame emits one complete DMX packet: break, mark-after-break, then
// all 513 bytes as a single contiguous write. No retry; the caller owns
// the retry policy.
func (t *Transmitter) SendFrame(f *FrameBuffer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return fmt.Errorf("%w: not connected", ErrTransmit)
	}

	if err := t.port.Break(breakTime); err != nil {
		return fmt.Errorf("%w: break: %v", ErrTransmit, err)
	}
	time.Sleep(mabTime)

	buf := f.Bytes()
	n, err := t.port.Write(buf)
	if err != nil {
		return fmt.Errorf("%w: write: %v", ErrTransmit, err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: short write (%d of %d bytes)", ErrTransmit, n, len(buf))
	}
	return nil
}

// Connected reports whether a port is currently open.
func (t *Transmitter) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Disconnect releases the port. Safe to call multiple times.
func (t *Transmitter) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	t.log.With(logger.Fields{"module": "dmx"}).Infof("disconnected from DMX port %s", t.name)
	if err != nil {
		return fmt.Errorf("close %s: %w", t.name, err)
	}
	return nil
}

// ListPorts enumerates the serial ports visible to the host.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

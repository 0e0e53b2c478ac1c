package dmx

import (
	"errors"
	"testing"

	"mqtt2dmx/internal/config"
	"mqtt2dmx/internal/logger"
)

func newTestLogger(t *testing.T) *logger.Log {
	t.Helper()
	log, err := logger.NewLogger(config.LogConf{Level: "error"})
	if err != nil {
		t.Fatal(err)
	}
	return log
}

func TestConnectNonexistentPort(t *testing.T) {
	tr := NewTransmitter(newTestLogger(t))
	err := tr.Connect("/dev/nonexistent-dmx-interface")
	if !errors.Is(err, ErrPortUnavailable) {
		t.Fatalf("Connect error = %v, want ErrPortUnavailable", err)
	}
	if tr.Connected() {
		t.Fatal("Connected() = true after failed Connect")
	}
}

func TestSendFrameDisconnected(t *testing.T) {
	tr := NewTransmitter(newTestLogger(t))
	if err := tr.SendFrame(NewFrame()); !errors.Is(err, ErrTransmit) {
		t.Fatalf("SendFrame error = %v, want ErrTransmit", err)
	}
}

func TestDisconnectIdempotent(t *testing.T) {
	tr := NewTransmitter(newTestLogger(t))
	for i := 0; i < 3; i++ {
		if err := tr.Disconnect(); err != nil {
			t.Fatalf("Disconnect #%d = %v, want nil", i+1, err)
		}
	}
}

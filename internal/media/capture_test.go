package media

import (
	"testing"
	"time"
)

func TestCommandSourceCapturesOutput(t *testing.T) {
	src := NewCommandSource("echo", "-n", "hello")
	rec := NewRecorder(src, Passthrough)

	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	// Give the short-lived process time to flush and exit.
	time.Sleep(200 * time.Millisecond)

	uri, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if uri != ClipDataURI([]byte("hello")) {
		t.Error("clip does not match the process output")
	}
}

func TestCommandSourceDoubleStart(t *testing.T) {
	src := NewCommandSource("sleep", "5")
	if err := src.StartCapture(); err != nil {
		t.Fatalf("StartCapture() error = %v", err)
	}
	defer func() { _ = src.StopCapture() }()

	if err := src.StartCapture(); err == nil {
		t.Error("second StartCapture should fail while running")
	}
}

func TestCommandSourceStopWhenIdle(t *testing.T) {
	src := NewCommandSource("sleep", "5")
	if err := src.StopCapture(); err == nil {
		t.Error("StopCapture without StartCapture should fail")
	}
}

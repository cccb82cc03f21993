package media

import (
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
)

// CommandSource captures PCM frames from an external recorder process.
// The process must write raw PCM at the fixed capture format to stdout.
type CommandSource struct {
	name string
	args []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

// NewCommandSource creates a capture source backed by the given command.
func NewCommandSource(name string, args ...string) *CommandSource {
	return &CommandSource{name: name, args: args}
}

// DefaultCaptureSource returns a source backed by arecord when available,
// or nil when the host has no recorder. A nil source makes the recorder
// report capture as unavailable instead of failing at startup.
func DefaultCaptureSource() CaptureSource {
	if _, err := exec.LookPath("arecord"); err != nil {
		return nil
	}
	return NewCommandSource("arecord",
		"-q",
		"-f", "S16_LE",
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(NumChannels),
		"-t", "raw",
	)
}

// StartCapture launches the recorder process.
func (s *CommandSource) StartCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return fmt.Errorf("capture already running")
	}

	cmd := exec.Command(s.name, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	s.cmd = cmd
	s.stdout = stdout
	return nil
}

// StopCapture terminates the recorder process. The stdout pipe then hits
// EOF, which ends the reader side cleanly.
func (s *CommandSource) StopCapture() error {
	s.mu.Lock()
	cmd := s.cmd
	s.cmd = nil
	s.stdout = nil
	s.mu.Unlock()

	if cmd == nil {
		return fmt.Errorf("capture not running")
	}
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
	_ = cmd.Wait()
	return nil
}

// Read returns captured PCM frames, and io.EOF once capture stops.
func (s *CommandSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	stdout := s.stdout
	s.mu.Unlock()

	if stdout == nil {
		return 0, io.EOF
	}
	n, err := stdout.Read(p)
	if err != nil && !s.running() {
		// Pipe errors after a deliberate stop are a clean end of stream.
		err = io.EOF
	}
	return n, err
}

func (s *CommandSource) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Package media packages captured audio and uploaded images into
// self-contained embeddable payloads for the send path.
package media

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Fixed capture format. Every clip is encoded at the same rate so playback
// quality is consistent regardless of the capture device.
const (
	SampleRate    = 16000
	BitsPerSample = 16
	NumChannels   = 1
)

// CaptureUnavailableError marks a missing or denied capture device. The
// caller disables the control; this is not an exception path.
type CaptureUnavailableError struct {
	Device string
	Reason string
}

func (e *CaptureUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Device, e.Reason)
}

// CaptureSource is a live PCM source (little-endian 16-bit mono at
// SampleRate). Read blocks until data is available and returns io.EOF after
// StopCapture.
type CaptureSource interface {
	io.Reader
	StartCapture() error
	StopCapture() error
}

// Effect transforms raw PCM before encoding. The voice effect slot is a
// passthrough for now.
type Effect func(pcm []byte) []byte

// Passthrough returns the input unchanged.
func Passthrough(pcm []byte) []byte { return pcm }

// Recorder accumulates PCM from a capture source between Start and Stop.
// States: idle -> recording -> idle; Stop packages the clip.
type Recorder struct {
	source CaptureSource
	effect Effect

	mu        sync.Mutex
	recording bool
	buf       bytes.Buffer
	done      chan struct{}
	copyErr   error
}

// NewRecorder creates a recorder over the given source. A nil source means
// no microphone is available; Start then fails with CaptureUnavailableError
// and the control stays disabled.
func NewRecorder(source CaptureSource, effect Effect) *Recorder {
	if effect == nil {
		effect = Passthrough
	}
	return &Recorder{source: source, effect: effect}
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start begins capturing. Fails when already recording or when no capture
// source exists.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.source == nil {
		return &CaptureUnavailableError{Device: "microphone", Reason: "no capture source"}
	}
	if r.recording {
		return fmt.Errorf("recorder already recording")
	}
	if err := r.source.StartCapture(); err != nil {
		return &CaptureUnavailableError{Device: "microphone", Reason: err.Error()}
	}

	r.buf.Reset()
	r.copyErr = nil
	r.done = make(chan struct{})
	r.recording = true

	go func() {
		_, err := io.Copy(&r.buf, r.source)
		r.mu.Lock()
		r.copyErr = err
		r.mu.Unlock()
		close(r.done)
	}()
	return nil
}

// Stop ends the capture and returns the accumulated audio as an embeddable
// clip. Fails when not recording.
func (r *Recorder) Stop() (string, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return "", fmt.Errorf("recorder not recording")
	}
	r.recording = false
	done := r.done
	r.mu.Unlock()

	if err := r.source.StopCapture(); err != nil {
		return "", fmt.Errorf("stop capture: %w", err)
	}
	<-done

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.copyErr != nil {
		return "", fmt.Errorf("capture read: %w", r.copyErr)
	}
	pcm := r.effect(r.buf.Bytes())
	return ClipDataURI(pcm), nil
}

// EncodeWAV wraps raw PCM frames in a WAV container at the fixed capture
// format.
func EncodeWAV(pcm []byte) []byte {
	const headerSize = 44
	byteRate := SampleRate * NumChannels * BitsPerSample / 8
	blockAlign := NumChannels * BitsPerSample / 8

	var out bytes.Buffer
	out.Grow(headerSize + len(pcm))

	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(36+len(pcm)))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	_ = binary.Write(&out, binary.LittleEndian, uint32(16))
	_ = binary.Write(&out, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&out, binary.LittleEndian, uint16(NumChannels))
	_ = binary.Write(&out, binary.LittleEndian, uint32(SampleRate))
	_ = binary.Write(&out, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&out, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&out, binary.LittleEndian, uint16(BitsPerSample))

	out.WriteString("data")
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(pcm)))
	out.Write(pcm)

	return out.Bytes()
}

// ClipDataURI encodes PCM as a self-contained audio data URI.
func ClipDataURI(pcm []byte) string {
	return "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(EncodeWAV(pcm))
}

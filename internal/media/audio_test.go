package media

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
)

type fakeSource struct {
	data     []byte
	startErr error
	stopped  bool
	r        *bytes.Reader
}

func (f *fakeSource) StartCapture() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.r = bytes.NewReader(f.data)
	return nil
}

func (f *fakeSource) StopCapture() error {
	f.stopped = true
	return nil
}

func (f *fakeSource) Read(p []byte) (int, error) {
	if f.r == nil {
		return 0, io.EOF
	}
	return f.r.Read(p)
}

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 320)
	wav := EncodeWAV(pcm)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad RIFF/WAVE markers: %q %q", wav[0:4], wav[8:12])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Errorf("riff size = %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != NumChannels {
		t.Errorf("channels = %d, want %d", got, NumChannels)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != SampleRate {
		t.Errorf("sample rate = %d, want %d", got, SampleRate)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != BitsPerSample {
		t.Errorf("bits per sample = %d, want %d", got, BitsPerSample)
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Errorf("data size = %d, want %d", got, len(pcm))
	}
}

func TestClipDataURI(t *testing.T) {
	pcm := []byte{1, 2, 3, 4}
	uri := ClipDataURI(pcm)

	const prefix = "data:audio/wav;base64,"
	if !strings.HasPrefix(uri, prefix) {
		t.Fatalf("uri prefix = %q", uri)
	}
	raw, err := base64.StdEncoding.DecodeString(uri[len(prefix):])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(raw, EncodeWAV(pcm)) {
		t.Error("payload does not round-trip to the WAV encoding")
	}
}

func TestRecorderLifecycle(t *testing.T) {
	src := &fakeSource{data: []byte{10, 20, 30, 40}}
	rec := NewRecorder(src, Passthrough)

	if rec.Recording() {
		t.Fatal("new recorder should be idle")
	}
	if err := rec.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !rec.Recording() {
		t.Fatal("recorder should report recording after Start")
	}

	uri, err := rec.Stop()
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if !src.stopped {
		t.Error("capture source was not stopped")
	}
	if uri != ClipDataURI(src.data) {
		t.Error("clip does not match captured frames")
	}
	if rec.Recording() {
		t.Error("recorder should be idle after Stop")
	}
}

func TestRecorderEffectApplied(t *testing.T) {
	src := &fakeSource{data: []byte{1, 2, 3}}
	silence := func(pcm []byte) []byte { return make([]byte, len(pcm)) }
	rec := NewRecorder(src, silence)

	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	uri, err := rec.Stop()
	if err != nil {
		t.Fatal(err)
	}
	if uri != ClipDataURI([]byte{0, 0, 0}) {
		t.Error("effect was not applied to the captured frames")
	}
}

func TestRecorderNoSource(t *testing.T) {
	rec := NewRecorder(nil, Passthrough)
	err := rec.Start()

	var unavailable *CaptureUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want CaptureUnavailableError", err)
	}
	if unavailable.Device != "microphone" {
		t.Errorf("device = %q, want microphone", unavailable.Device)
	}
}

func TestRecorderStartFailure(t *testing.T) {
	src := &fakeSource{startErr: errors.New("device busy")}
	rec := NewRecorder(src, Passthrough)

	var unavailable *CaptureUnavailableError
	if err := rec.Start(); !errors.As(err, &unavailable) {
		t.Fatalf("error = %v, want CaptureUnavailableError", err)
	}
	if rec.Recording() {
		t.Error("failed Start must leave the recorder idle")
	}
}

func TestRecorderDoubleStart(t *testing.T) {
	src := &fakeSource{}
	rec := NewRecorder(src, Passthrough)
	if err := rec.Start(); err != nil {
		t.Fatal(err)
	}
	if err := rec.Start(); err == nil {
		t.Error("second Start should fail while recording")
	}
	if _, err := rec.Stop(); err != nil {
		t.Fatal(err)
	}
}

func TestRecorderStopWhenIdle(t *testing.T) {
	rec := NewRecorder(&fakeSource{}, Passthrough)
	if _, err := rec.Stop(); err == nil {
		t.Error("Stop without Start should fail")
	}
}

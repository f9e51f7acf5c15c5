package record

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeDevice struct {
	openErr  error
	readErr  error
	panicAt  int
	value    int16
	opened   atomic.Int32
	closed   atomic.Int32
	readWait time.Duration
}

func (d *fakeDevice) Open(sampleRate, channels int) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened.Add(1)
	return &fakeStream{dev: d}, nil
}

type fakeStream struct {
	dev   *fakeDevice
	reads int
}

func (s *fakeStream) Start() error { return nil }

func (s *fakeStream) Read(dst []int16) (int, error) {
	s.reads++
	if s.dev.panicAt > 0 && s.reads >= s.dev.panicAt {
		panic("driver fault")
	}
	if s.dev.readErr != nil {
		return 0, s.dev.readErr
	}
	if s.dev.readWait > 0 {
		time.Sleep(s.dev.readWait)
	}
	for i := range dst {
		dst[i] = s.dev.value
	}
	return len(dst), nil
}

func (s *fakeStream) Close() error {
	s.dev.closed.Add(1)
	return nil
}

func TestStartStop(t *testing.T) {
	dev := &fakeDevice{value: 1000, readWait: time.Millisecond}
	s := NewSession(dev, 0, nil)

	if err := s.Start(16000, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsActive() {
		t.Fatalf("expected active session")
	}
	if err := s.Start(16000, 1); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	buf, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.IsActive() {
		t.Fatalf("expected inactive session after Stop")
	}
	if len(buf.Samples) == 0 || buf.SampleRate != 16000 || buf.Channels != 1 || buf.ID == "" {
		t.Fatalf("unexpected buffer: id=%q rate=%d ch=%d n=%d", buf.ID, buf.SampleRate, buf.Channels, len(buf.Samples))
	}
	if dev.opened.Load() != 1 || dev.closed.Load() != 1 {
		t.Fatalf("stream not released: opened=%d closed=%d", dev.opened.Load(), dev.closed.Load())
	}
	if _, err := s.Stop(); !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
}

func TestCaptureUnavailable(t *testing.T) {
	s := NewSession(&fakeDevice{openErr: errors.New("no microphone")}, 0, nil)
	err := s.Start(16000, 1)
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	if s.IsActive() {
		t.Fatalf("failed start must leave the session inactive")
	}
}

func TestCeilingStopsCapture(t *testing.T) {
	dev := &fakeDevice{value: 5}
	s := NewSession(dev, 100*time.Millisecond, nil)
	if err := s.Start(16000, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case <-s.Expired():
	case <-time.After(2 * time.Second):
		t.Fatalf("ceiling did not expire")
	}
	if dev.closed.Load() != 1 {
		t.Fatalf("stream should be closed at the ceiling")
	}

	buf, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !buf.Truncated || len(buf.Samples) != 1600 {
		t.Fatalf("expected 1600 truncated samples, got %d (truncated=%v)", len(buf.Samples), buf.Truncated)
	}
	if buf.Duration() != 100*time.Millisecond {
		t.Fatalf("unexpected duration %v", buf.Duration())
	}
}

func TestReadFailureReleasesStream(t *testing.T) {
	dev := &fakeDevice{readErr: errors.New("unplugged")}
	s := NewSession(dev, 0, nil)
	if err := s.Start(16000, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-s.Expired()
	if _, err := s.Stop(); err == nil {
		t.Fatalf("expected read error from Stop")
	}
	if dev.closed.Load() != 1 {
		t.Fatalf("stream not closed after read failure")
	}
}

func TestPanicReleasesStream(t *testing.T) {
	dev := &fakeDevice{panicAt: 2}
	s := NewSession(dev, 0, nil)
	if err := s.Start(16000, 1); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	<-s.Expired()
	if _, err := s.Stop(); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if dev.closed.Load() != 1 {
		t.Fatalf("stream not closed after panic")
	}
	if err := s.Start(16000, 1); err != nil {
		t.Fatalf("session should be reusable, got %v", err)
	}
	_, _ = s.Stop()
}

func TestBufferLevels(t *testing.T) {
	b := Buffer{Samples: []int16{16384, -16384, 16384, -16384}, SampleRate: 4, Channels: 1}
	if rms := b.RMS(); rms < 0.49 || rms > 0.51 {
		t.Fatalf("expected rms 0.5, got %f", rms)
	}
	if b.Duration() != time.Second {
		t.Fatalf("expected 1s, got %v", b.Duration())
	}
	if (Buffer{}).RMS() != 0 || (Buffer{}).Duration() != 0 {
		t.Fatalf("empty buffer should have no level or length")
	}
}

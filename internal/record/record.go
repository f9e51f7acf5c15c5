// Package record owns the microphone while a dictation is being captured.
package record

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dictate/internal/logging"
)

var (
	// ErrCaptureUnavailable is returned by Start when no input stream can be
	// opened.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	ErrAlreadyActive      = errors.New("capture already active")
	ErrNotActive          = errors.New("capture not active")
)

const (
	chunkFrames   = 1024
	maxReadErrors = 5
)

// Stream is an open input stream. Read fills dst with interleaved samples
// and returns how many it wrote.
type Stream interface {
	Start() error
	Read(dst []int16) (int, error)
	Close() error
}

// Device opens input streams.
type Device interface {
	Open(sampleRate, channels int) (Stream, error)
}

// Buffer is the audio of one finished recording.
type Buffer struct {
	ID         string
	Samples    []int16
	SampleRate int
	Channels   int
	StartedAt  time.Time
	Truncated  bool // the duration ceiling ended the recording
}

// Duration is the playback length of the buffer.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Samples) / b.Channels
	return time.Duration(frames) * time.Second / time.Duration(b.SampleRate)
}

// RMS is the root mean square level of the samples, scaled to 0..1.
func (b Buffer) RMS() float64 {
	if len(b.Samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b.Samples {
		v := float64(s) / 32768
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(b.Samples)))
}

type result struct {
	buf Buffer
	err error
}

// Session captures at most one recording at a time. When the duration
// ceiling is reached, or the stream fails, capture stops by itself, the
// Expired channel is closed, and the audio waits for Stop.
type Session struct {
	device      Device
	maxDuration time.Duration
	log         *zap.SugaredLogger

	mu         sync.Mutex
	active     bool
	stopCancel context.CancelFunc
	done       chan result
	expired    chan struct{}
}

// NewSession creates a session on dev. maxDuration <= 0 disables the
// ceiling.
func NewSession(dev Device, maxDuration time.Duration, log *zap.SugaredLogger) *Session {
	return &Session{device: dev, maxDuration: maxDuration, log: logging.OrNop(log)}
}

// Start opens the device and begins capturing.
func (s *Session) Start(sampleRate, channels int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid format %d Hz x %d channels", sampleRate, channels)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrAlreadyActive
	}

	stream, err := s.device.Open(sampleRate, channels)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCaptureUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("%w: start stream: %w", ErrCaptureUnavailable, err)
	}

	buf := Buffer{
		ID:         uuid.NewString(),
		SampleRate: sampleRate,
		Channels:   channels,
		StartedAt:  time.Now(),
	}
	var ctx context.Context
	ctx, s.stopCancel = context.WithCancel(context.Background())
	s.done = make(chan result, 1)
	s.expired = make(chan struct{})
	s.active = true

	s.log.Debugw("capture started", "id", buf.ID, "rate", sampleRate, "channels", channels)
	go s.captureLoop(ctx, stream, buf, s.done, s.expired)
	return nil
}

// Stop ends the recording and returns its audio.
func (s *Session) Stop() (Buffer, error) {
	s.mu.Lock()
	if !s.active || s.done == nil {
		s.mu.Unlock()
		return Buffer{}, ErrNotActive
	}
	cancel := s.stopCancel
	done := s.done
	s.done = nil
	s.mu.Unlock()

	cancel()
	res := <-done

	s.mu.Lock()
	s.active = false
	s.stopCancel = nil
	s.mu.Unlock()

	s.log.Debugw("capture stopped", "id", res.buf.ID, "duration", res.buf.Duration(), "truncated", res.buf.Truncated)
	return res.buf, res.err
}

// IsActive reports whether a recording is open, including one that ended on
// its own and has not been collected by Stop.
func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Expired is closed when the current recording ends without Stop. It
// returns nil, which blocks forever, while no recording is open.
func (s *Session) Expired() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return nil
	}
	return s.expired
}

func (s *Session) captureLoop(ctx context.Context, stream Stream, buf Buffer, done chan<- result, expired chan struct{}) {
	var err error
	selfStopped := false
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture panic: %v", r)
			selfStopped = true
		}
		if cerr := stream.Close(); cerr != nil {
			s.log.Warnw("close stream failed", "id", buf.ID, "error", cerr)
		}
		if selfStopped {
			close(expired)
		}
		done <- result{buf: buf, err: err}
	}()

	maxSamples := 0
	if s.maxDuration > 0 {
		maxSamples = int(s.maxDuration.Seconds() * float64(buf.SampleRate) * float64(buf.Channels))
	}
	chunk := make([]int16, chunkFrames*buf.Channels)
	readErrors := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, rerr := stream.Read(chunk)
		if rerr != nil {
			readErrors++
			s.log.Debugw("stream read error", "id", buf.ID, "error", rerr)
			if readErrors >= maxReadErrors {
				err = fmt.Errorf("read stream: %w", rerr)
				selfStopped = true
				return
			}
			continue
		}
		readErrors = 0
		buf.Samples = append(buf.Samples, chunk[:n]...)

		if maxSamples > 0 && len(buf.Samples) >= maxSamples {
			buf.Samples = buf.Samples[:maxSamples]
			buf.Truncated = true
			selfStopped = true
			s.log.Infow("recording ceiling reached", "id", buf.ID, "max", s.maxDuration)
			return
		}
	}
}

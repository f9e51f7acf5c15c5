// Package asr turns recorded audio into text through a transcription
// engine.
package asr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dictate/internal/logging"
	"dictate/internal/record"
)

var (
	// ErrEmptyInput means there was nothing worth transcribing: the audio was
	// too short or too quiet, or the engine heard no words.
	ErrEmptyInput = errors.New("empty input")
	// ErrTranscriptionFailed matches every *TranscriptionError.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// TranscriptionError carries the engine failure behind ErrTranscriptionFailed.
type TranscriptionError struct {
	Cause   error
	Elapsed time.Duration
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed after %v: %v", e.Elapsed.Round(time.Millisecond), e.Cause)
}

func (e *TranscriptionError) Unwrap() error { return e.Cause }

func (e *TranscriptionError) Is(target error) bool { return target == ErrTranscriptionFailed }

// Transcript is an engine result. Confidence is 0 when the engine does not
// report one.
type Transcript struct {
	Text       string
	Confidence float64
	Raw        []byte
}

// Engine is a speech recognizer. It must be safe to call from any goroutine.
type Engine interface {
	Transcribe(ctx context.Context, samples []int16, sampleRate, channels int, language string) (Transcript, error)
}

// Thresholds below which audio is treated as empty.
type Thresholds struct {
	MinDuration time.Duration
	MinRMS      float64
}

// Gateway wraps an engine with a timeout and maps its failures. It never
// retries.
type Gateway struct {
	engine     Engine
	timeout    time.Duration
	thresholds Thresholds
	log        *zap.SugaredLogger
}

func NewGateway(engine Engine, timeout time.Duration, th Thresholds, log *zap.SugaredLogger) *Gateway {
	return &Gateway{engine: engine, timeout: timeout, thresholds: th, log: logging.OrNop(log)}
}

type engineResult struct {
	tr  Transcript
	err error
}

// Transcribe runs the engine on buf. It returns ErrEmptyInput for audio
// below the thresholds or an empty transcript, and a *TranscriptionError for
// engine errors, timeouts and panics.
func (g *Gateway) Transcribe(ctx context.Context, buf record.Buffer, language string) (Transcript, error) {
	if d := buf.Duration(); d < g.thresholds.MinDuration {
		g.log.Debugw("audio too short", "id", buf.ID, "duration", d)
		return Transcript{}, ErrEmptyInput
	}
	if rms := buf.RMS(); rms < g.thresholds.MinRMS {
		g.log.Debugw("audio too quiet", "id", buf.ID, "rms", rms)
		return Transcript{}, ErrEmptyInput
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan engineResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- engineResult{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		tr, err := g.engine.Transcribe(ctx, buf.Samples, buf.SampleRate, buf.Channels, language)
		done <- engineResult{tr: tr, err: err}
	}()

	var res engineResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	elapsed := time.Since(start)

	if res.err != nil {
		if errors.Is(res.err, ErrEmptyInput) {
			return Transcript{}, ErrEmptyInput
		}
		err := &TranscriptionError{Cause: res.err, Elapsed: elapsed}
		g.log.Warnw("transcription failed", "id", buf.ID, "error", res.err, "elapsed", elapsed)
		return Transcript{}, err
	}

	res.tr.Text = strings.TrimSpace(res.tr.Text)
	if res.tr.Text == "" {
		g.log.Debugw("engine returned no text", "id", buf.ID)
		return Transcript{}, ErrEmptyInput
	}
	g.log.Debugw("transcribed", "id", buf.ID, "elapsed", elapsed, "chars", len(res.tr.Text))
	return res.tr, nil
}

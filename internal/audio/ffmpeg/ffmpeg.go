// Package ffmpeg converts audio files that are not already WAV into the
// 16-bit PCM WAV the transcription pipeline reads.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"dictate/internal/logging"
)

// ErrNotInstalled is returned when no ffmpeg binary is on PATH.
var ErrNotInstalled = errors.New("ffmpeg not found on PATH")

// Binary is the executable looked up on PATH.
var Binary = "ffmpeg"

// Args builds the ffmpeg command line for a PCM WAV conversion.
func Args(inPath, outPath string, rate, channels int) []string {
	if channels <= 0 {
		channels = 1
	}
	if rate <= 0 {
		rate = 16000
	}
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", inPath,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		outPath,
	}
}

// ToWAV converts inPath into a PCM WAV at outPath.
func ToWAV(ctx context.Context, inPath, outPath string, rate, channels int, log *zap.SugaredLogger) error {
	log = logging.OrNop(log)
	bin, err := exec.LookPath(Binary)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotInstalled, err)
	}

	args := Args(inPath, outPath, rate, channels)
	log.Debugf("executing: %s %s", bin, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w\n%s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func TestArgs(t *testing.T) {
	got := Args("in.mp3", "out.wav", 0, 0)
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", "in.mp3",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		"-f", "wav",
		"out.wav",
	}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected args:\n got %v\nwant %v", got, want)
	}

	got = Args("in.ogg", "out.wav", 48000, 2)
	if got[7] != "2" || got[9] != "48000" {
		t.Fatalf("format not applied: %v", got)
	}
}

func TestToWAVMissingBinary(t *testing.T) {
	old := Binary
	Binary = "ffmpeg-that-does-not-exist"
	t.Cleanup(func() { Binary = old })

	dir := t.TempDir()
	err := ToWAV(context.Background(), filepath.Join(dir, "a.mp3"), filepath.Join(dir, "a.wav"), 16000, 1, nil)
	if !errors.Is(err, ErrNotInstalled) {
		t.Fatalf("expected ErrNotInstalled, got %v", err)
	}
}

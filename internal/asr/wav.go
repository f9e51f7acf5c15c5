package asr

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"dictate/internal/record"
)

// WriteWAV writes 16-bit PCM samples to path.
func WriteWAV(path string, samples []int16, rate, channels int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  rate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i := range samples {
		buf.Data[i] = int(samples[i])
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// ReadWAV decodes a PCM WAV file into a buffer of 16-bit samples.
func ReadWAV(path string) (record.Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return record.Buffer{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return record.Buffer{}, fmt.Errorf("%s is not a valid WAV file", path)
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return record.Buffer{}, fmt.Errorf("decode %s: %w", path, err)
	}

	shift := int(dec.BitDepth) - 16
	samples := make([]int16, len(pcm.Data))
	for i, v := range pcm.Data {
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			// 8-bit WAV is unsigned
			v = (v - 128) << -shift
		}
		samples[i] = int16(v)
	}
	return record.Buffer{
		ID:         path,
		Samples:    samples,
		SampleRate: pcm.Format.SampleRate,
		Channels:   pcm.Format.NumChannels,
	}, nil
}

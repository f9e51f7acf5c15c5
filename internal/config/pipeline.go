package config

import (
	"fmt"
	"os"
	"strings"

	"dictate/internal/editor"
)

// Mode selects how the chord drives recording.
type Mode string

const (
	ModeHold   Mode = "hold"
	ModeToggle Mode = "toggle"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeHold, ModeToggle:
		return m, nil
	case "":
		return ModeHold, nil
	}
	return "", fmt.Errorf("invalid HOTKEY_MODE: %s (allowed: hold, toggle)", s)
}

// Pipeline is the per-run view of the configuration the dictation core
// reads. It is built once and passed by value.
type Pipeline struct {
	Model         string
	Language      string
	Mode          Mode
	Provider      editor.Kind
	Preset        editor.Preset
	CustomPrompt  string
	AutoLearn     bool
	TrailingSpace bool
	SampleRate    int
	Channels      int
	HistoryDepth  int
}

// Pipeline derives the pipeline settings from a validated config.
func (c Config) Pipeline() (Pipeline, error) {
	mode, err := ParseMode(c.HotkeyMode)
	if err != nil {
		return Pipeline{}, err
	}
	kind, err := editor.ParseKind(c.AIProvider)
	if err != nil {
		return Pipeline{}, err
	}
	preset, err := editor.ParsePreset(c.AIPreset)
	if err != nil {
		return Pipeline{}, err
	}
	return Pipeline{
		Model:         c.Model,
		Language:      c.Language,
		Mode:          mode,
		Provider:      kind,
		Preset:        preset,
		CustomPrompt:  c.AICustomPrompt,
		AutoLearn:     c.AutoLearn,
		TrailingSpace: c.TrailingSpace,
		SampleRate:    c.SAMPLING_RATE,
		Channels:      c.Channels,
		HistoryDepth:  c.HistoryDepth,
	}, nil
}

// EditorOptions collects the provider settings, with API keys read from
// the environment.
func (c Config) EditorOptions() editor.Options {
	kind, _ := editor.ParseKind(c.AIProvider)
	return editor.Options{
		Kind:              kind,
		OllamaHost:        c.OllamaHost,
		OllamaModel:       c.OllamaModel,
		OpenAIEndpoint:    c.OpenAIEndpoint,
		OpenAIModel:       c.OpenAIModel,
		OpenAIKey:         os.Getenv(EnvOpenAIKey),
		AnthropicEndpoint: c.AnthropicEndpoint,
		AnthropicModel:    c.AnthropicModel,
		AnthropicKey:      os.Getenv(EnvAnthropicKey),
	}
}

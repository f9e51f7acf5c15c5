package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"dictate/internal/editor"
)

func TestSaveDefaultLoadValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault failed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("round trip changed the config: %+v", cfg)
	}
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"HOTKEY_MODE":"toggle","AI_PROVIDER":"ollama"}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HotkeyMode != "toggle" || cfg.AIProvider != "ollama" || cfg.SAMPLING_RATE != 16000 {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"channels": func(c *Config) { c.Channels = 0 },
		"mode":     func(c *Config) { c.HotkeyMode = "tap" },
		"provider": func(c *Config) { c.AIProvider = "gemini" },
		"preset":   func(c *Config) { c.AIPreset = "poem" },
		"rms":      func(c *Config) { c.MinRMS = 2 },
		"depth":    func(c *Config) { c.HistoryDepth = 0 },
		"extra":    func(c *Config) { c.ExtraConfig = "{" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(&cfg)
		if err := Validate(&cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestFlagsOverrideOnlyWhenSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fv := BindFlags(fs)
	if err := fs.Parse([]string{"--mode", "toggle", "--trailing-space", "--min-rms=0.01", "--preset", "email"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !fv.AnySet() {
		t.Fatalf("expected AnySet")
	}
	cfg := DefaultConfig()
	ApplyFlags(&cfg, fv)
	if cfg.HotkeyMode != "toggle" || !cfg.TrailingSpace || cfg.MinRMS != 0.01 || cfg.AIPreset != "email" {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.Model != DefaultConfig().Model || !cfg.AutoLearn {
		t.Fatalf("unset flags must not change config")
	}

	empty := BindFlags(pflag.NewFlagSet("empty", pflag.ContinueOnError))
	if empty.AnySet() {
		t.Fatalf("expected no flags set")
	}
}

func TestPipeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HotkeyMode = "Toggle"
	cfg.AIProvider = "openai"
	cfg.AIPreset = "commit"
	p, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("Pipeline failed: %v", err)
	}
	if p.Mode != ModeToggle || p.Provider != editor.KindOpenAI || p.Preset != editor.PresetCommit {
		t.Fatalf("unexpected pipeline %+v", p)
	}
	if p.SampleRate != 16000 || p.Channels != 1 || p.HistoryDepth != 50 {
		t.Fatalf("unexpected audio settings %+v", p)
	}
}

func TestASRTokenFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "env-key")
	cfg := DefaultConfig()
	if cfg.ASRToken() != "env-key" {
		t.Fatalf("expected env token")
	}
	cfg.Token = "explicit"
	if cfg.ASRToken() != "explicit" {
		t.Fatalf("expected explicit token")
	}
}

func TestInitCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "nested")
	cfg := DefaultConfig()
	cfg.CacheDir = dir
	InitCacheDir(&cfg, nil)
	if cfg.CacheDir != dir {
		t.Fatalf("expected %s, got %s", dir, cfg.CacheDir)
	}
	if TempDir(&cfg) != dir {
		t.Fatalf("TempDir should use the cache dir")
	}

	file := filepath.Join(t.TempDir(), "file")
	_ = os.WriteFile(file, nil, 0644)
	cfg.CacheDir = file
	InitCacheDir(&cfg, nil)
	if cfg.CacheDir != "" {
		t.Fatalf("a file is not a cache dir")
	}
}

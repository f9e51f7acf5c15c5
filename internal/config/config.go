package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"dictate/internal/editor"
	"dictate/internal/logging"
)

const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Config holds configurable parameters.
type Config struct {
	APIEndpoint    string `json:"API_ENDPOINT"`
	Token          string `json:"TOKEN"`
	Model          string `json:"MODEL"`
	Language       string `json:"LANGUAGE"`
	Prompt         string `json:"PROMPT"`
	TEXTPath       string `json:"TEXT_PATH"`
	ExtraConfig    string `json:"EXTRA_CONFIG"`
	RequestTimeout int    `json:"REQUEST_TIMEOUT"`
	EnableHTTP2    bool   `json:"ENABLE_HTTP2"`
	VerifySSL      bool   `json:"VERIFY_SSL"`

	Channels         int     `json:"CHANNELS"`
	SAMPLING_RATE    int     `json:"SAMPLING_RATE"`
	InputDevice      string  `json:"INPUT_DEVICE"`
	MaxRecordSeconds int     `json:"MAX_RECORD_SECONDS"`
	MinDurationMS    int     `json:"MIN_DURATION_MS"`
	MinRMS           float64 `json:"MIN_RMS"`

	Hotkey     string `json:"HOTKEY"`
	HotkeyMode string `json:"HOTKEY_MODE"`

	AIProvider        string `json:"AI_PROVIDER"`
	AIPreset          string `json:"AI_PRESET"`
	AICustomPrompt    string `json:"AI_CUSTOM_PROMPT"`
	AITimeout         int    `json:"AI_TIMEOUT"`
	OllamaHost        string `json:"OLLAMA_HOST"`
	OllamaModel       string `json:"OLLAMA_MODEL"`
	OpenAIEndpoint    string `json:"OPENAI_ENDPOINT"`
	OpenAIModel       string `json:"OPENAI_MODEL"`
	AnthropicEndpoint string `json:"ANTHROPIC_ENDPOINT"`
	AnthropicModel    string `json:"ANTHROPIC_MODEL"`

	AutoLearn     bool `json:"AUTO_LEARN"`
	TrailingSpace bool `json:"TRAILING_SPACE"`
	HistoryDepth  int  `json:"HISTORY_DEPTH"`

	DBPath       string `json:"DB_PATH"`
	CacheDir     string `json:"CACHE_DIR"`
	KeepCache    bool   `json:"KEEP_CACHE"`
	Notification bool   `json:"NOTIFICATION"`
	LogLevel     string `json:"LOG_LEVEL"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		APIEndpoint:    "https://api.openai.com/v1/audio/transcriptions",
		Token:          "",
		Model:          "whisper-1",
		Language:       "",
		Prompt:         "",
		TEXTPath:       "text",
		ExtraConfig:    "",
		RequestTimeout: 30,
		EnableHTTP2:    true,
		VerifySSL:      true,

		Channels:         1,
		SAMPLING_RATE:    16000,
		InputDevice:      "",
		MaxRecordSeconds: 120,
		MinDurationMS:    300,
		MinRMS:           0.002,

		Hotkey:     "ctrl+shift+space",
		HotkeyMode: string(ModeHold),

		AIProvider:        string(editor.KindBasic),
		AIPreset:          string(editor.PresetDefault),
		AICustomPrompt:    "",
		AITimeout:         30,
		OllamaHost:        editor.DefaultOllamaHost,
		OllamaModel:       editor.DefaultOllamaModel,
		OpenAIEndpoint:    editor.DefaultOpenAIEndpoint,
		OpenAIModel:       editor.DefaultOpenAIModel,
		AnthropicEndpoint: editor.DefaultAnthropicEndpoint,
		AnthropicModel:    editor.DefaultAnthropicModel,

		AutoLearn:     true,
		TrailingSpace: false,
		HistoryDepth:  50,

		DBPath:       "dictate.db",
		CacheDir:     "",
		KeepCache:    false,
		Notification: false,
		LogLevel:     "info",
	}
}

// Load loads config from JSON file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid CHANNELS: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.SAMPLING_RATE <= 0 {
		return fmt.Errorf("invalid SAMPLING_RATE: %d (must be > 0)", cfg.SAMPLING_RATE)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: %d (must be > 0)", cfg.RequestTimeout)
	}
	if cfg.AITimeout <= 0 {
		return fmt.Errorf("invalid AI_TIMEOUT: %d (must be > 0)", cfg.AITimeout)
	}
	if cfg.MaxRecordSeconds < 0 {
		return fmt.Errorf("invalid MAX_RECORD_SECONDS: %d (0 disables the ceiling)", cfg.MaxRecordSeconds)
	}
	if cfg.MinDurationMS < 0 {
		return fmt.Errorf("invalid MIN_DURATION_MS: %d", cfg.MinDurationMS)
	}
	if cfg.MinRMS < 0 || cfg.MinRMS >= 1 {
		return fmt.Errorf("invalid MIN_RMS: %v (allowed 0..1)", cfg.MinRMS)
	}
	if cfg.HistoryDepth < 1 {
		return fmt.Errorf("invalid HISTORY_DEPTH: %d (must be > 0)", cfg.HistoryDepth)
	}
	if strings.TrimSpace(cfg.Hotkey) == "" {
		return fmt.Errorf("HOTKEY is empty")
	}
	if _, err := ParseMode(cfg.HotkeyMode); err != nil {
		return err
	}
	if _, err := editor.ParseKind(cfg.AIProvider); err != nil {
		return err
	}
	if _, err := editor.ParsePreset(cfg.AIPreset); err != nil {
		return err
	}
	if cfg.ExtraConfig != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &m); err != nil {
			return fmt.Errorf("invalid EXTRA_CONFIG JSON: %w", err)
		}
	}
	return nil
}

// ASRToken is the bearer token for the transcription endpoint. An empty
// TOKEN falls back to $OPENAI_API_KEY.
func (c Config) ASRToken() string {
	if c.Token != "" {
		return c.Token
	}
	return os.Getenv(EnvOpenAIKey)
}

// InitCacheDir validates/creates the configured cache directory.
// It mutates cfg.CacheDir to an absolute path or clears it on failure.
func InitCacheDir(cfg *Config, log *zap.SugaredLogger) {
	log = logging.OrNop(log)
	if cfg.CacheDir == "" {
		return
	}
	abs, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		log.Warnf("cache-dir path invalid '%s': %v. Falling back to cwd.", cfg.CacheDir, err)
		cfg.CacheDir = ""
		return
	}
	info, err := os.Stat(abs)
	if err == nil {
		if !info.IsDir() {
			log.Warnf("cache-dir '%s' exists but is not a directory. Falling back to cwd.", abs)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		log.Infof("using existing cache-dir: %s", cfg.CacheDir)
		return
	}
	if os.IsNotExist(err) {
		if err := os.MkdirAll(abs, 0755); err != nil {
			log.Warnf("cannot create cache-dir '%s': %v. Falling back to cwd.", abs, err)
			cfg.CacheDir = ""
			return
		}
		cfg.CacheDir = abs
		log.Infof("created and using cache-dir: %s", cfg.CacheDir)
		return
	}
	log.Warnf("cannot access cache-dir '%s': %v. Falling back to cwd.", abs, err)
	cfg.CacheDir = ""
}

// TempDir returns the directory to use for temporary files.
func TempDir(cfg *Config) string {
	if cfg.CacheDir != "" {
		return cfg.CacheDir
	}
	cwd, _ := os.Getwd()
	return cwd
}

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	APIEndpoint       string
	APIEndpointSet    bool
	Token             string
	TokenSet          bool
	Model             string
	ModelSet          bool
	Language          string
	LanguageSet       bool
	Prompt            string
	PromptSet         bool
	TEXTPath          string
	TEXTPathSet       bool
	ExtraConfig       string
	ExtraConfigSet    bool
	RequestTimeout    int
	RequestTimeoutSet bool
	EnableHTTP2       bool
	EnableHTTP2Set    bool
	VerifySSL         bool
	VerifySSLSet      bool

	Channels            int
	ChannelsSet         bool
	SAMPLING_RATE       int
	SAMPLING_RATESet    bool
	InputDevice         string
	InputDeviceSet      bool
	MaxRecordSeconds    int
	MaxRecordSecondsSet bool
	MinDurationMS       int
	MinDurationMSSet    bool
	MinRMS              float64
	MinRMSSet           bool

	Hotkey        string
	HotkeySet     bool
	HotkeyMode    string
	HotkeyModeSet bool

	AIProvider        string
	AIProviderSet     bool
	AIPreset          string
	AIPresetSet       bool
	AICustomPrompt    string
	AICustomPromptSet bool
	AITimeout         int
	AITimeoutSet      bool
	OllamaHost        string
	OllamaHostSet     bool
	OllamaModel       string
	OllamaModelSet    bool

	AutoLearn        bool
	AutoLearnSet     bool
	TrailingSpace    bool
	TrailingSpaceSet bool
	HistoryDepth     int
	HistoryDepthSet  bool

	DBPath          string
	DBPathSet       bool
	CacheDir        string
	CacheDirSet     bool
	KeepCache       bool
	KeepCacheSet    bool
	Notification    bool
	NotificationSet bool
	LogLevel        string
	LogLevelSet     bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

func (s *stringFlag) Type() string { return "string" }

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.target != nil {
		*i.target = n
	}
	if i.set != nil {
		*i.set = true
	}
	return nil
}

func (i *intFlag) Type() string { return "int" }

type floatFlag struct {
	target *float64
	set    *bool
}

func (f *floatFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *f.target)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	if f.target != nil {
		*f.target = n
	}
	if f.set != nil {
		*f.set = true
	}
	return nil
}

func (f *floatFlag) Type() string { return "float" }

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

func (b *boolFlag) Type() string { return "bool" }

func boolVar(fs *pflag.FlagSet, target, set *bool, name, usage string) {
	fs.Var(&boolFlag{target, set}, name, usage)
	fs.Lookup(name).NoOptDefVal = "true"
}

// BindFlags registers the config override flags on fs and returns the
// populated FlagValues.
func BindFlags(fs *pflag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&stringFlag{&fv.APIEndpoint, &fv.APIEndpointSet}, "api-endpoint", "transcription endpoint URL")
	fs.Var(&stringFlag{&fv.Token, &fv.TokenSet}, "token", "authorization token (default $OPENAI_API_KEY)")
	fs.Var(&stringFlag{&fv.Model, &fv.ModelSet}, "model", "transcription model")
	fs.Var(&stringFlag{&fv.Language, &fv.LanguageSet}, "language", "language hint")
	fs.Var(&stringFlag{&fv.Prompt, &fv.PromptSet}, "prompt", "transcription prompt")
	fs.Var(&stringFlag{&fv.TEXTPath, &fv.TEXTPathSet}, "text-path", "JSON path to extract text")
	fs.Var(&stringFlag{&fv.ExtraConfig, &fv.ExtraConfigSet}, "extra-config", "extra JSON config to merge into request payload")
	fs.Var(&intFlag{&fv.RequestTimeout, &fv.RequestTimeoutSet}, "request-timeout", "request timeout seconds")
	boolVar(fs, &fv.EnableHTTP2, &fv.EnableHTTP2Set, "enable-http2", "enable HTTP/2 (true/false)")
	boolVar(fs, &fv.VerifySSL, &fv.VerifySSLSet, "verify-ssl", "verify TLS certificates (true/false)")

	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "channels (int)")
	fs.Var(&intFlag{&fv.SAMPLING_RATE, &fv.SAMPLING_RATESet}, "sampling-rate", "sampling rate (Hz)")
	fs.Var(&stringFlag{&fv.InputDevice, &fv.InputDeviceSet}, "device", "input device name (substring match)")
	fs.Var(&intFlag{&fv.MaxRecordSeconds, &fv.MaxRecordSecondsSet}, "max-record-seconds", "recording ceiling in seconds (0 disables)")
	fs.Var(&intFlag{&fv.MinDurationMS, &fv.MinDurationMSSet}, "min-duration-ms", "shorter recordings are ignored")
	fs.Var(&floatFlag{&fv.MinRMS, &fv.MinRMSSet}, "min-rms", "quieter recordings are ignored (0..1)")

	fs.Var(&stringFlag{&fv.Hotkey, &fv.HotkeySet}, "hotkey", "dictation chord, e.g. ctrl+shift+space")
	fs.Var(&stringFlag{&fv.HotkeyMode, &fv.HotkeyModeSet}, "mode", "hotkey mode: hold or toggle")

	fs.Var(&stringFlag{&fv.AIProvider, &fv.AIProviderSet}, "editor", "AI provider: none, basic, ollama, openai, anthropic")
	fs.Var(&stringFlag{&fv.AIPreset, &fv.AIPresetSet}, "preset", "edit preset: default, email, code, notes, commit")
	fs.Var(&stringFlag{&fv.AICustomPrompt, &fv.AICustomPromptSet}, "custom-prompt", "custom edit prompt, {text} marks the transcript")
	fs.Var(&intFlag{&fv.AITimeout, &fv.AITimeoutSet}, "ai-timeout", "AI edit timeout seconds")
	fs.Var(&stringFlag{&fv.OllamaHost, &fv.OllamaHostSet}, "ollama-host", "Ollama server URL")
	fs.Var(&stringFlag{&fv.OllamaModel, &fv.OllamaModelSet}, "ollama-model", "Ollama model")

	boolVar(fs, &fv.AutoLearn, &fv.AutoLearnSet, "auto-learn", "learn vocabulary from AI edits (true/false)")
	boolVar(fs, &fv.TrailingSpace, &fv.TrailingSpaceSet, "trailing-space", "append a space after dictated text (true/false)")
	fs.Var(&intFlag{&fv.HistoryDepth, &fv.HistoryDepthSet}, "history-depth", "typed spans kept for voice commands")

	fs.Var(&stringFlag{&fv.DBPath, &fv.DBPathSet}, "db", "sqlite database path")
	fs.Var(&stringFlag{&fv.CacheDir, &fv.CacheDirSet}, "cache-dir", "cache directory")
	boolVar(fs, &fv.KeepCache, &fv.KeepCacheSet, "keep-cache", "keep cache files (true/false)")
	boolVar(fs, &fv.Notification, &fv.NotificationSet, "notification", "enable notifications (true/false)")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "debug, info, warn or error")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.APIEndpointSet {
		cfg.APIEndpoint = fv.APIEndpoint
	}
	if fv.TokenSet {
		cfg.Token = fv.Token
	}
	if fv.ModelSet {
		cfg.Model = fv.Model
	}
	if fv.LanguageSet {
		cfg.Language = fv.Language
	}
	if fv.PromptSet {
		cfg.Prompt = fv.Prompt
	}
	if fv.TEXTPathSet {
		cfg.TEXTPath = fv.TEXTPath
	}
	if fv.ExtraConfigSet {
		cfg.ExtraConfig = fv.ExtraConfig
	}
	if fv.RequestTimeoutSet {
		cfg.RequestTimeout = fv.RequestTimeout
	}
	if fv.EnableHTTP2Set {
		cfg.EnableHTTP2 = fv.EnableHTTP2
	}
	if fv.VerifySSLSet {
		cfg.VerifySSL = fv.VerifySSL
	}

	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.SAMPLING_RATESet {
		cfg.SAMPLING_RATE = fv.SAMPLING_RATE
	}
	if fv.InputDeviceSet {
		cfg.InputDevice = fv.InputDevice
	}
	if fv.MaxRecordSecondsSet {
		cfg.MaxRecordSeconds = fv.MaxRecordSeconds
	}
	if fv.MinDurationMSSet {
		cfg.MinDurationMS = fv.MinDurationMS
	}
	if fv.MinRMSSet {
		cfg.MinRMS = fv.MinRMS
	}

	if fv.HotkeySet {
		cfg.Hotkey = fv.Hotkey
	}
	if fv.HotkeyModeSet {
		cfg.HotkeyMode = fv.HotkeyMode
	}

	if fv.AIProviderSet {
		cfg.AIProvider = fv.AIProvider
	}
	if fv.AIPresetSet {
		cfg.AIPreset = fv.AIPreset
	}
	if fv.AICustomPromptSet {
		cfg.AICustomPrompt = fv.AICustomPrompt
	}
	if fv.AITimeoutSet {
		cfg.AITimeout = fv.AITimeout
	}
	if fv.OllamaHostSet {
		cfg.OllamaHost = fv.OllamaHost
	}
	if fv.OllamaModelSet {
		cfg.OllamaModel = fv.OllamaModel
	}

	if fv.AutoLearnSet {
		cfg.AutoLearn = fv.AutoLearn
	}
	if fv.TrailingSpaceSet {
		cfg.TrailingSpace = fv.TrailingSpace
	}
	if fv.HistoryDepthSet {
		cfg.HistoryDepth = fv.HistoryDepth
	}

	if fv.DBPathSet {
		cfg.DBPath = fv.DBPath
	}
	if fv.CacheDirSet {
		cfg.CacheDir = fv.CacheDir
	}
	if fv.KeepCacheSet {
		cfg.KeepCache = fv.KeepCache
	}
	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
}

// AnySet reports whether any flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.APIEndpointSet ||
		fv.TokenSet ||
		fv.ModelSet ||
		fv.LanguageSet ||
		fv.PromptSet ||
		fv.TEXTPathSet ||
		fv.ExtraConfigSet ||
		fv.RequestTimeoutSet ||
		fv.EnableHTTP2Set ||
		fv.VerifySSLSet ||
		fv.ChannelsSet ||
		fv.SAMPLING_RATESet ||
		fv.InputDeviceSet ||
		fv.MaxRecordSecondsSet ||
		fv.MinDurationMSSet ||
		fv.MinRMSSet ||
		fv.HotkeySet ||
		fv.HotkeyModeSet ||
		fv.AIProviderSet ||
		fv.AIPresetSet ||
		fv.AICustomPromptSet ||
		fv.AITimeoutSet ||
		fv.OllamaHostSet ||
		fv.OllamaModelSet ||
		fv.AutoLearnSet ||
		fv.TrailingSpaceSet ||
		fv.HistoryDepthSet ||
		fv.DBPathSet ||
		fv.CacheDirSet ||
		fv.KeepCacheSet ||
		fv.NotificationSet ||
		fv.LogLevelSet
}

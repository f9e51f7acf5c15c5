package editor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"dictate/internal/jsonpath"
)

// Provider rewrites dictated text. Implementations must honour ctx.
type Provider interface {
	Edit(ctx context.Context, text string, preset Preset, customPrompt string) (string, error)
}

// Kind names a provider.
type Kind string

const (
	KindNone      Kind = "none"
	KindBasic     Kind = "basic"
	KindOllama    Kind = "ollama"
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// ParseKind accepts a provider name case-insensitively; empty means none.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return KindNone, nil
	case KindNone, KindBasic, KindOllama, KindOpenAI, KindAnthropic:
		return k, nil
	}
	return "", fmt.Errorf("unknown AI provider %q", s)
}

const (
	DefaultOllamaHost        = "http://localhost:11434"
	DefaultOllamaModel       = "llama3.2:3b"
	DefaultOpenAIEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultAnthropicEndpoint = "https://api.anthropic.com/v1/messages"
	DefaultAnthropicModel    = "claude-3-haiku-20240307"

	anthropicVersion = "2023-06-01"
	maxTokens        = 500
	temperature      = 0.3
)

// Options configures NewProvider.
type Options struct {
	Kind       Kind
	HTTPClient *http.Client

	OllamaHost  string
	OllamaModel string

	OpenAIEndpoint string
	OpenAIModel    string
	OpenAIKey      string

	AnthropicEndpoint string
	AnthropicModel    string
	AnthropicKey      string
}

// NewProvider builds the provider selected by opts.Kind. KindNone yields a
// nil provider, which disables editing.
func NewProvider(opts Options) (Provider, error) {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	switch opts.Kind {
	case KindNone, "":
		return nil, nil
	case KindBasic:
		return Basic{}, nil
	case KindOllama:
		return &Ollama{
			Host:   orDefault(opts.OllamaHost, DefaultOllamaHost),
			Model:  orDefault(opts.OllamaModel, DefaultOllamaModel),
			Client: client,
		}, nil
	case KindOpenAI:
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider needs an API key")
		}
		return &OpenAI{
			Endpoint: orDefault(opts.OpenAIEndpoint, DefaultOpenAIEndpoint),
			Model:    orDefault(opts.OpenAIModel, DefaultOpenAIModel),
			Key:      opts.OpenAIKey,
			Client:   client,
		}, nil
	case KindAnthropic:
		if opts.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider needs an API key")
		}
		return &Anthropic{
			Endpoint: orDefault(opts.AnthropicEndpoint, DefaultAnthropicEndpoint),
			Model:    orDefault(opts.AnthropicModel, DefaultAnthropicModel),
			Key:      opts.AnthropicKey,
			Client:   client,
		}, nil
	}
	return nil, fmt.Errorf("unknown AI provider %q", opts.Kind)
}

// Ollama calls a local Ollama server's generate endpoint.
type Ollama struct {
	Host   string
	Model  string
	Client *http.Client
}

func (o *Ollama) Edit(ctx context.Context, text string, preset Preset, customPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  o.Model,
		"prompt": BuildPrompt(text, preset, customPrompt),
		"stream": false,
		"options": map[string]interface{}{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	url := strings.TrimRight(o.Host, "/") + "/api/generate"
	return postJSON(ctx, o.Client, url, nil, payload, "response")
}

// OpenAI calls a chat completions endpoint.
type OpenAI struct {
	Endpoint string
	Model    string
	Key      string
	Client   *http.Client
}

func (o *OpenAI) Edit(ctx context.Context, text string, preset Preset, customPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(text, preset, customPrompt)},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.Key}
	return postJSON(ctx, o.Client, o.Endpoint, headers, payload, "choices[0].message.content")
}

// Anthropic calls the messages endpoint.
type Anthropic struct {
	Endpoint string
	Model    string
	Key      string
	Client   *http.Client
}

func (a *Anthropic) Edit(ctx context.Context, text string, preset Preset, customPrompt string) (string, error) {
	payload := map[string]interface{}{
		"model":      a.Model,
		"max_tokens": maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": BuildPrompt(text, preset, customPrompt)},
		},
	}
	headers := map[string]string{
		"x-api-key":         a.Key,
		"anthropic-version": anthropicVersion,
	}
	return postJSON(ctx, a.Client, a.Endpoint, headers, payload, "content[0].text")
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload interface{}, textPath string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "dictate/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, snippet(respBody))
	}
	text, err := jsonpath.Extract(respBody, textPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func snippet(b []byte) string {
	const limit = 300
	if len(b) == 0 {
		return "<empty>"
	}
	if !utf8.Valid(b) {
		return fmt.Sprintf("<binary %d bytes>", len(b))
	}
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

package asr

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dictate/internal/config"
	"dictate/internal/jsonpath"
	"dictate/internal/logging"
)

// TempPrefix marks upload files left behind by a crash; they are removed at
// startup.
const TempPrefix = "RecordTemp_"

// HTTPEngine uploads audio as a WAV file to an OpenAI-compatible
// transcription endpoint.
type HTTPEngine struct {
	cfg            config.Config
	httpClient     *http.Client
	extraConfigMap map[string]interface{}
	log            *zap.SugaredLogger
	now            func() time.Time
}

// NewHTTPEngine creates the engine and parses EXTRA_CONFIG.
func NewHTTPEngine(cfg config.Config, httpClient *http.Client, log *zap.SugaredLogger) (*HTTPEngine, error) {
	e := &HTTPEngine{cfg: cfg, httpClient: httpClient, log: logging.OrNop(log), now: time.Now}
	if cfg.ExtraConfig != "" {
		e.extraConfigMap = make(map[string]interface{})
		if err := json.Unmarshal([]byte(cfg.ExtraConfig), &e.extraConfigMap); err != nil {
			return nil, fmt.Errorf("invalid extra-config JSON: %w", err)
		}
	}
	return e, nil
}

// Transcribe writes the samples to a temporary WAV file, uploads it and
// extracts the text from the JSON response. With KEEP_CACHE the audio and
// response are kept in CACHE_DIR.
func (e *HTTPEngine) Transcribe(ctx context.Context, samples []int16, sampleRate, channels int, language string) (Transcript, error) {
	if e.cfg.APIEndpoint == "" {
		return Transcript{}, fmt.Errorf("API endpoint is empty")
	}

	wavPath := e.tempWavPath()
	if err := WriteWAV(wavPath, samples, sampleRate, channels); err != nil {
		_ = os.Remove(wavPath)
		return Transcript{}, fmt.Errorf("write wav: %w", err)
	}

	body, err := e.upload(ctx, wavPath, language)
	e.handleCache(wavPath, body, err == nil)
	if err != nil {
		return Transcript{}, err
	}

	text, err := jsonpath.Extract(body, e.cfg.TEXTPath)
	if err != nil {
		return Transcript{Raw: body}, fmt.Errorf("parse response %s: %w", formatResponse(body), err)
	}
	return Transcript{Text: text, Raw: body}, nil
}

func (e *HTTPEngine) upload(ctx context.Context, filePath, language string) ([]byte, error) {
	e.log.Debugf("uploading %s -> %s", filePath, e.cfg.APIEndpoint)
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}

	base := make(map[string]interface{})
	if e.cfg.Model != "" {
		base["model"] = e.cfg.Model
	}
	if language == "" {
		language = e.cfg.Language
	}
	if language != "" {
		base["language"] = language
	}
	if e.cfg.Prompt != "" {
		base["prompt"] = e.cfg.Prompt
	}
	for k, v := range e.extraConfigMap {
		base[k] = v
	}
	for k, v := range base {
		switch val := v.(type) {
		case string:
			_ = writer.WriteField(k, val)
		case bool, float64, int:
			_ = writer.WriteField(k, fmt.Sprintf("%v", val))
		default:
			if b, err := json.Marshal(val); err == nil {
				_ = writer.WriteField(k, string(b))
			} else {
				_ = writer.WriteField(k, fmt.Sprintf("%v", val))
			}
		}
	}
	_ = writer.Close()

	client := e.httpClient
	if client == nil {
		client = &http.Client{Timeout: time.Duration(e.cfg.RequestTimeout) * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.APIEndpoint, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token := e.cfg.ASRToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "dictate/1.0")

	start := time.Now()
	resp, err := client.Do(req)
	e.log.Debugf("request duration: %v", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return respBody, fmt.Errorf("status %d: %s", resp.StatusCode, formatResponse(respBody))
	}
	return respBody, nil
}

func (e *HTTPEngine) handleCache(wavPath string, resBody []byte, uploadOk bool) {
	if !e.cfg.KeepCache || e.cfg.CacheDir == "" {
		_ = os.Remove(wavPath)
		return
	}
	base := fmt.Sprintf("audio-%s", e.now().Format("2006-01-02-15.04.05.000"))
	newWav := filepath.Join(e.cfg.CacheDir, base+".wav")
	if err := os.Rename(wavPath, newWav); err != nil {
		e.log.Warnf("failed to move wav to %s: %v", newWav, err)
		_ = os.Remove(wavPath)
	}
	if uploadOk && len(resBody) > 0 {
		jsonPath := filepath.Join(e.cfg.CacheDir, base+".json")
		if err := os.WriteFile(jsonPath, resBody, 0644); err != nil {
			e.log.Warnf("failed to write json to %s: %v", jsonPath, err)
		}
	}
}

func (e *HTTPEngine) tempWavPath() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
	return filepath.Join(config.TempDir(&e.cfg), TempPrefix+id+".wav")
}

func formatResponse(b []byte) string {
	if len(b) == 0 {
		return "<empty>"
	}
	const maxText = 1000
	const maxBin = 256

	if utf8.Valid(b) {
		s := string(b)
		if len(s) > maxText {
			return fmt.Sprintf("%s... (truncated, total %d bytes)", s[:maxText], len(b))
		}
		return s
	}

	if len(b) > maxBin {
		return fmt.Sprintf("<binary %d bytes, prefix hex: %s...>", len(b), hex.EncodeToString(b[:maxBin]))
	}
	return fmt.Sprintf("<binary %d bytes, hex: %s>", len(b), hex.EncodeToString(b))
}

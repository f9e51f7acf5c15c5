// Package app wires configuration, stores and adapters into the dictation
// controller for the CLI.
package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"dictate/internal/asr"
	"dictate/internal/audio/ffmpeg"
	"dictate/internal/config"
	"dictate/internal/dictation"
	"dictate/internal/editor"
	"dictate/internal/hotkey"
	"dictate/internal/inject"
	"dictate/internal/logging"
	"dictate/internal/notify"
	"dictate/internal/record"
	"dictate/internal/tracker"
	"dictate/internal/ui"
)

// RunOptions selects the chord source and output for RunDictation.
type RunOptions struct {
	// Stdin reads chord presses as lines from In and prints dictated text
	// to Out instead of typing into the focused window.
	Stdin bool
	In    io.Reader
	Out   io.Writer
}

// pipeline holds the parts shared by live dictation and file mode.
type pipeline struct {
	settings    config.Pipeline
	stores      *Stores
	transcriber *asr.Gateway
	editor      *editor.Gateway
}

func newPipeline(cfg config.Config, log *zap.SugaredLogger) (*pipeline, error) {
	settings, err := cfg.Pipeline()
	if err != nil {
		return nil, err
	}
	cleanupOldTempFiles(config.TempDir(&cfg), log.Named("cleanup"))

	httpClient := newHTTPClient(cfg)
	engine, err := asr.NewHTTPEngine(cfg, httpClient, log.Named("upload"))
	if err != nil {
		return nil, err
	}
	thresholds := asr.Thresholds{
		MinDuration: time.Duration(cfg.MinDurationMS) * time.Millisecond,
		MinRMS:      cfg.MinRMS,
	}
	transcriber := asr.NewGateway(engine, time.Duration(cfg.RequestTimeout)*time.Second, thresholds, log.Named("asr"))

	edit := newEditor(cfg, httpClient, log.Named("editor"))

	stores, err := OpenStores(cfg, log.Named("db"))
	if err != nil {
		return nil, err
	}
	return &pipeline{settings: settings, stores: stores, transcriber: transcriber, editor: edit}, nil
}

// newEditor builds the edit gateway. A provider that cannot be set up falls
// back to the rule-based one.
func newEditor(cfg config.Config, client *http.Client, log *zap.SugaredLogger) *editor.Gateway {
	log = logging.OrNop(log)
	opts := cfg.EditorOptions()
	opts.HTTPClient = client
	provider, err := editor.NewProvider(opts)
	if err != nil {
		log.Warnw("AI provider unavailable, using basic cleanup", "provider", opts.Kind, "error", err)
		provider = editor.Basic{}
	}
	return editor.NewGateway(provider, time.Duration(cfg.AITimeout)*time.Second, log)
}

func (p *pipeline) controller(deps dictation.Deps) *dictation.Controller {
	deps.Transcriber = p.transcriber
	if p.editor.Enabled() {
		deps.Editor = p.editor
	}
	deps.Dictionary = p.stores.Words
	deps.Snippets = p.stores.Snippets
	deps.Journal = p.stores.DB
	return dictation.New(p.settings, deps)
}

// RunDictation listens for the chord and dictates until ctx is done.
func RunDictation(ctx context.Context, cfg config.Config, opts RunOptions, log *zap.SugaredLogger) error {
	log = logging.OrNop(log)
	p, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.stores.Close()

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	var (
		events <-chan hotkey.Event
		inj    inject.Injector
	)
	if opts.Stdin {
		in := opts.In
		if in == nil {
			in = os.Stdin
		}
		events = hotkey.LineMonitor(ctx, in, p.settings.Mode == config.ModeToggle, log.Named("hotkey"))
		inj = &inject.Console{W: out}
	} else {
		chord, err := hotkey.ParseChord(cfg.Hotkey)
		if err != nil {
			return err
		}
		events, err = hotkey.Listen(ctx, chord, log.Named("hotkey"))
		if err != nil {
			if errors.Is(err, hotkey.ErrUnsupported) {
				return fmt.Errorf("%w; run with --stdin", err)
			}
			return err
		}
		kb, err := inject.NewKeyboard(log.Named("paste"))
		if err != nil {
			return err
		}
		inj = kb
	}

	observers := []dictation.Observer{ui.NewStatus(os.Stderr)}
	if cfg.Notification {
		observers = append(observers, notify.New(log.Named("notify")))
	}

	device := record.PortAudioDevice{Name: cfg.InputDevice}
	session := record.NewSession(device, time.Duration(cfg.MaxRecordSeconds)*time.Second, log.Named("record"))
	ctrl := p.controller(dictation.Deps{
		Recorder:  session,
		Injector:  inj,
		Tracker:   tracker.New(p.settings.HistoryDepth),
		Observers: observers,
		Log:       log.Named("dictation"),
	})

	if opts.Stdin {
		log.Infof("ready. Press Enter to start and stop dictation (%s mode).", p.settings.Mode)
	} else {
		log.Infof("ready. Hold %s to dictate (%s mode).", cfg.Hotkey, p.settings.Mode)
	}
	return ctrl.Run(ctx, events)
}

// RunFileMode runs the dictation pipeline on an audio file and writes the
// text it would have typed to outputPath, or to ./<name>.txt.
func RunFileMode(ctx context.Context, cfg config.Config, inputPath string, outputPath string, log *zap.SugaredLogger) (string, error) {
	log = logging.OrNop(log)
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("file '%s' stat failed: %w", inputPath, err)
	}
	buf, err := readAudio(ctx, cfg, inputPath, log.Named("ffmpeg"))
	if err != nil {
		return "", err
	}

	p, err := newPipeline(cfg, log)
	if err != nil {
		return "", err
	}
	defer p.stores.Close()

	mem := &inject.Memory{}
	ctrl := p.controller(dictation.Deps{Injector: mem, Log: log.Named("dictation")})
	if _, err := ctrl.Process(ctx, buf); err != nil {
		return "", err
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
		outPath = filepath.Join(".", base+".txt")
	}
	if err := os.WriteFile(outPath, []byte(mem.Text()), 0644); err != nil {
		return "", err
	}
	return outPath, nil
}

// readAudio loads a WAV file directly and converts anything else through
// ffmpeg into a temporary WAV first.
func readAudio(ctx context.Context, cfg config.Config, path string, log *zap.SugaredLogger) (record.Buffer, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return asr.ReadWAV(path)
	}
	tmp := filepath.Join(config.TempDir(&cfg), asr.TempPrefix+uuid.NewString()+".wav")
	defer os.Remove(tmp)
	if err := ffmpeg.ToWAV(ctx, path, tmp, cfg.SAMPLING_RATE, cfg.Channels, log); err != nil {
		return record.Buffer{}, fmt.Errorf("convert %s: %w", path, err)
	}
	return asr.ReadWAV(tmp)
}

func newHTTPClient(cfg config.Config) *http.Client {
	tr := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if !cfg.VerifySSL {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if cfg.EnableHTTP2 {
		_ = http2.ConfigureTransport(tr)
	}
	// No client timeout: transcription and editing each bound their calls with
	// their own context deadline (REQUEST_TIMEOUT, AI_TIMEOUT).
	return &http.Client{Transport: tr}
}

func cleanupOldTempFiles(dir string, log *zap.SugaredLogger) {
	log = logging.OrNop(log)
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warnf("read dir '%s' failed: %v", dir, err)
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, asr.TempPrefix) {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				log.Warnf("failed remove %s: %v", path, err)
			} else {
				log.Infof("removed %s", path)
			}
		}
	}
}

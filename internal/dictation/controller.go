// Package dictation runs the hotkey driven dictation state machine: capture,
// transcription, correction, command handling, editing and injection.
package dictation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dictate/internal/asr"
	"dictate/internal/command"
	"dictate/internal/config"
	"dictate/internal/dictionary"
	"dictate/internal/editor"
	"dictate/internal/hotkey"
	"dictate/internal/inject"
	"dictate/internal/logging"
	"dictate/internal/record"
	"dictate/internal/snippet"
	"dictate/internal/tracker"
)

// Result is the outcome of one dictation. Final is the text that was typed;
// it is empty when the utterance was a command.
type Result struct {
	ID            string
	Raw           string
	Corrected     string
	Command       command.Command
	Final         string
	EditSkipped   bool
	Erased        int
	AudioDuration time.Duration
	Elapsed       time.Duration
	CreatedAt     time.Time
}

// IsCommand reports whether the utterance was handled as an editing command.
func (r Result) IsCommand() bool { return r.Command.Kind != 0 }

// Recorder captures audio. *record.Session implements it.
type Recorder interface {
	Start(sampleRate, channels int) error
	Stop() (record.Buffer, error)
	IsActive() bool
	Expired() <-chan struct{}
}

// Transcriber turns a buffer into text. *asr.Gateway implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, buf record.Buffer, language string) (asr.Transcript, error)
}

// Editor rewrites text. *editor.Gateway implements it.
type Editor interface {
	Edit(ctx context.Context, text string, preset editor.Preset, customPrompt string) (string, error)
}

// Observer is told about state changes, finished dictations and errors the
// user should see. Calls are made synchronously from the controller and must
// not block for long.
type Observer interface {
	StateChanged(from, to State)
	Finished(res Result)
	Failed(err error)
}

// Journal stores finished dictations.
type Journal interface {
	RecordDictation(res Result) error
}

// Deps are the collaborators of a Controller. Editor, Dictionary, Snippets
// and Journal may be nil.
type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Editor      Editor
	Dictionary  *dictionary.Store
	Snippets    *snippet.Store
	Injector    inject.Injector
	Tracker     *tracker.Tracker
	Journal     Journal
	Observers   []Observer
	Log         *zap.SugaredLogger
}

// Controller is single-flight: a new recording can only start from Idle.
type Controller struct {
	cfg  config.Pipeline
	deps Deps
	log  *zap.SugaredLogger

	mu    sync.Mutex
	state State

	// only touched by the Run loop
	pressed      bool
	// in toggle mode the press meant to stop a recording the ceiling already
	// ended is ignored
	swallowPress bool
	wg           sync.WaitGroup
}

func New(cfg config.Pipeline, deps Deps) *Controller {
	if deps.Tracker == nil {
		deps.Tracker = tracker.New(cfg.HistoryDepth)
	}
	return &Controller{cfg: cfg, deps: deps, log: logging.OrNop(deps.Log)}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setState(to State) {
	c.mu.Lock()
	from := c.state
	c.state = to
	c.mu.Unlock()
	if from == to {
		return
	}
	c.log.Debugw("state", "from", from, "to", to)
	for _, o := range c.deps.Observers {
		o.StateChanged(from, to)
	}
}

// activate moves Idle to Recording. It is a no-op in any other state.
func (c *Controller) activate() {
	c.mu.Lock()
	st := c.state
	if st == Idle {
		// claim the slot before Start so no observer sees a stale Idle
		c.state = Recording
	}
	c.mu.Unlock()

	if st != Idle {
		if st.Busy() {
			c.log.Infow("activation rejected, dictation in progress", "state", st)
		}
		return
	}

	if err := c.deps.Recorder.Start(c.cfg.SampleRate, c.cfg.Channels); err != nil {
		c.mu.Lock()
		c.state = Idle
		c.mu.Unlock()
		c.log.Warnw("recording not started", "error", err)
		c.fail(fmt.Errorf("start recording: %w", err))
		return
	}
	for _, o := range c.deps.Observers {
		o.StateChanged(Idle, Recording)
	}
	c.log.Infow("recording started", "mode", c.cfg.Mode)
}

// deactivate ends the recording and hands its buffer to a worker.
func (c *Controller) deactivate(ctx context.Context, reason string) {
	if c.State() != Recording {
		return
	}
	buf, err := c.deps.Recorder.Stop()
	c.setState(Transcribing)
	if err != nil && len(buf.Samples) == 0 {
		c.setState(Idle)
		c.log.Warnw("recording failed", "id", buf.ID, "error", err)
		c.fail(fmt.Errorf("stop recording: %w", err))
		return
	}
	if err != nil {
		c.log.Warnw("recording ended with error, using captured audio", "id", buf.ID, "error", err)
	}
	c.log.Infow("recording stopped", "id", buf.ID, "reason", reason, "duration", buf.Duration())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _ = c.Process(context.WithoutCancel(ctx), buf)
	}()
}

// Run consumes chord events until ctx is done or events is closed. An open
// recording is discarded on exit; an in-flight dictation is waited for.
func (c *Controller) Run(ctx context.Context, events <-chan hotkey.Event) error {
	defer c.shutdown()
	for {
		var expired <-chan struct{}
		if c.State() == Recording {
			expired = c.deps.Recorder.Expired()
		}

		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.handle(ctx, ev)
		case <-expired:
			c.deactivate(ctx, "ceiling")
			if c.cfg.Mode == config.ModeToggle {
				c.swallowPress = true
			}
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev hotkey.Event) {
	switch ev.Kind {
	case hotkey.Down:
		if c.pressed {
			return
		}
		c.pressed = true
		if c.swallowPress {
			c.swallowPress = false
			c.log.Infow("press ignored, recording already stopped at the ceiling")
			return
		}
		if c.cfg.Mode == config.ModeToggle && c.State() == Recording {
			c.deactivate(ctx, "toggle")
			return
		}
		c.activate()
	case hotkey.Up:
		c.pressed = false
		if c.cfg.Mode != config.ModeToggle {
			c.deactivate(ctx, "release")
		}
	}
}

func (c *Controller) shutdown() {
	if c.State() == Recording {
		if buf, err := c.deps.Recorder.Stop(); err != nil {
			c.log.Warnw("stop recording on exit failed", "error", err)
		} else {
			c.log.Infow("recording discarded on exit", "id", buf.ID)
		}
		c.setState(Idle)
	}
	c.wg.Wait()
}

// Process runs the pipeline for one buffer and types the result. It returns
// once the controller is back to Idle. It must not be called while Run has a
// dictation in flight.
func (c *Controller) Process(ctx context.Context, buf record.Buffer) (res Result, err error) {
	start := time.Now()
	res = Result{ID: buf.ID, AudioDuration: buf.Duration(), CreatedAt: start}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	stage := Transcribing
	c.setState(Transcribing)

	defer func() {
		if r := recover(); r != nil {
			c.log.Errorw("dictation panic", "id", res.ID, "state", stage, "panic", r, "stack", string(debug.Stack()))
			cause := fmt.Errorf("panic: %v", r)
			if stage == Transcribing {
				err = &asr.TranscriptionError{Cause: cause, Elapsed: time.Since(start)}
			} else {
				err = fmt.Errorf("%s: %w", stage, cause)
			}
		}
		res.Elapsed = time.Since(start)
		c.setState(Idle)
		c.report(res, err)
	}()

	tr, err := c.deps.Transcriber.Transcribe(ctx, buf, c.cfg.Language)
	if err != nil {
		return res, err
	}
	res.Raw = tr.Text

	stage = PostProcessing
	c.setState(PostProcessing)
	res.Corrected = res.Raw
	if c.deps.Dictionary != nil {
		res.Corrected = c.deps.Dictionary.Correct(res.Raw)
	}

	if cmd, ok := command.Detect(res.Corrected); ok {
		res.Command = cmd
		stage = Injecting
		c.setState(Injecting)
		res.Erased, err = c.execute(cmd)
		return res, err
	}

	text := res.Corrected
	if c.deps.Editor != nil {
		edited, eerr := c.edit(ctx, text)
		if eerr != nil {
			res.EditSkipped = true
		} else {
			c.learn(text, edited)
			text = edited
		}
	}
	if c.deps.Snippets != nil {
		text = c.deps.Snippets.Expand(text)
	}
	if c.cfg.TrailingSpace && text != "" && !strings.HasSuffix(text, " ") {
		text += " "
	}
	res.Final = text

	stage = Injecting
	c.setState(Injecting)
	if err := c.deps.Injector.TypeText(text); err != nil {
		return res, fmt.Errorf("type text: %w", err)
	}
	c.deps.Tracker.Record(text, false)
	return res, nil
}

// edit runs the editor and turns a panic into a skipped edit.
func (c *Controller) edit(ctx context.Context, text string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warnw("editor panic", "panic", r)
			out, err = text, fmt.Errorf("%w: panic: %v", editor.ErrEditSkipped, r)
		}
	}()
	out, err = c.deps.Editor.Edit(ctx, text, c.cfg.Preset, c.cfg.CustomPrompt)
	if err != nil || strings.TrimSpace(out) == "" {
		if err == nil {
			err = fmt.Errorf("%w: empty edit", editor.ErrEditSkipped)
		}
		return text, err
	}
	return out, nil
}

func (c *Controller) learn(before, after string) {
	if !c.cfg.AutoLearn || c.deps.Dictionary == nil || before == after {
		return
	}
	for _, p := range dictionary.LearnCandidates(before, after) {
		learned, err := c.deps.Dictionary.Learn(p.Spoken, p.Corrected)
		if err != nil {
			c.log.Warnw("auto-learn failed", "spoken", p.Spoken, "error", err)
			continue
		}
		if learned {
			c.log.Infow("learned correction", "spoken", p.Spoken, "corrected", p.Corrected)
		}
	}
}

func (c *Controller) report(res Result, err error) {
	switch {
	case err == nil:
		c.log.Infow("dictation finished", "id", res.ID, "command", res.Command, "chars", len(res.Final), "edit_skipped", res.EditSkipped, "elapsed", res.Elapsed)
		if c.deps.Journal != nil {
			if jerr := c.deps.Journal.RecordDictation(res); jerr != nil {
				c.log.Warnw("journal write failed", "id", res.ID, "error", jerr)
			}
		}
		for _, o := range c.deps.Observers {
			o.Finished(res)
		}
	case errors.Is(err, asr.ErrEmptyInput):
		c.log.Debugw("nothing to transcribe", "id", res.ID)
	case errors.Is(err, tracker.ErrNothingToDelete):
		c.log.Infow("command had nothing to act on", "id", res.ID, "command", res.Command)
		c.fail(err)
	default:
		c.log.Warnw("dictation failed", "id", res.ID, "error", err)
		c.fail(err)
	}
}

func (c *Controller) fail(err error) {
	for _, o := range c.deps.Observers {
		o.Failed(err)
	}
}

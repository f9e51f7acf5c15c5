package dictation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dictate/internal/asr"
	"dictate/internal/config"
	"dictate/internal/dictionary"
	"dictate/internal/editor"
	"dictate/internal/hotkey"
	"dictate/internal/inject"
	"dictate/internal/record"
	"dictate/internal/snippet"
	"dictate/internal/tracker"
)

type fakeRecorder struct {
	mu       sync.Mutex
	active   bool
	starts   atomic.Int32
	startErr error
	expired  chan struct{}
}

func (r *fakeRecorder) Start(sampleRate, channels int) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return record.ErrAlreadyActive
	}
	r.active = true
	r.starts.Add(1)
	r.expired = make(chan struct{})
	return nil
}

func (r *fakeRecorder) Stop() (record.Buffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return record.Buffer{}, record.ErrNotActive
	}
	r.active = false
	return record.Buffer{ID: "buf", Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}, nil
}

func (r *fakeRecorder) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *fakeRecorder) Expired() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil
	}
	return r.expired
}

func (r *fakeRecorder) expire() {
	r.mu.Lock()
	defer r.mu.Unlock()
	close(r.expired)
}

type fakeTranscriber struct {
	mu       sync.Mutex
	texts    []string
	calls    int
	err      error
	panicMsg string
	gate     chan struct{}
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ record.Buffer, _ string) (asr.Transcript, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.err != nil {
		return asr.Transcript{}, f.err
	}
	text := f.texts[0]
	if len(f.texts) > 1 {
		f.texts = f.texts[1:]
	}
	return asr.Transcript{Text: text}, nil
}

type editorFunc func(text string) (string, error)

func (f editorFunc) Edit(_ context.Context, text string, _ editor.Preset, _ string) (string, error) {
	return f(text)
}

type observer struct {
	states   chan State
	finished chan Result
	failed   chan error
}

func newObserver() *observer {
	return &observer{
		states:   make(chan State, 64),
		finished: make(chan Result, 16),
		failed:   make(chan error, 16),
	}
}

func (o *observer) StateChanged(_, to State) { o.states <- to }
func (o *observer) Finished(res Result)      { o.finished <- res }
func (o *observer) Failed(err error)         { o.failed <- err }

func (o *observer) waitState(t *testing.T, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case s := <-o.states:
			if s == want {
				return
			}
		case <-timeout:
			t.Fatalf("state %s not reached", want)
		}
	}
}

func (o *observer) waitFinished(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-o.finished:
		return res
	case err := <-o.failed:
		t.Fatalf("expected success, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("dictation did not finish")
	}
	return Result{}
}

func (o *observer) waitFailed(t *testing.T) error {
	t.Helper()
	select {
	case err := <-o.failed:
		return err
	case res := <-o.finished:
		t.Fatalf("expected failure, got %+v", res)
	case <-time.After(2 * time.Second):
		t.Fatalf("no failure reported")
	}
	return nil
}

type harness struct {
	ctrl *Controller
	rec  *fakeRecorder
	asr  *fakeTranscriber
	mem  *inject.Memory
	hist *tracker.Tracker
	obs  *observer
}

func testPipeline() config.Pipeline {
	return config.Pipeline{
		Mode:         config.ModeHold,
		Preset:       editor.PresetDefault,
		SampleRate:   16000,
		Channels:     1,
		HistoryDepth: 50,
	}
}

func newHarness(cfg config.Pipeline, deps Deps, texts ...string) *harness {
	h := &harness{
		rec:  &fakeRecorder{},
		asr:  &fakeTranscriber{texts: texts},
		mem:  &inject.Memory{},
		hist: tracker.New(cfg.HistoryDepth),
		obs:  newObserver(),
	}
	if deps.Recorder == nil {
		deps.Recorder = h.rec
	}
	if deps.Transcriber == nil {
		deps.Transcriber = h.asr
	}
	deps.Injector = h.mem
	deps.Tracker = h.hist
	deps.Observers = append(deps.Observers, h.obs)
	h.ctrl = New(cfg, deps)
	return h
}

func (h *harness) process(t *testing.T) (Result, error) {
	t.Helper()
	buf := record.Buffer{ID: "x", Samples: make([]int16, 16000), SampleRate: 16000, Channels: 1}
	res, err := h.ctrl.Process(context.Background(), buf)
	if st := h.ctrl.State(); st != Idle {
		t.Fatalf("expected Idle after Process, got %s", st)
	}
	return res, err
}

// typed seeds the screen and history as if text had been dictated earlier.
func (h *harness) typed(text string) {
	_ = h.mem.TypeText(text)
	h.hist.Record(text, false)
}

func TestScenarioDictationWithEdit(t *testing.T) {
	stub := editorFunc(func(text string) (string, error) {
		if text != "i think its going to rain today um" {
			return "", errors.New("unexpected input " + text)
		}
		return "I think it's going to rain today.", nil
	})
	h := newHarness(testPipeline(), Deps{Editor: stub, Dictionary: dictionary.New(nil)}, "i think its going to rain today um")

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	want := "I think it's going to rain today."
	if res.Final != want || h.mem.Text() != want {
		t.Fatalf("expected %q typed, got final=%q screen=%q", want, res.Final, h.mem.Text())
	}
	spans := h.hist.Spans()
	if len(spans) != 1 || spans[0].Words != 7 || spans[0].Command {
		t.Fatalf("expected one 7-word span, got %+v", spans)
	}
	if res.IsCommand() || res.EditSkipped {
		t.Fatalf("unexpected result flags %+v", res)
	}
}

func TestScenarioDeleteThat(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "Delete that.")
	h.typed("hello")

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !res.IsCommand() || res.Erased != 5 {
		t.Fatalf("expected 5 chars erased by command, got %+v", res)
	}
	if h.mem.Text() != "" || h.hist.Len() != 0 {
		t.Fatalf("expected empty screen and history, got %q / %d spans", h.mem.Text(), h.hist.Len())
	}
	if h.mem.Calls[len(h.mem.Calls)-1] != "backspace 5" {
		t.Fatalf("unexpected injector calls %v", h.mem.Calls)
	}
}

func TestScenarioDeleteLastWords(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "delete last 2 words")
	h.typed("hello world foo")

	if _, err := h.process(t); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	spans := h.hist.Spans()
	if len(spans) != 1 || spans[0].Text != "hello" || spans[0].Words != 1 {
		t.Fatalf("expected span to shrink to hello, got %+v", spans)
	}
	if h.mem.Text() != "hello" {
		t.Fatalf("expected screen to read hello, got %q", h.mem.Text())
	}
}

func TestDeleteThatWithEmptyHistoryIsReportedNoop(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "scratch that")
	_, err := h.process(t)
	if !errors.Is(err, tracker.ErrNothingToDelete) {
		t.Fatalf("expected ErrNothingToDelete, got %v", err)
	}
	if !errors.Is(h.obs.waitFailed(t), tracker.ErrNothingToDelete) {
		t.Fatalf("observer should be told there was nothing to delete")
	}
	if len(h.mem.Calls) != 0 {
		t.Fatalf("nothing should be injected, got %v", h.mem.Calls)
	}
}

func TestLineBreakCommandsAreRecordedAsEcho(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "new paragraph", "delete that")
	h.typed("First.")

	if _, err := h.process(t); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	spans := h.hist.Spans()
	if len(spans) != 2 || !spans[1].Command || spans[1].Words != 0 || spans[1].Text != "\n\n" {
		t.Fatalf("expected command echo span, got %+v", spans)
	}

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Erased != 8 || h.mem.Text() != "" || h.hist.Len() != 0 {
		t.Fatalf("delete that should remove text and trailing breaks, erased=%d screen=%q", res.Erased, h.mem.Text())
	}
}

func TestUndoAndBackspaceCommands(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "undo", "backspace")
	h.typed("one")
	h.typed(" two")

	if _, err := h.process(t); err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if h.mem.Text() != "one" || h.hist.Len() != 1 {
		t.Fatalf("undo should revert the last dictation, got %q with %d spans", h.mem.Text(), h.hist.Len())
	}

	if _, err := h.process(t); err != nil {
		t.Fatalf("backspace failed: %v", err)
	}
	if h.mem.Text() != "on" || h.hist.Spans()[0].Text != "on" {
		t.Fatalf("backspace should remove one char from screen and history, got %q", h.mem.Text())
	}
}

func TestCommandInsideSentenceIsDictated(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "please undo this decision")
	res, err := h.process(t)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.IsCommand() || h.mem.Text() != "please undo this decision" {
		t.Fatalf("sentence should be typed, got %+v", res)
	}
}

func TestEditFailureFailsOpen(t *testing.T) {
	dict := dictionary.New(nil)
	if err := dict.Add("go lang", "Golang"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	broken := editor.NewGateway(failingProvider{}, time.Second, nil)
	h := newHarness(testPipeline(), Deps{Editor: broken, Dictionary: dict}, "i write go lang daily")

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("edit failure must not abort, got %v", err)
	}
	if !res.EditSkipped || res.Final != res.Corrected || res.Final != "i write Golang daily" {
		t.Fatalf("expected corrected text typed with EditSkipped, got %+v", res)
	}
}

type failingProvider struct{}

func (failingProvider) Edit(context.Context, string, editor.Preset, string) (string, error) {
	return "", errors.New("backend down")
}

func TestEditorPanicIsSkipped(t *testing.T) {
	boom := editorFunc(func(string) (string, error) { panic("bad plugin") })
	h := newHarness(testPipeline(), Deps{Editor: boom}, "keep this")

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("expected editor panic to be absorbed, got %v", err)
	}
	if !res.EditSkipped || h.mem.Text() != "keep this" {
		t.Fatalf("expected unedited text, got %+v", res)
	}
}

func TestSnippetsTrailingSpaceAndAutoLearn(t *testing.T) {
	cfg := testPipeline()
	cfg.TrailingSpace = true
	cfg.AutoLearn = true
	dict := dictionary.New(nil)
	snips := snippet.New(nil)
	_ = snips.Add("my sig", "-- Jo")
	fix := editorFunc(func(string) (string, error) { return "We run Kubernetes. my sig", nil })
	h := newHarness(cfg, Deps{Editor: fix, Dictionary: dict, Snippets: snips}, "we run kubernetis my sig")

	res, err := h.process(t)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if res.Final != "We run Kubernetes. -- Jo " {
		t.Fatalf("unexpected final text %q", res.Final)
	}
	if e, ok := dict.Get("kubernetis"); !ok || e.Corrected != "Kubernetes" || e.Provenance != dictionary.Auto {
		t.Fatalf("expected learned entry, got %+v %v", e, ok)
	}
	if h.hist.Spans()[0].Chars != len("We run Kubernetes. -- Jo ") {
		t.Fatalf("trailing space should be tracked")
	}
}

func TestTranscriptionFailureIsReportedWithoutInjection(t *testing.T) {
	engineErr := errors.New("engine offline")
	gw := asr.NewGateway(engineFunc(func() (asr.Transcript, error) { return asr.Transcript{}, engineErr }), time.Second, asr.Thresholds{}, nil)
	h := newHarness(testPipeline(), Deps{Transcriber: gw})

	_, err := h.process(t)
	if !errors.Is(err, asr.ErrTranscriptionFailed) || !errors.Is(err, engineErr) {
		t.Fatalf("expected transcription failure with cause, got %v", err)
	}
	if !errors.Is(h.obs.waitFailed(t), asr.ErrTranscriptionFailed) {
		t.Fatalf("failure should be reported")
	}
	if len(h.mem.Calls) != 0 {
		t.Fatalf("nothing should be typed, got %v", h.mem.Calls)
	}
}

type engineFunc func() (asr.Transcript, error)

func (f engineFunc) Transcribe(context.Context, []int16, int, int, string) (asr.Transcript, error) {
	return f()
}

func TestEmptyInputIsSilent(t *testing.T) {
	gw := asr.NewGateway(engineFunc(func() (asr.Transcript, error) { return asr.Transcript{Text: " "}, nil }), time.Second, asr.Thresholds{}, nil)
	h := newHarness(testPipeline(), Deps{Transcriber: gw})

	if _, err := h.process(t); !errors.Is(err, asr.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	select {
	case err := <-h.obs.failed:
		t.Fatalf("empty input must not be reported, got %v", err)
	case <-h.obs.finished:
		t.Fatalf("empty input must not finish a dictation")
	default:
	}
}

func TestTranscriberPanicReturnsToIdle(t *testing.T) {
	h := newHarness(testPipeline(), Deps{})
	h.asr.panicMsg = "model crashed"

	_, err := h.process(t)
	if !errors.Is(err, asr.ErrTranscriptionFailed) {
		t.Fatalf("panic should surface as transcription failure, got %v", err)
	}
}

type journal struct {
	mu      sync.Mutex
	results []Result
}

func (j *journal) RecordDictation(res Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append(j.results, res)
	return nil
}

func TestRunHoldModeIgnoresRepeats(t *testing.T) {
	j := &journal{}
	h := newHarness(testPipeline(), Deps{Journal: j}, "hello there")
	events := make(chan hotkey.Event)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	res := h.obs.waitFinished(t)
	close(events)
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	if h.rec.starts.Load() != 1 {
		t.Fatalf("expected one recording, got %d", h.rec.starts.Load())
	}
	if res.Final != "hello there" || h.mem.Text() != "hello there" {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(j.results) != 1 || j.results[0].ID != res.ID {
		t.Fatalf("expected result journaled, got %+v", j.results)
	}
}

func TestRunRejectsActivationWhileBusy(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "first", "second")
	h.asr.gate = make(chan struct{})
	events := make(chan hotkey.Event)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	h.obs.waitState(t, Transcribing)

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	if h.rec.starts.Load() != 1 || h.rec.IsActive() {
		t.Fatalf("activation during transcription must be rejected")
	}

	close(h.asr.gate)
	h.obs.waitFinished(t)
	h.obs.waitState(t, Idle)

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	h.obs.waitFinished(t)
	close(events)
	<-done

	if h.rec.starts.Load() != 2 {
		t.Fatalf("expected second recording after idle, got %d", h.rec.starts.Load())
	}
	if h.mem.Text() != "firstsecond" {
		t.Fatalf("results should be typed in order, got %q", h.mem.Text())
	}
}

func TestRunToggleMode(t *testing.T) {
	cfg := testPipeline()
	cfg.Mode = config.ModeToggle
	h := newHarness(cfg, Deps{}, "toggled")
	events := make(chan hotkey.Event)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	h.obs.waitState(t, Recording)
	if !h.rec.IsActive() {
		t.Fatalf("key-up must not stop a toggle recording")
	}
	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	if res := h.obs.waitFinished(t); res.Final != "toggled" {
		t.Fatalf("unexpected result %+v", res)
	}
	close(events)
	<-done
}

func TestRunCeilingExpiry(t *testing.T) {
	h := newHarness(testPipeline(), Deps{}, "long story")
	events := make(chan hotkey.Event)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(ctx, events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	h.obs.waitState(t, Recording)
	h.rec.expire()
	if res := h.obs.waitFinished(t); res.Final != "long story" {
		t.Fatalf("unexpected result %+v", res)
	}
	events <- hotkey.Event{Kind: hotkey.Up}
	cancel()
	<-done
	if h.rec.starts.Load() != 1 {
		t.Fatalf("release after expiry must not start anything")
	}
}

func TestRunToggleCeilingSwallowsStopPress(t *testing.T) {
	cfg := testPipeline()
	cfg.Mode = config.ModeToggle
	h := newHarness(cfg, Deps{}, "long story", "next one")
	events := make(chan hotkey.Event)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	h.obs.waitState(t, Recording)
	h.rec.expire()
	if res := h.obs.waitFinished(t); res.Final != "long story" {
		t.Fatalf("unexpected result %+v", res)
	}
	h.obs.waitState(t, Idle)

	// the user presses to stop, not knowing the ceiling already did
	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	if h.rec.starts.Load() != 1 || h.rec.IsActive() {
		t.Fatalf("stop press after the ceiling must not start a recording")
	}

	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	h.obs.waitState(t, Recording)
	events <- hotkey.Event{Kind: hotkey.Down}
	events <- hotkey.Event{Kind: hotkey.Up}
	if res := h.obs.waitFinished(t); res.Final != "next one" {
		t.Fatalf("unexpected result %+v", res)
	}
	close(events)
	<-done
	if h.rec.starts.Load() != 2 {
		t.Fatalf("expected two recordings, got %d", h.rec.starts.Load())
	}
}

func TestRunCaptureUnavailable(t *testing.T) {
	h := newHarness(testPipeline(), Deps{})
	h.rec.startErr = record.ErrCaptureUnavailable
	events := make(chan hotkey.Event)
	done := make(chan error, 1)
	go func() { done <- h.ctrl.Run(context.Background(), events) }()

	events <- hotkey.Event{Kind: hotkey.Down}
	if err := h.obs.waitFailed(t); !errors.Is(err, record.ErrCaptureUnavailable) {
		t.Fatalf("expected ErrCaptureUnavailable, got %v", err)
	}
	events <- hotkey.Event{Kind: hotkey.Up}
	close(events)
	<-done
	if st := h.ctrl.State(); st != Idle {
		t.Fatalf("expected Idle, got %s", st)
	}
}

func TestStateString(t *testing.T) {
	names := []string{}
	for s := Idle; s <= Injecting; s++ {
		names = append(names, s.String())
	}
	if got := strings.Join(names, ","); got != "idle,recording,transcribing,post-processing,injecting" {
		t.Fatalf("unexpected names %s", got)
	}
	if !PostProcessing.Busy() || Recording.Busy() || Idle.Busy() {
		t.Fatalf("unexpected Busy values")
	}
}

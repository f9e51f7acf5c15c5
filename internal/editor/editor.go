// Package editor wraps the AI text-cleanup backends. Editing is fail-open:
// whatever goes wrong, the caller gets the input text back.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"dictate/internal/logging"
)

// ErrEditSkipped marks an edit that fell back to the input text.
var ErrEditSkipped = errors.New("edit skipped")

const DefaultTimeout = 30 * time.Second

// Gateway runs one provider with a timeout.
type Gateway struct {
	provider Provider
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewGateway wraps p. A nil provider disables editing.
func NewGateway(p Provider, timeout time.Duration, log *zap.SugaredLogger) *Gateway {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gateway{provider: p, timeout: timeout, log: logging.OrNop(log)}
}

// Enabled reports whether a provider is configured.
func (g *Gateway) Enabled() bool {
	return g != nil && g.provider != nil
}

type editResult struct {
	text string
	err  error
}

// Edit returns the provider's rewrite of text. On provider error, timeout,
// panic or empty output it returns text unchanged together with an error
// matching ErrEditSkipped.
func (g *Gateway) Edit(ctx context.Context, text string, preset Preset, customPrompt string) (string, error) {
	if !g.Enabled() || strings.TrimSpace(text) == "" {
		return text, nil
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	done := make(chan editResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- editResult{err: fmt.Errorf("provider panic: %v", r)}
			}
		}()
		out, err := g.provider.Edit(ctx, text, preset, customPrompt)
		done <- editResult{text: out, err: err}
	}()

	var res editResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err == nil && strings.TrimSpace(res.text) == "" {
		res.err = errors.New("provider returned no text")
	}
	if res.err != nil {
		g.log.Warnw("edit skipped", "preset", preset, "error", res.err)
		return text, fmt.Errorf("%w: %w", ErrEditSkipped, res.err)
	}
	g.log.Debugw("edit applied", "preset", preset, "before", len(text), "after", len(res.text))
	return res.text, nil
}

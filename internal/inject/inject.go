// Package inject delivers text and editing keystrokes to the focused
// application.
package inject

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrUnsupported is returned by injectors that cannot perform an action.
var ErrUnsupported = errors.New("injection not supported")

// Injector is the set of keystroke primitives the dictation pipeline uses.
// Each call completes before it returns.
type Injector interface {
	TypeText(text string) error
	SendUndo() error
	SendBackspace(count int) error
}

// OnlyNewlines reports whether text consists of line breaks alone. Such
// text is sent as Enter presses instead of a paste.
func OnlyNewlines(text string) bool {
	return text != "" && strings.Trim(text, "\r\n") == ""
}

// Memory simulates a text field with the cursor at the end. It keeps a
// snapshot stack so SendUndo reverts the last TypeText.
type Memory struct {
	text    []rune
	history [][]rune
	Calls   []string
}

func (m *Memory) TypeText(text string) error {
	m.Calls = append(m.Calls, fmt.Sprintf("type %q", text))
	m.history = append(m.history, append([]rune(nil), m.text...))
	m.text = append(m.text, []rune(text)...)
	return nil
}

func (m *Memory) SendUndo() error {
	m.Calls = append(m.Calls, "undo")
	if n := len(m.history); n > 0 {
		m.text = m.history[n-1]
		m.history = m.history[:n-1]
	}
	return nil
}

func (m *Memory) SendBackspace(count int) error {
	m.Calls = append(m.Calls, fmt.Sprintf("backspace %d", count))
	if count > len(m.text) {
		count = len(m.text)
	}
	m.text = m.text[:len(m.text)-count]
	return nil
}

// Text returns the current field contents.
func (m *Memory) Text() string { return string(m.text) }

// Console writes dictated text to a terminal. Backspace is rendered as
// erase sequences; undo is unsupported.
type Console struct {
	W    io.Writer
	last []string
}

func (c *Console) TypeText(text string) error {
	_, err := io.WriteString(c.W, text)
	if err == nil {
		c.last = append(c.last, text)
	}
	return err
}

func (c *Console) SendUndo() error {
	n := len(c.last)
	if n == 0 {
		return nil
	}
	chars := utf8.RuneCountInString(c.last[n-1])
	c.last = c.last[:n-1]
	return c.SendBackspace(chars)
}

func (c *Console) SendBackspace(count int) error {
	if count <= 0 {
		return nil
	}
	_, err := io.WriteString(c.W, strings.Repeat("\b \b", count))
	return err
}

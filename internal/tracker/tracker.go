// Package tracker remembers the text the dictation pipeline typed so spoken
// commands can remove it again.
package tracker

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultDepth is the number of spans kept when New is given a non-positive
// depth.
const DefaultDepth = 50

// ErrNothingToDelete is returned by PopLast when no text span is recorded.
var ErrNothingToDelete = errors.New("nothing to delete")

// Span is one block of injected text.
type Span struct {
	Seq     uint64
	Text    string
	Chars   int
	Words   int
	Command bool // echo of a command (line break); not undoable text
}

// Removal describes what a pop took out of history. Chars is what the
// injector must erase to keep the screen in step.
type Removal struct {
	Span  Span
	Words int
	Chars int
}

// Tracker is a bounded history of spans. It is not safe for concurrent use.
type Tracker struct {
	depth int
	seq   uint64
	spans []Span
}

func New(depth int) *Tracker {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Tracker{depth: depth}
}

// Record appends a span for text and evicts the oldest span once the depth
// is exceeded.
func (t *Tracker) Record(text string, command bool) Span {
	t.seq++
	s := newSpan(t.seq, text, command)
	t.spans = append(t.spans, s)
	if over := len(t.spans) - t.depth; over > 0 {
		t.spans = append(t.spans[:0:0], t.spans[over:]...)
	}
	return s
}

// PopLast removes the most recent text span. Command spans typed after it go
// with it and their characters are included in the removal.
func (t *Tracker) PopLast() (Removal, error) {
	i := len(t.spans) - 1
	for i >= 0 && t.spans[i].Command {
		i--
	}
	if i < 0 {
		return Removal{}, ErrNothingToDelete
	}
	r := Removal{Span: t.spans[i], Words: t.spans[i].Words}
	for _, s := range t.spans[i:] {
		r.Chars += s.Chars
	}
	t.spans = t.spans[:i]
	return r, nil
}

// DropLast forgets the most recent span without reporting characters to
// erase. Used after the editor's own undo has already removed the text.
func (t *Tracker) DropLast() (Span, bool) {
	if len(t.spans) == 0 {
		return Span{}, false
	}
	s := t.spans[len(t.spans)-1]
	t.spans = t.spans[:len(t.spans)-1]
	return s, true
}

// PopLastWords removes up to n trailing words across the most recent spans,
// together with the whitespace that separates them from the text before. It
// never fails; Removal.Words is the number actually removed.
func (t *Tracker) PopLastWords(n int) Removal {
	var r Removal
	for n > 0 && len(t.spans) > 0 {
		last := len(t.spans) - 1
		s := t.spans[last]
		if s.Words == 0 {
			if !t.wordsBefore(last) {
				break
			}
			r.Chars += s.Chars
			t.spans = t.spans[:last]
			continue
		}

		k := min(n, s.Words)
		keep := trailingCut(s.Text, s.Words-k)
		r.Chars += utf8.RuneCountInString(s.Text[keep:])
		r.Words += k
		n -= k
		if keep == 0 {
			t.spans = t.spans[:last]
			continue
		}
		t.spans[last] = newSpan(s.Seq, s.Text[:keep], s.Command)
	}
	return r
}

// TrimChars removes up to n characters from the end of history and returns
// how many were removed.
func (t *Tracker) TrimChars(n int) int {
	trimmed := 0
	for n > 0 && len(t.spans) > 0 {
		last := len(t.spans) - 1
		s := t.spans[last]
		if s.Chars <= n {
			n -= s.Chars
			trimmed += s.Chars
			t.spans = t.spans[:last]
			continue
		}
		runes := []rune(s.Text)
		t.spans[last] = newSpan(s.Seq, string(runes[:len(runes)-n]), s.Command)
		trimmed += n
		n = 0
	}
	return trimmed
}

// Spans returns a copy of the history, oldest first.
func (t *Tracker) Spans() []Span {
	return append([]Span(nil), t.spans...)
}

func (t *Tracker) Len() int { return len(t.spans) }

// Words returns the number of words in history.
func (t *Tracker) Words() int {
	n := 0
	for _, s := range t.spans {
		n += s.Words
	}
	return n
}

func (t *Tracker) wordsBefore(i int) bool {
	for _, s := range t.spans[:i] {
		if s.Words > 0 {
			return true
		}
	}
	return false
}

func newSpan(seq uint64, text string, command bool) Span {
	return Span{
		Seq:     seq,
		Text:    text,
		Chars:   utf8.RuneCountInString(text),
		Words:   len(strings.Fields(text)),
		Command: command,
	}
}

// trailingCut returns the byte offset just after the keep-th word of text, or
// 0 when keep is 0.
func trailingCut(text string, keep int) int {
	if keep <= 0 {
		return 0
	}
	seen := 0
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inWord && space {
			seen++
			if seen == keep {
				return i
			}
		}
		inWord = !space
	}
	return len(text)
}

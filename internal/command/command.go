// Package command recognizes spoken editing commands.
package command

import (
	"strconv"
	"strings"
	"unicode"
)

// Kind identifies an editing command.
type Kind int

const (
	DeleteThat Kind = iota + 1
	NewLine
	NewParagraph
	Undo
	Backspace
	DeleteLastWords
)

var kindNames = map[Kind]string{
	DeleteThat:      "delete-that",
	NewLine:         "new-line",
	NewParagraph:    "new-paragraph",
	Undo:            "undo",
	Backspace:       "backspace",
	DeleteLastWords: "delete-last-words",
}

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// MaxWords is the largest count accepted by "delete last N words".
const MaxWords = 10

// Command is a detected editing command. Count is set for DeleteLastWords.
type Command struct {
	Kind  Kind
	Count int
}

func (c Command) String() string {
	if c.Kind == DeleteLastWords {
		return c.Kind.String() + " " + strconv.Itoa(c.Count)
	}
	return c.Kind.String()
}

var phrases = map[string]Kind{
	"delete that":   DeleteThat,
	"scratch that":  DeleteThat,
	"new line":      NewLine,
	"newline":       NewLine,
	"new paragraph": NewParagraph,
	"undo":          Undo,
	"backspace":     Backspace,
	"back space":    Backspace,
}

var numbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// Detect matches the whole utterance against the command grammar. Case and
// punctuation are ignored. A command phrase inside a longer sentence is not a
// command.
func Detect(text string) (Command, bool) {
	words := normalize(text)
	if len(words) == 0 {
		return Command{}, false
	}
	if k, ok := phrases[strings.Join(words, " ")]; ok {
		return Command{Kind: k}, true
	}
	return detectDeleteWords(words)
}

// "delete last word" | "delete last N words"
func detectDeleteWords(w []string) (Command, bool) {
	if len(w) < 3 || w[0] != "delete" || w[1] != "last" {
		return Command{}, false
	}
	if len(w) == 3 && w[2] == "word" {
		return Command{Kind: DeleteLastWords, Count: 1}, true
	}
	if len(w) != 4 || (w[3] != "words" && w[3] != "word") {
		return Command{}, false
	}
	n, ok := parseCount(w[2])
	if !ok {
		return Command{}, false
	}
	return Command{Kind: DeleteLastWords, Count: n}, true
}

func parseCount(s string) (int, bool) {
	n, ok := numbers[s]
	if !ok {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, false
		}
		n = v
	}
	if n < 1 || n > MaxWords {
		return 0, false
	}
	return n, true
}

func normalize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '-':
			return ' '
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			return -1
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}

package command

import "testing"

func TestDetectCanonicalPhrases(t *testing.T) {
	cases := map[string]Command{
		"delete that":             {Kind: DeleteThat},
		"Scratch that.":           {Kind: DeleteThat},
		"New line":                {Kind: NewLine},
		"new paragraph!":          {Kind: NewParagraph},
		"Undo.":                   {Kind: Undo},
		"backspace":               {Kind: Backspace},
		"delete last word":        {Kind: DeleteLastWords, Count: 1},
		"Delete last 3 words.":    {Kind: DeleteLastWords, Count: 3},
		"delete last three words": {Kind: DeleteLastWords, Count: 3},
		"delete last ten words":   {Kind: DeleteLastWords, Count: 10},
		"  DELETE, LAST 2 WORDS ": {Kind: DeleteLastWords, Count: 2},
	}
	for in, want := range cases {
		got, ok := Detect(in)
		if !ok {
			t.Fatalf("expected %q to be detected", in)
		}
		if got != want {
			t.Fatalf("Detect(%q) = %+v, want %+v", in, got, want)
		}
	}
}

func TestDetectWholeUtteranceOnly(t *testing.T) {
	inputs := []string{
		"please undo this decision",
		"I will delete that file",
		"new line of products",
		"",
		"...",
	}
	for _, in := range inputs {
		if c, ok := Detect(in); ok {
			t.Fatalf("expected %q not to be a command, got %v", in, c)
		}
	}
}

func TestDetectRejectsOutOfRangeCounts(t *testing.T) {
	for _, in := range []string{"delete last 0 words", "delete last 11 words", "delete last eleven words", "delete last many words"} {
		if c, ok := Detect(in); ok {
			t.Fatalf("expected %q to be rejected, got %v", in, c)
		}
	}
}

func TestCommandString(t *testing.T) {
	if s := (Command{Kind: DeleteLastWords, Count: 2}).String(); s != "delete-last-words 2" {
		t.Fatalf("unexpected string %q", s)
	}
	if s := (Command{Kind: Undo}).String(); s != "undo" {
		t.Fatalf("unexpected string %q", s)
	}
}

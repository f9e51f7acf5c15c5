package dictionary

import (
	"strings"
	"unicode"

	"dictate/internal/phrase"
)

// Pair is a spoken form and the correction an editor applied to it.
type Pair struct {
	Spoken    string
	Corrected string
}

// LearnCandidates compares text before and after an AI edit and returns the
// single-word substitutions worth remembering. Only edits that keep the word
// count are considered, so every word lines up with its replacement. A
// replacement qualifies when it looks like a name or term (inner capitals,
// digits, or a capital outside sentence start) and is spelled close to the
// original. Contractions are ignored.
func LearnCandidates(before, after string) []Pair {
	bt := phrase.Tokenize(before)
	at := phrase.Tokenize(after)
	if len(bt) == 0 || len(bt) != len(at) {
		return nil
	}

	var out []Pair
	seen := make(map[string]bool)
	for i := range bt {
		b, a := bt[i].Text, at[i].Text
		if !eligible(b, a, sentenceStart(after, at, i)) {
			continue
		}
		key := strings.ToLower(b)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, Pair{Spoken: b, Corrected: a})
	}
	return out
}

func eligible(before, after string, atSentenceStart bool) bool {
	if before == after || strings.ContainsAny(before+after, "'’") {
		return false
	}
	if hasInnerUpperOrDigit(after) {
		return spelledClose(before, after)
	}
	r := []rune(after)
	if !unicode.IsUpper(r[0]) || atSentenceStart {
		return false
	}
	return spelledClose(before, after)
}

func hasInnerUpperOrDigit(s string) bool {
	for i, r := range []rune(s) {
		if unicode.IsDigit(r) || (i > 0 && unicode.IsUpper(r)) {
			return true
		}
	}
	return false
}

func sentenceStart(text string, toks []phrase.Token, i int) bool {
	if i == 0 {
		return true
	}
	gap := text[toks[i-1].End:toks[i].Start]
	return strings.ContainsAny(gap, ".!?\n")
}

func spelledClose(a, b string) bool {
	la, lb := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	if string(la) == string(lb) {
		return true
	}
	if len(lb) < 3 {
		return false
	}
	limit := len(lb) / 3
	if limit < 1 {
		limit = 1
	}
	return levenshtein(la, lb) <= limit
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

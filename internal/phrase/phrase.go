// Package phrase tokenizes dictated text and rewrites word-aligned phrases.
// It is shared by the dictionary and snippet stores.
package phrase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a word and its byte offsets in the source text.
type Token struct {
	Text  string
	Start int
	End   int
}

// Key normalizes a phrase the way Rewrite sees it: its words, lower-cased,
// joined by single spaces. Punctuation and extra whitespace are dropped.
func Key(s string) string {
	return keyOf(Tokenize(s))
}

// WordCount returns the number of words in a normalized key.
func WordCount(key string) int {
	return len(strings.Fields(key))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '’'
}

// Tokenize splits text into words. A word is a run of letters, digits and
// apostrophes; leading and trailing apostrophes are not part of the word.
func Tokenize(text string) []Token {
	var toks []Token
	start := -1
	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = appendToken(toks, text, start, i)
			start = -1
		}
	}
	if start >= 0 {
		toks = appendToken(toks, text, start, len(text))
	}
	return toks
}

func appendToken(toks []Token, text string, start, end int) []Token {
	for start < end && (text[start] == '\'') {
		start++
	}
	for end > start && text[end-1] == '\'' {
		end--
	}
	if start >= end {
		return toks
	}
	return append(toks, Token{Text: text[start:end], Start: start, End: end})
}

// Rule decides what happens to a candidate run of words. key is the
// normalized run, span is the original text it covers. It returns the
// replacement and whether the rule consumed the run.
type Rule func(key, span string) (string, bool)

// Rewrite walks the words of text left to right and offers every run of up to
// maxWords contiguous, whitespace-separated words to rule, longest first. A
// consumed run is replaced and never reconsidered; scanning resumes after it.
func Rewrite(text string, maxWords int, rule Rule) string {
	if maxWords <= 0 || text == "" {
		return text
	}
	toks := Tokenize(text)
	if len(toks) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for i := 0; i < len(toks); {
		n := runLength(text, toks[i:], maxWords)
		matched := false
		for l := n; l >= 1; l-- {
			first, end := toks[i], toks[i+l-1]
			span := text[first.Start:end.End]
			repl, ok := rule(keyOf(toks[i:i+l]), span)
			if !ok {
				continue
			}
			b.WriteString(text[last:first.Start])
			b.WriteString(repl)
			last = end.End
			i += l
			matched = true
			break
		}
		if !matched {
			i++
		}
	}
	b.WriteString(text[last:])
	return b.String()
}

// Literals returns the byte ranges where one of forms occurs verbatim in text
// without cutting a word in two. Ranges are sorted and do not overlap; where
// occurrences overlap the earlier one wins, then the longer one.
func Literals(text string, forms []string) [][2]int {
	var hits [][2]int
	for _, f := range forms {
		if f == "" {
			continue
		}
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], f)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(f)
			if onBoundary(text, start, end) {
				hits = append(hits, [2]int{start, end})
			}
			_, size := utf8.DecodeRuneInString(text[start:])
			from = start + size
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i][0] != hits[j][0] {
			return hits[i][0] < hits[j][0]
		}
		return hits[i][1] > hits[j][1]
	})

	var out [][2]int
	for _, h := range hits {
		if len(out) > 0 && h[0] < out[len(out)-1][1] {
			continue
		}
		out = append(out, h)
	}
	return out
}

// onBoundary reports whether text[start:end] neither starts inside a word nor
// ends inside one.
func onBoundary(text string, start, end int) bool {
	if start > 0 {
		first, _ := utf8.DecodeRuneInString(text[start:])
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(first) && isWordRune(prev) {
			return false
		}
	}
	if end < len(text) {
		last, _ := utf8.DecodeLastRuneInString(text[:end])
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(last) && isWordRune(next) {
			return false
		}
	}
	return true
}

// RewriteExcept is Rewrite applied only to the parts of text outside skip.
// skip must be sorted and non-overlapping, as Literals returns it. Runs never
// cross a skipped range.
func RewriteExcept(text string, maxWords int, skip [][2]int, rule Rule) string {
	if len(skip) == 0 {
		return Rewrite(text, maxWords, rule)
	}
	var b strings.Builder
	last := 0
	for _, r := range skip {
		b.WriteString(Rewrite(text[last:r[0]], maxWords, rule))
		b.WriteString(text[r[0]:r[1]])
		last = r[1]
	}
	b.WriteString(Rewrite(text[last:], maxWords, rule))
	return b.String()
}

// runLength returns how many of toks (at most limit) are joined only by
// whitespace, starting from the first one.
func runLength(text string, toks []Token, limit int) int {
	n := 1
	for n < len(toks) && n < limit {
		gap := text[toks[n-1].End:toks[n].Start]
		if strings.TrimSpace(gap) != "" {
			break
		}
		n++
	}
	return n
}

func keyOf(toks []Token) string {
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = strings.ToLower(t.Text)
	}
	return strings.Join(parts, " ")
}

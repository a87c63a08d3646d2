package app

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// ExitMatcher decides whether a transcript contains the exit word.
//
// A transcript matches when it contains the exit word verbatim
// (case-insensitive). Otherwise each token is compared with Jaro-Winkler
// similarity: a token matches at the fuzzy threshold (default 0.85), or at the
// lower phonetic threshold (default 0.70) when the token and the exit word
// share a Double Metaphone code. Phonetic codes are only computed for Latin
// words; Hangul has no metaphone encoding.
//
// ExitMatcher is read-only after construction and safe for concurrent use.
type ExitMatcher struct {
	word      string
	wordCodes map[string]struct{}

	phoneticThreshold float64
	fuzzyThreshold    float64
}

// ExitOption configures an [ExitMatcher].
type ExitOption func(*ExitMatcher)

// WithFuzzyThreshold sets the Jaro-Winkler score a token needs without a
// phonetic match.
func WithFuzzyThreshold(t float64) ExitOption {
	return func(m *ExitMatcher) { m.fuzzyThreshold = t }
}

// WithPhoneticThreshold sets the Jaro-Winkler score a phonetically matching
// token needs.
func WithPhoneticThreshold(t float64) ExitOption {
	return func(m *ExitMatcher) { m.phoneticThreshold = t }
}

// NewExitMatcher returns a matcher for word.
func NewExitMatcher(word string, opts ...ExitOption) *ExitMatcher {
	m := &ExitMatcher{
		word:              strings.ToLower(strings.TrimSpace(word)),
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	m.wordCodes = metaphoneCodes(m.word)
	return m
}

// Word returns the normalised exit word.
func (m *ExitMatcher) Word() string { return m.word }

// Match reports whether text contains the exit word.
func (m *ExitMatcher) Match(text string) bool {
	if m.word == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, m.word) {
		return true
	}

	for _, tok := range strings.FieldsFunc(lower, isSeparator) {
		if len([]rune(tok)) < 2 {
			continue
		}
		score := matchr.JaroWinkler(tok, m.word, false)
		if score >= m.fuzzyThreshold {
			return true
		}
		if score >= m.phoneticThreshold && codesOverlap(metaphoneCodes(tok), m.wordCodes) {
			return true
		}
	}
	return false
}

func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// metaphoneCodes returns the Double Metaphone codes of an ASCII word, or nil
// for anything else.
func metaphoneCodes(word string) map[string]struct{} {
	if word == "" {
		return nil
	}
	for _, r := range word {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return nil
		}
	}
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

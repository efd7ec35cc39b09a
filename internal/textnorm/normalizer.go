// Package textnorm turns raw query text into the cleaned form the vector
// space is fitted on. Both policies are pure and total over any input.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Normalizer is a deterministic text-to-cleaned-string transform.
type Normalizer interface {
	Name() string
	Normalize(text string) string
}

// Basic lowercases, strips punctuation and collapses whitespace.
type Basic struct{}

// NewBasic returns the basic normalizer.
func NewBasic() Basic { return Basic{} }

// Name returns the identifier of this policy.
func (Basic) Name() string { return "basic" }

// Normalize applies the basic policy.
func (Basic) Normalize(text string) string {
	lower := strings.ToLower(text)
	stripped := strings.Map(func(r rune) rune {
		if isPunct(r) {
			return -1
		}
		return r
	}, lower)
	return strings.Join(strings.Fields(stripped), " ")
}

// isPunct covers Unicode punctuation plus the ASCII symbols ($, +, <, =, >, ^, `, |, ~)
// that are usually treated as punctuation in English text.
func isPunct(r rune) bool {
	if unicode.IsPunct(r) {
		return true
	}
	return r < unicode.MaxASCII && unicode.IsSymbol(r)
}

var (
	urlRe    = regexp.MustCompile(`[a-z][a-z0-9+.\-]*://\S+|http\S+|www\S+`)
	emailRe  = regexp.MustCompile(`\S+@\S+`)
	letterRe = regexp.MustCompile(`[^a-z\s]`)
)

// Advanced strips URLs and emails, keeps letters only, drops stopwords and
// short tokens and stems what remains.
type Advanced struct {
	stopwords map[string]struct{}
	minLen    int
}

// NewAdvanced returns the advanced normalizer with the default stopword list.
func NewAdvanced() *Advanced {
	return &Advanced{stopwords: tokenStopwords(), minLen: 3}
}

// Name returns the identifier of this policy.
func (a *Advanced) Name() string { return "advanced" }

// Normalize applies the advanced policy.
func (a *Advanced) Normalize(text string) string {
	return strings.Join(a.Tokens(text), " ")
}

// Tokens returns the stemmed tokens Normalize would join.
func (a *Advanced) Tokens(text string) []string {
	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = letterRe.ReplaceAllString(text, "")
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) < a.minLen {
			continue
		}
		if _, stop := a.stopwords[tok]; stop {
			continue
		}
		out = append(out, english.Stem(tok, false))
	}
	return out
}

// ForKind picks the policy used by an engine variant.
func ForKind(enhanced bool) Normalizer {
	if enhanced {
		return NewAdvanced()
	}
	return NewBasic()
}

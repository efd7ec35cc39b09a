// Package intent computes the hand-crafted intent signal of a query: keyword
// bucket counts plus a few shape features, and the keyword rule that assigns
// pseudo-labels to training inputs.
//
// Labels produced here are a heuristic. They give the intent classifier
// something to fit; they say nothing reliable about what a user meant.
package intent

import (
	"strings"

	"supportbot/internal/domain"
)

// bucket is one named keyword list scanned by Extract.
type bucket struct {
	name     string
	keywords []string
}

// featureBuckets are counted in this order. The last bucket is about
// information-seeking words and has no label of its own.
var featureBuckets = []bucket{
	{"greeting", []string{"hello", "hi", "hey", "good morning", "good afternoon"}},
	{"help", []string{"help", "assist", "support", "problem", "issue"}},
	{"account", []string{"account", "profile", "login", "password", "username"}},
	{"billing", []string{"bill", "payment", "charge", "refund", "subscription"}},
	{"technical", []string{"error", "bug", "not working", "broken", "fix"}},
	{"information", []string{"what", "how", "when", "where", "why", "info"}},
}

var interrogatives = []string{"what", "how", "when", "where", "why"}

// Dimension is the length of every feature vector returned by Extract.
var Dimension = len(featureBuckets) + 4

// Extract returns the intent feature vector of raw, un-normalized text:
// one substring hit count per bucket, then word count, character count,
// a question-mark flag and a starts-with-interrogative flag.
func Extract(text string) []float64 {
	lower := strings.ToLower(text)
	out := make([]float64, 0, Dimension)
	for _, b := range featureBuckets {
		hits := 0
		for _, kw := range b.keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		out = append(out, float64(hits))
	}
	out = append(out,
		float64(len(strings.Fields(text))),
		float64(len([]rune(text))),
		flag(strings.Contains(text, "?")),
		flag(hasAnyPrefix(lower, interrogatives)),
	)
	return out
}

// labelRules are tried in priority order; the first rule with a hit wins.
var labelRules = []struct {
	intent   domain.Intent
	keywords []string
}{
	{domain.IntentGreeting, []string{"hello", "hi", "hey"}},
	{domain.IntentHelp, []string{"help", "assist", "support"}},
	{domain.IntentAccount, []string{"account", "login", "password"}},
	{domain.IntentBilling, []string{"bill", "payment", "charge"}},
	{domain.IntentTechnical, []string{"error", "bug", "broken"}},
}

// Label assigns the pseudo-label of a training input. Matching is by
// case-insensitive substring, so "this" counts as a greeting because it
// contains "hi"; the rule is kept as-is to stay reproducible.
func Label(text string) domain.Intent {
	lower := strings.ToLower(text)
	for _, r := range labelRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.intent
			}
		}
	}
	return domain.IntentGeneral
}

// Labels applies Label to every text, preserving order.
func Labels(texts []string) []domain.Intent {
	out := make([]domain.Intent, len(texts))
	for i, t := range texts {
		out[i] = Label(t)
	}
	return out
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

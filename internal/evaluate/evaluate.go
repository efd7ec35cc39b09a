// Package evaluate scores engines on a fixed set of support questions by
// checking their replies for expected keywords.
package evaluate

import (
	"strings"
)

// Responder is the part of an engine the evaluation needs.
type Responder interface {
	GenerateResponse(query string) string
}

// Case is one question with the keywords a useful reply should contain.
type Case struct {
	Input    string   `json:"input"`
	Keywords []string `json:"expected_keywords"`
}

// Result is the outcome of one case.
type Result struct {
	Input        string   `json:"input"`
	Response     string   `json:"response"`
	Keywords     []string `json:"expected_keywords"`
	KeywordMatch bool     `json:"keyword_match"`
}

// Report aggregates the results of a run.
type Report struct {
	Accuracy float64  `json:"accuracy"`
	Results  []Result `json:"results"`
}

// Comparison holds the reports of both engines on the same cases.
type Comparison struct {
	Basic       Report  `json:"basic_model"`
	Enhanced    Report  `json:"enhanced_model"`
	Improvement float64 `json:"improvement"`
	Cases       []Case  `json:"test_cases"`
}

// DefaultCases returns the built-in support questions.
func DefaultCases() []Case {
	return []Case{
		{"Hello, I need help", []string{"hello", "help", "assist"}},
		{"How do I reset my password?", []string{"password", "reset", "account"}},
		{"What are your business hours?", []string{"hours", "time", "open"}},
		{"I want to cancel my subscription", []string{"cancel", "subscription", "billing"}},
		{"The app is not working", []string{"error", "technical", "support"}},
		{"Thank you for your help", []string{"thank", "welcome", "glad"}},
		{"How much does it cost?", []string{"cost", "price", "billing"}},
		{"I can't log in to my account", []string{"login", "account", "password"}},
	}
}

// Run asks r every case. Accuracy is the share of replies containing at
// least one expected keyword, ignoring case; it is 0 for no cases.
func Run(r Responder, cases []Case) Report {
	rep := Report{Results: make([]Result, 0, len(cases))}
	hits := 0
	for _, c := range cases {
		resp := r.GenerateResponse(c.Input)
		res := Result{Input: c.Input, Response: resp, Keywords: c.Keywords, KeywordMatch: matches(resp, c.Keywords)}
		if res.KeywordMatch {
			hits++
		}
		rep.Results = append(rep.Results, res)
	}
	if len(cases) > 0 {
		rep.Accuracy = float64(hits) / float64(len(cases))
	}
	return rep
}

// Compare runs both responders on the same cases.
func Compare(basic, enhanced Responder, cases []Case) Comparison {
	c := Comparison{
		Basic:    Run(basic, cases),
		Enhanced: Run(enhanced, cases),
		Cases:    cases,
	}
	c.Improvement = c.Enhanced.Accuracy - c.Basic.Accuracy
	return c
}

func matches(resp string, keywords []string) bool {
	lower := strings.ToLower(resp)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

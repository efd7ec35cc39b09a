// Package vectorize fits a sparse TF-IDF vector space over a corpus and
// projects text into it. A fitted Space is immutable.
package vectorize

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"supportbot/internal/domain"
)

// Options controls vocabulary construction and term weighting.
type Options struct {
	MaxFeatures int     `json:"max_features"`
	NGramMax    int     `json:"ngram_max"`
	MinDF       int     `json:"min_df"`
	MaxDF       float64 `json:"max_df"`
	Sublinear   bool    `json:"sublinear_tf"`
}

// BasicOptions are the settings of the basic engine: unigrams and bigrams, 5000 terms.
func BasicOptions() Options {
	return Options{MaxFeatures: 5000, NGramMax: 2, MinDF: 1, MaxDF: 1.0}
}

// EnhancedOptions add trigrams, document-frequency pruning and log-scaled term frequency.
func EnhancedOptions() Options {
	return Options{MaxFeatures: 10000, NGramMax: 3, MinDF: 2, MaxDF: 0.95, Sublinear: true}
}

// MaxNGram is the longest n-gram either engine extracts.
const MaxNGram = 3

var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// Space is a fitted vocabulary with its smoothed IDF weights.
type Space struct {
	Options    Options        `json:"options"`
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	DocCount   int            `json:"doc_count"`
}

// Fit builds a new Space from the corpus. The corpus is not modified.
func Fit(corpus []string, opts Options) (*Space, error) {
	nonEmpty := 0
	for _, doc := range corpus {
		if strings.TrimSpace(doc) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if opts.NGramMax < 1 {
		opts.NGramMax = 1
	}
	if opts.NGramMax > MaxNGram {
		return nil, fmt.Errorf("ngram_max %d exceeds %d", opts.NGramMax, MaxNGram)
	}

	df := make(map[string]int)
	total := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, term := range analyze(doc, opts.NGramMax) {
			total[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, fmt.Errorf("%w: documents contain only stop words", domain.ErrEmptyCorpus)
	}

	n := len(corpus)
	maxDocs := float64(n)
	if opts.MaxDF > 0 && opts.MaxDF < 1 {
		maxDocs = opts.MaxDF * float64(n)
	}
	terms := make([]string, 0, len(df))
	for term, f := range df {
		if f < opts.MinDF || float64(f) > maxDocs {
			continue
		}
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms remain after document-frequency pruning", domain.ErrEmptyCorpus)
	}
	if opts.MaxFeatures > 0 && len(terms) > opts.MaxFeatures {
		// Keep the most frequent terms across the corpus.
		sort.Slice(terms, func(i, j int) bool {
			if total[terms[i]] != total[terms[j]] {
				return total[terms[i]] > total[terms[j]]
			}
			return terms[i] < terms[j]
		})
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	s := &Space{
		Options:    opts,
		Vocabulary: make(map[string]int, len(terms)),
		IDF:        make([]float64, len(terms)),
		DocCount:   n,
	}
	N := float64(n)
	for i, term := range terms {
		s.Vocabulary[term] = i
		s.IDF[i] = math.Log((1+N)/(1+float64(df[term]))) + 1.0
	}
	return s, nil
}

// Dimension returns the number of vocabulary terms.
func (s *Space) Dimension() int { return len(s.IDF) }

// Validate checks that a decoded Space is internally consistent and that its
// options are ones Fit could have produced.
func (s *Space) Validate() error {
	o := s.Options
	if o.NGramMax < 1 || o.NGramMax > MaxNGram {
		return fmt.Errorf("ngram_max %d outside [1, %d]", o.NGramMax, MaxNGram)
	}
	if o.MinDF < 0 || math.IsNaN(o.MaxDF) || o.MaxDF < 0 || o.MaxDF > 1 {
		return fmt.Errorf("invalid document-frequency bounds min_df %d, max_df %v", o.MinDF, o.MaxDF)
	}
	if len(s.Vocabulary) == 0 || len(s.Vocabulary) != len(s.IDF) {
		return fmt.Errorf("vocabulary size %d does not match idf size %d", len(s.Vocabulary), len(s.IDF))
	}
	if o.MaxFeatures < 0 || (o.MaxFeatures > 0 && len(s.IDF) > o.MaxFeatures) {
		return fmt.Errorf("%d terms exceed max_features %d", len(s.IDF), o.MaxFeatures)
	}
	for i, w := range s.IDF {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return fmt.Errorf("idf weight %d is %v", i, w)
		}
	}
	used := make([]bool, len(s.IDF))
	for term, idx := range s.Vocabulary {
		if idx < 0 || idx >= len(s.IDF) {
			return fmt.Errorf("term %q has out-of-range index %d", term, idx)
		}
		if used[idx] {
			return fmt.Errorf("term %q reuses index %d", term, idx)
		}
		used[idx] = true
	}
	return nil
}

// Transform projects each text into the space. Unknown terms are ignored and
// texts without known terms yield the zero vector.
func (s *Space) Transform(texts []string) []Vector {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		out[i] = s.TransformOne(text)
	}
	return out
}

// TransformOne projects a single text.
func (s *Space) TransformOne(text string) Vector {
	counts := make(map[int]int)
	for _, term := range analyze(text, s.Options.NGramMax) {
		if idx, ok := s.Vocabulary[term]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return Vector{}
	}
	v := Vector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		v.Indices = append(v.Indices, idx)
	}
	sort.Ints(v.Indices)
	for _, idx := range v.Indices {
		tf := float64(counts[idx])
		if s.Options.Sublinear {
			tf = 1 + math.Log(tf)
		}
		v.Values = append(v.Values, tf*s.IDF[idx])
	}
	v.normalize()
	return v
}

// analyze lowercases, tokenizes, drops stop words and emits 1..maxN word n-grams.
func analyze(text string, maxN int) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(raw) == 0 {
		return nil
	}
	tokens := raw[:0]
	for _, t := range raw {
		if _, isStop := vocabularyStopwords[t]; isStop {
			continue
		}
		tokens = append(tokens, t)
	}
	if maxN <= 1 {
		return tokens
	}
	out := make([]string, 0, len(tokens)*maxN)
	out = append(out, tokens...)
	for n := 2; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

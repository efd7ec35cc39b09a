// Package ranker scores a query vector against every stored corpus vector
// with brute-force cosine similarity.
package ranker

import (
	"errors"
	"sort"

	"supportbot/internal/domain"
	"supportbot/internal/vectorize"
)

// ErrEmptyIndex is returned when searching an index without vectors.
var ErrEmptyIndex = errors.New("ranker: index is empty")

// Index holds the corpus vectors in training order. It is immutable once built.
type Index struct {
	vectors []vectorize.Vector
}

// NewIndex wraps the corpus vectors. The slice is owned by the index afterwards.
func NewIndex(vectors []vectorize.Vector) *Index {
	return &Index{vectors: vectors}
}

// Len returns the number of corpus vectors.
func (x *Index) Len() int { return len(x.vectors) }

// Scores returns the cosine similarity of the query against every corpus entry.
func (x *Index) Scores(query vectorize.Vector) []float64 {
	scores := make([]float64, len(x.vectors))
	if query.IsZero() {
		return scores
	}
	for i := range x.vectors {
		scores[i] = vectorize.Cosine(query, x.vectors[i])
	}
	return scores
}

// Best returns the index and similarity of the closest corpus entry.
// Ties go to the lowest index.
func (x *Index) Best(query vectorize.Vector) (domain.Candidate, error) {
	top, err := x.Search(query, 1, 1)
	if err != nil {
		return domain.Candidate{}, err
	}
	return top[0], nil
}

// Search scales every similarity by weight and returns the topK entries by
// weighted score, highest first. Equal scores keep corpus order.
func (x *Index) Search(query vectorize.Vector, weight float64, topK int) ([]domain.Candidate, error) {
	if len(x.vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	if topK <= 0 {
		topK = 1
	}
	scores := x.Scores(query)
	for i := range scores {
		scores[i] *= weight
	}
	idxs := argsortDesc(scores)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	out := make([]domain.Candidate, 0, topK)
	for _, j := range idxs[:topK] {
		out = append(out, domain.Candidate{Index: j, Score: scores[j]})
	}
	return out, nil
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return vals[idxs[a]] > vals[idxs[b]] })
	return idxs
}

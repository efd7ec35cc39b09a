package engine

import (
	"errors"
	"fmt"

	"supportbot/internal/domain"
	"supportbot/internal/forest"
	"supportbot/internal/intent"
	"supportbot/internal/ranker"
	"supportbot/internal/textnorm"
	"supportbot/internal/vectorize"
)

// state is one fully trained model. It is never modified after construction;
// retraining builds a new state and swaps it in.
type state struct {
	kind   domain.Kind
	norm   textnorm.Normalizer
	space  *vectorize.Space
	pairs  []domain.TrainingPair
	index  *ranker.Index
	forest *forest.Forest
	info   domain.ModelInfo
}

// newState derives the corpus vectors from the pairs and checks that every
// part agrees on the corpus size.
func newState(kind domain.Kind, space *vectorize.Space, pairs []domain.TrainingPair, f *forest.Forest, info domain.ModelInfo) (*state, error) {
	if len(pairs) == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	inputs := make([]string, len(pairs))
	for i, p := range pairs {
		inputs[i] = p.NormalizedInput
	}
	vectors := space.Transform(inputs)
	st := &state{
		kind:   kind,
		norm:   textnorm.ForKind(kind == domain.KindEnhanced),
		space:  space,
		pairs:  pairs,
		index:  ranker.NewIndex(vectors),
		forest: f,
		info:   info,
	}
	if st.index.Len() != len(st.pairs) {
		return nil, fmt.Errorf("corpus has %d vectors for %d pairs", st.index.Len(), len(st.pairs))
	}
	if kind == domain.KindEnhanced && f == nil {
		return nil, errors.New("enhanced model has no intent classifier")
	}
	return st, nil
}

// featureRow appends the intent features after the TF-IDF dimensions.
func featureRow(v vectorize.Vector, features []float64, offset int) forest.Row {
	row := forest.Row{
		Indices: make([]int, 0, len(v.Indices)+len(features)),
		Values:  make([]float64, 0, len(v.Values)+len(features)),
	}
	row.Indices = append(row.Indices, v.Indices...)
	row.Values = append(row.Values, v.Values...)
	for j, x := range features {
		if x != 0 {
			row.Indices = append(row.Indices, offset+j)
			row.Values = append(row.Values, x)
		}
	}
	return row
}

// classify runs the intent classifier on a raw query and its vector.
func (s *state) classify(raw string, v vectorize.Vector) (domain.Intent, float64) {
	proba := s.forest.PredictProba(featureRow(v, intent.Extract(raw), s.space.Dimension()))
	c, conf := forest.Argmax(proba)
	return domain.Intents[c], conf
}

// respond applies the response policy of the engine kind.
func (s *state) respond(query string, threshold float64) (domain.Reply, error) {
	qv := s.space.TransformOne(s.norm.Normalize(query))
	if s.kind != domain.KindEnhanced {
		best, err := s.index.Best(qv)
		if err != nil {
			return domain.Reply{}, err
		}
		r := domain.Reply{Similarity: best.Score, Match: best.Index, Candidates: []domain.Candidate{best}}
		if best.Score < threshold {
			r.Text, r.Outcome, r.Match = MsgBasicFallback, domain.OutcomeFallback, -1
			return r, nil
		}
		r.Text, r.Outcome = s.pairs[best.Index].RawResponse, domain.OutcomeAnswered
		return r, nil
	}

	label, conf := s.classify(query, qv)
	top, err := s.index.Search(qv, 0.7+0.3*conf, 3)
	if err != nil {
		return domain.Reply{}, err
	}
	best := top[0]
	r := domain.Reply{
		Intent:     label,
		Confidence: conf,
		Similarity: best.Score,
		Match:      best.Index,
		Candidates: top,
	}
	if best.Score < threshold {
		r.Text, r.Outcome, r.Match = FallbackFor(label), domain.OutcomeFallback, -1
		return r, nil
	}
	r.Text = Decorate(s.pairs[best.Index].RawResponse, label, conf)
	r.Outcome = domain.OutcomeAnswered
	return r, nil
}

// matchAccuracy is the share of the first limit pairs of split whose nearest
// stored input carries exactly the expected response.
func (s *state) matchAccuracy(split domain.Split, limit int) float64 {
	n := split.Len()
	if limit > 0 && n > limit {
		n = limit
	}
	if n == 0 {
		return 0
	}
	hits := 0
	for i := 0; i < n; i++ {
		best, err := s.index.Best(s.space.TransformOne(s.norm.Normalize(split.Inputs[i])))
		if err == nil && s.pairs[best.Index].RawResponse == split.Targets[i] {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

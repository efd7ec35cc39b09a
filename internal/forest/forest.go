// Package forest implements a bagged ensemble of CART decision trees over
// sparse feature rows. Trees are grown in parallel but every tree draws from
// its own seeded source, so a fit is reproducible for a given Config.
package forest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"supportbot/internal/domain"
)

// Config controls ensemble size and tree shape.
type Config struct {
	Trees           int   `json:"trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	Seed            int64 `json:"seed"`
	Workers         int   `json:"-"`
}

// DefaultConfig is 100 trees of depth 10 seeded with 42.
func DefaultConfig() Config {
	return Config{Trees: 100, MaxDepth: 10, MinSamplesSplit: 2, Seed: 42}
}

// Forest is a fitted ensemble. It is immutable after Fit and safe for
// concurrent prediction.
type Forest struct {
	Config      Config `json:"config"`
	NumClasses  int    `json:"num_classes"`
	NumFeatures int    `json:"num_features"`
	Trees       []Tree `json:"trees"`
}

// Fit grows the ensemble on rows with class labels in [0, numClasses).
// Fewer than two distinct labels is rejected with domain.ErrInsufficientData.
func Fit(ctx context.Context, rows []Row, labels []int, numClasses, numFeatures int, cfg Config) (*Forest, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("forest: %d rows but %d labels", len(rows), len(labels))
	}
	if numClasses < 2 || numFeatures < 1 {
		return nil, fmt.Errorf("forest: invalid shape %d classes x %d features", numClasses, numFeatures)
	}
	distinct := make(map[int]struct{})
	for _, l := range labels {
		if l < 0 || l >= numClasses {
			return nil, fmt.Errorf("forest: label %d out of range", l)
		}
		distinct[l] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil, fmt.Errorf("%w: %d distinct intent labels, need at least 2", domain.ErrInsufficientData, len(distinct))
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	f := &Forest{
		Config:      cfg,
		NumClasses:  numClasses,
		NumFeatures: numFeatures,
		Trees:       make([]Tree, cfg.Trees),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range f.Trees {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b := &builder{
				rows:       rows,
				labels:     labels,
				numClasses: numClasses,
				mtry:       max(1, int(math.Sqrt(float64(numFeatures)))),
				cfg:        cfg,
				rng:        rand.New(rand.NewSource(seeds[i])),
			}
			f.Trees[i] = b.grow(b.bootstrap())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// PredictProba averages the leaf distributions of every tree. The result has
// NumClasses entries and sums to 1.
func (f *Forest) PredictProba(x Row) []float64 {
	out := make([]float64, f.NumClasses)
	if len(f.Trees) == 0 {
		return out
	}
	for i := range f.Trees {
		for c, p := range f.Trees[i].leaf(x).Probs {
			out[c] += p
		}
	}
	n := float64(len(f.Trees))
	for c := range out {
		out[c] /= n
	}
	return out
}

// Predict returns the arg-max class and its probability. Ties go to the lower class.
func (f *Forest) Predict(x Row) (int, float64) {
	return Argmax(f.PredictProba(x))
}

// Score returns the fraction of rows whose predicted class equals the label.
func (f *Forest) Score(rows []Row, labels []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	hits := 0
	for i, x := range rows {
		if c, _ := f.Predict(x); c == labels[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(rows))
}

// Validate checks a decoded forest for structural consistency.
func (f *Forest) Validate() error {
	if f.NumClasses < 2 || f.NumFeatures < 1 || len(f.Trees) == 0 {
		return fmt.Errorf("forest: invalid shape %d classes, %d features, %d trees", f.NumClasses, f.NumFeatures, len(f.Trees))
	}
	for i := range f.Trees {
		if err := f.Trees[i].validate(f.NumClasses, f.NumFeatures); err != nil {
			return fmt.Errorf("forest: tree %d: %w", i, err)
		}
	}
	return nil
}

// Argmax returns the index and value of the largest entry, first wins on ties.
func Argmax(p []float64) (int, float64) {
	best, bestV := 0, math.Inf(-1)
	for i, v := range p {
		if v > bestV {
			best, bestV = i, v
		}
	}
	if len(p) == 0 {
		return 0, 0
	}
	return best, bestV
}

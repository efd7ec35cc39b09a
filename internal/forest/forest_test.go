package forest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/domain"
)

// separable returns rows where class 0 has feature 0 set and class 1 has feature 3 set.
func separable() ([]Row, []int) {
	var rows []Row
	var labels []int
	for i := 0; i < 20; i++ {
		w := 1 + float64(i%4)
		if i%2 == 0 {
			rows = append(rows, Row{Indices: []int{0, 5}, Values: []float64{w, 1}})
			labels = append(labels, 0)
		} else {
			rows = append(rows, Row{Indices: []int{3, 5}, Values: []float64{w, 1}})
			labels = append(labels, 1)
		}
	}
	return rows, labels
}

func TestFitRejectsSingleClass(t *testing.T) {
	rows := []Row{{Indices: []int{0}, Values: []float64{1}}, {Indices: []int{1}, Values: []float64{1}}}
	_, err := Fit(context.Background(), rows, []int{2, 2}, 6, 4, DefaultConfig())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestFitRejectsBadInput(t *testing.T) {
	rows, labels := separable()
	_, err := Fit(context.Background(), rows, labels[:3], 2, 6, DefaultConfig())
	assert.Error(t, err)

	labels[0] = 7
	_, err = Fit(context.Background(), rows, labels, 2, 6, DefaultConfig())
	assert.Error(t, err)
}

func TestFitLearnsSeparableData(t *testing.T) {
	rows, labels := separable()
	cfg := DefaultConfig()
	cfg.Trees = 25
	f, err := Fit(context.Background(), rows, labels, 3, 6, cfg)
	require.NoError(t, err)
	require.NoError(t, f.Validate())

	assert.Equal(t, 1.0, f.Score(rows, labels))

	p := f.PredictProba(Row{Indices: []int{0}, Values: []float64{2}})
	require.Len(t, p, 3)
	assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-9)
	assert.Zero(t, p[2], "unseen class gets no mass")

	c, conf := f.Predict(Row{Indices: []int{3}, Values: []float64{2}})
	assert.Equal(t, 1, c)
	assert.Greater(t, conf, 0.5)
}

func TestFitIsReproducible(t *testing.T) {
	rows, labels := separable()
	cfg := DefaultConfig()
	cfg.Trees = 10
	cfg.Workers = 4
	a, err := Fit(context.Background(), rows, labels, 2, 6, cfg)
	require.NoError(t, err)
	cfg.Workers = 1
	b, err := Fit(context.Background(), rows, labels, 2, 6, cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Trees, b.Trees)
}

func TestFitHonoursCancellation(t *testing.T) {
	rows, labels := separable()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fit(ctx, rows, labels, 2, 6, DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredictProbaEmptyRowSumsToOne(t *testing.T) {
	rows, labels := separable()
	f, err := Fit(context.Background(), rows, labels, 2, 6, DefaultConfig())
	require.NoError(t, err)
	p := f.PredictProba(Row{})
	assert.InDelta(t, 1.0, p[0]+p[1], 1e-9)
}

func TestValidateRejectsBrokenTrees(t *testing.T) {
	f := &Forest{NumClasses: 2, NumFeatures: 3, Trees: []Tree{{Nodes: []Node{{Feature: 9, Left: 1, Right: 2}, {Left: -1, Probs: []float64{1, 0}}, {Left: -1, Probs: []float64{0, 1}}}}}}
	assert.Error(t, f.Validate())

	f.Trees[0].Nodes[0].Feature = 1
	assert.NoError(t, f.Validate())

	f.Trees[0].Nodes[0].Left = 0
	assert.Error(t, f.Validate())
}

func TestArgmax(t *testing.T) {
	i, v := Argmax([]float64{0.2, 0.4, 0.4})
	assert.Equal(t, 1, i)
	assert.Equal(t, 0.4, v)
}

func TestValidateRejectsBrokenLeafDistributions(t *testing.T) {
	leaves := map[string][]float64{
		"negative":     {-5, -5},
		"above one":    {1.5, -0.5},
		"not a number": {math.NaN(), 1},
		"short of one": {0.4, 0.4},
		"beyond one":   {0.6, 0.6},
	}
	for name, probs := range leaves {
		t.Run(name, func(t *testing.T) {
			f := &Forest{NumClasses: 2, NumFeatures: 1, Trees: []Tree{{Nodes: []Node{{Left: -1, Probs: probs}}}}}
			assert.Error(t, f.Validate())
		})
	}

	f := &Forest{NumClasses: 2, NumFeatures: 1, Trees: []Tree{{Nodes: []Node{{Left: -1, Probs: []float64{1.0 / 3, 2.0 / 3}}}}}}
	assert.NoError(t, f.Validate())
}

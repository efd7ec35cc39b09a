package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Row is a sparse feature vector with strictly increasing indices.
type Row struct {
	Indices []int
	Values  []float64
}

// At returns the value of feature j, zero when absent.
func (r Row) At(j int) float64 {
	k := sort.SearchInts(r.Indices, j)
	if k < len(r.Indices) && r.Indices[k] == j {
		return r.Values[k]
	}
	return 0
}

// Node is a split when Left >= 0 and a leaf otherwise.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Probs     []float64 `json:"p,omitempty"`
}

// Tree stores nodes in a flat slice rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) leaf(x Row) *Node {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n
		}
		if x.At(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// probTolerance bounds how far a leaf distribution may drift from summing to 1.
const probTolerance = 1e-6

func (t *Tree) validate(numClasses, numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			if len(n.Probs) != numClasses {
				return fmt.Errorf("leaf %d has %d class probabilities", i, len(n.Probs))
			}
			sum := 0.0
			for _, p := range n.Probs {
				if math.IsNaN(p) || p < 0 || p > 1 {
					return fmt.Errorf("leaf %d has class probability %v", i, p)
				}
				sum += p
			}
			if math.Abs(sum-1) > probTolerance {
				return fmt.Errorf("leaf %d probabilities sum to %v", i, sum)
			}
			continue
		}
		// Children are always appended after their parent.
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d", i, n.Feature)
		}
	}
	return nil
}

type builder struct {
	rows       []Row
	labels     []int
	numClasses int
	mtry       int
	cfg        Config
	rng        *rand.Rand
	nodes      []Node
}

func (b *builder) bootstrap() []int {
	n := len(b.rows)
	sample := make([]int, n)
	for i := range sample {
		sample[i] = b.rng.Intn(n)
	}
	return sample
}

func (b *builder) grow(sample []int) Tree {
	b.nodes = b.nodes[:0]
	b.split(sample, 0)
	nodes := make([]Node, len(b.nodes))
	copy(nodes, b.nodes)
	return Tree{Nodes: nodes}
}

// split appends the node for sample and returns its index.
func (b *builder) split(sample []int, depth int) int {
	counts := b.classCounts(sample)
	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{Left: -1, Right: -1})

	if depth >= b.cfg.MaxDepth || len(sample) < b.cfg.MinSamplesSplit || pure(counts) {
		b.nodes[idx].Probs = distribution(counts, len(sample))
		return idx
	}
	feature, threshold, ok := b.bestSplit(sample)
	if !ok {
		b.nodes[idx].Probs = distribution(counts, len(sample))
		return idx
	}

	var left, right []int
	for _, s := range sample {
		if b.rows[s].At(feature) <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		b.nodes[idx].Probs = distribution(counts, len(sample))
		return idx
	}
	l := b.split(left, depth+1)
	r := b.split(right, depth+1)
	b.nodes[idx].Feature = feature
	b.nodes[idx].Threshold = threshold
	b.nodes[idx].Left = l
	b.nodes[idx].Right = r
	return idx
}

// bestSplit draws candidate features in random order and evaluates them until
// mtry non-constant features have been seen. Features that are zero for every
// sample in the node cannot split it and are never drawn.
func (b *builder) bestSplit(sample []int) (int, float64, bool) {
	active := make(map[int]struct{})
	for _, s := range sample {
		for k, j := range b.rows[s].Indices {
			if b.rows[s].Values[k] != 0 {
				active[j] = struct{}{}
			}
		}
	}
	features := make([]int, 0, len(active))
	for j := range active {
		features = append(features, j)
	}
	sort.Ints(features)
	b.rng.Shuffle(len(features), func(i, j int) { features[i], features[j] = features[j], features[i] })

	bestFeature, bestThreshold, bestImpurity := -1, 0.0, math.Inf(1)
	visited := 0
	vals := make([]valued, len(sample))
	for _, f := range features {
		if visited >= b.mtry {
			break
		}
		for i, s := range sample {
			vals[i] = valued{v: b.rows[s].At(f), label: b.labels[s]}
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i].v < vals[j].v })
		if vals[0].v == vals[len(vals)-1].v {
			continue
		}
		visited++
		threshold, impurity := b.scan(vals)
		if impurity < bestImpurity {
			bestFeature, bestThreshold, bestImpurity = f, threshold, impurity
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

type valued struct {
	v     float64
	label int
}

// scan finds the threshold over sorted values with the lowest weighted Gini impurity.
func (b *builder) scan(vals []valued) (float64, float64) {
	n := len(vals)
	left := make([]int, b.numClasses)
	right := make([]int, b.numClasses)
	for _, x := range vals {
		right[x.label]++
	}
	bestThreshold, bestImpurity := 0.0, math.Inf(1)
	for i := 0; i < n-1; i++ {
		left[vals[i].label]++
		right[vals[i].label]--
		if vals[i].v == vals[i+1].v {
			continue
		}
		nl, nr := float64(i+1), float64(n-i-1)
		impurity := (nl*gini(left, nl) + nr*gini(right, nr)) / float64(n)
		if impurity < bestImpurity {
			bestImpurity = impurity
			bestThreshold = (vals[i].v + vals[i+1].v) / 2
			if bestThreshold >= vals[i+1].v {
				bestThreshold = vals[i].v
			}
		}
	}
	return bestThreshold, bestImpurity
}

func (b *builder) classCounts(sample []int) []int {
	counts := make([]int, b.numClasses)
	for _, s := range sample {
		counts[b.labels[s]]++
	}
	return counts
}

func gini(counts []int, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := float64(c) / n
		sum += p * p
	}
	return 1 - sum
}

func pure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func distribution(counts []int, n int) []float64 {
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i, c := range counts {
		p[i] = float64(c) / float64(n)
	}
	return p
}

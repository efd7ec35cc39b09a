package vectorize

import "math"

// Vector is a sparse weighted vector with strictly increasing indices.
type Vector struct {
	Indices []int     `json:"i,omitempty"`
	Values  []float64 `json:"v,omitempty"`
}

// IsZero reports whether the vector has no non-zero weight.
func (v Vector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Norm returns the L2 norm.
func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product of two sparse vectors.
func (v Vector) Dot(o Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// At returns the weight at dimension idx.
func (v Vector) At(idx int) float64 {
	lo, hi := 0, len(v.Indices)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case v.Indices[mid] == idx:
			return v.Values[mid]
		case v.Indices[mid] < idx:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

func (v *Vector) normalize() {
	norm := v.Norm()
	if norm == 0 {
		return
	}
	for i := range v.Values {
		v.Values[i] /= norm
	}
}

// Cosine returns the cosine similarity of a and b. A zero vector has similarity 0.
func Cosine(a, b Vector) float64 {
	denom := a.Norm() * b.Norm()
	if denom == 0 {
		return 0
	}
	return a.Dot(b) / denom
}

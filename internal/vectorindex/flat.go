package vectorindex

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// Flat stores vectors contiguously and answers queries exactly.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat returns an empty flat index.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

func (f *Flat) Kind() string { return KindFlat }
func (f *Flat) Dim() int     { return f.dim }
func (f *Flat) Len() int     { return len(f.data) / f.dim }

// Add validates every vector before appending any of them.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index has %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	f.data = slices.Grow(f.data, len(vectors)*f.dim)
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, n)
	for i := range n {
		hits[i] = Hit{Ordinal: i, Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Ordinal, b.Ordinal)
	})
	return hits[:min(k, n)], nil
}

// vector returns a copy of the vector at ordinal i.
func (f *Flat) vector(i int) []float32 {
	return slices.Clone(f.data[i*f.dim : (i+1)*f.dim])
}

func (f *Flat) encode(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, f.data)
}

func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}

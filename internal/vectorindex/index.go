// Package vectorindex holds the nearest-neighbour structures built over a
// course's chunk embeddings. Ordinal i of an index is the i-th vector added.
package vectorindex

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

// KindFlat is exact brute-force search over squared L2 distance.
const KindFlat = "flat"

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoVectors is returned by Build when there is nothing to infer a
	// dimension from.
	ErrNoVectors = errors.New("no vectors to index")
	// ErrUnknownKind is returned for an index kind with no registered constructor.
	ErrUnknownKind = errors.New("unknown index kind")
)

// Hit is one search result.
type Hit struct {
	Ordinal  int
	Distance float32
}

// Index is a searchable vector collection.
type Index interface {
	Kind() string
	Dim() int
	Len() int
	// Add appends vectors; the first added vector gets ordinal Len().
	Add(vectors ...[]float32) error
	// Search returns at most k hits ordered by ascending distance, ties
	// broken by ascending ordinal.
	Search(query []float32, k int) ([]Hit, error)

	// encode writes the kind-specific payload for the codec.
	encode(w io.Writer) error
}

// constructor makes an empty index of the given dimension.
type constructor func(dim int) (Index, error)

var registry = map[string]constructor{
	KindFlat: func(dim int) (Index, error) { return NewFlat(dim) },
}

// Kinds lists registered index kinds.
func Kinds() []string {
	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New returns an empty index of the given kind.
func New(kind string, dim int) (Index, error) {
	ctor, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return ctor(dim)
}

// Build creates an index of the given kind holding vectors in order. The
// dimension is taken from the first vector.
func Build(kind string, vectors [][]float32) (Index, error) {
	if len(vectors) == 0 {
		return nil, ErrNoVectors
	}
	idx, err := New(kind, len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors...); err != nil {
		return nil, fmt.Errorf("build %s index: %w", kind, err)
	}
	return idx, nil
}

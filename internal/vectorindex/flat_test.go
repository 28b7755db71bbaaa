package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_OrdinalsFollowInsertionOrder(t *testing.T) {
	idx, err := Build(KindFlat, [][]float32{{0, 0}, {1, 0}, {5, 5}})
	require.NoError(t, err)
	assert.Equal(t, KindFlat, idx.Kind())
	assert.Equal(t, 2, idx.Dim())
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search([]float32{5, 5}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, Hit{Ordinal: 2, Distance: 0}, hits[0])
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(KindFlat, nil)
	assert.ErrorIs(t, err, ErrNoVectors)

	_, err = Build(KindFlat, [][]float32{{1, 2}, {1, 2, 3}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = Build("hnsw", [][]float32{{1}})
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Build(KindFlat, [][]float32{{}})
	assert.Error(t, err)
}

func TestFlat_SearchSquaredL2Ordering(t *testing.T) {
	idx, err := Build(KindFlat, [][]float32{{3, 0}, {1, 0}, {0, 2}, {-1, 0}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 4)

	// Distances 9, 1, 4, 1: the tie between ordinals 1 and 3 goes to the
	// earlier one.
	assert.Equal(t, []Hit{
		{Ordinal: 1, Distance: 1},
		{Ordinal: 3, Distance: 1},
		{Ordinal: 2, Distance: 4},
		{Ordinal: 0, Distance: 9},
	}, hits)
}

func TestFlat_SearchLengthIsMinKN(t *testing.T) {
	idx, err := Build(KindFlat, [][]float32{{0}, {1}, {2}, {3}, {4}})
	require.NoError(t, err)

	for k, want := range map[int]int{-1: 0, 0: 0, 1: 1, 3: 3, 5: 5, 12: 5} {
		hits, err := idx.Search([]float32{0}, k)
		require.NoError(t, err)
		assert.Len(t, hits, want, "k=%d", k)
	}
}

func TestFlat_IdenticalVectorsTieOnOrdinal(t *testing.T) {
	idx, err := Build(KindFlat, [][]float32{{1, 1}, {1, 1}, {1, 1}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	for i, h := range hits {
		assert.Equal(t, i, h.Ordinal)
		assert.Equal(t, float32(2), h.Distance)
	}
}

func TestFlat_QueryDimensionMismatch(t *testing.T) {
	idx, err := Build(KindFlat, [][]float32{{1, 2, 3}})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlat_AddIsAllOrNothing(t *testing.T) {
	idx, err := NewFlat(2)
	require.NoError(t, err)

	err = idx.Add([]float32{1, 2}, []float32{1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len())
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{KindFlat}, Kinds())
}

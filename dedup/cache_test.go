package dedup_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bytefold/recall/dedup"
)

func TestHashContent_Deterministic(t *testing.T) {
	h1 := dedup.HashContent("the same text")
	h2 := dedup.HashContent("the same text")
	h3 := dedup.HashContent("different text")

	require.Equal(t, h1, h2)
	require.NotEqual(t, h1, h3)
	require.Len(t, h1, 64) // fixed-width hex
}

func TestCache_EvictsOldestFirst(t *testing.T) {
	c := dedup.NewCache(10)

	for i := 0; i < 14; i++ {
		c.Store(fmt.Sprintf("hash-%d", i), []float32{float32(i)})
	}

	require.Equal(t, 10, c.Len())
	for i := 0; i < 4; i++ {
		require.False(t, c.Contains(fmt.Sprintf("hash-%d", i)), "hash-%d should be evicted", i)
	}
	for i := 4; i < 14; i++ {
		require.True(t, c.Contains(fmt.Sprintf("hash-%d", i)), "hash-%d should survive", i)
	}
}

func TestCache_UpsertKeepsEvictionPosition(t *testing.T) {
	c := dedup.NewCache(3)

	c.Store("a", []float32{1})
	c.Store("b", []float32{2})
	c.Store("c", []float32{3})

	// Re-storing "a" updates in place without refreshing its slot:
	// it is still the oldest insertion.
	c.Store("a", []float32{99})
	require.Equal(t, 3, c.Len())
	require.Equal(t, []float32{99}, c.Entries()[0].Vector)

	c.Store("d", []float32{4})
	require.False(t, c.Contains("a"))
	require.True(t, c.Contains("b"))
	require.True(t, c.Contains("d"))
}

func TestCosineSimilarity_Identities(t *testing.T) {
	v := []float32{0.6, 0.8, 0}
	neg := []float32{-0.6, -0.8, 0}
	orthogonal := []float32{0, 0, 1}

	require.InDelta(t, 1.0, dedup.CosineSimilarity(v, v), 1e-6)
	require.InDelta(t, -1.0, dedup.CosineSimilarity(v, neg), 1e-6)
	require.InDelta(t, 0.0, dedup.CosineSimilarity(v, orthogonal), 1e-6)
}

func TestCosineSimilarity_NormalizedRandomVectorIsUnit(t *testing.T) {
	// A normalized vector dotted with itself is 1 regardless of length.
	v := make([]float32, 384)
	var norm float64
	for i := range v {
		v[i] = float32(i%7) - 3
		norm += float64(v[i]) * float64(v[i])
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	require.InDelta(t, 1.0, dedup.CosineSimilarity(v, v), 1e-4)
}

func TestCosineSimilarity_PanicsOnDimensionMismatch(t *testing.T) {
	require.Panics(t, func() {
		dedup.CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0})
	})
}

package store

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)

	assert.InDelta(t, 0.6, n[0], 1e-6)
	assert.InDelta(t, 0.8, n[1], 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input is not modified")

	assert.Equal(t, []float32{0, 0}, Normalize([]float32{0, 0}))
}

func TestSimilarity_SelfIsOne(t *testing.T) {
	v := Normalize([]float32{0.2, -0.7, 1.3, 0.01})
	assert.InDelta(t, 1.0, Similarity(v, v), 1e-6)
}

func TestSimilarity_AlwaysWithinUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		a := make([]float32, 16)
		b := make([]float32, 16)
		for j := range a {
			a[j] = rng.Float32()*2 - 1
			b[j] = rng.Float32()*2 - 1
		}
		s := Similarity(Normalize(a), Normalize(b))
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
}

func TestSimilarity_OpposedVectorsClampToZero(t *testing.T) {
	a := Normalize([]float32{1, 0})
	b := Normalize([]float32{-1, 0})
	assert.Equal(t, 0.0, Similarity(a, b))
}

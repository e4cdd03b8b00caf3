package profilestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}
	decoded := decodeVector(encodeVector(vec))
	require.Len(t, decoded, len(vec))
	assert.Equal(t, vec, decoded)
}

func TestDecodeVectorBadLength(t *testing.T) {
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 0.001)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 0.001)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 0.001)

	// degenerate inputs score zero instead of dividing by zero
	assert.Zero(t, cosine([]float32{1, 0}, []float32{0, 0}))
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1, 0, 0}))
	assert.Zero(t, cosine(nil, nil))
}

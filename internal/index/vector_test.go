package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	got, err := cosineSimilarity([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)

	got, err = cosineSimilarity([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-6)

	got, err = cosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-6)

	// Scale invariance.
	got, err = cosineSimilarity([]float32{3, 4}, []float32{6, 8})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-6)
}

func TestCosineSimilarityErrors(t *testing.T) {
	_, err := cosineSimilarity([]float32{1, 2}, []float32{1, 2, 3})
	assert.Error(t, err)

	_, err = cosineSimilarity(nil, []float32{1})
	assert.Error(t, err)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	got, err := cosineSimilarity([]float32{0, 0}, []float32{1, 2})
	require.NoError(t, err)
	assert.Zero(t, got)
}

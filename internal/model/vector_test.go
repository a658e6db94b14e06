package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector_FixedWidth(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := EncodeVector(vec)
	assert.Len(t, blob, 16)

	decoded, err := DecodeVector(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)
}

func TestEncodeVector_LittleEndian(t *testing.T) {
	blob := EncodeVector([]float32{1})
	// 1.0 == 0x3f800000
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, blob)
}

func TestDecodeVector_RejectsTruncatedBlob(t *testing.T) {
	_, err := DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestChunk_EmbeddingVector(t *testing.T) {
	var c Chunk
	c.SetEmbedding([]float32{0.25, 0.5})
	assert.Equal(t, []float32{0.25, 0.5}, c.EmbeddingVector())

	c.Vector = []byte{9}
	assert.Nil(t, c.EmbeddingVector())
}

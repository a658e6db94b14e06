package model

import (
	"encoding/binary"
	"fmt"
	"math"
)

const float32Size = 4

// EncodeVector packs vec as little-endian IEEE-754 float32 values.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*float32Size)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*float32Size:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%float32Size != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of %d", len(data), float32Size)
	}
	vec := make([]float32, len(data)/float32Size)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*float32Size:]))
	}
	return vec, nil
}

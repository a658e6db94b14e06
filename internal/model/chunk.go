package model

import "time"

// Chunk is one retrievable window of a source document together with its
// embedding. (DocumentKey, Ordinal) is unique; rows are never updated.
type Chunk struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentKey string    `gorm:"size:512;not null;index;uniqueIndex:idx_chunks_doc_ordinal,priority:1" json:"document_key"`
	Title       string    `gorm:"size:512;not null" json:"title"`
	Ordinal     int       `gorm:"not null;uniqueIndex:idx_chunks_doc_ordinal,priority:2" json:"ordinal"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	Vector      []byte    `gorm:"not null" json:"-"` // little-endian float32
	CreatedAt   time.Time `json:"created_at"`
}

func (Chunk) TableName() string {
	return "chunks"
}

// EmbeddingVector returns the decoded embedding; nil on a malformed blob.
func (c *Chunk) EmbeddingVector() []float32 {
	v, err := DecodeVector(c.Vector)
	if err != nil {
		return nil
	}
	return v
}

// SetEmbedding stores vec in its fixed-width binary form.
func (c *Chunk) SetEmbedding(vec []float32) {
	c.Vector = EncodeVector(vec)
}

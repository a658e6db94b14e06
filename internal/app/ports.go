package app

import (
	"context"
	"iter"

	"groundedqa/internal/model"
)

// ChunkStore persists chunk rows; (DocumentKey, Ordinal) is unique.
type ChunkStore interface {
	InsertIfAbsent(ctx context.Context, chunk *model.Chunk) (bool, error)
	Exists(ctx context.Context, documentKey string, ordinal int) (bool, error)
	ScanAll(ctx context.Context) iter.Seq2[model.Chunk, error]
	Count(ctx context.Context) (int64, error)
	PruneFrom(ctx context.Context, documentKey string, ordinal int) (int64, error)
}

// DocumentSource returns the current set of documents to index.
type DocumentSource interface {
	Fetch(ctx context.Context) ([]model.SourceDocument, error)
}

// Summarizer condenses text without a model call.
type Summarizer interface {
	Summarize(text string) string
}

package source

import (
	"context"

	"groundedqa/internal/model"
)

// DocumentSource matches app.DocumentSource.
type DocumentSource interface {
	Fetch(ctx context.Context) ([]model.SourceDocument, error)
}

// Multi concatenates the documents of several sources in order. Any source
// failing fails the whole fetch.
type Multi []DocumentSource

func (m Multi) Fetch(ctx context.Context) ([]model.SourceDocument, error) {
	var docs []model.SourceDocument
	for _, s := range m {
		part, err := s.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, part...)
	}
	return docs, nil
}

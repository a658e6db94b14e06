package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"groundedqa/internal/ai"
	"groundedqa/internal/model"
	"groundedqa/internal/pkg/chunker"
)

type IndexerConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	// PruneStale deletes ordinals beyond a document's current chunk count.
	PruneStale bool
}

type IndexReport struct {
	Documents        int           `json:"documents"`
	DocumentsIndexed int           `json:"documents_indexed"`
	DocumentsSkipped int           `json:"documents_skipped"`
	DocumentsFailed  int           `json:"documents_failed"`
	ChunksInserted   int           `json:"chunks_inserted"`
	ChunksExisting   int           `json:"chunks_existing"`
	ChunksFailed     int           `json:"chunks_failed"`
	ChunksPruned     int64         `json:"chunks_pruned"`
	Duration         time.Duration `json:"duration_ns"`
}

type documentResult struct {
	skipped  bool
	inserted int
	existing int
	failed   int
	pruned   int64
	err      error
}

// Indexer chunks, embeds and stores source documents. Chunks already present
// are never re-embedded.
type Indexer struct {
	source   DocumentSource
	store    ChunkStore
	embedder ai.Embedder
	cfg      IndexerConfig
	logger   *slog.Logger
	running  atomic.Bool
}

func NewIndexer(source DocumentSource, store ChunkStore, embedder ai.Embedder, cfg IndexerConfig, logger *slog.Logger) *Indexer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		source:   source,
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Reindex fetches the source and indexes everything it returns. Only one
// Reindex runs at a time; a concurrent call gets ErrReindexInProgress.
func (ix *Indexer) Reindex(ctx context.Context) (*IndexReport, error) {
	if !ix.running.CompareAndSwap(false, true) {
		return nil, ErrReindexInProgress
	}
	defer ix.running.Store(false)

	docs, err := ix.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceFetch, err)
	}
	ix.logger.Info("source fetched", "documents", len(docs))
	return ix.IndexDocuments(ctx, docs)
}

// IndexDocuments indexes docs with at most cfg.Concurrency documents in
// flight. Failures stay local to their document; an error is returned only
// when the context ends or every attempted document failed.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []model.SourceDocument) (*IndexReport, error) {
	started := time.Now()
	docs = dedupeDocuments(docs)

	var (
		mu      sync.Mutex
		report  = &IndexReport{Documents: len(docs)}
		lastErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)
	for _, doc := range docs {
		g.Go(func() error {
			res := ix.indexDocument(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			report.ChunksInserted += res.inserted
			report.ChunksExisting += res.existing
			report.ChunksFailed += res.failed
			report.ChunksPruned += res.pruned
			switch {
			case res.skipped:
				report.DocumentsSkipped++
			case res.err != nil:
				report.DocumentsFailed++
				lastErr = res.err
				ix.logger.Error("index document failed", "document_key", doc.DocumentKey, "error", res.err)
			default:
				report.DocumentsIndexed++
			}
			return nil
		})
	}
	_ = g.Wait()
	report.Duration = time.Since(started)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("indexing interrupted: %w", err)
	}
	attempted := report.Documents - report.DocumentsSkipped
	if attempted > 0 && report.DocumentsFailed == attempted {
		return report, fmt.Errorf("index documents failed: all %d documents failed: %w", attempted, lastErr)
	}

	ix.logger.Info("indexing finished",
		"documents", report.Documents,
		"inserted", report.ChunksInserted,
		"existing", report.ChunksExisting,
		"failed_chunks", report.ChunksFailed,
		"failed_documents", report.DocumentsFailed,
		"pruned", report.ChunksPruned,
		"duration", report.Duration,
	)
	return report, nil
}

func (ix *Indexer) indexDocument(ctx context.Context, doc model.SourceDocument) documentResult {
	var res documentResult
	text := strings.TrimSpace(doc.Text)

	ordinal := 0
	for window := range chunker.Windows(text, ix.cfg.ChunkSize, ix.cfg.ChunkOverlap) {
		i := ordinal
		ordinal++

		if err := ctx.Err(); err != nil {
			res.err = err
			return res
		}
		exists, err := ix.store.Exists(ctx, doc.DocumentKey, i)
		if err != nil {
			res.err = err
			return res
		}
		if exists {
			res.existing++
			continue
		}

		vec, err := ix.embedder.Embed(ctx, doc.Title+"\n\n"+window)
		if err != nil {
			res.failed++
			ix.logger.Warn("embed chunk failed", "document_key", doc.DocumentKey, "ordinal", i, "error", err)
			continue
		}

		chunk := &model.Chunk{
			DocumentKey: doc.DocumentKey,
			Title:       doc.Title,
			Ordinal:     i,
			Text:        window,
		}
		chunk.SetEmbedding(vec)
		inserted, err := ix.store.InsertIfAbsent(ctx, chunk)
		if err != nil {
			res.err = err
			return res
		}
		if inserted {
			res.inserted++
		} else {
			res.existing++
		}
	}

	if ordinal == 0 {
		res.skipped = true
		return res
	}
	if res.inserted+res.existing == 0 {
		res.err = fmt.Errorf("no chunk of %d could be embedded", res.failed)
		return res
	}
	if ix.cfg.PruneStale {
		pruned, err := ix.store.PruneFrom(ctx, doc.DocumentKey, ordinal)
		if err != nil {
			res.err = err
			return res
		}
		res.pruned = pruned
	}
	return res
}

// dedupeDocuments keeps the first document for each key and drops documents
// without a key.
func dedupeDocuments(docs []model.SourceDocument) []model.SourceDocument {
	seen := make(map[string]struct{}, len(docs))
	out := make([]model.SourceDocument, 0, len(docs))
	for _, d := range docs {
		d.DocumentKey = strings.TrimSpace(d.DocumentKey)
		if d.DocumentKey == "" {
			continue
		}
		if _, ok := seen[d.DocumentKey]; ok {
			continue
		}
		seen[d.DocumentKey] = struct{}{}
		out = append(out, d)
	}
	return out
}

// IsSourceFetchError reports whether err came from the document source.
func IsSourceFetchError(err error) bool {
	return errors.Is(err, ErrSourceFetch)
}

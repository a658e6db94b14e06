package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"groundedqa/internal/app"
	"groundedqa/internal/model"
	"groundedqa/internal/platform/rabbitmq"
)

// DocumentIndexer is the part of app.Indexer the worker needs.
type DocumentIndexer interface {
	IndexDocuments(ctx context.Context, docs []model.SourceDocument) (*app.IndexReport, error)
}

var errInvalidDelivery = errors.New("invalid document delivery")

// DocumentIngestWorker consumes pushed documents and indexes them one
// delivery at a time.
type DocumentIngestWorker struct {
	conn      *amqp.Connection
	indexer   DocumentIndexer
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentIngestWorker(conn *amqp.Connection, indexer DocumentIndexer, queueName string, logger *slog.Logger) *DocumentIngestWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentIngestWorker{
		conn:      conn,
		indexer:   indexer,
		queueName: queueName,
		logger:    logger.With("component", "ingest_worker", "queue", queueName),
	}
}

func (w *DocumentIngestWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					retry := requeue(err) || (workerCtx.Err() != nil && !errors.Is(err, errInvalidDelivery))
					w.logger.Error("ingest delivery failed", "error", err, "requeue", retry)
					_ = d.Nack(false, retry)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.logger.Info("ingest worker started")
	return nil
}

func (w *DocumentIngestWorker) handle(ctx context.Context, body []byte) error {
	var doc model.SourceDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("%w: %v", errInvalidDelivery, err)
	}
	if strings.TrimSpace(doc.DocumentKey) == "" {
		return fmt.Errorf("%w: missing document_key", errInvalidDelivery)
	}

	report, err := w.indexer.IndexDocuments(ctx, []model.SourceDocument{doc})
	if err != nil {
		return err
	}
	w.logger.Info("document ingested",
		"document_key", doc.DocumentKey,
		"inserted", report.ChunksInserted,
		"existing", report.ChunksExisting,
		"failed_chunks", report.ChunksFailed,
	)
	return nil
}

// requeue reports whether a failed delivery should go back on the queue.
// Interrupted indexing is retried; bad payloads and store failures are not.
func requeue(err error) bool {
	if errors.Is(err, errInvalidDelivery) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (w *DocumentIngestWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

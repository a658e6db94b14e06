package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"groundedqa/internal/app"
	"groundedqa/internal/model"
	"groundedqa/internal/transport/http/response"
)

const maxPushDocuments = 500

type DocumentPublisher interface {
	Publish(ctx context.Context, docs ...model.SourceDocument) error
}

type DocumentIndexer interface {
	IndexDocuments(ctx context.Context, docs []model.SourceDocument) (*app.IndexReport, error)
}

// DocumentsHandler accepts pushed documents. With a publisher they are
// queued for the ingest worker, otherwise indexed inline.
type DocumentsHandler struct {
	publisher DocumentPublisher
	indexer   DocumentIndexer
	logger    *slog.Logger
}

type PushDocumentsRequest struct {
	Documents []model.SourceDocument `json:"documents"`
}

func NewDocumentsHandler(publisher DocumentPublisher, indexer DocumentIndexer, logger *slog.Logger) *DocumentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentsHandler{publisher: publisher, indexer: indexer, logger: logger}
}

func (h *DocumentsHandler) Push(c *gin.Context) {
	var req PushDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if len(req.Documents) == 0 {
		response.Error(c, http.StatusBadRequest, "documents must not be empty")
		return
	}
	if len(req.Documents) > maxPushDocuments {
		response.Error(c, http.StatusBadRequest, "too many documents in one request")
		return
	}
	for _, d := range req.Documents {
		if strings.TrimSpace(d.DocumentKey) == "" {
			response.Error(c, http.StatusBadRequest, "document_key is required")
			return
		}
	}

	if h.publisher != nil {
		if err := h.publisher.Publish(c.Request.Context(), req.Documents...); err != nil {
			h.logger.Error("publish documents failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "enqueue documents failed")
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"queued": len(req.Documents)})
		return
	}

	report, err := h.indexer.IndexDocuments(c.Request.Context(), req.Documents)
	if err != nil {
		h.logger.Error("index pushed documents failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "index documents failed")
		return
	}
	response.OK(c, gin.H{"indexed": report})
}

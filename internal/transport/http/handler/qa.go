package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"groundedqa/internal/app"
	"groundedqa/internal/transport/http/response"
)

type Asker interface {
	Ask(ctx context.Context, question string) (*app.Answer, error)
}

type Reindexer interface {
	Reindex(ctx context.Context) (*app.IndexReport, error)
}

type QAHandler struct {
	answers Asker
	indexer Reindexer
	logger  *slog.Logger
}

type AskRequest struct {
	Q string `json:"q"`
}

func NewQAHandler(answers Asker, indexer Reindexer, logger *slog.Logger) *QAHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &QAHandler{answers: answers, indexer: indexer, logger: logger}
}

func (h *QAHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.answers.Ask(c.Request.Context(), req.Q)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, "question must not be empty")
		default:
			h.logger.Error("ask failed", "error", err, "request_id", c.GetString(response.ContextRequestIDKey))
			response.Error(c, http.StatusInternalServerError, "ask failed")
		}
		return
	}

	response.OK(c, result)
}

// Reindex keeps running when the client disconnects; Indexer.Reindex is
// single-flight so an abandoned run only blocks the next one until it ends.
func (h *QAHandler) Reindex(c *gin.Context) {
	report, err := h.indexer.Reindex(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrReindexInProgress):
			response.Error(c, http.StatusConflict, err.Error())
		case errors.Is(err, app.ErrSourceFetch):
			h.logger.Error("reindex source fetch failed", "error", err)
			response.Error(c, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("reindex failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "reindex failed")
		}
		return
	}

	response.OK(c, gin.H{"indexed": report})
}

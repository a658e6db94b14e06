package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groundedqa/internal/app"
	"groundedqa/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAsker struct {
	answer *app.Answer
	err    error
	got    string
}

func (s *stubAsker) Ask(_ context.Context, q string) (*app.Answer, error) {
	s.got = q
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(q) == "" {
		return nil, app.ErrInvalidInput
	}
	return s.answer, nil
}

type stubIndexer struct {
	report *app.IndexReport
	err    error
	docs   []model.SourceDocument
	ctxErr error
}

func (s *stubIndexer) Reindex(ctx context.Context) (*app.IndexReport, error) {
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubIndexer) IndexDocuments(_ context.Context, docs []model.SourceDocument) (*app.IndexReport, error) {
	s.docs = append(s.docs, docs...)
	return s.report, s.err
}

type stubPublisher struct {
	docs []model.SourceDocument
	err  error
}

func (s *stubPublisher) Publish(_ context.Context, docs ...model.SourceDocument) error {
	s.docs = append(s.docs, docs...)
	return s.err
}

func perform(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func qaRouter(asker Asker, indexer Reindexer) *gin.Engine {
	h := NewQAHandler(asker, indexer, nil)
	r := gin.New()
	r.POST("/ask", h.Ask)
	r.POST("/reindex", h.Reindex)
	return r
}

func TestAsk(t *testing.T) {
	asker := &stubAsker{answer: &app.Answer{
		Answer:  "Solar is renewable [1].",
		Sources: []app.Source{{Title: "Renewable Energy", DocumentKey: "doc1"}},
	}}
	r := qaRouter(asker, &stubIndexer{})

	w := perform(r, http.MethodPost, "/ask", `{"q":"What is renewable energy?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Solar is renewable [1].", body["answer"])
	assert.Equal(t, false, body["fallback"])
	assert.Len(t, body["sources"], 1)
	assert.Equal(t, "What is renewable energy?", asker.got)
}

func TestAsk_BadRequests(t *testing.T) {
	r := qaRouter(&stubAsker{}, &stubIndexer{})

	for _, payload := range []string{`{"q":"   "}`, `{}`, `not json`} {
		w := perform(r, http.MethodPost, "/ask", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		assert.NotEmpty(t, decode(t, w)["error"])
	}
}

func TestAsk_InternalFailure(t *testing.T) {
	r := qaRouter(&stubAsker{err: errors.New("db down")}, &stubIndexer{})

	w := perform(r, http.MethodPost, "/ask", `{"q":"solar"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "ask failed", decode(t, w)["error"])
}

func TestReindex_StatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"ok", nil, http.StatusOK},
		{"in progress", app.ErrReindexInProgress, http.StatusConflict},
		{"source", fmt.Errorf("%w: timeout", app.ErrSourceFetch), http.StatusBadGateway},
		{"store", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			idx := &stubIndexer{report: &app.IndexReport{Documents: 2, ChunksInserted: 5}, err: tc.err}
			w := perform(qaRouter(&stubAsker{}, idx), http.MethodPost, "/reindex", "")
			assert.Equal(t, tc.code, w.Code)
			body := decode(t, w)
			if tc.err == nil {
				indexed := body["indexed"].(map[string]any)
				assert.EqualValues(t, 5, indexed["chunks_inserted"])
			} else {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestPushDocuments(t *testing.T) {
	docs := `{"documents":[{"document_key":"a","title":"A","text":"solar"}]}`

	t.Run("queued", func(t *testing.T) {
		pub := &stubPublisher{}
		idx := &stubIndexer{}
		r := gin.New()
		r.POST("/documents", NewDocumentsHandler(pub, idx, nil).Push)

		w := perform(r, http.MethodPost, "/documents", docs)
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.EqualValues(t, 1, decode(t, w)["queued"])
		assert.Len(t, pub.docs, 1)
		assert.Empty(t, idx.docs)
	})

	t.Run("inline", func(t *testing.T) {
		idx := &stubIndexer{report: &app.IndexReport{Documents: 1, ChunksInserted: 1}}
		r := gin.New()
		r.POST("/documents", NewDocumentsHandler(nil, idx, nil).Push)

		w := perform(r, http.MethodPost, "/documents", docs)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []model.SourceDocument{{DocumentKey: "a", Title: "A", Text: "solar"}}, idx.docs)
	})

	t.Run("invalid", func(t *testing.T) {
		r := gin.New()
		r.POST("/documents", NewDocumentsHandler(nil, &stubIndexer{}, nil).Push)

		for _, payload := range []string{`{"documents":[]}`, `{"documents":[{"title":"x"}]}`, `[`} {
			w := perform(r, http.MethodPost, "/documents", payload)
			assert.Equal(t, http.StatusBadRequest, w.Code, payload)
		}
	})
}

func TestHealth(t *testing.T) {
	started := time.Now().Add(-time.Minute)
	h := NewHealthHandler("groundedqa", "test", started,
		DependencyCheck{Name: "store", Check: func(context.Context) error { return nil }},
		DependencyCheck{Name: "redis", Check: func(context.Context) error { return errors.New("refused") }},
	)
	r := gin.New()
	r.GET("/health", h.Live)
	r.GET("/healthz", h.Ready)

	w := perform(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = perform(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	deps := decode(t, w)["dependencies"].(map[string]any)
	assert.Equal(t, true, deps["store"].(map[string]any)["ok"])
	assert.Equal(t, "refused", deps["redis"].(map[string]any)["message"])
}

func TestReindex_SurvivesClientDisconnect(t *testing.T) {
	idx := &stubIndexer{report: &app.IndexReport{}}
	r := qaRouter(&stubAsker{}, idx)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/reindex", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, idx.ctxErr)
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *OpenAIGenerator {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIGenerator(NewOpenAICompatibleClientWithHTTP(srv.Client()), ChatConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "sk-test",
		Model:   "test-model",
	})
}

func TestGenerate_SendsChatRequest(t *testing.T) {
	var got map[string]any
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  grounded answer  "}}]}`))
	})

	text, err := gen.Generate(context.Background(), "sys", "usr", GenerateOptions{MaxTokens: 64, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", text)

	assert.Equal(t, "test-model", got["model"])
	assert.EqualValues(t, 64, got["max_tokens"])
	assert.InDelta(t, 0.2, got["temperature"], 1e-9)
	messages := got["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "usr", messages[1].(map[string]any)["content"])
}

func TestGenerate_FlatTextShape(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"flat text"}]}`))
	})
	text, err := gen.Generate(context.Background(), "s", "u", GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "flat text", text)
}

func TestGenerate_Failures(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
		kind GenerationErrorKind
	}{
		{"status", `{"error":"overloaded"}`, http.StatusServiceUnavailable, GenerationStatus},
		{"blank", `{"choices":[{"message":{"content":"   "},"text":""}]}`, http.StatusOK, GenerationEmpty},
		{"no choices", `{"choices":[]}`, http.StatusOK, GenerationEmpty},
		{"bad json", `not json`, http.StatusOK, GenerationDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := gen.Generate(context.Background(), "s", "u", GenerateOptions{})
			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr), "got %v", err)
			assert.Equal(t, tc.kind, genErr.Kind)
			if tc.kind == GenerationStatus {
				assert.Equal(t, tc.code, genErr.StatusCode)
				assert.Contains(t, genErr.Body, "overloaded")
			}
		})
	}
}

func TestGenerate_TimeoutAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	start := time.Now()
	_, err := gen.Generate(context.Background(), "s", "u", GenerateOptions{Timeout: 50 * time.Millisecond})
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, GenerationTimeout, genErr.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestGenerate_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	gen := NewOpenAIGenerator(NewOpenAICompatibleClient(), ChatConfig{BaseURL: url, Model: "m"})
	_, err := gen.Generate(context.Background(), "s", "u", GenerateOptions{})
	var genErr *GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, GenerationTransport, genErr.Kind)
}

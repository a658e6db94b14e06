package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"groundedqa/internal/ai"
	"groundedqa/internal/model"
)

var testVocabulary = []string{"renewable", "energy", "solar", "wind", "football", "cooking"}

// bagEmbedder maps text onto one axis per vocabulary word it contains.
type bagEmbedder struct {
	failOn   string
	delay    time.Duration
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (e *bagEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if e.delay > 0 {
		select {
		case <-time.After(e.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	lowered := strings.ToLower(text)
	if e.failOn != "" && strings.Contains(lowered, e.failOn) {
		return nil, errors.New("embedding backend rejected input")
	}
	vec := make([]float32, len(testVocabulary))
	for i, w := range testVocabulary {
		if strings.Contains(lowered, w) {
			vec[i] = 1
		}
	}
	return vec, nil
}

type stubGenerator struct {
	text string
	err  error

	mu     sync.Mutex
	system string
	user   string
}

func (g *stubGenerator) Generate(_ context.Context, system, user string, _ ai.GenerateOptions) (string, error) {
	g.mu.Lock()
	g.system, g.user = system, user
	g.mu.Unlock()
	return g.text, g.err
}

type staticSource struct {
	docs    []model.SourceDocument
	err     error
	entered chan struct{}
	release chan struct{}
}

func (s *staticSource) Fetch(ctx context.Context) ([]model.SourceDocument, error) {
	if s.entered != nil {
		close(s.entered)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.docs, s.err
}

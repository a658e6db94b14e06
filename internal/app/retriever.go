package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"groundedqa/internal/ai"
	"groundedqa/internal/model"
)

type RetrievalConfig struct {
	CandidateK     int
	EvidenceK      int
	MinScore       float64
	ConfidentScore float64
	TitleBoost     float64
	TextBoost      float64
	MinKeywordLen  int
	WindowBefore   int
	WindowAfter    int
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		CandidateK:     10,
		EvidenceK:      3,
		MinScore:       0.28,
		ConfidentScore: 0.35,
		TitleBoost:     0.06,
		TextBoost:      0.03,
		MinKeywordLen:  4,
		WindowBefore:   220,
		WindowAfter:    400,
	}
}

func (c RetrievalConfig) withDefaults() RetrievalConfig {
	d := DefaultRetrievalConfig()
	if c.CandidateK <= 0 {
		c.CandidateK = d.CandidateK
	}
	if c.EvidenceK <= 0 {
		c.EvidenceK = d.EvidenceK
	}
	if c.MinKeywordLen <= 0 {
		c.MinKeywordLen = d.MinKeywordLen
	}
	if c.WindowBefore < 0 {
		c.WindowBefore = d.WindowBefore
	}
	if c.WindowAfter <= 0 {
		c.WindowAfter = d.WindowAfter
	}
	return c
}

type ScoredChunk struct {
	Chunk model.Chunk
	Score float64
}

// Evidence is a chunk accepted to ground an answer, with its labelled
// context block. Citation is 1-based.
type Evidence struct {
	ScoredChunk
	Citation int
	Context  string
}

type Retrieval struct {
	Keywords   []string
	Candidates []ScoredChunk
	Evidence   []Evidence
}

// Found reports whether any evidence survived both gates.
func (r *Retrieval) Found() bool {
	return r != nil && len(r.Evidence) > 0
}

// Retriever scores every stored chunk against a question. It keeps no state
// between calls.
type Retriever struct {
	store    ChunkStore
	embedder ai.Embedder
	cfg      RetrievalConfig
}

func NewRetriever(store ChunkStore, embedder ai.Embedder, cfg RetrievalConfig) *Retriever {
	return &Retriever{store: store, embedder: embedder, cfg: cfg.withDefaults()}
}

func (r *Retriever) Retrieve(ctx context.Context, question string) (*Retrieval, error) {
	queryVec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question failed: %w", err)
	}
	keywords := Keywords(question, r.cfg.MinKeywordLen)

	var candidates []ScoredChunk
	for chunk, err := range r.store.ScanAll(ctx) {
		if err != nil {
			return nil, err
		}
		score := ScoreChunk(queryVec, keywords, chunk, r.cfg)
		if score >= r.cfg.MinScore {
			candidates = append(candidates, ScoredChunk{Chunk: chunk, Score: score})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if len(candidates) > r.cfg.CandidateK {
		candidates = candidates[:r.cfg.CandidateK]
	}

	result := &Retrieval{Keywords: keywords, Candidates: candidates}
	for _, c := range candidates {
		if c.Score < r.cfg.ConfidentScore {
			continue
		}
		if !containsAny(lowerRunes(c.Chunk.Text), keywords) {
			continue
		}
		n := len(result.Evidence) + 1
		result.Evidence = append(result.Evidence, Evidence{
			ScoredChunk: c,
			Citation:    n,
			Context:     contextBlock(n, c.Chunk, keywords, r.cfg.WindowBefore, r.cfg.WindowAfter),
		})
		if len(result.Evidence) == r.cfg.EvidenceK {
			break
		}
	}
	return result, nil
}

// Keywords lower-cases question, splits it on non-word characters and keeps
// distinct tokens of at least minLen runes in order of first appearance.
func Keywords(question string, minLen int) []string {
	fields := strings.FieldsFunc(lowerRunes(question), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
	seen := make(map[string]struct{}, len(fields))
	var out []string
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minLen {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// ScoreChunk is cosine similarity plus the keyword boosts for title and text.
func ScoreChunk(queryVec []float32, keywords []string, chunk model.Chunk, cfg RetrievalConfig) float64 {
	score := CosineSimilarity(queryVec, chunk.EmbeddingVector())
	if containsAny(lowerRunes(chunk.Title), keywords) {
		score += cfg.TitleBoost
	}
	if containsAny(lowerRunes(chunk.Text), keywords) {
		score += cfg.TextBoost
	}
	return score
}

// CosineSimilarity returns 0 for empty, zero or mismatched vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// lowerRunes lower-cases s rune by rune so rune offsets match the original.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

func containsAny(lowered string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// firstKeywordRune returns the rune offset of the earliest keyword match in
// text, or -1.
func firstKeywordRune(text string, keywords []string) int {
	lowered := lowerRunes(text)
	best := -1
	for _, k := range keywords {
		idx := strings.Index(lowered, k)
		if idx < 0 {
			continue
		}
		pos := utf8.RuneCountInString(lowered[:idx])
		if best < 0 || pos < best {
			best = pos
		}
	}
	return best
}

func contextBlock(citation int, chunk model.Chunk, keywords []string, before, after int) string {
	runes := []rune(chunk.Text)
	start, end := 0, min(after, len(runes))
	if pos := firstKeywordRune(chunk.Text, keywords); pos >= 0 {
		start = max(0, pos-before)
		end = min(len(runes), pos+after)
	}
	snippet := strings.Join(strings.Fields(string(runes[start:end])), " ")
	return fmt.Sprintf("[%d] %s (%s)\n%s", citation, chunk.Title, chunk.DocumentKey, snippet)
}

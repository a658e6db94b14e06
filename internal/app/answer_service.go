package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"groundedqa/internal/ai"
)

// NotFoundAnswer is returned when no stored chunk can ground an answer.
const NotFoundAnswer = "I could not find information about this in the indexed documents."

const systemInstruction = "You answer questions using only the numbered context passages supplied by the user. " +
	"Do not use outside knowledge and do not invent facts. " +
	"If the context does not cover the question, say explicitly that the documents do not contain the answer. " +
	"Cite the passages you rely on with their bracketed numbers, for example [1]."

type Source struct {
	Title       string `json:"title"`
	DocumentKey string `json:"document_key"`
}

type Answer struct {
	Answer   string     `json:"answer"`
	Sources  []Source   `json:"sources"`
	Fallback bool       `json:"fallback"`
	Evidence []Evidence `json:"-"`
}

type AnswerService struct {
	retriever *Retriever
	generator ai.Generator
	fallback  Summarizer
	opts      ai.GenerateOptions
	logger    *slog.Logger
}

func NewAnswerService(
	retriever *Retriever,
	generator ai.Generator,
	fallback Summarizer,
	opts ai.GenerateOptions,
	logger *slog.Logger,
) *AnswerService {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 512
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnswerService{
		retriever: retriever,
		generator: generator,
		fallback:  fallback,
		opts:      opts,
		logger:    logger,
	}
}

// Ask answers question from retrieved evidence only. A question nothing in
// the store supports yields NotFoundAnswer with no sources, not an error.
func (s *AnswerService) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrInvalidInput
	}

	retrieval, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	if !retrieval.Found() {
		s.logger.Info("no evidence for question", "keywords", retrieval.Keywords, "candidates", len(retrieval.Candidates))
		return &Answer{Answer: NotFoundAnswer, Sources: []Source{}}, nil
	}

	sources := make([]Source, len(retrieval.Evidence))
	for i, ev := range retrieval.Evidence {
		sources[i] = Source{Title: ev.Chunk.Title, DocumentKey: ev.Chunk.DocumentKey}
	}

	prose, fallback := s.compose(ctx, question, retrieval.Evidence)
	return &Answer{
		Answer:   prose + "\n\n" + formatSources(sources),
		Sources:  sources,
		Fallback: fallback,
		Evidence: retrieval.Evidence,
	}, nil
}

func (s *AnswerService) compose(ctx context.Context, question string, evidence []Evidence) (string, bool) {
	text, err := s.generator.Generate(ctx, systemInstruction, buildUserInstruction(question, evidence), s.opts)
	if err == nil {
		if text = strings.TrimSpace(text); text != "" {
			return text, false
		}
	}
	s.logger.Warn("generation failed, using extractive fallback", "error", err)

	texts := make([]string, len(evidence))
	for i, ev := range evidence {
		texts[i] = ev.Chunk.Text
	}
	summary := s.fallback.Summarize(strings.Join(texts, "\n\n"))
	if summary == "" {
		summary = evidence[0].Context
	}
	return summary, true
}

func buildUserInstruction(question string, evidence []Evidence) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nContext:\n")
	for i, ev := range evidence {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(ev.Context)
	}
	b.WriteString("\n\nAnswer using only the context above.")
	return b.String()
}

func formatSources(sources []Source) string {
	var b strings.Builder
	b.WriteString("Sources:")
	for i, src := range sources {
		fmt.Fprintf(&b, "\n%d. %s — %s", i+1, src.Title, src.DocumentKey)
	}
	return b.String()
}

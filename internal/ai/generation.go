package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type GenerationErrorKind string

const (
	GenerationTransport GenerationErrorKind = "transport"
	GenerationTimeout   GenerationErrorKind = "timeout"
	GenerationStatus    GenerationErrorKind = "status"
	GenerationDecode    GenerationErrorKind = "decode"
	GenerationEmpty     GenerationErrorKind = "empty"
)

// GenerationError is the single failure type returned by Generate.
type GenerationError struct {
	Kind       GenerationErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case GenerationStatus:
		return fmt.Sprintf("generation failed: status %d: %s", e.StatusCode, e.Body)
	case GenerationEmpty:
		return "generation failed: empty result"
	default:
		if e.Err != nil {
			return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
		}
		return fmt.Sprintf("generation failed (%s)", e.Kind)
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerateOptions bounds a single generation request.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Complete sends one chat completion request. ctx bounds the whole exchange.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage, opts GenerateOptions) (string, error) {
	reqBody := map[string]interface{}{
		"model":       cfg.Model,
		"messages":    messages,
		"stream":      false,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		reqBody["max_tokens"] = opts.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", &GenerationError{Kind: GenerationTransport, Err: fmt.Errorf("marshal llm request failed: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(cfg.BaseURL, "/chat/completions"), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", &GenerationError{Kind: GenerationTransport, Err: fmt.Errorf("build llm request failed: %w", err)}
	}
	setHeaders(req, cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	if resp.StatusCode >= 300 {
		return "", &GenerationError{Kind: GenerationStatus, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &GenerationError{Kind: GenerationDecode, Err: fmt.Errorf("parse llm json failed: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &GenerationError{Kind: GenerationEmpty}
	}
	choice := parsed.Choices[0]
	if text := strings.TrimSpace(choice.Message.Content); text != "" {
		return text, nil
	}
	if text := strings.TrimSpace(choice.Text); text != "" {
		return text, nil
	}
	return "", &GenerationError{Kind: GenerationEmpty}
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &GenerationError{Kind: GenerationTimeout, Err: err}
	}
	return &GenerationError{Kind: GenerationTransport, Err: err}
}

// OpenAIGenerator binds a client to one chat model.
type OpenAIGenerator struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewOpenAIGenerator(client *OpenAICompatibleClient, cfg ChatConfig) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, cfg: cfg}
}

// Generate enforces opts.Timeout as a hard deadline on the request.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string, opts GenerateOptions) (string, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	return g.client.Complete(ctx, g.cfg, messages, opts)
}

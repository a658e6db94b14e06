package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"groundedqa/internal/model"
)

// FeedSource reads RSS, Atom and JSON feeds. Each item becomes one document
// keyed by its link, falling back to its GUID.
type FeedSource struct {
	urls   []string
	client *http.Client
}

func NewFeedSource(urls []string, timeout time.Duration) *FeedSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FeedSource{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch fails as a whole when any feed cannot be fetched or parsed.
func (s *FeedSource) Fetch(ctx context.Context) ([]model.SourceDocument, error) {
	results := make([][]model.SourceDocument, len(s.urls))

	g, gctx := errgroup.WithContext(ctx)
	for i, url := range s.urls {
		g.Go(func() error {
			parser := gofeed.NewParser()
			parser.Client = s.client
			feed, err := parser.ParseURLWithContext(url, gctx)
			if err != nil {
				return fmt.Errorf("fetch feed %s failed: %w", url, err)
			}
			results[i] = feedDocuments(feed)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var docs []model.SourceDocument
	for _, r := range results {
		docs = append(docs, r...)
	}
	return docs, nil
}

// ParseFeed converts an already fetched feed body into documents.
func ParseFeed(body string) ([]model.SourceDocument, error) {
	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed failed: %w", err)
	}
	return feedDocuments(feed), nil
}

func feedDocuments(feed *gofeed.Feed) []model.SourceDocument {
	docs := make([]model.SourceDocument, 0, len(feed.Items))
	for _, item := range feed.Items {
		key := strings.TrimSpace(item.Link)
		if key == "" {
			key = strings.TrimSpace(item.GUID)
		}
		if key == "" {
			continue
		}
		body := item.Content
		if strings.TrimSpace(body) == "" {
			body = item.Description
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = key
		}
		docs = append(docs, model.SourceDocument{
			DocumentKey: key,
			Title:       title,
			Text:        HTMLToText(body),
		})
	}
	return docs
}

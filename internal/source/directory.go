package source

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"groundedqa/internal/model"
	"groundedqa/internal/pkg/pdfextract"
)

// DirectorySource indexes .txt, .md and .pdf files below root. The document
// key is the slash-separated path relative to root. Files that cannot be read
// or extracted are logged and skipped; only an unreadable root fails Fetch.
type DirectorySource struct {
	root   string
	logger *slog.Logger
}

func NewDirectorySource(root string, logger *slog.Logger) *DirectorySource {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectorySource{root: root, logger: logger}
}

func (s *DirectorySource) Fetch(ctx context.Context) ([]model.SourceDocument, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("read directory %s failed: %w", s.root, err)
	}

	var (
		docs    []model.SourceDocument
		skipped int
	)
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			s.logger.Warn("skip unreadable path", "path", path, "error", err)
			skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".txt" && ext != ".md" && ext != ".pdf" {
			return nil
		}
		text, err := readDocument(path, ext)
		if err != nil {
			s.logger.Warn("skip unreadable document", "path", path, "error", err)
			skipped++
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		docs = append(docs, model.SourceDocument{
			DocumentKey: filepath.ToSlash(rel),
			Title:       documentTitle(ext, d.Name(), text),
			Text:        text,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read directory %s failed: %w", s.root, err)
	}
	if skipped > 0 {
		s.logger.Info("directory read with skipped files", "root", s.root, "documents", len(docs), "skipped", skipped)
	}
	return docs, nil
}

func readDocument(path, ext string) (string, error) {
	if ext == ".pdf" {
		text, err := pdfextract.ExtractFile(path)
		if err != nil {
			return "", fmt.Errorf("extract pdf failed: %w", err)
		}
		return text, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// documentTitle prefers a leading markdown heading over the file name.
func documentTitle(ext, name, text string) string {
	if ext == ".md" {
		sc := bufio.NewScanner(strings.NewReader(text))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			if heading, ok := strings.CutPrefix(line, "# "); ok {
				return strings.TrimSpace(heading)
			}
			break
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

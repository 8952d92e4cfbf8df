// Package rag retrieves similar past cases and guidance documents and
// formats them as reference context for model prompts.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raphaelgruber/voc2ticket/internal/metrics"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"golang.org/x/sync/errgroup"
)

// DefaultTopK is the number of documents fetched per corpus for prompt context.
const DefaultTopK = 3

// Corpus is a searchable collection of text documents.
type Corpus interface {
	// Add stores one document and returns its fresh id.
	Add(ctx context.Context, content string, metadata map[string]any) (string, error)
	// AddBatch stores documents in order. metadatas is either nil or the same length as contents.
	AddBatch(ctx context.Context, contents []string, metadatas []map[string]any) ([]string, error)
	// Search returns up to topK documents ordered by ascending distance.
	Search(ctx context.Context, query string, topK int) ([]models.RetrievedDocument, error)
	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)
}

// Embedder turns text into vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Results holds the hits of both corpora.
type Results struct {
	Cases  []models.RetrievedDocument
	Guides []models.RetrievedDocument
}

// Provider searches the case and guide corpora together.
// Either corpus may be nil, which behaves as an empty corpus.
type Provider struct {
	Cases   Corpus
	Guides  Corpus
	Metrics *metrics.Collector
}

// NewProvider creates a provider over the two corpora.
func NewProvider(cases, guides Corpus, mc *metrics.Collector) *Provider {
	return &Provider{Cases: cases, Guides: guides, Metrics: mc}
}

// SearchAll queries both corpora in parallel. A failing corpus is logged and
// contributes no results; only context cancellation is returned as an error.
func (p *Provider) SearchAll(ctx context.Context, query string, topK int) (Results, error) {
	if p == nil {
		return Results{}, nil
	}
	defer p.Metrics.Since(metrics.OpRetrieval, time.Now())

	var res Results
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res.Cases = search(gctx, "cases", p.Cases, query, topK)
		return nil
	})
	g.Go(func() error {
		res.Guides = search(gctx, "guides", p.Guides, query, topK)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Results{}, err
	}
	return res, nil
}

func search(ctx context.Context, name string, c Corpus, query string, topK int) []models.RetrievedDocument {
	if c == nil {
		return nil
	}
	docs, err := c.Search(ctx, query, topK)
	if err != nil {
		slog.Warn("retrieval failed, continuing without it", "corpus", name, "error", err)
		return nil
	}
	return docs
}

// FormatContext renders the search results for query as prompt text.
// It returns "" when nothing was found or retrieval is unavailable.
func (p *Provider) FormatContext(ctx context.Context, query string, topK int) string {
	res, err := p.SearchAll(ctx, query, topK)
	if err != nil {
		slog.Debug("retrieval skipped", "error", err)
		return ""
	}
	return Format(res)
}

// Format renders results as "Similar past cases" and "Related guidance"
// sections. Empty sections are omitted.
func Format(res Results) string {
	var parts []string

	if len(res.Cases) > 0 {
		parts = append(parts, "=== Similar past cases ===")
		for i, doc := range res.Cases {
			label := ""
			if source := doc.MetaString("source"); source != "" {
				label = fmt.Sprintf(" (%s)", source)
			}
			parts = append(parts, fmt.Sprintf("[Case %d]%s\n%s", i+1, label, doc.Content))
		}
	}

	if len(res.Guides) > 0 {
		parts = append(parts, "\n=== Related guidance ===")
		for i, doc := range res.Guides {
			title := doc.MetaString("title")
			if title == "" {
				title = fmt.Sprintf("Guide %d", i+1)
			}
			parts = append(parts, fmt.Sprintf("[%s]\n%s", title, doc.Content))
		}
	}

	return strings.Join(parts, "\n\n")
}

// SplitLines splits a case upload into one document per non-blank line.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// UploadMetadata returns the per-document metadata for n documents of an
// uploaded case file.
func UploadMetadata(filename string, n int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{"source": filename}
	}
	return out
}

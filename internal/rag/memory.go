package rag

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/raphaelgruber/voc2ticket/internal/models"
)

type memoryDoc struct {
	id        string
	content   string
	metadata  map[string]any
	embedding []float32
}

// MemoryCorpus is an in-process Corpus ranked by cosine distance.
// All methods are thread-safe.
type MemoryCorpus struct {
	embedder Embedder

	mu   sync.RWMutex
	docs []memoryDoc
}

var _ Corpus = (*MemoryCorpus)(nil)

// NewMemoryCorpus creates an empty corpus.
func NewMemoryCorpus(embedder Embedder) *MemoryCorpus {
	return &MemoryCorpus{embedder: embedder}
}

// Add embeds and stores one document.
func (m *MemoryCorpus) Add(ctx context.Context, content string, metadata map[string]any) (string, error) {
	ids, err := m.AddBatch(ctx, []string{content}, []map[string]any{metadata})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBatch embeds and stores documents.
func (m *MemoryCorpus) AddBatch(ctx context.Context, contents []string, metadatas []map[string]any) ([]string, error) {
	if len(contents) == 0 {
		return []string{}, nil
	}
	vectors, err := m.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	docs := make([]memoryDoc, len(contents))
	ids := make([]string, len(contents))
	for i, content := range contents {
		meta := map[string]any{}
		if metadatas != nil && metadatas[i] != nil {
			meta = maps.Clone(metadatas[i])
		}
		ids[i] = uuid.New().String()
		docs[i] = memoryDoc{id: ids[i], content: content, metadata: meta, embedding: vectors[i]}
	}

	m.mu.Lock()
	m.docs = append(m.docs, docs...)
	m.mu.Unlock()
	return ids, nil
}

// Search returns the topK closest documents.
func (m *MemoryCorpus) Search(ctx context.Context, query string, topK int) ([]models.RetrievedDocument, error) {
	if topK <= 0 {
		return []models.RetrievedDocument{}, nil
	}
	m.mu.RLock()
	empty := len(m.docs) == 0
	m.mu.RUnlock()
	if empty {
		return []models.RetrievedDocument{}, nil
	}

	q, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	m.mu.RLock()
	hits := make([]models.RetrievedDocument, 0, len(m.docs))
	for _, d := range m.docs {
		dist := cosineDistance(q, d.embedding)
		hits = append(hits, models.RetrievedDocument{
			ID:       d.id,
			Content:  d.content,
			Metadata: maps.Clone(d.metadata),
			Distance: &dist,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return *hits[i].Distance < *hits[j].Distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count returns the number of stored documents.
func (m *MemoryCorpus) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// cosineDistance returns 1 - cosine similarity. Mismatched or zero vectors
// are maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

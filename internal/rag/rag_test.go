package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"testing"

	"github.com/raphaelgruber/voc2ticket/internal/metrics"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEmbedder hashes words into a small bag-of-words vector.
type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 16)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%16]++
	}
	return v, nil
}

func (e wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

type failingCorpus struct{ *MemoryCorpus }

func (*failingCorpus) Search(context.Context, string, int) ([]models.RetrievedDocument, error) {
	return nil, errors.New("backend down")
}

type staticCorpus struct {
	*MemoryCorpus
	docs []models.RetrievedDocument
}

func (s *staticCorpus) Search(context.Context, string, int) ([]models.RetrievedDocument, error) {
	return s.docs, nil
}

func TestMemoryCorpusSearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCorpus(wordEmbedder{})

	_, err := c.AddBatch(ctx, []string{
		"refund for double charge on card",
		"app crashes when opening settings",
		"login page shows error after update",
	}, nil)
	require.NoError(t, err)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	hits, err := c.Search(ctx, "app crashes on settings", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "app crashes when opening settings", hits[0].Content)
	assert.LessOrEqual(t, *hits[0].Distance, *hits[1].Distance)
	assert.NotNil(t, hits[0].Metadata)
}

func TestMemoryCorpusAddUsesFreshIDs(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCorpus(wordEmbedder{})

	id1, err := c.Add(ctx, "same", map[string]any{"source": "a.txt"})
	require.NoError(t, err)
	id2, err := c.Add(ctx, "same", nil)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	hits, err := c.Search(ctx, "same", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
}

func TestMemoryCorpusEmpty(t *testing.T) {
	hits, err := NewMemoryCorpus(wordEmbedder{}).Search(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestFormatContext(t *testing.T) {
	cases := &staticCorpus{docs: []models.RetrievedDocument{
		{Content: "card charged twice", Metadata: map[string]any{"source": "vocs.txt"}},
		{Content: "no source here"},
	}}
	guides := &staticCorpus{docs: []models.RetrievedDocument{
		{Content: "refund within 7 days", Metadata: map[string]any{"title": "Refund policy"}},
		{Content: "untitled guidance"},
	}}
	p := NewProvider(cases, guides, metrics.NewCollector())

	got := p.FormatContext(context.Background(), "double charge", 3)
	want := "=== Similar past cases ===\n\n" +
		"[Case 1] (vocs.txt)\ncard charged twice\n\n" +
		"[Case 2]\nno source here\n\n" +
		"\n=== Related guidance ===\n\n" +
		"[Refund policy]\nrefund within 7 days\n\n" +
		"[Guide 2]\nuntitled guidance"
	assert.Equal(t, want, got)
	assert.NotNil(t, p.Metrics.Snapshot().Retrieval)
}

func TestFormatContextOmitsEmptySections(t *testing.T) {
	guides := &staticCorpus{docs: []models.RetrievedDocument{{Content: "g"}}}
	p := NewProvider(&staticCorpus{}, guides, nil)

	got := p.FormatContext(context.Background(), "q", 3)
	assert.Equal(t, "\n=== Related guidance ===\n\n[Guide 1]\ng", got)

	assert.Equal(t, "", NewProvider(nil, nil, nil).FormatContext(context.Background(), "q", 3))
}

func TestFormatContextDegradesOnFailure(t *testing.T) {
	cases := &staticCorpus{docs: []models.RetrievedDocument{{Content: "c"}}}
	p := NewProvider(cases, &failingCorpus{}, nil)

	got := p.FormatContext(context.Background(), "q", 3)
	assert.Equal(t, "=== Similar past cases ===\n\n[Case 1]\nc", got)

	assert.Equal(t, "", NewProvider(&failingCorpus{}, &failingCorpus{}, nil).FormatContext(context.Background(), "q", 3))
}

func TestSearchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvider(&staticCorpus{}, &staticCorpus{}, nil).SearchAll(ctx, "q", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitLines(t *testing.T) {
	got := SplitLines("first case\n\n  second case  \r\n\t\nthird")
	assert.Equal(t, []string{"first case", "second case", "third"}, got)
}

func TestUploadMetadata(t *testing.T) {
	cases := UploadMetadata("vocs.txt", 2)
	require.Len(t, cases, 2)
	assert.Equal(t, map[string]any{"source": "vocs.txt"}, cases[0])

	cases[0]["source"] = "changed"
	assert.Equal(t, "vocs.txt", cases[1]["source"])
}

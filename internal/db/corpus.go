package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// knnEf is the HNSW candidate list size used for searches.
const knnEf = 40

// Corpus is a rag.Corpus stored in one SurrealDB table.
type Corpus struct {
	client   *Client
	table    string
	embedder rag.Embedder
}

var _ rag.Corpus = (*Corpus)(nil)

// NewCorpus returns the corpus backed by table, which must be TableCases or TableGuides.
func NewCorpus(client *Client, table string, embedder rag.Embedder) (*Corpus, error) {
	if table != TableCases && table != TableGuides {
		return nil, fmt.Errorf("unknown corpus table: %s", table)
	}
	return &Corpus{client: client, table: table, embedder: embedder}, nil
}

type documentRow struct {
	ID       surrealmodels.RecordID `json:"id"`
	Content  string                 `json:"content"`
	Metadata map[string]any         `json:"metadata"`
	Distance *float64               `json:"distance,omitempty"`
}

type countRow struct {
	Count int `json:"count"`
}

// Add embeds and stores one document.
func (c *Corpus) Add(ctx context.Context, content string, metadata map[string]any) (string, error) {
	ids, err := c.AddBatch(ctx, []string{content}, []map[string]any{metadata})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddBatch embeds and inserts documents in one statement.
func (c *Corpus) AddBatch(ctx context.Context, contents []string, metadatas []map[string]any) ([]string, error) {
	if len(contents) == 0 {
		return []string{}, nil
	}

	vectors, err := c.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("embed %s documents: %w", c.table, err)
	}

	ids := make([]string, len(contents))
	rows := make([]map[string]any, len(contents))
	for i, content := range contents {
		meta := map[string]any{}
		if metadatas != nil && metadatas[i] != nil {
			meta = metadatas[i]
		}
		ids[i] = uuid.New().String()
		rows[i] = map[string]any{
			"id":        surrealmodels.NewRecordID(c.table, ids[i]),
			"content":   content,
			"metadata":  meta,
			"embedding": vectors[i],
		}
	}

	sql := fmt.Sprintf("INSERT INTO %s $rows RETURN NONE", c.table)
	if _, err := surrealdb.Query[any](ctx, c.client.db, sql, map[string]any{"rows": rows}); err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.table, wrapQueryError(err))
	}

	slog.Debug("documents stored", "table", c.table, "count", len(ids))
	return ids, nil
}

// Search returns the topK nearest documents by cosine distance.
func (c *Corpus) Search(ctx context.Context, query string, topK int) ([]models.RetrievedDocument, error) {
	if topK <= 0 {
		return []models.RetrievedDocument{}, nil
	}

	emb, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT id, content, metadata, vector::distance::knn() AS distance
		FROM %s
		WHERE embedding <|%d,%d|> $emb
		ORDER BY distance
	`, c.table, topK, knnEf)

	results, err := surrealdb.Query[[]documentRow](ctx, c.client.db, sql, map[string]any{"emb": emb})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", c.table, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.RetrievedDocument{}, nil
	}

	rows := (*results)[0].Result
	docs := make([]models.RetrievedDocument, 0, len(rows))
	for _, row := range rows {
		id, err := models.RecordIDString(row.ID)
		if err != nil {
			slog.Warn("skipping row with unexpected id", "table", c.table, "error", err)
			continue
		}
		meta := row.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		docs = append(docs, models.RetrievedDocument{
			ID:       id,
			Content:  row.Content,
			Metadata: meta,
			Distance: row.Distance,
		})
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (c *Corpus) Count(ctx context.Context) (int, error) {
	sql := fmt.Sprintf("SELECT count() AS count FROM %s GROUP ALL", c.table)
	results, err := surrealdb.Query[[]countRow](ctx, c.client.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.table, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

package db

import "fmt"

// Corpus tables.
const (
	TableCases  = "voc_case"
	TableGuides = "guide"
)

// SchemaSQL returns the schema for both corpus tables with an HNSW index of
// the given embedding dimension.
func SchemaSQL(dimension int) string {
	return corpusTableSQL(TableCases, dimension) + corpusTableSQL(TableGuides, dimension)
}

func corpusTableSQL(table string, dimension int) string {
	return fmt.Sprintf(`
    DEFINE TABLE IF NOT EXISTS %[1]s SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS content ON %[1]s TYPE string;
    DEFINE FIELD IF NOT EXISTS metadata ON %[1]s TYPE object FLEXIBLE DEFAULT {};
    DEFINE FIELD IF NOT EXISTS embedding ON %[1]s TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS created ON %[1]s TYPE datetime DEFAULT time::now();
    DEFINE INDEX IF NOT EXISTS %[1]s_embedding ON %[1]s FIELDS embedding HNSW DIMENSION %[2]d DIST COSINE TYPE F32;
`, table, dimension)
}

package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go"
)

func TestSchemaSQL(t *testing.T) {
	sql := SchemaSQL(768)

	for _, table := range []string{TableCases, TableGuides} {
		assert.Contains(t, sql, "DEFINE TABLE IF NOT EXISTS "+table+" SCHEMAFULL;")
		assert.Contains(t, sql, fmt.Sprintf("DEFINE INDEX IF NOT EXISTS %s_embedding ON %s FIELDS embedding HNSW DIMENSION 768 DIST COSINE", table, table))
	}
	assert.Equal(t, 2, strings.Count(sql, "metadata ON"))
}

func TestWrapQueryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"exists", &surrealdb.QueryError{Message: "Database record `voc_case:x` already exists"}, ErrAlreadyExists},
		{"conflict", &surrealdb.QueryError{Message: "Transaction conflict: resource busy"}, ErrTransactionConflict},
		{"missing table", &surrealdb.QueryError{Message: "The table 'guide' does not exist"}, ErrNotFound},
		{"wrapped", fmt.Errorf("search: %w", &surrealdb.QueryError{Message: "Transaction conflict"}), ErrTransactionConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, wrapQueryError(tt.err), tt.want)
		})
	}

	plain := errors.New("connection reset")
	assert.Same(t, plain, wrapQueryError(plain))
	assert.NoError(t, wrapQueryError(nil))
}

func TestNewCorpusRejectsUnknownTable(t *testing.T) {
	_, err := NewCorpus(nil, "users", nil)
	assert.Error(t, err)
}

func TestConfigBaseURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"ws://localhost:8000/rpc", "ws://localhost:8000"},
		{"wss://db.example.com/rpc/", "wss://db.example.com"},
		{"ws://localhost:8000", "ws://localhost:8000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Config{URL: tt.url}.baseURL(), tt.url)
	}
}

func TestConfigAuth(t *testing.T) {
	cfg := Config{Namespace: "voc", Database: "rag", Username: "u", Password: "p"}

	root := cfg.auth()
	assert.Equal(t, surrealdb.Auth{Username: "u", Password: "p"}, root)

	cfg.AuthLevel = "database"
	assert.Equal(t, surrealdb.Auth{Namespace: "voc", Database: "rag", Username: "u", Password: "p"}, cfg.auth())
}

// Package sqlite provides a SQLite-backed document store implementing the
// projection engine's QueryExecutor contract. Documents live as JSON rows
// keyed by (type, id); projections are applied on read with the path copier.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/skaldby/projoin/internal/document"
	"github.com/skaldby/projoin/internal/projection"
	"github.com/skaldby/projoin/internal/schema"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	doc_type TEXT NOT NULL,
	id       TEXT NOT NULL,
	body     TEXT NOT NULL,
	PRIMARY KEY (doc_type, id)
)`

// Store persists documents in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ projection.QueryExecutor = (*Store)(nil)

// Open opens a SQLite document store at path, creating the schema if needed.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Put inserts or replaces one document. The document must carry an id.
func (s *Store) Put(ctx context.Context, docType string, doc document.Document) error {
	id, ok := document.ID(doc)
	if !ok {
		return fmt.Errorf("document of type %s has no usable id", docType)
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents (doc_type, id, body) VALUES (?, ?, ?)`,
		docType, idKey(id), string(body))
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

// Query returns the documents of target matching ids, projected to the
// requested fields plus id. Nil projection means all fields; nil ids means
// every document of the type.
func (s *Store) Query(ctx context.Context, target schema.Type, proj []string, ids []any) ([]document.Document, error) {
	query := `SELECT body FROM documents WHERE doc_type = ?`
	args := []any{target.Name()}
	if ids != nil {
		if len(ids) == 0 {
			return nil, nil
		}
		query += ` AND id IN (?` + strings.Repeat(",?", len(ids)-1) + `)`
		for _, id := range ids {
			args = append(args, idKey(id))
		}
	}
	query += ` ORDER BY id`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var paths []string
	if proj != nil {
		paths = make([]string, 0, len(proj)+1)
		for _, p := range proj {
			paths = append(paths, target.NormalizePath(p))
		}
		paths = append(paths, document.IDField)
	}

	var docs []document.Document
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		var doc document.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("decode document: %w", err)
		}
		if paths != nil {
			doc, err = projection.ProjectDocument(doc, paths)
			if err != nil {
				return nil, err
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// idKey renders an id value into its row-key form. Numeric ids share a key
// space with their decimal string form.
func idKey(id any) string {
	return fmt.Sprint(id)
}

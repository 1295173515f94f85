package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for indexed syntax trees.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Only parser output is stored. Scopes and types are recomputed per
// session.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
  id              INTEGER PRIMARY KEY,
  uri             TEXT NOT NULL UNIQUE,
  hash            TEXT NOT NULL,
  node_count      INTEGER NOT NULL,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS nodes (
  document_id     INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  node_id         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  is_context      BOOLEAN NOT NULL DEFAULT FALSE,
  parent_id       INTEGER,
  attribute_index INTEGER,
  literal         TEXT,
  literal_kind    TEXT,
  start_line      INTEGER,
  start_char      INTEGER,
  end_line        INTEGER,
  end_char        INTEGER,
  PRIMARY KEY (document_id, node_id)
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(document_id, parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(kind);
`

// DeleteDocument transactionally removes a document and its nodes. A
// missing uri is not an error.
func (s *Store) DeleteDocument(uri string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteDocumentTx(tx, uri); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteDocumentTx(tx *sql.Tx, uri string) error {
	if _, err := tx.Exec("DELETE FROM nodes WHERE document_id IN (SELECT id FROM documents WHERE uri = ?)", uri); err != nil {
		return fmt.Errorf("delete nodes of %s: %w", uri, err)
	}
	if _, err := tx.Exec("DELETE FROM documents WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("delete document %s: %w", uri, err)
	}
	return nil
}

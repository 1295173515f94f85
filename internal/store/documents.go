package store

import (
	"database/sql"
	"fmt"
	"time"
)

// --- Document operations ---

// SaveDocument replaces whatever is stored under doc.URI with doc and its
// nodes in one transaction. doc.ID and doc.NodeCount are set on success.
func (s *Store) SaveDocument(doc *Document, nodes []Node) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save document: begin: %w", err)
	}
	defer tx.Rollback()

	if err := saveDocumentTx(tx, doc, nodes); err != nil {
		return err
	}
	return tx.Commit()
}

func saveDocumentTx(tx *sql.Tx, doc *Document, nodes []Node) error {
	if err := deleteDocumentTx(tx, doc.URI); err != nil {
		return err
	}
	if doc.IndexedAt.IsZero() {
		doc.IndexedAt = time.Now().UTC().Truncate(time.Second)
	}
	doc.NodeCount = len(nodes)
	res, err := tx.Exec(
		"INSERT INTO documents (uri, hash, node_count, indexed_at) VALUES (?, ?, ?, ?)",
		doc.URI, doc.Hash, doc.NodeCount, doc.IndexedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document %s: %w", doc.URI, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO nodes (document_id, node_id, kind, is_context, parent_id,
		attribute_index, literal, literal_kind, start_line, start_char, end_line, end_char)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare node insert: %w", err)
	}
	defer stmt.Close()
	for i := range nodes {
		n := &nodes[i]
		n.DocumentID = id
		if _, err := stmt.Exec(id, n.NodeID, n.Kind, n.IsContext, n.ParentID,
			n.AttributeIndex, n.Literal, n.LiteralKind, n.StartLine, n.StartChar, n.EndLine, n.EndChar); err != nil {
			return fmt.Errorf("insert node %d of %s: %w", n.NodeID, doc.URI, err)
		}
	}
	doc.ID = id
	return nil
}

const documentCols = "id, uri, hash, node_count, indexed_at"

func scanDocument(scanner interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	if err := scanner.Scan(&d.ID, &d.URI, &d.Hash, &d.NodeCount, &d.IndexedAt); err != nil {
		return nil, err
	}
	return d, nil
}

// DocumentByURI returns the document stored under uri, or nil.
func (s *Store) DocumentByURI(uri string) (*Document, error) {
	d, err := scanDocument(s.db.QueryRow("SELECT "+documentCols+" FROM documents WHERE uri = ?", uri))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document by uri: %w", err)
	}
	return d, nil
}

// Documents returns every stored document ordered by uri.
func (s *Store) Documents() ([]*Document, error) {
	rows, err := s.db.Query("SELECT " + documentCols + " FROM documents ORDER BY uri")
	if err != nil {
		return nil, fmt.Errorf("documents: %w", err)
	}
	defer rows.Close()
	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Node operations ---

// NodesByDocument returns a document's nodes ordered by node id.
func (s *Store) NodesByDocument(documentID int64) ([]Node, error) {
	rows, err := s.db.Query(`SELECT document_id, node_id, kind, is_context, parent_id, attribute_index,
		literal, literal_kind, start_line, start_char, end_line, end_char
		FROM nodes WHERE document_id = ? ORDER BY node_id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("nodes by document: %w", err)
	}
	defer rows.Close()
	var nodes []Node
	for rows.Next() {
		var (
			n                    Node
			literal, literalKind sql.NullString
		)
		if err := rows.Scan(&n.DocumentID, &n.NodeID, &n.Kind, &n.IsContext, &n.ParentID, &n.AttributeIndex,
			&literal, &literalKind, &n.StartLine, &n.StartChar, &n.EndLine, &n.EndChar); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.Literal, n.LiteralKind = literal.String, literalKind.String
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

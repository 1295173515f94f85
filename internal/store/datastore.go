package store

// DocumentWriter accepts indexed trees. Both Store (direct SQLite) and
// BatchedStore (in-memory buffering for parallel indexing) implement it.
type DocumentWriter interface {
	SaveDocument(doc *Document, nodes []Node) error
}

// Compile-time check: *Store satisfies DocumentWriter.
var _ DocumentWriter = (*Store)(nil)

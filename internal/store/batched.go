package store

import "sync"

// BatchedStore buffers documents in memory so indexing workers can decode
// in parallel while a single goroutine commits. It implements
// DocumentWriter.
//
// Thread safety: the mutex protects the buffer. Nothing is written to
// SQLite until CommitBatch.
type BatchedStore struct {
	mu      sync.Mutex
	pending []pendingDocument
}

type pendingDocument struct {
	doc   *Document
	nodes []Node
}

// Compile-time check: *BatchedStore satisfies DocumentWriter.
var _ DocumentWriter = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{}
}

// SaveDocument buffers doc. A later save of the same uri replaces the
// earlier one.
func (b *BatchedStore) SaveDocument(doc *Document, nodes []Node) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.pending {
		if b.pending[i].doc.URI == doc.URI {
			b.pending[i] = pendingDocument{doc: doc, nodes: nodes}
			return nil
		}
	}
	b.pending = append(b.pending, pendingDocument{doc: doc, nodes: nodes})
	return nil
}

// Len returns the number of buffered documents.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// URIs returns the buffered uris in insertion order.
func (b *BatchedStore) URIs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	uris := make([]string, len(b.pending))
	for i, p := range b.pending {
		uris[i] = p.doc.URI
	}
	return uris
}

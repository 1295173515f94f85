package store

import "fmt"

// CommitBatch writes every buffered document within a single transaction
// and empties the batch. On error nothing is written and the batch keeps
// its contents.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range batch.pending {
		if err := saveDocumentTx(tx, p.doc, p.nodes); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	batch.pending = nil
	return nil
}

package mlens

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/mlens/internal/store"
	"github.com/jward/mlens/internal/treefile"
)

// IndexFilesParallel indexes dumps using a three-phase pipeline:
//
//	Phase A (serial):   Filter paths to dump extensions.
//	Phase B (parallel): Decode, validate and hash via a worker pool.
//	Phase C (serial):   Skip unchanged documents, stage the rest in a
//	                    BatchedStore and commit it in one transaction.
func (e *Engine) IndexFilesParallel(ctx context.Context, paths []string) error {
	// ---- Phase A: Serial filtering ----
	var items []string
	for _, path := range paths {
		if treefile.IsDump(path) {
			items = append(items, path)
		}
	}
	if len(items) == 0 {
		return nil
	}

	// ---- Phase B: Parallel decoding ----
	numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

	workCh := make(chan string, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		path string
		dump *loadedDump
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{path: path, err: err}
					continue
				}
				d, err := loadDump(path)
				resultCh <- result{path: path, dump: d, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	batch := store.NewBatchedStore()
	var errs []error
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", res.path, res.err))
			continue
		}
		same, err := e.unchanged(res.dump)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", res.path, err))
			continue
		}
		if same {
			continue
		}
		if err := batch.SaveDocument(res.dump.storeDocument(), res.dump.nodes); err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", res.path, err))
		}
	}

	staged := batch.Len()
	if err := e.store.CommitBatch(batch); err != nil {
		return fmt.Errorf("commit %d document(s): %w", staged, err)
	}
	e.settings.Log().Info("indexed documents", "changed", staged, "paths", len(items), "workers", numWorkers, "errors", len(errs))

	if len(errs) > 0 {
		return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jward/mlens"
	"github.com/jward/mlens/internal/treefile"
)

// watchDebounce merges a burst of writes into one reindex.
const watchDebounce = 200 * time.Millisecond

// watchDumps reindexes dumps under root as they are created or written,
// until ctx is done. Directories created later are watched too.
func watchDumps(ctx context.Context, engine *mlens.Engine, root string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer w.Close()

	if err := addWatchDirs(w, root); err != nil {
		return err
	}

	pending := make(map[string]bool)
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchDirs(w, ev.Name); err != nil {
						logger.Warn("watch directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !treefile.IsDump(ev.Name) || !(ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write)) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(watchDebounce)

		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			if err := engine.IndexFiles(ctx, paths); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				continue
			}
			fmt.Fprintf(os.Stderr, "Reindexed %d file(s)\n", len(paths))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch", "error", err)
		}
	}
}

// addWatchDirs watches dir and every non-hidden directory below it.
func addWatchDirs(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

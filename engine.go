package mlens

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/jward/mlens/internal/analysis"
	"github.com/jward/mlens/internal/runtime"
	"github.com/jward/mlens/internal/settings"
	"github.com/jward/mlens/internal/store"
	"github.com/jward/mlens/internal/treefile"
	"github.com/jward/mlens/scripts"
)

// ErrNotIndexed is returned by Open and Check for a URI the index does not
// hold.
var ErrNotIndexed = errors.New("document not indexed")

// Engine orchestrates the mlens pipeline: dump discovery, change detection,
// validation, storage, and query access.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS
	settings   settings.Settings

	// useParallel enables the parallel decode pipeline.
	useParallel bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithSettings sets the locale and logger every analysis pass runs with.
func WithSettings(s settings.Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithLogger replaces only the logger of the Engine's settings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.settings.Logger = l
	}
}

// WithParallel controls parallel indexing. When true (default), IndexFiles
// uses a worker pool to decode, validate and hash dumps, with a single
// goroutine committing them to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS configures the Engine to load check scripts from the given
// filesystem instead of from the scriptsDir path on disk.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, if scriptsDir is not empty, use it on disk
//  3. Otherwise, use the bundled scripts
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("mlens: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("mlens: migrate: %w", err)
	}

	e := &Engine{
		store:       s,
		scriptsDir:  scriptsDir,
		settings:    settings.Default(),
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scriptsFS == nil && scriptsDir == "" {
		e.scriptsFS = scripts.FS
	}

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.settings.Log())}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Settings returns the settings analysis passes run with.
func (e *Engine) Settings() Settings {
	return e.settings
}

// loadedDump is a decoded, validated dump ready to be stored.
type loadedDump struct {
	path  string
	doc   *treefile.Document
	hash  string
	nodes []store.Node
}

// loadDump reads path, checks that it forms a tree and hashes it. It does
// not touch the Store, so it is safe to call from any goroutine.
func loadDump(path string) (*loadedDump, error) {
	doc, err := treefile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if _, err := doc.Tree(); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	hash, err := treefile.Hash(doc)
	if err != nil {
		return nil, err
	}
	return &loadedDump{path: path, doc: doc, hash: hash, nodes: storeNodes(doc)}, nil
}

// unchanged reports whether the index already holds d's tree under its URI.
func (e *Engine) unchanged(d *loadedDump) (bool, error) {
	existing, err := e.store.DocumentByURI(d.doc.URI)
	if err != nil {
		return false, fmt.Errorf("lookup document: %w", err)
	}
	return existing != nil && existing.Hash == d.hash, nil
}

func (d *loadedDump) storeDocument() *store.Document {
	return &store.Document{URI: d.doc.URI, Hash: d.hash, IndexedAt: time.Now()}
}

// IndexFiles indexes the given dump paths. When WithParallel is enabled,
// decoding runs on a worker pool and all changed documents are committed
// in one transaction. Otherwise falls back to the serial path.
//
// For each file:
// 1. Skip paths without a dump extension
// 2. Decode, schema-check (JSON) and validate the tree
// 3. Skip documents whose content hash is unchanged
// 4. Replace the stored document and its nodes
//
// Errors on individual files are collected and skipped; processing
// continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	if e.useParallel {
		return e.IndexFilesParallel(ctx, paths)
	}
	return e.indexFilesSerial(ctx, paths)
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string) error {
	var errs []error
	indexed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := e.indexFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
			continue
		}
		if ok {
			indexed++
		}
	}
	e.settings.Log().Info("indexed documents", "changed", indexed, "paths", len(paths), "errors", len(errs))
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// indexFile stores one dump and reports whether anything was written.
func (e *Engine) indexFile(path string) (bool, error) {
	if !treefile.IsDump(path) {
		return false, nil
	}
	d, err := loadDump(path)
	if err != nil {
		return false, err
	}
	same, err := e.unchanged(d)
	if err != nil || same {
		return false, err
	}
	if err := e.store.SaveDocument(d.storeDocument(), d.nodes); err != nil {
		return false, fmt.Errorf("save document: %w", err)
	}
	return true, nil
}

// skipDirs lists directories excluded from indexing.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
}

// IndexDirectory walks root and indexes every dump file under it. If root
// is inside a git repository, uses git ls-files to respect .gitignore.
// Falls back to a filesystem walk (skipping hidden dirs, node_modules and
// vendor) if git is unavailable.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	paths, err := gitListFiles(ctx, root)
	if err != nil {
		// Not a git repo or git not available.
		paths, err = walkListFiles(root)
		if err != nil {
			return err
		}
	}
	return e.IndexFiles(ctx, paths)
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) dumps under root.
func gitListFiles(ctx context.Context, root string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if treefile.IsDump(line) {
			paths = append(paths, filepath.Join(root, line))
		}
	}
	return paths, nil
}

// walkListFiles discovers dumps by walking the filesystem.
func walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if treefile.IsDump(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Open rebuilds the stored tree for uri and returns a QueryBuilder over a
// fresh analysis session.
func (e *Engine) Open(uri string) (*QueryBuilder, error) {
	doc, err := e.store.DocumentByURI(uri)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("open %s: %w", uri, ErrNotIndexed)
	}
	nodes, err := e.store.NodesByDocument(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", uri, err)
	}
	tree, err := dumpFromStore(uri, nodes).Tree()
	if err != nil {
		return nil, fmt.Errorf("open %s: stored tree: %w", uri, err)
	}
	return &QueryBuilder{
		document: doc,
		session:  analysis.New(e.settings, tree),
	}, nil
}

// Check runs the check script at scriptPath against the stored tree for
// uri.
func (e *Engine) Check(ctx context.Context, uri, scriptPath string) ([]Diagnostic, error) {
	q, err := e.Open(uri)
	if err != nil {
		return nil, err
	}
	diags, err := e.runtime.Check(ctx, q.session, scriptPath)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", uri, err)
	}
	return diags, nil
}

// CheckAll runs every bundled check against uri, one session shared by
// all of them.
func (e *Engine) CheckAll(ctx context.Context, uri string) (map[string][]Diagnostic, error) {
	q, err := e.Open(uri)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Diagnostic, len(scripts.Checks))
	for _, name := range scripts.Checks {
		diags, err := e.runtime.Check(ctx, q.session, runtime.CheckScriptPath(name))
		if err != nil {
			return nil, fmt.Errorf("check %s: %s: %w", uri, name, err)
		}
		out[name] = diags
	}
	return out, nil
}

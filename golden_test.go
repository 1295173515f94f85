package mlens

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/treefile"
)

// Golden test format.
type goldenFile struct {
	Checks map[string][]Diagnostic `json:"checks"`
	Types  []goldenType            `json:"types,omitempty"`
}

type goldenType struct {
	Node int    `json:"node"`
	Type string `json:"type"`
}

// TestGolden walks testdata/checks/ and, for every case directory holding
// a tree dump and a golden.json, indexes the dump and compares the bundled
// checks' diagnostics and selected inferred types.
func TestGolden(t *testing.T) {
	caseRoot := filepath.Join("testdata", "checks")
	cases, err := os.ReadDir(caseRoot)
	if err != nil {
		t.Skip("no testdata directory found")
	}

	for _, c := range cases {
		if !c.IsDir() {
			continue
		}
		dir := filepath.Join(caseRoot, c.Name())
		goldenPath := filepath.Join(dir, "golden.json")
		if _, err := os.Stat(goldenPath); err != nil {
			continue
		}
		t.Run(c.Name(), func(t *testing.T) {
			runGoldenTest(t, dir, goldenPath)
		})
	}
}

func runGoldenTest(t *testing.T, dir, goldenPath string) {
	t.Helper()

	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	var golden goldenFile
	require.NoError(t, json.Unmarshal(goldenData, &golden))

	var dump string
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.Name() != "golden.json" && treefile.IsDump(entry.Name()) {
			dump = filepath.Join(dir, entry.Name())
		}
	}
	require.NotEmpty(t, dump, "no tree dump in %s", dir)
	doc, err := treefile.ReadFile(dump)
	require.NoError(t, err)

	engine := newTestEngine(t)
	require.NoError(t, engine.IndexFiles(context.Background(), []string{dump}))

	got, err := engine.CheckAll(context.Background(), doc.URI)
	require.NoError(t, err)
	for name, want := range golden.Checks {
		if len(want) == 0 {
			assert.Empty(t, got[name], "check %s", name)
			continue
		}
		assert.Equal(t, want, got[name], "check %s", name)
	}

	q, err := engine.Open(doc.URI)
	require.NoError(t, err)
	for _, gt := range golden.Types {
		typ, err := q.TypeOf(gt.Node)
		require.NoError(t, err)
		assert.Equal(t, gt.Type, typ.String(), "type of node %d", gt.Node)
	}
}

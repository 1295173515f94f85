package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("xml"), `invalid format "xml"`)
}

func TestResolveDBPath(t *testing.T) {
	saved := flagDB
	t.Cleanup(func() { flagDB = saved })

	flagDB = ""
	assert.Equal(t, filepath.Join("/repo", ".mlens", "index.db"), resolveDBPath("/repo"))

	flagDB = "other.db"
	assert.Equal(t, filepath.Join("/repo", "other.db"), resolveDBPath("/repo"))

	flagDB = "/abs/index.db"
	assert.Equal(t, "/abs/index.db", resolveDBPath("/repo"))
}

func TestApplyEnvDefaults(t *testing.T) {
	savedDB, savedLocale := flagDB, flagLocale
	t.Cleanup(func() { flagDB, flagLocale = savedDB, savedLocale })
	t.Setenv("MLENS_DB", "/env/index.db")
	t.Setenv("MLENS_LOCALE", "de-DE")

	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&flagDB, "db", "", "")
	cmd.Flags().StringVar(&flagLocale, "locale", "en-US", "")
	require.NoError(t, cmd.Flags().Set("locale", "fr-FR"))

	applyEnvDefaults(cmd)
	assert.Equal(t, "/env/index.db", flagDB)
	assert.Equal(t, "fr-FR", flagLocale, "explicit flag wins over the environment")
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("x", "line")
	assert.ErrorContains(t, err, `invalid line "x"`)

	_, err = parseIntArg("-1", "character")
	assert.ErrorContains(t, err, "must be non-negative")
}

func TestOutputResultText(t *testing.T) {
	color.NoColor = true
	line, character := 0, 3
	one, zero := 1, 0

	tests := []struct {
		name    string
		results any
		want    []string
	}{
		{"documents", []CLIDocument{{ID: 1, URI: "file:///a.pq", NodeCount: 7}}, []string{"URI", "file:///a.pq", "7"}},
		{"scope", []CLIScopeEntry{{Name: "x", Kind: "KeyValuePair", NodeID: 4, Recursive: true}}, []string{"x", "KeyValuePair", "true"}},
		{"inspection", CLIInspection{
			Identifier: &CLIIdentifier{Name: "y", Kind: "Undefined", NodeID: 8},
			Invoke:     &CLIInvoke{NodeID: 2, Name: "f", NumArguments: &one, ArgumentIndex: &zero},
		}, []string{"Identifier: y (Undefined, #8)", "Invoke: f (#2) argument 0 of 1"}},
		{"type", CLIType{NodeID: 3, Kind: "LiteralExpression", Type: "number", Expected: "Logical", Accepts: "false"}, []string{"number", "Logical", "false"}},
		{"expected", CLIExpected{ParentKind: "IfExpression", Index: 1, Category: "Logical"}, []string{"IfExpression[1]: Logical"}},
		{"verdict", CLIVerdict{Relation: "subset", Left: 3, LeftType: "number", Right: 1, RightType: "any", Result: "true"}, []string{"#3 (number) subset #1 (any): true"}},
		{"completions", []CLICompletion{{Label: "abc", Kind: "KeyValuePair", Distance: 2}}, []string{"abc", "2"}},
		{"diagnostics", []CLIDiagnostic{
			{Check: "unresolved", NodeID: 8, Line: &line, Character: &character, Message: "unresolved identifier y"},
			{Check: "expected_types", NodeID: 9, Message: "expected Logical, found number"},
		}, []string{"0:3: unresolved: unresolved identifier y", "#9: expected_types: expected Logical"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, outputResultText(&buf, CLIResult{Command: tt.name, Results: tt.results}))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}

	var buf bytes.Buffer
	require.NoError(t, outputResultText(&buf, CLIResult{Command: "none"}))
	assert.Empty(t, buf.String())
	assert.Error(t, outputResultText(&buf, CLIResult{Command: "bad", Results: 42}))
}

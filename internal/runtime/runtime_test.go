package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/analysis"
	"github.com/jward/mlens/internal/mtest"
	"github.com/jward/mlens/internal/settings"
	"github.com/jward/mlens/internal/store"
)

// let a = 1, b = [n = a] in if b then a else "x"
func sampleSession(t *testing.T) (*mtest.Fixture, *analysis.Session) {
	t.Helper()
	f := mtest.Build(t, mtest.Mark("let", mtest.Let([]mtest.Binding{
		mtest.B("a", mtest.Mark("one", mtest.Num("1"))),
		mtest.B("b", mtest.Record(
			mtest.B("n", mtest.Mark("n", mtest.Ident("a"))),
		)),
	}, mtest.Mark("if", mtest.If(
		mtest.Mark("cond", mtest.Ident("b")),
		mtest.Mark("then", mtest.Ident("a")),
		mtest.Mark("else", mtest.Text("x")),
	)))))
	return f, analysis.New(settings.Default(), f.Tree)
}

// runSession runs script with the session globals plus ids, the fixture's
// marks by name.
func runSession(t *testing.T, f *mtest.Fixture, ss *analysis.Session, script string) ([]Diagnostic, error) {
	t.Helper()
	rt := NewRuntime(nil, "")
	rep := &reporter{}
	globals := sessionGlobals(ss, rep)
	ids := map[string]any{}
	for _, name := range []string{"let", "one", "n", "if", "cond", "then", "else"} {
		ids[name] = f.ID(name)
	}
	globals["ids"] = ids
	err := rt.RunSource(context.Background(), script, globals)
	return rep.diagnostics, err
}

// --- Session host functions ---

func TestRunSource_NodeAndChildren(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	script := `
n := node(ids["then"])
assert(n["kind"] == "IdentifierExpression", 'got {n["kind"]}')
assert(n["parent"] == ids["if"], "parent")
assert(n["attribute"] == 3, 'attribute {n["attribute"]}')
assert(!n["context"], "context")
assert(n["start"]["line"] == 0, "start line")

kids := children(ids["then"])
assert(len(kids) == 1, 'expected 1 child, got {len(kids)}')
leaf := node(kids[0])
assert(leaf["kind"] == "Identifier", "leaf kind")
assert(leaf["literal"] == "a", "leaf literal")

one := node(ids["one"])
assert(one["literal_kind"] == "numeric", "literal kind")

assert(node(99999) == nil, "missing node")
`
	_, err := runSession(t, f, ss, script)
	require.NoError(t, err)
}

func TestRunSource_NodeIDs(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	script := `
nodes := node_ids()
leaves := leaf_ids()
assert(len(nodes) > len(leaves), "more nodes than leaves")
assert(nodes[0] == ids["let"], 'root first, got {nodes[0]}')
`
	_, err := runSession(t, f, ss, script)
	require.NoError(t, err)
}

func TestRunSource_ScopeAt(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	script := `
s := scope_at(ids["then"])
assert(s["a"] == "KeyValuePair", 'got {s["a"]}')
assert(s.get("n", nil) == nil, "record field leaked out")

inner := scope_at(ids["n"])
assert(inner.get("a", nil) != nil, "record sees let bindings")
`
	_, err := runSession(t, f, ss, script)
	require.NoError(t, err)
}

func TestRunSource_Types(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	script := `
assert(type_of(ids["then"]) == "number", 'got {type_of(ids["then"])}')
assert(expected_type(ids["cond"]) == "Logical", "cond category")
assert(expected_type(ids["let"]) == "NotApplicable", "root category")
assert(accepts(ids["cond"]) == "false", "record in logical slot")
assert(accepts(ids["then"]) == "true", "then accepted")
assert(is_subset(ids["then"], ids["if"]) == "true", "then within if")
assert(is_subset(ids["if"], ids["then"]) == "false", "if not within then")
assert(is_equal_type(ids["one"], ids["then"]) == "true", "one equals then")
`
	_, err := runSession(t, f, ss, script)
	require.NoError(t, err)
}

func TestRunSource_InspectAt(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)
	end := f.End("then")

	script := `
r := inspect_at(line, character)
assert(r["scope"]["b"] == "KeyValuePair", "b visible")
assert(r["invoke"] == nil, "no call")
ident := r["identifier"]
assert(ident["name"] == "a", 'got {ident["name"]}')
assert(ident["kind"] == "Local", 'got {ident["kind"]}')
assert(ident["definition"] == ids["one"], "bound to 1")
`
	rt := NewRuntime(nil, "")
	globals := sessionGlobals(ss, &reporter{})
	globals["ids"] = map[string]any{"one": f.ID("one")}
	globals["line"] = end.Line
	globals["character"] = end.Character
	require.NoError(t, rt.RunSource(context.Background(), script, globals))
}

func TestRunSource_HostErrors(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"unknown node", `type_of(99999)`, "type_of"},
		{"wrong arity", `accepts()`, "accepts"},
		{"bad id", `scope_at("x")`, "node id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runSession(t, f, ss, tt.script)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheckSource_Report(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)

	rt := NewRuntime(nil, "")
	diags, err := rt.CheckSource(context.Background(), ss, `
nodes := node_ids()
for i := 0; i < len(nodes); i++ {
    if expected_type(nodes[i]) != "NotApplicable" && accepts(nodes[i]) == "false" {
        report(nodes[i], "bad slot")
    }
}
`)
	require.NoError(t, err)
	assert.Equal(t, []Diagnostic{{NodeID: f.ID("cond"), Message: "bad slot"}}, diags)
}

func TestCheck_FromFS(t *testing.T) {
	t.Parallel()
	f, ss := sampleSession(t)
	mapFS := fstest.MapFS{
		"checks/root.risor": &fstest.MapFile{Data: []byte(`report(node_ids()[0], "root")`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))
	diags, err := rt.Check(context.Background(), ss, CheckScriptPath("root"))
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, f.ID("let"), diags[0].NodeID)
}

// --- Store host functions ---

func TestRunSource_StoreFunctions(t *testing.T) {
	t.Parallel()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())

	start, end := 0, 1
	require.NoError(t, s.SaveDocument(&store.Document{URI: "file:///a.pq", Hash: "h"}, []store.Node{
		{NodeID: 1, Kind: "LiteralExpression", Literal: "1", LiteralKind: "numeric",
			StartLine: &start, StartChar: &start, EndLine: &start, EndChar: &end},
	}))

	rt := NewRuntime(s, "")
	script := `
docs := documents()
assert(len(docs) == 1, 'expected 1 document, got {len(docs)}')
assert(docs[0]["uri"] == "file:///a.pq", "uri")
assert(docs[0]["node_count"] == 1, "node count")

rows := db_query("SELECT kind, literal FROM nodes WHERE document_id = ?", docs[0]["id"])
assert(len(rows) == 1, "one node")
assert(rows[0]["kind"] == "LiteralExpression", "kind")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	err = rt.RunSource(context.Background(), `db_query("DELETE FROM nodes")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only SELECT")
}

func TestRunSource_Log(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	rt := NewRuntime(nil, "", WithRuntimeLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "careful")
	assert.Contains(t, buf.String(), "source=script")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(nil, dir)
	ctx := context.Background()

	err := rt.RunScript(ctx, "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	ctx := context.Background()

	err := rt.RunScript(ctx, "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

func TestCheckScriptPath(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("checks", "unresolved.risor"), CheckScriptPath("unresolved"))
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"checks/x.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("checks/x.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"checks/x.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	// Absolute-style path should be resolved within the FS.
	got, err := rt.LoadScript("/checks/x.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0644))

	// No WithRuntimeFS -- should fall back to disk.
	rt := NewRuntime(nil, dir)

	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRunScript_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`result := 1 + 1`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))
	err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	// Write a module file to disk.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Verify that imported modules can reference host-provided globals.
	// The log global is always available (provided by buildGlobals).
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
// This module references the "log" global provided by the host.
// If global names aren't passed to the importer, this will fail to compile.
func do_log(msg) {
	log.Info(msg)
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import helper
helper.do_log("test message")
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_NoImport_NoRegression(t *testing.T) {
	// Scripts without import statements should work regardless of importer config.
	rt := NewRuntime(nil, "")

	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestNewRuntime_BackwardCompatible(t *testing.T) {
	// Existing callers using NewRuntime(store, dir) with no options should still work.
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
}

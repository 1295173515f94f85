package mlens

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/mtest"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/types"
)

func openSample(t *testing.T) (*mtest.Fixture, *QueryBuilder) {
	t.Helper()
	e := newTestEngine(t)
	f := sampleTree(t)
	path := writeDump(t, t.TempDir(), "sample.json", sampleURI, f)
	require.NoError(t, e.IndexFiles(context.Background(), []string{path}))
	q, err := e.Open(sampleURI)
	require.NoError(t, err)
	return f, q
}

func TestQueryBuilder_Node(t *testing.T) {
	t.Parallel()
	f, q := openSample(t)

	n, ok := q.Node(f.ID("if"))
	require.True(t, ok)
	assert.Equal(t, "IfExpression", n.Kind().String())

	parent, ok := q.ParentID(f.ID("if"))
	require.True(t, ok)
	assert.Equal(t, f.ID("let"), parent)

	_, ok = q.Node(12345)
	assert.False(t, ok)
}

func TestQueryBuilder_InspectAt(t *testing.T) {
	t.Parallel()
	f, q := openSample(t)
	end := f.End("then")

	got, err := q.InspectAt(end.Line, end.Character)
	require.NoError(t, err)
	assert.Contains(t, got.Scope, "a")
	assert.Contains(t, got.Scope, "b")
	require.NotNil(t, got.PositionIdentifier)
	assert.Equal(t, "a", got.PositionIdentifier.Identifier.Literal)
}

func TestQueryBuilder_ScopeFor(t *testing.T) {
	t.Parallel()
	f, q := openSample(t)

	items, err := q.ScopeFor(f.ID("n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "n"}, items.Keys())
	assert.True(t, items["n"].Recursive())
	assert.Equal(t, scope.ItemKeyValuePair, items["a"].Kind())
}

func TestQueryBuilder_Types(t *testing.T) {
	t.Parallel()
	f, q := openSample(t)

	typ, err := q.TypeOf(f.ID("one"))
	require.NoError(t, err)
	assert.Equal(t, "number", typ.String())

	category, err := q.ExpectedTypeOf(f.ID("cond"))
	require.NoError(t, err)
	assert.Equal(t, types.CategoryLogical, category)

	accepts, err := q.Accepts(f.ID("cond"))
	require.NoError(t, err)
	assert.Equal(t, types.TriFalse, accepts)

	sub, err := q.IsSubset(f.ID("then"), f.ID("if"))
	require.NoError(t, err)
	assert.Equal(t, types.TriTrue, sub)

	eq, err := q.IsEqualType(f.ID("then"), f.ID("else"))
	require.NoError(t, err)
	assert.Equal(t, types.TriFalse, eq)
}

func TestQueryBuilder_Completions(t *testing.T) {
	t.Parallel()
	f, q := openSample(t)
	end := f.End("then")

	got, err := q.Completions(end.Line, end.Character, "")
	require.NoError(t, err)
	var labels []string
	for _, c := range got {
		labels = append(labels, c.Label)
	}
	// The cursor sits on "a", which is not offered back.
	assert.Equal(t, []string{"b"}, labels)
}

func TestExpectedType(t *testing.T) {
	t.Parallel()

	got, err := ExpectedType("IfExpression", 1)
	require.NoError(t, err)
	assert.Equal(t, types.CategoryLogical, got)

	_, err = ExpectedType("IfExpression", 9)
	assert.Error(t, err)

	_, err = ExpectedType("NoSuchKind", 0)
	assert.ErrorContains(t, err, "unknown node kind")
}

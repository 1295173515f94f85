package scope_test

import (
	"maps"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/mtest"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/settings"
)

func scopeAt(t *testing.T, f *mtest.Fixture, name string) scope.ItemByKey {
	t.Helper()
	items, err := scope.ForNode(settings.Default(), f.Tree, f.ID(name), nil)
	require.NoError(t, err)
	return items
}

// =============================================================================
// Binding constructs
// =============================================================================

func TestLetBodySeesAllBindings(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let([]mtest.Binding{
		mtest.B("a", mtest.Num("1")),
		mtest.B("b", mtest.Num("2")),
	}, mtest.Mark("body", mtest.Ident("a"))))

	items := scopeAt(t, f, "body")
	assert.Equal(t, []string{"a", "b"}, items.Keys())
	for _, item := range items {
		assert.Equal(t, scope.ItemKeyValuePair, item.Kind())
		assert.False(t, item.Recursive())
	}
}

func TestLetValueSeesItselfRecursively(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let([]mtest.Binding{
		mtest.B("a", mtest.Num("1")),
		mtest.B("b", mtest.Mark("b", mtest.Ident("a"))),
		mtest.B("c", nil),
	}, mtest.Ident("b")))

	items := scopeAt(t, f, "b")
	assert.Equal(t, []string{"a", "b"}, items.Keys(), "bindings without a value are not visible")
	assert.False(t, items["a"].Recursive())
	assert.True(t, items["b"].Recursive())

	kvp, ok := items["a"].(*scope.KeyValuePairItem)
	require.True(t, ok)
	assert.Equal(t, "a", kvp.Key.Literal)
	assert.Equal(t, ast.KindLiteralExpression, kvp.Value.Kind())
	assert.Equal(t, ast.KindIdentifierPairedExpression, mustNode(t, f.Tree, kvp.ID).Kind())
}

func TestRecordFieldsSeeSiblings(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Record(
		mtest.B("x", mtest.Num("1")),
		mtest.B("y", mtest.Mark("y", mtest.Num("2"))),
		mtest.B("z", mtest.Num("3")),
	))

	items := scopeAt(t, f, "y")
	assert.Equal(t, []string{"x", "y", "z"}, items.Keys())
	assert.True(t, items["y"].Recursive())
	assert.False(t, items["z"].Recursive())
}

func TestSectionIgnoresOuterScope(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Section("S",
		mtest.B("m1", mtest.Num("1")),
		mtest.B("m2", mtest.Mark("m2", mtest.Ident("m1"))),
	))

	items := scopeAt(t, f, "m2")
	assert.Equal(t, []string{"m1", "m2"}, items.Keys())
	assert.Equal(t, scope.ItemSectionMember, items["m1"].Kind())
	assert.True(t, items["m2"].Recursive())
}

func TestEachAddsUnderscore(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let(
		[]mtest.Binding{mtest.B("x", mtest.Num("1"))},
		mtest.Mark("each", mtest.Each(mtest.Mark("body", mtest.Ident("_")))),
	))

	items := scopeAt(t, f, "body")
	assert.Equal(t, []string{"_", "x"}, items.Keys())
	each, ok := items["_"].(*scope.EachItem)
	require.True(t, ok)
	assert.Equal(t, f.ID("each"), each.ID)

	// The each keyword itself is outside the body.
	assert.Equal(t, []string{"x"}, scopeAt(t, f, "each").Keys())
}

func TestFunctionParameters(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Fn([]mtest.Param{
		mtest.P("a"),
		{Name: "b", Optional: true, Type: ast.PrimitiveNumber},
	}, mtest.Mark("body", mtest.Ident("a"))))

	items := scopeAt(t, f, "body")
	assert.Equal(t, []string{"a", "b"}, items.Keys())
	b, ok := items["b"].(*scope.ParameterItem)
	require.True(t, ok)
	assert.True(t, b.IsOptional)
	assert.False(t, b.IsNullable)
	assert.Equal(t, ast.PrimitiveNumber, b.Type)
	assert.Equal(t, ast.KindParameter, mustNode(t, f.Tree, b.ID).Kind())
}

func TestInnerBindingShadowsOuter(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let(
		[]mtest.Binding{mtest.B("x", mtest.Num("1"))},
		mtest.Let(
			[]mtest.Binding{mtest.B("x", mtest.Mark("inner", mtest.Num("2")))},
			mtest.Mark("body", mtest.Ident("x")),
		),
	))

	items := scopeAt(t, f, "body")
	kvp, ok := items["x"].(*scope.KeyValuePairItem)
	require.True(t, ok)
	assert.Equal(t, f.ID("inner"), kvp.Value.ID())
}

func TestScopeIsMonotoneAlongAncestry(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let(
		[]mtest.Binding{mtest.B("a", mtest.Num("1"))},
		mtest.Mark("rec", mtest.Record(mtest.B("f", mtest.Mark("leaf", mtest.Num("2"))))),
	))

	ancestry, err := nodeidmap.ExpectAncestry(f.Tree, f.ID("leaf"))
	require.NoError(t, err)
	delta, err := scope.ForTree(settings.Default(), f.Tree, ancestry, nil)
	require.NoError(t, err)

	// Every node on the path has an entry, and no binding disappears on the
	// way down except through shadowing.
	for i := len(ancestry) - 1; i > 0; i-- {
		outer := delta[ancestry[i].ID()]
		inner := delta[ancestry[i-1].ID()]
		require.NotNil(t, outer)
		require.NotNil(t, inner)
		for k := range outer {
			assert.Contains(t, inner, k)
		}
	}
}

// =============================================================================
// Cache behaviour
// =============================================================================

func TestCacheIsNeverMutated(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let([]mtest.Binding{
		mtest.B("a", mtest.Mark("a", mtest.Num("1"))),
		mtest.B("b", mtest.Mark("b", mtest.Num("2"))),
	}, mtest.Ident("a")))
	s := settings.Default()

	first, err := nodeidmap.ExpectAncestry(f.Tree, f.ID("a"))
	require.NoError(t, err)
	cache, err := scope.ForTree(s, f.Tree, first, nil)
	require.NoError(t, err)

	snapshot := make(scope.ByID, len(cache))
	for id, items := range cache {
		snapshot[id] = maps.Clone(items)
	}

	second, err := nodeidmap.ExpectAncestry(f.Tree, f.ID("b"))
	require.NoError(t, err)
	delta, err := scope.ForTree(s, f.Tree, second, cache)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(snapshot, cache), "given cache changed")
	assert.Contains(t, delta, f.ID("b"))

	// Ancestors copied from the cache are equal in content but not shared.
	root := first[len(first)-1].ID()
	require.Contains(t, delta, root)
	assert.Empty(t, cmp.Diff(cache[root], delta[root]))
	delta[root]["extra"] = &scope.UndefinedItem{ID: 99}
	assert.NotContains(t, cache[root], "extra")
}

func TestCacheHitShortCircuits(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Let([]mtest.Binding{mtest.B("a", mtest.Num("1"))}, mtest.Mark("body", mtest.Ident("a"))))
	s := settings.Default()

	ancestry, err := nodeidmap.ExpectAncestry(f.Tree, f.ID("body"))
	require.NoError(t, err)
	cache, err := scope.ForTree(s, f.Tree, ancestry, nil)
	require.NoError(t, err)

	hit, err := scope.ForTree(s, f.Tree, ancestry, cache)
	require.NoError(t, err)
	require.Len(t, hit, 1)
	assert.Empty(t, cmp.Diff(cache[f.ID("body")], hit[f.ID("body")]))

	// Repeated runs against the same cache are deterministic.
	again, err := scope.ForTree(s, f.Tree, ancestry, cache)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(hit, again))
}

func TestWarmCacheMatchesCold(t *testing.T) {
	t.Parallel()
	// let a = 1, g = (x) => [y = x, z = each _] in g(a)
	f := mtest.Build(t, mtest.Let([]mtest.Binding{
		mtest.B("a", mtest.Num("1")),
		mtest.B("g", mtest.Fn([]mtest.Param{mtest.P("x")}, mtest.Record(
			mtest.B("y", mtest.Ident("x")),
			mtest.B("z", mtest.Each(mtest.Ident("_"))),
		))),
	}, mtest.Call("g", mtest.Ident("a"))))
	s := settings.Default()
	ids := nodeidmap.AllIDs(f.Tree)

	cold := make(scope.ByID, len(ids))
	for _, id := range ids {
		items, err := scope.ForNode(s, f.Tree, id, nil)
		require.NoError(t, err)
		cold[id] = items
	}

	descending := slices.Clone(ids)
	slices.Reverse(descending)
	leavesFirst := slices.Clone(f.Tree.LeafIDs())
	for _, id := range ids {
		if !slices.Contains(leavesFirst, id) {
			leavesFirst = append(leavesFirst, id)
		}
	}
	shuffled := slices.Clone(ids)
	rand.New(rand.NewPCG(1, 2)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	orders := map[string][]int{
		"ascending":    ids,
		"descending":   descending,
		"leaves first": leavesFirst,
		"shuffled":     shuffled,
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cache := scope.ByID{}
			for _, id := range order {
				ancestry, err := nodeidmap.ExpectAncestry(f.Tree, id)
				require.NoError(t, err)
				delta, err := scope.ForTree(s, f.Tree, ancestry, cache)
				require.NoError(t, err)
				cache.Merge(delta)
			}
			for _, id := range ids {
				warm, err := scope.ForNode(s, f.Tree, id, cache)
				require.NoError(t, err)
				assert.Empty(t, cmp.Diff(cold[id], warm), "node %d", id)
			}
		})
	}
}

func TestMergeCommitsDelta(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Record(mtest.B("x", mtest.Mark("x", mtest.Num("1")))))
	s := settings.Default()

	cache := scope.ByID{}
	ancestry, err := nodeidmap.ExpectAncestry(f.Tree, f.ID("x"))
	require.NoError(t, err)
	delta, err := scope.ForTree(s, f.Tree, ancestry, cache)
	require.NoError(t, err)
	assert.Empty(t, cache)

	cache.Merge(delta)
	assert.Len(t, cache, len(ancestry))

	items, err := scope.ForNode(s, f.Tree, f.ID("x"), cache)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, items.Keys())
}

// =============================================================================
// Edge cases
// =============================================================================

func TestEmptyAncestry(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Num("1"))
	delta, err := scope.ForTree(settings.Default(), f.Tree, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, delta)
}

func TestUnknownNodeIsCommonError(t *testing.T) {
	t.Parallel()
	f := mtest.Build(t, mtest.Num("1"))
	_, err := scope.ForNode(settings.Default(), f.Tree, 404, nil)

	var common *errs.CommonError
	require.ErrorAs(t, err, &common)
	assert.Equal(t, errs.KindInvariant, common.Kind)
}

func TestPartialLetKeepsParsedBindings(t *testing.T) {
	t.Parallel()
	// let a = 1, b = |   (the parser stopped inside the second binding)
	f := mtest.Build(t, mtest.Partial(ast.KindLetExpression,
		mtest.Constant("let"),
		mtest.Raw(func(b *nodeidmap.Builder) {
			b.Open(ast.KindArrayWrapper)
			b.Open(ast.KindCsv)
			b.Open(ast.KindIdentifierPairedExpression)
			b.Leaf(ast.KindIdentifier, "a")
			b.Leaf(ast.KindConstant, "=")
			b.Literal(ast.LiteralNumeric, "1")
			b.Close()
			b.Leaf(ast.KindConstant, ",")
			b.Close()
			b.OpenContext(ast.KindCsv)
			b.OpenContext(ast.KindIdentifierPairedExpression)
			b.Leaf(ast.KindIdentifier, "b")
			b.Leaf(ast.KindConstant, "=")
			b.OpenContext(ast.KindIdentifierExpression)
			b.Close()
			b.Close()
			b.Close()
			b.Close()
		}),
	))

	leaves := f.Tree.LeafIDs()
	last := leaves[len(leaves)-1]
	items, err := scope.ForNode(settings.Default(), f.Tree, last, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items.Keys())
	assert.True(t, items["b"].Recursive())
}

func mustNode(t *testing.T, c nodeidmap.Collection, id int) ast.Node {
	t.Helper()
	n, ok := c.Node(id)
	require.True(t, ok)
	return n
}

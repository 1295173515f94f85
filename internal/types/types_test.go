package types_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/types"
)

// =============================================================================
// Construction and rendering
// =============================================================================

func TestAnyUnionFlattensAndDedupes(t *testing.T) {
	t.Parallel()
	inner := types.NewAnyUnion(types.Number, types.Text)
	u := types.NewAnyUnion(inner, types.Number, types.Logical)

	require.Equal(t, types.ExtAnyUnion, u.Extended)
	assert.Len(t, u.Members, 3)
	assert.False(t, u.IsNullable)
	assert.Equal(t, "number | text | logical", u.String())

	assert.Same(t, types.Number, types.NewAnyUnion(types.Number, types.Number))
	assert.Same(t, types.None, types.NewAnyUnion())
	assert.True(t, types.NewAnyUnion(types.Null, types.Text).IsNullable)
}

func TestDefinedRecordLastWriteWins(t *testing.T) {
	t.Parallel()
	r := types.NewDefinedRecord([]types.Field{
		{Name: "a", Type: types.Number},
		{Name: "b", Type: types.Text},
		{Name: "a", Type: types.Logical},
	}, false, false)

	require.Len(t, r.Fields, 2)
	assert.Equal(t, "a", r.Fields[0].Name)
	a, ok := r.Field("a")
	require.True(t, ok)
	assert.Same(t, types.Logical, a)
	assert.Equal(t, "[a: logical, b: text]", r.String())
}

func TestTypeString(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ  *types.Type
		want string
	}{
		{types.Number.Nullable(), "nullable number"},
		{types.Null, "null"},
		{types.Any, "any"},
		{types.NewGenericList(types.Text, false), "{text}"},
		{types.NewDefinedList([]*types.Type{types.Number, types.Text}, false), "{number, text}"},
		{types.NewDefinedRecord(nil, true, false), "[...]"},
		{types.NewDefinedFunction([]types.Parameter{
			{Name: "x", Type: types.Number},
			{Name: "y", IsOptional: true},
		}, nil, false), "(x as number, optional y) => any"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestFromPrimitive(t *testing.T) {
	t.Parallel()
	n := types.FromPrimitive(ast.PrimitiveNumber, true)
	assert.Equal(t, types.KindNumber, n.Kind)
	assert.True(t, n.IsNullable)
	assert.True(t, types.FromPrimitive(ast.PrimitiveNull, false).IsNullable)
	assert.Same(t, types.Unknown, types.FromPrimitive("money", false))
}

func TestNullableKeepsUnresolved(t *testing.T) {
	t.Parallel()
	assert.Same(t, types.Unknown, types.Unknown.Nullable())
	assert.Same(t, types.Null, types.Null.Nullable())
	assert.False(t, types.Number.IsNullable, "shared instance must not change")
}

// =============================================================================
// Equality
// =============================================================================

func TestIsEqualType(t *testing.T) {
	t.Parallel()
	rec := func(open bool, fields ...types.Field) *types.Type {
		return types.NewDefinedRecord(fields, open, false)
	}
	tests := []struct {
		name string
		a, b *types.Type
		want types.Tri
	}{
		{"same primitive", types.Number, types.Primitive(types.KindNumber, false), types.TriTrue},
		{"nullability differs", types.Number, types.Number.Nullable(), types.TriFalse},
		{"kind differs", types.Number, types.Text, types.TriFalse},
		{"unknown", types.Unknown, types.Number, types.TriIndeterminate},
		{"not applicable", types.Number, types.NotApplicable, types.TriIndeterminate},
		{"union order", types.NewAnyUnion(types.Number, types.Text), types.NewAnyUnion(types.Text, types.Number), types.TriTrue},
		{"union members", types.NewAnyUnion(types.Number, types.Text), types.NewAnyUnion(types.Number, types.Logical), types.TriFalse},
		{"generic list", types.NewGenericList(types.Number, false), types.NewGenericList(types.Number, false), types.TriTrue},
		{"defined list length", types.NewDefinedList([]*types.Type{types.Number}, false), types.NewDefinedList(nil, false), types.TriFalse},
		{"defined list unknown element",
			types.NewDefinedList([]*types.Type{types.Unknown}, false),
			types.NewDefinedList([]*types.Type{types.Number}, false), types.TriIndeterminate},
		{"record field order", rec(false, types.Field{Name: "a", Type: types.Number}, types.Field{Name: "b", Type: types.Text}),
			rec(false, types.Field{Name: "b", Type: types.Text}, types.Field{Name: "a", Type: types.Number}), types.TriTrue},
		{"record openness", rec(true), rec(false), types.TriFalse},
		{"record field names", rec(false, types.Field{Name: "a", Type: types.Number}),
			rec(false, types.Field{Name: "z", Type: types.Number}), types.TriFalse},
		{"function ignores names",
			types.NewDefinedFunction([]types.Parameter{{Name: "x", Type: types.Number}}, types.Text, false),
			types.NewDefinedFunction([]types.Parameter{{Name: "y", Type: types.Number}}, types.Text, false), types.TriTrue},
		{"function optionality",
			types.NewDefinedFunction([]types.Parameter{{Name: "x", IsOptional: true}}, nil, false),
			types.NewDefinedFunction([]types.Parameter{{Name: "x"}}, nil, false), types.TriFalse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.IsEqualType(tt.a, tt.b))
			assert.Equal(t, tt.want, types.IsEqualType(tt.b, tt.a), "symmetric")
		})
	}
}

// =============================================================================
// Subset
// =============================================================================

func TestIsSubset(t *testing.T) {
	t.Parallel()
	numbers := types.NewGenericList(types.Number, false)
	tests := []struct {
		name        string
		left, right *types.Type
		want        types.Tri
	}{
		{"reflexive primitive", types.Number, types.Number, types.TriTrue},
		{"null into nullable", types.Null, types.Number.Nullable(), types.TriTrue},
		{"null into non-nullable", types.Null, types.Number, types.TriFalse},
		{"nullable into non-nullable", types.Number.Nullable(), types.Number, types.TriFalse},
		{"anything into any", types.NewDefinedList(nil, false), types.Any, types.TriTrue},
		{"null into anynonnull", types.Null, types.AnyNonNull, types.TriFalse},
		{"text into anynonnull", types.Text, types.AnyNonNull, types.TriTrue},
		{"union member", types.Text, types.NewAnyUnion(types.Number, types.Text), types.TriTrue},
		{"not a union member", types.Logical, types.NewAnyUnion(types.Number, types.Text), types.TriFalse},
		{"none into none", types.None, types.None, types.TriTrue},
		{"text into none", types.Text, types.None, types.TriFalse},
		{"unknown left", types.Unknown, types.Any, types.TriIndeterminate},
		{"unknown right", types.Number, types.Unknown, types.TriIndeterminate},
		{"defined list into list", types.NewDefinedList([]*types.Type{types.Text}, false), types.List, types.TriTrue},
		{"text into list", types.Text, types.List, types.TriFalse},
		{"nullable list into list", types.List.Nullable(), types.List, types.TriFalse},
		{"elements into generic list", types.NewDefinedList([]*types.Type{types.Number, types.Number}, false), numbers, types.TriTrue},
		{"mixed into generic list", types.NewDefinedList([]*types.Type{types.Number, types.Text}, false), numbers, types.TriFalse},
		{"anything into list of any", types.NewDefinedList([]*types.Type{types.Text}, false), types.NewGenericList(types.Any, false), types.TriTrue},
		{"plain list into generic list", types.List, numbers, types.TriFalse},
		{"defined list equality",
			types.NewDefinedList([]*types.Type{types.Text}, false),
			types.NewDefinedList([]*types.Type{types.Text}, true), types.TriTrue},
		{"record width", types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number}, {Name: "b", Type: types.Text}}, false, false),
			types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number}}, true, false), types.TriTrue},
		{"closed record width", types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number}, {Name: "b", Type: types.Text}}, false, false),
			types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number}}, false, false), types.TriFalse},
		{"record depth", types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Null}}, false, false),
			types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number.Nullable()}}, false, false), types.TriTrue},
		{"record into record", types.NewDefinedRecord(nil, false, false), types.Record, types.TriTrue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, types.IsSubset(tt.left, tt.right))
		})
	}
}

func TestSubsetReflexive(t *testing.T) {
	t.Parallel()
	for _, typ := range []*types.Type{
		types.Action, types.Any, types.AnyNonNull, types.Binary, types.Date, types.Logical,
		types.None, types.Null, types.Number, types.Table, types.Text, types.TypeType,
		types.NewGenericList(types.Text, false),
		types.NewDefinedList([]*types.Type{types.Number}, true),
		types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Number}}, false, false),
		types.NewAnyUnion(types.Number, types.Text),
	} {
		assert.Equal(t, types.TriTrue, types.IsSubset(typ, typ), typ.String())
	}
}

func TestUnknownMemberNeverConcrete(t *testing.T) {
	t.Parallel()
	record := func() *types.Type {
		return types.NewDefinedRecord([]types.Field{{Name: "a", Type: types.Unknown}}, false, false)
	}
	list := func() *types.Type {
		return types.NewDefinedList([]*types.Type{types.Number, types.Unknown}, false)
	}

	for name, build := range map[string]func() *types.Type{"record": record, "list": list} {
		t.Run(name, func(t *testing.T) {
			same, copied := build(), build()
			assert.Equal(t, types.TriIndeterminate, types.IsEqualType(same, same))
			assert.Equal(t, types.TriIndeterminate, types.IsEqualType(same, copied))
			assert.Equal(t, types.TriIndeterminate, types.IsSubset(same, same))
			assert.Equal(t, types.TriIndeterminate, types.IsSubset(same, copied))
		})
	}
}

// =============================================================================
// Expected types
// =============================================================================

func TestExpectedTypeIsTotal(t *testing.T) {
	t.Parallel()
	for _, kind := range ast.AllNodeKinds() {
		arity := kind.Arity()
		if arity == ast.Unbounded {
			arity = 3
		}
		for i := range arity {
			_, err := types.ExpectedType(kind, i)
			assert.NoError(t, err, "%s[%d]", kind, i)
		}
	}
}

func TestExpectedTypeOutOfRange(t *testing.T) {
	t.Parallel()
	for _, tt := range []struct {
		kind  ast.NodeKind
		index int
	}{
		{ast.KindIfExpression, 6},
		{ast.KindEachExpression, 2},
		{ast.KindIdentifier, 0},
		{ast.KindLetExpression, -1},
	} {
		_, err := types.ExpectedType(tt.kind, tt.index)
		var inv *errs.InvariantError
		require.True(t, errors.As(err, &inv), "%s[%d]", tt.kind, tt.index)
		assert.Equal(t, "unknown childIndex", inv.Message)
	}
}

func TestExpectedTypeTable(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind  ast.NodeKind
		index int
		want  types.Category
	}{
		{ast.KindIfExpression, 0, types.CategoryNotApplicable},
		{ast.KindIfExpression, 1, types.CategoryLogical},
		{ast.KindIfExpression, 3, types.CategoryExpression},
		{ast.KindIfExpression, 5, types.CategoryExpression},
		{ast.KindArithmeticExpression, 0, types.CategoryTypeExpression},
		{ast.KindArithmeticExpression, 1, types.CategoryNotApplicable},
		{ast.KindArithmeticExpression, 2, types.CategoryTypeExpression},
		{ast.KindAsExpression, 2, types.CategoryNullablePrimitive},
		{ast.KindSection, 0, types.CategoryRecord},
		{ast.KindSection, 4, types.CategoryNotApplicable},
		{ast.KindGeneralizedIdentifierPairedAnyLiteral, 2, types.CategoryAnyLiteral},
		{ast.KindFunctionExpression, 1, types.CategoryNullablePrimitive},
		{ast.KindFunctionExpression, 3, types.CategoryExpression},
		{ast.KindNullablePrimitiveType, 1, types.CategoryPrimitive},
		{ast.KindTableType, 0, types.CategoryNotApplicable},
		{ast.KindTableType, 1, types.CategoryPrimaryExpression},
		{ast.KindTypePrimaryType, 1, types.CategoryPrimaryType},
		{ast.KindListType, 1, types.CategoryTypeProduction},
		{ast.KindItemAccessExpression, 3, types.CategoryNotApplicable},
		{ast.KindArrayWrapper, 40, types.CategoryNotApplicable},
	}
	for _, tt := range tests {
		got, err := types.ExpectedType(tt.kind, tt.index)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s[%d]", tt.kind, tt.index)
	}
}

func TestCategoryAccepts(t *testing.T) {
	t.Parallel()
	assert.Equal(t, types.TriTrue, types.CategoryLogical.Accepts(types.Logical))
	assert.Equal(t, types.TriFalse, types.CategoryLogical.Accepts(types.Number))
	assert.Equal(t, types.TriIndeterminate, types.CategoryLogical.Accepts(types.Any))
	assert.Equal(t, types.TriIndeterminate, types.CategoryExpression.Accepts(types.Unknown))
	assert.Equal(t, types.TriTrue, types.CategoryExpression.Accepts(types.Text))
	assert.Equal(t, types.TriTrue, types.CategoryNotApplicable.Accepts(types.NotApplicable))
	assert.Equal(t, types.TriFalse, types.CategoryNotApplicable.Accepts(types.Number))
	assert.Equal(t, types.TriTrue, types.CategoryAnyLiteral.Accepts(types.Text))
	assert.Equal(t, types.TriFalse, types.CategoryAnyLiteral.Accepts(types.Date))
	assert.Equal(t, types.TriTrue, types.CategoryRecord.Accepts(types.NewDefinedRecord(nil, false, false)))
}

// Package typeinspect infers the type of syntax tree nodes.
//
// An Inspector memoizes every node it has typed and reuses scopes computed
// along the way, so asking for many nodes of one tree is cheap. Identifiers
// are typed through their definitions; a definition that is still being
// typed (a self or mutual reference) types as Unknown.
package typeinspect

import (
	"fmt"
	"maps"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/settings"
	"github.com/jward/mlens/internal/types"
)

// Inspector types nodes of one tree. It is not safe for concurrent use.
type Inspector struct {
	s      settings.Settings
	c      nodeidmap.Collection
	scopes scope.ByID

	memo       map[int]*types.Type
	inProgress map[int]bool
}

// New returns an inspector over c. cache seeds scope lookups and is never
// modified.
func New(s settings.Settings, c nodeidmap.Collection, cache scope.ByID) *Inspector {
	scopes := maps.Clone(cache)
	if scopes == nil {
		scopes = make(scope.ByID)
	}
	return &Inspector{
		s:          s,
		c:          c,
		scopes:     scopes,
		memo:       make(map[int]*types.Type),
		inProgress: make(map[int]bool),
	}
}

// Infer returns the type of n.
func (in *Inspector) Infer(n ast.Node) (t *types.Type, err error) {
	defer errs.Recover(in.s, &err)
	return in.infer(n)
}

// InferID returns the type of the node with the given id.
func (in *Inspector) InferID(id int) (t *types.Type, err error) {
	defer errs.Recover(in.s, &err)
	n, err := nodeidmap.ExpectXorNode(in.c, id)
	if err != nil {
		return nil, err
	}
	return in.infer(n)
}

// ScopeByID returns the scopes the inspector has seen, including the seed
// cache. Callers may merge it into their own cache.
func (in *Inspector) ScopeByID() scope.ByID {
	return in.scopes
}

func (in *Inspector) infer(n ast.Node) (*types.Type, error) {
	if t, ok := in.memo[n.ID()]; ok {
		return t, nil
	}
	if in.inProgress[n.ID()] {
		in.s.Log().Debug("type cycle", "nodeId", n.ID())
		return types.Unknown, nil
	}
	in.inProgress[n.ID()] = true
	defer delete(in.inProgress, n.ID())

	var (
		t   *types.Type
		err error
	)
	switch node := n.(type) {
	case *ast.AstNode:
		t, err = in.inferAst(node)
	case *ast.ContextNode:
		t, err = in.inferContext(node)
	default:
		errs.Unreachable("unknown node variant", map[string]any{"nodeId": n.ID()})
	}
	if err != nil {
		return nil, fmt.Errorf("type of %s %d: %w", n.Kind(), n.ID(), err)
	}
	in.memo[n.ID()] = t
	return t, nil
}

// Partially parsed records keep the fields read so far; a field whose
// value was not reached types as Unknown.
func (in *Inspector) inferContext(n *ast.ContextNode) (*types.Type, error) {
	switch n.Kind() {
	case ast.KindRecordExpression, ast.KindRecordLiteral:
		return in.inferRecord(n)
	default:
		return types.Unknown, nil
	}
}

func (in *Inspector) inferAst(n *ast.AstNode) (*types.Type, error) {
	switch n.Kind() {
	case ast.KindLiteralExpression:
		return literalType(n), nil

	case ast.KindIdentifier:
		return in.dereference(n)

	case ast.KindIdentifierExpression:
		ident, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), 1, ast.KindIdentifier)
		if err != nil || ident == nil {
			return types.Unknown, err
		}
		return in.infer(ident)

	case ast.KindRecordExpression, ast.KindRecordLiteral:
		return in.inferRecord(n)

	case ast.KindListExpression, ast.KindListLiteral:
		return in.inferList(n)

	case ast.KindFunctionExpression:
		return in.inferFunction(n)

	case ast.KindEachExpression:
		body, err := in.inferSlot(n, 1)
		if err != nil {
			return nil, err
		}
		return types.NewDefinedFunction([]types.Parameter{{Name: "_", IsNullable: true}}, body, false), nil

	case ast.KindIfExpression:
		return in.inferBranches(n, 3, 5)

	case ast.KindErrorHandlingExpression:
		otherwise, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), 2)
		if err != nil {
			return nil, err
		}
		if otherwise == nil {
			return types.Record, nil
		}
		return in.inferBranches(n, 1, 2)

	case ast.KindErrorRaisingExpression, ast.KindNotImplementedExpression:
		return types.None, nil

	case ast.KindLogicalExpression, ast.KindEqualityExpression,
		ast.KindRelationalExpression, ast.KindIsExpression:
		return types.Logical, nil

	case ast.KindAsExpression:
		typeNode, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), 2)
		if err != nil || typeNode == nil {
			return types.Unknown, err
		}
		prim, nullable, err := nodeidmap.NullablePrimitive(in.c, typeNode)
		if err != nil || prim == "" {
			return types.Unknown, err
		}
		return types.FromPrimitive(prim, nullable), nil

	case ast.KindArithmeticExpression:
		return in.inferArithmetic(n)

	case ast.KindUnaryExpression:
		return in.inferUnary(n)

	case ast.KindRecursivePrimaryExpression:
		return in.inferRecursivePrimary(n)

	case ast.KindTypePrimaryType:
		return types.TypeType, nil

	case ast.KindLetExpression:
		return in.inferSlot(n, 3)

	case ast.KindParenthesizedExpression, ast.KindOtherwiseExpression:
		return in.inferSlot(n, 1)

	case ast.KindMetadataExpression, ast.KindRangeExpression, ast.KindCsv:
		return in.inferSlot(n, 0)

	case ast.KindSectionMember, ast.KindIdentifierPairedExpression,
		ast.KindGeneralizedIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedAnyLiteral:
		return in.inferSlot(n, 2)

	case ast.KindArrayWrapper, ast.KindAsNullablePrimitiveType, ast.KindAsType, ast.KindConstant,
		ast.KindFieldProjection, ast.KindFieldSelector, ast.KindFieldSpecification,
		ast.KindFieldSpecificationList, ast.KindFieldTypeSpecification, ast.KindFunctionType,
		ast.KindGeneralizedIdentifier, ast.KindInvokeExpression, ast.KindIsNullablePrimitiveType,
		ast.KindItemAccessExpression, ast.KindListType, ast.KindNullablePrimitiveType,
		ast.KindNullableType, ast.KindParameter, ast.KindParameterList, ast.KindPrimitiveType,
		ast.KindRecordType, ast.KindSection, ast.KindTableType:
		return types.NotApplicable, nil

	default:
		errs.Unreachable("unhandled node kind", map[string]any{"nodeId": n.ID(), "kind": n.Kind().String()})
		return nil, nil
	}
}

func literalType(n *ast.AstNode) *types.Type {
	switch n.LiteralKind {
	case ast.LiteralLogical:
		return types.Logical
	case ast.LiteralNull:
		return types.Null
	case ast.LiteralNumeric:
		return types.Number
	case ast.LiteralText:
		return types.Text
	default:
		return types.Unknown
	}
}

// inferSlot types the child in slot attr, or Unknown when it is missing.
func (in *Inspector) inferSlot(n ast.Node, attr int) (*types.Type, error) {
	child, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), attr)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return types.Unknown, nil
	}
	return in.infer(child)
}

// inferBranches is the union of the given slots. It is Unknown as soon as
// one branch is.
func (in *Inspector) inferBranches(n ast.Node, attrs ...int) (*types.Type, error) {
	branches := make([]*types.Type, 0, len(attrs))
	for _, attr := range attrs {
		t, err := in.inferSlot(n, attr)
		if err != nil {
			return nil, err
		}
		if t.IsUnresolved() {
			return types.Unknown, nil
		}
		branches = append(branches, t)
	}
	return types.NewAnyUnion(branches...), nil
}

func (in *Inspector) inferRecord(n ast.Node) (*types.Type, error) {
	pairs, err := nodeidmap.RecordKeyValuePairs(in.c, n)
	if err != nil {
		return nil, err
	}
	fields := make([]types.Field, 0, len(pairs))
	for _, p := range pairs {
		t := types.Unknown
		if p.Value != nil {
			if t, err = in.infer(p.Value); err != nil {
				return nil, err
			}
		}
		fields = append(fields, types.Field{Name: p.KeyLiteral(), Type: t})
	}
	return types.NewDefinedRecord(fields, false, false), nil
}

// A list holding a range has an unknown length, so it becomes a generic
// list over the element types.
func (in *Inspector) inferList(n ast.Node) (*types.Type, error) {
	items, err := nodeidmap.WrappedContents(in.c, n)
	if err != nil {
		return nil, err
	}
	elements := make([]*types.Type, 0, len(items))
	hasRange := false
	for _, item := range items {
		t, err := in.infer(item)
		if err != nil {
			return nil, err
		}
		hasRange = hasRange || item.Kind() == ast.KindRangeExpression
		elements = append(elements, t)
	}
	if hasRange {
		return types.NewGenericList(types.NewAnyUnion(elements...), false), nil
	}
	return types.NewDefinedList(elements, false), nil
}

func (in *Inspector) inferFunction(n ast.Node) (*types.Type, error) {
	params, err := nodeidmap.FunctionParameters(in.c, n)
	if err != nil {
		return nil, err
	}
	signature := make([]types.Parameter, len(params))
	for i, p := range params {
		signature[i] = types.Parameter{
			Name:       p.Name.Literal,
			IsOptional: p.IsOptional,
			IsNullable: p.IsNullable,
		}
		if p.Type != "" {
			signature[i].Type = types.FromPrimitive(p.Type, p.IsNullable)
		}
	}

	var ret *types.Type
	prim, nullable, err := nodeidmap.FunctionReturnType(in.c, n)
	if err != nil {
		return nil, err
	}
	if prim != "" {
		ret = types.FromPrimitive(prim, nullable)
	} else if ret, err = in.inferSlot(n, 3); err != nil {
		return nil, err
	}
	return types.NewDefinedFunction(signature, ret, false), nil
}

// dereference types an identifier through the definition visible at it.
func (in *Inspector) dereference(ident *ast.AstNode) (*types.Type, error) {
	items, err := in.scopeAt(ident.ID())
	if err != nil {
		return nil, err
	}
	item, ok := items[ident.Literal]
	if !ok {
		return types.Unknown, nil
	}

	switch item := item.(type) {
	case *scope.KeyValuePairItem:
		return in.inferValue(item.Value)
	case *scope.SectionMemberItem:
		return in.inferValue(item.Value)
	case *scope.ParameterItem:
		if item.Type == "" {
			return types.Any, nil
		}
		return types.FromPrimitive(item.Type, item.IsNullable), nil
	case *scope.EachItem:
		return types.Any, nil
	case *scope.UndefinedItem:
		return types.Unknown, nil
	default:
		errs.Unreachable("unhandled scope item", map[string]any{"kind": item.Kind().String()})
		return nil, nil
	}
}

func (in *Inspector) inferValue(value ast.Node) (*types.Type, error) {
	if value == nil {
		return types.Unknown, nil
	}
	return in.infer(value)
}

func (in *Inspector) scopeAt(nodeID int) (scope.ItemByKey, error) {
	if items, ok := in.scopes[nodeID]; ok {
		return items, nil
	}
	ancestry, err := nodeidmap.ExpectAncestry(in.c, nodeID)
	if err != nil {
		return nil, err
	}
	delta, err := scope.ForTree(in.s, in.c, ancestry, in.scopes)
	if err != nil {
		return nil, err
	}
	in.scopes.Merge(delta)
	return in.scopes[nodeID], nil
}

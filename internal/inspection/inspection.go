// Package inspection answers cursor questions: which names are visible at a
// position, which call the cursor is inside, and where the identifier under
// the cursor is defined.
//
// Inspect climbs the active node's ancestry from the cursor outwards. Each
// ancestor looks at the child the cursor came through to decide what it
// contributes. The first binding recorded for a name wins, so inner
// bindings shadow outer ones.
package inspection

import (
	"github.com/jward/mlens/internal/activenode"
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/settings"
)

// Inspected is the result of one cursor inspection.
type Inspected struct {
	Scope scope.ItemByKey
	// InvokeExpression is the innermost call the cursor is an argument of.
	InvokeExpression *InvokeExpression
	// PositionIdentifier is set when the cursor is on an identifier.
	PositionIdentifier *PositionIdentifier
}

// InvokeExpression describes a call around the cursor.
type InvokeExpression struct {
	Node ast.Node
	// Name is the called identifier, or "" when the callee is not a plain
	// identifier.
	Name      string
	Arguments *InvokeArguments
}

// InvokeArguments locates the cursor among a call's arguments.
type InvokeArguments struct {
	NumArguments          int
	PositionArgumentIndex int
}

// PositionIdentifierKind tells whether the identifier under the cursor was
// resolved.
type PositionIdentifierKind int

const (
	PositionUndefined PositionIdentifierKind = iota
	PositionLocal
)

func (k PositionIdentifierKind) String() string {
	if k == PositionLocal {
		return "Local"
	}
	return "Undefined"
}

// PositionIdentifier is the identifier under the cursor and, when Local,
// the value node it is bound to.
type PositionIdentifier struct {
	Kind       PositionIdentifierKind
	Identifier *ast.AstNode
	Definition ast.Node
}

// Inspect runs the identifier inspection for an. A nil active node yields
// an empty result.
func Inspect(s settings.Settings, an *activenode.ActiveNode, c nodeidmap.Collection) (result *Inspected, err error) {
	result = &Inspected{Scope: scope.ItemByKey{}}
	if an == nil {
		return result, nil
	}
	defer func() {
		if err != nil {
			result = nil
		}
	}()
	defer errs.Recover(s, &err)

	st := &state{an: an, c: c, result: result}
	for i, n := range an.Ancestry {
		if err := st.inspect(i, n); err != nil {
			return nil, err
		}
	}
	if an.IdentifierUnderPosition != nil && result.PositionIdentifier == nil {
		result.PositionIdentifier = &PositionIdentifier{
			Kind:       PositionUndefined,
			Identifier: an.IdentifierUnderPosition,
		}
	}
	s.Log().Debug("identifier inspection", "position", an.Position.String(), "names", len(result.Scope))
	return result, nil
}

type state struct {
	an     *activenode.ActiveNode
	c      nodeidmap.Collection
	result *Inspected
}

func (st *state) inspect(index int, n ast.Node) error {
	switch n.Kind() {
	case ast.KindEachExpression:
		return st.inspectEach(index, n)
	case ast.KindFunctionExpression:
		return st.inspectFunction(index, n)
	case ast.KindIdentifier:
		return st.inspectIdentifier(index, n)
	case ast.KindIdentifierExpression:
		return st.inspectIdentifierExpression(n)
	case ast.KindInvokeExpression:
		return st.inspectInvoke(index, n)
	case ast.KindLetExpression:
		return st.inspectLet(index, n)
	case ast.KindRecordExpression, ast.KindRecordLiteral:
		return st.inspectRecord(index, n)
	case ast.KindSectionMember:
		return st.inspectSectionMember(index, n)
	default:
		return nil
	}
}

func (st *state) addIfNew(key string, item scope.Item) {
	if _, ok := st.result.Scope[key]; !ok {
		st.result.Scope[key] = item
	}
}

// previousAttribute is the slot the cursor came through to reach index.
func (st *state) previousAttribute(index int) (int, bool) {
	prev, err := st.an.Previous(index, 1)
	if err != nil || prev == nil {
		return ast.NoAttribute, false
	}
	return prev.AttributeIndex()
}

func (st *state) inspectEach(index int, each ast.Node) error {
	if attr, ok := st.previousAttribute(index); !ok || attr != 1 {
		return nil
	}
	st.addIfNew("_", &scope.EachItem{ID: each.ID(), EachExpression: each})
	return nil
}

func (st *state) inspectFunction(index int, fn ast.Node) error {
	if attr, ok := st.previousAttribute(index); !ok || attr != 3 {
		return nil
	}
	params, err := nodeidmap.FunctionParameters(st.c, fn)
	if err != nil {
		return err
	}
	for _, p := range params {
		st.addIfNew(p.Name.Literal, &scope.ParameterItem{
			ID:         p.Node.ID(),
			Name:       p.Name,
			IsOptional: p.IsOptional,
			IsNullable: p.IsNullable,
			Type:       p.Type,
		})
	}
	return nil
}

// A bare identifier only counts when it is the node under the cursor and
// not the name inside an identifier expression, which handles it instead.
func (st *state) inspectIdentifier(index int, n ast.Node) error {
	ident, ok := n.(*ast.AstNode)
	if index != 0 || !ok {
		return nil
	}
	parent, err := st.an.Next(index, 1)
	if err != nil {
		return err
	}
	if ast.IsKind(parent, ast.KindIdentifierExpression) || !st.pastStart(ident) {
		return nil
	}
	st.addIfNew(ident.Literal, &scope.UndefinedItem{ID: ident.ID(), Node: ident})
	return nil
}

// pastStart reports whether the cursor is beyond the first character of n.
// A caret right before a name does not see it; nodes without a known start
// always count.
func (st *state) pastStart(n ast.Node) bool {
	start, ok := ast.StartOf(n)
	return !ok || st.an.Position.After(start)
}

func (st *state) inspectIdentifierExpression(n ast.Node) error {
	if !st.pastStart(n) {
		return nil
	}
	key, err := nodeidmap.IdentifierExpressionLiteral(st.c, n)
	if err != nil {
		return err
	}
	if key == "" && ast.IsContext(n) {
		// A partial expression may hold only the "@".
		inclusive, err := nodeidmap.AstChildByAttributeIndex(st.c, n.ID(), 0, ast.KindConstant)
		if err != nil {
			return err
		}
		if inclusive != nil {
			key = inclusive.Literal
		}
	}
	if key == "" {
		return nil
	}
	st.addIfNew(key, &scope.UndefinedItem{ID: n.ID(), Node: n})
	return nil
}

func (st *state) inspectInvoke(index int, invoke ast.Node) error {
	if st.result.InvokeExpression != nil {
		return nil
	}
	if _, ok := invoke.(*ast.AstNode); ok {
		content, err := nodeidmap.AstChildByAttributeIndex(st.c, invoke.ID(), 1)
		if err != nil {
			return err
		}
		if content == nil || !content.Span.Contains(st.an.Position) {
			return nil
		}
	}

	name, err := nodeidmap.InvokeExpressionName(st.c, invoke)
	if err != nil {
		return err
	}
	args, err := st.invokeArguments(index, invoke)
	if err != nil {
		return err
	}
	st.result.InvokeExpression = &InvokeExpression{Node: invoke, Name: name, Arguments: args}
	return nil
}

// invokeArguments counts the call's arguments and finds the Csv the cursor
// came through. A cursor on the parentheses themselves is at argument 0.
func (st *state) invokeArguments(index int, invoke ast.Node) (*InvokeArguments, error) {
	wrapper, err := nodeidmap.XorChildByAttributeIndex(st.c, invoke.ID(), 1, ast.KindArrayWrapper)
	if err != nil || wrapper == nil {
		return nil, err
	}
	args := &InvokeArguments{NumArguments: len(st.c.ChildIDs(wrapper.ID()))}
	if prev, _ := st.an.Previous(index, 1); prev == nil || prev.ID() != wrapper.ID() {
		return args, nil
	}
	csv, err := st.an.Previous(index, 2, ast.KindCsv)
	if err != nil {
		return nil, err
	}
	if csv != nil {
		if attr, ok := csv.AttributeIndex(); ok {
			args.PositionArgumentIndex = attr
		}
	}
	return args, nil
}

// pairUnderCursor returns the paired expression whose value the cursor is
// inside, for a let or record at index: wrapper, Csv and pair lie between
// the node and the value.
func (st *state) pairUnderCursor(index int) (ast.Node, bool) {
	pair, _ := st.an.Previous(index, 3)
	value, _ := st.an.Previous(index, 4)
	if pair == nil || value == nil || !ast.IsKind(pair,
		ast.KindIdentifierPairedExpression,
		ast.KindGeneralizedIdentifierPairedExpression,
		ast.KindGeneralizedIdentifierPairedAnyLiteral) {
		return nil, false
	}
	attr, ok := value.AttributeIndex()
	return pair, ok && attr == 2
}

func (st *state) inspectLet(index int, let ast.Node) error {
	var skip ast.Node
	if attr, ok := st.previousAttribute(index); !ok || attr != 3 {
		pair, inValue := st.pairUnderCursor(index)
		if !inValue {
			return nil
		}
		if _, err := st.an.Previous(index, 1, ast.KindArrayWrapper); err != nil {
			return err
		}
		skip = pair
	}

	pairs, err := nodeidmap.LetKeyValuePairs(st.c, let)
	if err != nil {
		return err
	}
	st.addPairs(pairs, skip, func(p nodeidmap.KeyValuePair) scope.Item {
		return &scope.KeyValuePairItem{ID: p.Source.ID(), Key: p.Key, Value: p.Value}
	})
	return nil
}

func (st *state) inspectRecord(index int, record ast.Node) error {
	if _, inValue := st.pairUnderCursor(index); !inValue {
		return nil
	}
	if _, err := st.an.Previous(index, 1, ast.KindArrayWrapper); err != nil {
		return err
	}
	pair, err := st.an.Previous(index, 3,
		ast.KindGeneralizedIdentifierPairedExpression, ast.KindGeneralizedIdentifierPairedAnyLiteral)
	if err != nil {
		return err
	}

	pairs, err := nodeidmap.RecordKeyValuePairs(st.c, record)
	if err != nil {
		return err
	}
	st.addPairs(pairs, pair, func(p nodeidmap.KeyValuePair) scope.Item {
		return &scope.KeyValuePairItem{ID: p.Source.ID(), Key: p.Key, Value: p.Value}
	})
	return nil
}

// A section member contributes its siblings while the cursor is inside its
// value.
func (st *state) inspectSectionMember(index int, member ast.Node) error {
	pair, err := st.an.Previous(index, 1)
	if err != nil || !ast.IsKind(pair, ast.KindIdentifierPairedExpression) {
		return err
	}
	value, err := st.an.Previous(index, 2)
	if err != nil || value == nil {
		return err
	}
	if attr, ok := value.AttributeIndex(); !ok || attr != 2 {
		return nil
	}

	wrapper, err := st.an.Next(index, 1, ast.KindArrayWrapper)
	if err != nil || wrapper == nil {
		return err
	}
	members, err := nodeidmap.XorChildren(st.c, wrapper.ID())
	if err != nil {
		return err
	}
	var pairs []nodeidmap.KeyValuePair
	for _, m := range members {
		if m.ID() == member.ID() {
			continue
		}
		p, err := nodeidmap.XorChildByAttributeIndex(st.c, m.ID(), 2, ast.KindIdentifierPairedExpression)
		if err != nil {
			return err
		}
		if p == nil {
			continue
		}
		key, err := nodeidmap.AstChildByAttributeIndex(st.c, p.ID(), 0, ast.KindIdentifier)
		if err != nil {
			return err
		}
		if key == nil {
			continue
		}
		v, err := nodeidmap.XorChildByAttributeIndex(st.c, p.ID(), 2)
		if err != nil {
			return err
		}
		pairs = append(pairs, nodeidmap.KeyValuePair{Source: p, Key: key, Value: v})
	}
	st.addPairs(pairs, nil, func(p nodeidmap.KeyValuePair) scope.Item {
		return &scope.SectionMemberItem{ID: p.Source.ID(), Key: p.Key, Value: p.Value}
	})
	return nil
}

// addPairs adds every pair except skip and resolves the identifier under
// the cursor against their keys.
func (st *state) addPairs(pairs []nodeidmap.KeyValuePair, skip ast.Node, item func(nodeidmap.KeyValuePair) scope.Item) {
	for _, p := range pairs {
		if skip != nil && p.Source.ID() == skip.ID() {
			continue
		}
		st.addIfNew(p.KeyLiteral(), item(p))
		if p.Value != nil {
			st.resolvePosition(p.Key, p.Value)
		}
	}
}

func (st *state) resolvePosition(key *ast.AstNode, value ast.Node) {
	under := st.an.IdentifierUnderPosition
	if under == nil || st.result.PositionIdentifier != nil || key.Literal != under.Literal {
		return
	}
	st.result.PositionIdentifier = &PositionIdentifier{
		Kind:       PositionLocal,
		Identifier: key,
		Definition: value,
	}
}

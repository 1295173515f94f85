package typeinspect

import (
	"strconv"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/types"
)

func (in *Inspector) inferArithmetic(n ast.Node) (*types.Type, error) {
	op, err := nodeidmap.AstChildByAttributeIndex(in.c, n.ID(), 1, ast.KindConstant)
	if err != nil || op == nil {
		return types.Unknown, err
	}
	left, err := in.inferSlot(n, 0)
	if err != nil {
		return nil, err
	}
	right, err := in.inferSlot(n, 2)
	if err != nil {
		return nil, err
	}
	if left.IsUnresolved() || right.IsUnresolved() {
		return types.Unknown, nil
	}
	if left.Kind == types.KindNull || right.Kind == types.KindNull {
		return types.Null, nil
	}

	kind, ok := arithmeticResult(op.Literal, left.Kind, right.Kind)
	if !ok {
		return types.Unknown, nil
	}
	return types.Primitive(kind, left.IsNullable || right.IsNullable), nil
}

// arithmeticResult is the result kind of "l op r" for the operand kinds M
// defines the operator on.
func arithmeticResult(op string, l, r types.Kind) (types.Kind, bool) {
	isTemporal := func(k types.Kind) bool {
		return k == types.KindDate || k == types.KindDateTime || k == types.KindDateTimeZone || k == types.KindTime
	}

	switch op {
	case "&":
		if l == r && (l == types.KindText || l == types.KindList || l == types.KindRecord || l == types.KindTable) {
			return l, true
		}
		if l == types.KindDate && r == types.KindTime {
			return types.KindDateTime, true
		}
	case "+":
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, true
		case l == types.KindDuration && r == types.KindDuration:
			return types.KindDuration, true
		case isTemporal(l) && r == types.KindDuration:
			return l, true
		case l == types.KindDuration && isTemporal(r):
			return r, true
		}
	case "-":
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, true
		case l == types.KindDuration && r == types.KindDuration:
			return types.KindDuration, true
		case isTemporal(l) && r == types.KindDuration:
			return l, true
		case isTemporal(l) && l == r:
			return types.KindDuration, true
		}
	case "*":
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, true
		case l == types.KindDuration && r == types.KindNumber, l == types.KindNumber && r == types.KindDuration:
			return types.KindDuration, true
		}
	case "/":
		switch {
		case l == types.KindNumber && r == types.KindNumber:
			return types.KindNumber, true
		case l == types.KindDuration && r == types.KindNumber:
			return types.KindDuration, true
		case l == types.KindDuration && r == types.KindDuration:
			return types.KindNumber, true
		}
	}
	return 0, false
}

// The operators sit in an ArrayWrapper in slot 0; any "not" makes the
// result logical, while "+" and "-" keep the operand's type.
func (in *Inspector) inferUnary(n ast.Node) (*types.Type, error) {
	wrapper, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), 0, ast.KindArrayWrapper)
	if err != nil {
		return nil, err
	}
	if wrapper != nil {
		ops, err := nodeidmap.XorChildren(in.c, wrapper.ID())
		if err != nil {
			return nil, err
		}
		for _, op := range ops {
			if leaf, ok := op.(*ast.AstNode); ok && leaf.Literal == "not" {
				return types.Logical, nil
			}
		}
	}
	return in.inferSlot(n, 1)
}

// inferRecursivePrimary applies each suffix in turn to the head's type.
func (in *Inspector) inferRecursivePrimary(n ast.Node) (*types.Type, error) {
	current, err := in.inferSlot(n, 0)
	if err != nil {
		return nil, err
	}
	wrapper, err := nodeidmap.XorChildByAttributeIndex(in.c, n.ID(), 1, ast.KindArrayWrapper)
	if err != nil || wrapper == nil {
		return current, err
	}
	suffixes, err := nodeidmap.XorChildren(in.c, wrapper.ID())
	if err != nil {
		return nil, err
	}
	for _, suffix := range suffixes {
		if current.IsUnresolved() {
			return types.Unknown, nil
		}
		if ast.IsContext(suffix) {
			return types.Unknown, nil
		}
		switch suffix.Kind() {
		case ast.KindInvokeExpression:
			current = invokeResult(current)
		case ast.KindFieldSelector:
			if current, err = in.selectField(current, suffix); err != nil {
				return nil, err
			}
		case ast.KindFieldProjection:
			current = projectionResult(current)
		case ast.KindItemAccessExpression:
			if current, err = in.accessItem(current, suffix); err != nil {
				return nil, err
			}
		default:
			return types.Unknown, nil
		}
	}
	return current, nil
}

func invokeResult(callee *types.Type) *types.Type {
	switch {
	case callee.Extended == types.ExtDefinedFunction:
		if callee.Return == nil {
			return types.Any
		}
		return callee.Return
	case callee.Kind == types.KindFunction, callee.Kind == types.KindAny:
		return types.Any
	default:
		return types.Unknown
	}
}

func projectionResult(t *types.Type) *types.Type {
	switch t.Kind {
	case types.KindRecord:
		return types.Record
	case types.KindTable:
		return types.Table
	case types.KindAny:
		return types.Any
	default:
		return types.Unknown
	}
}

// optionalSuffix reports whether a selector or item access ends in "?".
func (in *Inspector) optionalSuffix(suffix ast.Node) (bool, error) {
	mark, err := nodeidmap.XorChildByAttributeIndex(in.c, suffix.ID(), 3, ast.KindConstant)
	return mark != nil, err
}

func (in *Inspector) selectField(t *types.Type, selector ast.Node) (*types.Type, error) {
	name, err := nodeidmap.AstChildByAttributeIndex(in.c, selector.ID(), 1, ast.KindGeneralizedIdentifier)
	if err != nil || name == nil {
		return types.Unknown, err
	}
	optional, err := in.optionalSuffix(selector)
	if err != nil {
		return nil, err
	}

	switch {
	case t.Extended == types.ExtDefinedRecord:
		if field, ok := t.Field(name.Literal); ok {
			return field, nil
		}
		if optional {
			return types.Null, nil
		}
		if t.IsOpen {
			return types.Any, nil
		}
		return types.Unknown, nil
	case t.Kind == types.KindRecord, t.Kind == types.KindAny:
		return types.Any, nil
	case t.Kind == types.KindTable:
		// Selecting a column of a table yields the column as a list.
		return types.NewGenericList(types.Any, false), nil
	default:
		return types.Unknown, nil
	}
}

func (in *Inspector) accessItem(t *types.Type, access ast.Node) (*types.Type, error) {
	optional, err := in.optionalSuffix(access)
	if err != nil {
		return nil, err
	}
	var item *types.Type
	switch {
	case t.Extended == types.ExtGenericList:
		item = t.Item
	case t.Extended == types.ExtDefinedList:
		item, err = in.definedListItem(t, access)
		if err != nil {
			return nil, err
		}
	case t.Kind == types.KindList, t.Kind == types.KindAny:
		item = types.Any
	case t.Kind == types.KindTable:
		item = types.Record
	default:
		return types.Unknown, nil
	}
	if optional {
		return item.Nullable(), nil
	}
	return item, nil
}

// definedListItem picks the element a numeric literal index names, or the
// union of all elements when the index is not a literal.
func (in *Inspector) definedListItem(t *types.Type, access ast.Node) (*types.Type, error) {
	child, err := nodeidmap.XorChildByAttributeIndex(in.c, access.ID(), 1)
	if err != nil {
		return nil, err
	}
	if index, ok := child.(*ast.AstNode); ok && index.LiteralKind == ast.LiteralNumeric {
		i, convErr := strconv.Atoi(index.Literal)
		if convErr == nil && i >= 0 && i < len(t.Elements) {
			return t.Elements[i], nil
		}
		return types.Unknown, nil
	}
	return types.NewAnyUnion(t.Elements...), nil
}

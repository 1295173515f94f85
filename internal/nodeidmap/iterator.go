package nodeidmap

import (
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
)

// KeyValuePair is one binding of a let, record or section.
type KeyValuePair struct {
	// Source is the paired expression holding key and value.
	Source ast.Node
	Key    *ast.AstNode
	// Value is nil when the parser had not reached it.
	Value ast.Node
}

// KeyLiteral returns the bound name.
func (p KeyValuePair) KeyLiteral() string {
	return p.Key.Literal
}

// CsvContents returns the elements of a comma separated ArrayWrapper. It
// stops at the first Csv whose content is missing.
func CsvContents(c Collection, wrapper ast.Node) ([]ast.Node, error) {
	if wrapper == nil {
		return nil, nil
	}
	if err := checkKind(wrapper, []ast.NodeKind{ast.KindArrayWrapper}); err != nil {
		return nil, err
	}
	csvs, err := XorChildren(c, wrapper.ID())
	if err != nil {
		return nil, err
	}
	contents := make([]ast.Node, 0, len(csvs))
	for _, csv := range csvs {
		if err := checkKind(csv, []ast.NodeKind{ast.KindCsv}); err != nil {
			return nil, err
		}
		content, err := XorChildByAttributeIndex(c, csv.ID(), 0)
		if err != nil {
			return nil, err
		}
		if content == nil {
			break
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// WrappedContents returns the Csv elements of a bracketed node whose slot 1
// holds the ArrayWrapper (lists, records, parameter lists, invocations).
func WrappedContents(c Collection, n ast.Node) ([]ast.Node, error) {
	wrapper, err := XorChildByAttributeIndex(c, n.ID(), 1, ast.KindArrayWrapper)
	if err != nil {
		return nil, err
	}
	return CsvContents(c, wrapper)
}

// LetKeyValuePairs returns the bindings of a LetExpression in source order.
func LetKeyValuePairs(c Collection, let ast.Node) ([]KeyValuePair, error) {
	if err := checkKind(let, []ast.NodeKind{ast.KindLetExpression}); err != nil {
		return nil, err
	}
	contents, err := WrappedContents(c, let)
	if err != nil {
		return nil, err
	}
	return pairsOf(c, contents, ast.KindIdentifierPairedExpression, ast.KindIdentifier)
}

// RecordKeyValuePairs returns the fields of a RecordExpression or
// RecordLiteral in source order.
func RecordKeyValuePairs(c Collection, record ast.Node) ([]KeyValuePair, error) {
	if err := checkKind(record, []ast.NodeKind{ast.KindRecordExpression, ast.KindRecordLiteral}); err != nil {
		return nil, err
	}
	contents, err := WrappedContents(c, record)
	if err != nil {
		return nil, err
	}
	pairKind := ast.KindGeneralizedIdentifierPairedExpression
	if record.Kind() == ast.KindRecordLiteral {
		pairKind = ast.KindGeneralizedIdentifierPairedAnyLiteral
	}
	return pairsOf(c, contents, pairKind, ast.KindGeneralizedIdentifier)
}

// SectionMemberKeyValuePairs returns the members of a Section.
func SectionMemberKeyValuePairs(c Collection, section ast.Node) ([]KeyValuePair, error) {
	if err := checkKind(section, []ast.NodeKind{ast.KindSection}); err != nil {
		return nil, err
	}
	wrapper, err := XorChildByAttributeIndex(c, section.ID(), 4, ast.KindArrayWrapper)
	if err != nil || wrapper == nil {
		return nil, err
	}
	members, err := XorChildren(c, wrapper.ID())
	if err != nil {
		return nil, err
	}
	var paired []ast.Node
	for _, member := range members {
		if err := checkKind(member, []ast.NodeKind{ast.KindSectionMember}); err != nil {
			return nil, err
		}
		pair, err := XorChildByAttributeIndex(c, member.ID(), 2, ast.KindIdentifierPairedExpression)
		if err != nil {
			return nil, err
		}
		if pair != nil {
			paired = append(paired, pair)
		}
	}
	return pairsOf(c, paired, ast.KindIdentifierPairedExpression, ast.KindIdentifier)
}

// pairsOf reads key and value from each paired expression. Pairs whose key
// is missing or partial are skipped.
func pairsOf(c Collection, nodes []ast.Node, pairKind, keyKind ast.NodeKind) ([]KeyValuePair, error) {
	pairs := make([]KeyValuePair, 0, len(nodes))
	for _, n := range nodes {
		if err := checkKind(n, []ast.NodeKind{pairKind}); err != nil {
			return nil, err
		}
		key, err := AstChildByAttributeIndex(c, n.ID(), 0, keyKind)
		if err != nil {
			return nil, err
		}
		if key == nil {
			continue
		}
		value, err := XorChildByAttributeIndex(c, n.ID(), 2)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, KeyValuePair{Source: n, Key: key, Value: value})
	}
	return pairs, nil
}

// Parameter describes one declared function parameter.
type Parameter struct {
	Node       ast.Node
	Name       *ast.AstNode
	IsOptional bool
	IsNullable bool
	// Type is empty when the parameter has no type annotation.
	Type ast.PrimitiveTypeName
}

// FunctionParameters returns the parameters of a FunctionExpression that
// have a concrete name.
func FunctionParameters(c Collection, fn ast.Node) ([]Parameter, error) {
	if err := checkKind(fn, []ast.NodeKind{ast.KindFunctionExpression}); err != nil {
		return nil, err
	}
	list, err := XorChildByAttributeIndex(c, fn.ID(), 0, ast.KindParameterList)
	if err != nil || list == nil {
		return nil, err
	}
	nodes, err := WrappedContents(c, list)
	if err != nil {
		return nil, err
	}

	params := make([]Parameter, 0, len(nodes))
	for _, n := range nodes {
		if err := checkKind(n, []ast.NodeKind{ast.KindParameter}); err != nil {
			return nil, err
		}
		name, err := AstChildByAttributeIndex(c, n.ID(), 1, ast.KindIdentifier)
		if err != nil {
			return nil, err
		}
		if name == nil {
			continue
		}
		optional, err := XorChildByAttributeIndex(c, n.ID(), 0, ast.KindConstant)
		if err != nil {
			return nil, err
		}
		p := Parameter{Node: n, Name: name, IsOptional: optional != nil, IsNullable: true}

		typeNode, err := XorChildByAttributeIndex(c, n.ID(), 2)
		if err != nil {
			return nil, err
		}
		if typeNode != nil {
			prim, nullable, err := NullablePrimitive(c, typeNode)
			if err != nil {
				return nil, err
			}
			if prim != "" {
				p.Type = prim
				p.IsNullable = nullable
			}
		}
		params = append(params, p)
	}
	return params, nil
}

// FunctionReturnType returns the declared return type of a
// FunctionExpression, or "" when there is none.
func FunctionReturnType(c Collection, fn ast.Node) (ast.PrimitiveTypeName, bool, error) {
	typeNode, err := XorChildByAttributeIndex(c, fn.ID(), 1)
	if err != nil || typeNode == nil {
		return "", false, err
	}
	return NullablePrimitive(c, typeNode)
}

// NullablePrimitive reads a primitive type annotation through any of its
// wrappers (as/is clauses, nullable). An annotation is nullable when it is
// wrapped in nullable or names any or null. Partial annotations yield "".
func NullablePrimitive(c Collection, n ast.Node) (ast.PrimitiveTypeName, bool, error) {
	switch n.Kind() {
	case ast.KindAsNullablePrimitiveType, ast.KindIsNullablePrimitiveType:
		inner, err := XorChildByAttributeIndex(c, n.ID(), 1, ast.KindNullablePrimitiveType, ast.KindPrimitiveType)
		if err != nil || inner == nil {
			return "", false, err
		}
		return NullablePrimitive(c, inner)

	case ast.KindNullablePrimitiveType:
		inner, err := AstChildByAttributeIndex(c, n.ID(), 1, ast.KindPrimitiveType)
		if err != nil || inner == nil {
			return "", false, err
		}
		return ast.PrimitiveTypeName(inner.Literal), true, nil

	case ast.KindPrimitiveType:
		leaf, ok := n.(*ast.AstNode)
		if !ok {
			return "", false, nil
		}
		name := ast.PrimitiveTypeName(leaf.Literal)
		return name, name == ast.PrimitiveAny || name == ast.PrimitiveNull, nil

	default:
		return "", false, errs.Invariant("expected a primitive type annotation", map[string]any{
			"nodeId": n.ID(),
			"kind":   n.Kind().String(),
		})
	}
}

// InvokeExpressionName returns the name of the function an InvokeExpression
// calls, when the call is the first suffix of a recursive primary expression
// headed by an identifier. "@" is kept for inclusive identifiers.
func InvokeExpressionName(c Collection, invoke ast.Node) (string, error) {
	if err := checkKind(invoke, []ast.NodeKind{ast.KindInvokeExpression}); err != nil {
		return "", err
	}
	if attr, _ := invoke.AttributeIndex(); attr != 0 {
		return "", nil
	}
	wrapper, err := ParentXorNode(c, invoke.ID())
	if err != nil || !ast.IsKind(wrapper, ast.KindArrayWrapper) {
		return "", err
	}
	recursive, err := ParentXorNode(c, wrapper.ID())
	if err != nil || !ast.IsKind(recursive, ast.KindRecursivePrimaryExpression) {
		return "", err
	}
	head, err := XorChildByAttributeIndex(c, recursive.ID(), 0)
	if err != nil || !ast.IsKind(head, ast.KindIdentifierExpression) {
		return "", err
	}
	return IdentifierExpressionLiteral(c, head)
}

// IdentifierExpressionLiteral returns the text of an IdentifierExpression,
// including a leading "@" when present. Partial expressions without an
// identifier yield "".
func IdentifierExpressionLiteral(c Collection, n ast.Node) (string, error) {
	inclusive, err := XorChildByAttributeIndex(c, n.ID(), 0, ast.KindConstant)
	if err != nil {
		return "", err
	}
	ident, err := AstChildByAttributeIndex(c, n.ID(), 1, ast.KindIdentifier)
	if err != nil || ident == nil {
		return "", err
	}
	if inclusive != nil {
		return "@" + ident.Literal, nil
	}
	return ident.Literal, nil
}

package types

import (
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
)

// Category is the kind of construct a grammar slot requires, regardless of
// what was parsed into it.
type Category int

const (
	CategoryNotApplicable Category = iota
	CategoryExpression
	CategoryTypeExpression
	CategoryLogical
	CategoryNullablePrimitive
	CategoryPrimitive
	CategoryTypeProduction
	CategoryAnyLiteral
	CategoryPrimaryExpression
	CategoryPrimaryType
	CategoryRecord
)

var categoryNames = [...]string{
	CategoryNotApplicable:     "NotApplicable",
	CategoryExpression:        "Expression",
	CategoryTypeExpression:    "TypeExpression",
	CategoryLogical:           "Logical",
	CategoryNullablePrimitive: "NullablePrimitive",
	CategoryPrimitive:         "Primitive",
	CategoryTypeProduction:    "TypeProduction",
	CategoryAnyLiteral:        "AnyLiteral",
	CategoryPrimaryExpression: "PrimaryExpression",
	CategoryPrimaryType:       "PrimaryType",
	CategoryRecord:            "Record",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(?)"
	}
	return categoryNames[c]
}

// ExpectedType returns the category the grammar requires of the child at
// childIndex under a parent of kind parentKind. An index the production does
// not have is an invariant error.
func ExpectedType(parentKind ast.NodeKind, childIndex int) (Category, error) {
	if !parentKind.IsValid() {
		return CategoryNotApplicable, errs.Invariant("unknown parent kind", map[string]any{"parentNodeKind": int(parentKind)})
	}
	if !parentKind.HasAttribute(childIndex) {
		return CategoryNotApplicable, errs.Invariant("unknown childIndex", map[string]any{
			"parentNodeKind": parentKind.String(),
			"childIndex":     childIndex,
		})
	}

	switch parentKind {
	case ast.KindArrayWrapper, ast.KindConstant, ast.KindCsv, ast.KindGeneralizedIdentifier,
		ast.KindIdentifier, ast.KindIdentifierExpression, ast.KindInvokeExpression,
		ast.KindFieldProjection, ast.KindFieldSelector, ast.KindFieldSpecificationList,
		ast.KindListExpression, ast.KindListLiteral, ast.KindLiteralExpression,
		ast.KindRecordLiteral, ast.KindRecordType, ast.KindParameter, ast.KindParameterList,
		ast.KindPrimitiveType, ast.KindRecordExpression, ast.KindRecursivePrimaryExpression,
		ast.KindErrorRaisingExpression, ast.KindNotImplementedExpression:
		return CategoryNotApplicable, nil

	case ast.KindArithmeticExpression, ast.KindEqualityExpression, ast.KindLogicalExpression,
		ast.KindRelationalExpression, ast.KindMetadataExpression:
		return pick(childIndex, CategoryTypeExpression, CategoryNotApplicable, CategoryTypeExpression), nil

	case ast.KindAsExpression, ast.KindIsExpression:
		return pick(childIndex, CategoryTypeExpression, CategoryNotApplicable, CategoryNullablePrimitive), nil

	case ast.KindSection, ast.KindSectionMember:
		return pick(childIndex, CategoryRecord), nil

	case ast.KindAsType, ast.KindFieldTypeSpecification, ast.KindNullableType:
		return pick(childIndex, CategoryNotApplicable, CategoryTypeProduction), nil

	case ast.KindAsNullablePrimitiveType, ast.KindIsNullablePrimitiveType:
		return pick(childIndex, CategoryNotApplicable, CategoryNullablePrimitive), nil

	case ast.KindEachExpression, ast.KindOtherwiseExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindErrorHandlingExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryExpression, CategoryNotApplicable), nil

	case ast.KindGeneralizedIdentifierPairedAnyLiteral:
		return pick(childIndex, CategoryNotApplicable, CategoryNotApplicable, CategoryAnyLiteral), nil

	case ast.KindGeneralizedIdentifierPairedExpression, ast.KindIdentifierPairedExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindFieldSpecification:
		return pick(childIndex, CategoryNotApplicable, CategoryNotApplicable, CategoryTypeProduction), nil

	case ast.KindFunctionExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryNullablePrimitive, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindFunctionType:
		return pick(childIndex, CategoryNotApplicable, CategoryNotApplicable, CategoryNullablePrimitive), nil

	case ast.KindIfExpression:
		return pick(childIndex,
			CategoryNotApplicable, CategoryLogical,
			CategoryNotApplicable, CategoryExpression,
			CategoryNotApplicable, CategoryExpression), nil

	case ast.KindItemAccessExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindLetExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryNotApplicable, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindListType:
		return pick(childIndex, CategoryNotApplicable, CategoryTypeProduction), nil

	case ast.KindNullablePrimitiveType:
		return pick(childIndex, CategoryNotApplicable, CategoryPrimitive), nil

	case ast.KindParenthesizedExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindRangeExpression:
		return pick(childIndex, CategoryExpression, CategoryNotApplicable, CategoryExpression), nil

	case ast.KindTableType:
		return pick(childIndex, CategoryNotApplicable, CategoryPrimaryExpression), nil

	case ast.KindTypePrimaryType:
		return pick(childIndex, CategoryNotApplicable, CategoryPrimaryType), nil

	case ast.KindUnaryExpression:
		return pick(childIndex, CategoryNotApplicable, CategoryTypeExpression), nil

	default:
		errs.Unreachable("unhandled node kind", map[string]any{"parentNodeKind": parentKind.String()})
		return CategoryNotApplicable, nil
	}
}

// pick returns slots[i], or NotApplicable for trailing slots left out of
// the list (closing punctuation and optional markers).
func pick(i int, slots ...Category) Category {
	if i < len(slots) {
		return slots[i]
	}
	return CategoryNotApplicable
}

// Accepts reports whether a value of type t fits a slot of category c.
// Unknown types are indeterminate everywhere.
func (c Category) Accepts(t *Type) Tri {
	if c == CategoryNotApplicable {
		if t.Kind == KindUnknown {
			return TriIndeterminate
		}
		return TriOf(t.Kind == KindNotApplicable)
	}
	if t.IsUnresolved() {
		return TriIndeterminate
	}

	switch c {
	case CategoryExpression, CategoryTypeExpression, CategoryPrimaryExpression:
		return TriOf(t.Kind != KindNone)
	case CategoryLogical:
		return narrowing(t, Logical)
	case CategoryRecord:
		return narrowing(t, Record)
	case CategoryAnyLiteral:
		switch t.Kind {
		case KindNull, KindLogical, KindNumber, KindText, KindList, KindRecord:
			return TriTrue
		case KindAny:
			return TriIndeterminate
		default:
			return TriFalse
		}
	case CategoryNullablePrimitive, CategoryPrimitive, CategoryTypeProduction, CategoryPrimaryType:
		return TriOf(t.Kind == KindType)
	default:
		errs.Unreachable("unhandled category", map[string]any{"category": c.String()})
		return TriIndeterminate
	}
}

// narrowing checks t against want, treating a plain any as undecided since
// its runtime value may still fit.
func narrowing(t, want *Type) Tri {
	if t.Kind == KindAny && t.Extended == NotExtended {
		return TriIndeterminate
	}
	return IsSubset(t, want)
}

// Package ast defines the syntax tree vocabulary the inspection passes
// consume: node kinds, the concrete/partial node sum type, positions, and
// the attribute layout of each grammar production.
package ast

// NodeKind identifies a grammar production. The set is closed; every switch
// over NodeKind in this module is expected to be exhaustive.
type NodeKind int

const (
	KindArithmeticExpression NodeKind = iota
	KindArrayWrapper
	KindAsExpression
	KindAsNullablePrimitiveType
	KindAsType
	KindConstant
	KindCsv
	KindEachExpression
	KindEqualityExpression
	KindErrorHandlingExpression
	KindErrorRaisingExpression
	KindFieldProjection
	KindFieldSelector
	KindFieldSpecification
	KindFieldSpecificationList
	KindFieldTypeSpecification
	KindFunctionExpression
	KindFunctionType
	KindGeneralizedIdentifier
	KindGeneralizedIdentifierPairedAnyLiteral
	KindGeneralizedIdentifierPairedExpression
	KindIdentifier
	KindIdentifierExpression
	KindIdentifierPairedExpression
	KindIfExpression
	KindInvokeExpression
	KindIsExpression
	KindIsNullablePrimitiveType
	KindItemAccessExpression
	KindLetExpression
	KindListExpression
	KindListLiteral
	KindListType
	KindLiteralExpression
	KindLogicalExpression
	KindMetadataExpression
	KindNotImplementedExpression
	KindNullablePrimitiveType
	KindNullableType
	KindOtherwiseExpression
	KindParameter
	KindParameterList
	KindParenthesizedExpression
	KindPrimitiveType
	KindRangeExpression
	KindRecordExpression
	KindRecordLiteral
	KindRecordType
	KindRecursivePrimaryExpression
	KindRelationalExpression
	KindSection
	KindSectionMember
	KindTableType
	KindTypePrimaryType
	KindUnaryExpression

	numNodeKinds
)

var nodeKindNames = [numNodeKinds]string{
	KindArithmeticExpression:                  "ArithmeticExpression",
	KindArrayWrapper:                          "ArrayWrapper",
	KindAsExpression:                          "AsExpression",
	KindAsNullablePrimitiveType:               "AsNullablePrimitiveType",
	KindAsType:                                "AsType",
	KindConstant:                              "Constant",
	KindCsv:                                   "Csv",
	KindEachExpression:                        "EachExpression",
	KindEqualityExpression:                    "EqualityExpression",
	KindErrorHandlingExpression:               "ErrorHandlingExpression",
	KindErrorRaisingExpression:                "ErrorRaisingExpression",
	KindFieldProjection:                       "FieldProjection",
	KindFieldSelector:                         "FieldSelector",
	KindFieldSpecification:                    "FieldSpecification",
	KindFieldSpecificationList:                "FieldSpecificationList",
	KindFieldTypeSpecification:                "FieldTypeSpecification",
	KindFunctionExpression:                    "FunctionExpression",
	KindFunctionType:                          "FunctionType",
	KindGeneralizedIdentifier:                 "GeneralizedIdentifier",
	KindGeneralizedIdentifierPairedAnyLiteral: "GeneralizedIdentifierPairedAnyLiteral",
	KindGeneralizedIdentifierPairedExpression: "GeneralizedIdentifierPairedExpression",
	KindIdentifier:                            "Identifier",
	KindIdentifierExpression:                  "IdentifierExpression",
	KindIdentifierPairedExpression:            "IdentifierPairedExpression",
	KindIfExpression:                          "IfExpression",
	KindInvokeExpression:                      "InvokeExpression",
	KindIsExpression:                          "IsExpression",
	KindIsNullablePrimitiveType:               "IsNullablePrimitiveType",
	KindItemAccessExpression:                  "ItemAccessExpression",
	KindLetExpression:                         "LetExpression",
	KindListExpression:                        "ListExpression",
	KindListLiteral:                           "ListLiteral",
	KindListType:                              "ListType",
	KindLiteralExpression:                     "LiteralExpression",
	KindLogicalExpression:                     "LogicalExpression",
	KindMetadataExpression:                    "MetadataExpression",
	KindNotImplementedExpression:              "NotImplementedExpression",
	KindNullablePrimitiveType:                 "NullablePrimitiveType",
	KindNullableType:                          "NullableType",
	KindOtherwiseExpression:                   "OtherwiseExpression",
	KindParameter:                             "Parameter",
	KindParameterList:                         "ParameterList",
	KindParenthesizedExpression:               "ParenthesizedExpression",
	KindPrimitiveType:                         "PrimitiveType",
	KindRangeExpression:                       "RangeExpression",
	KindRecordExpression:                      "RecordExpression",
	KindRecordLiteral:                         "RecordLiteral",
	KindRecordType:                            "RecordType",
	KindRecursivePrimaryExpression:            "RecursivePrimaryExpression",
	KindRelationalExpression:                  "RelationalExpression",
	KindSection:                               "Section",
	KindSectionMember:                         "SectionMember",
	KindTableType:                             "TableType",
	KindTypePrimaryType:                       "TypePrimaryType",
	KindUnaryExpression:                       "UnaryExpression",
}

var nodeKindByName = func() map[string]NodeKind {
	m := make(map[string]NodeKind, numNodeKinds)
	for k, name := range nodeKindNames {
		m[name] = NodeKind(k)
	}
	return m
}()

func (k NodeKind) String() string {
	if !k.IsValid() {
		return "NodeKind(?)"
	}
	return nodeKindNames[k]
}

// IsValid reports whether k is one of the declared kinds.
func (k NodeKind) IsValid() bool {
	return k >= 0 && k < numNodeKinds
}

// ParseNodeKind maps a kind name (as produced by String) back to its kind.
func ParseNodeKind(name string) (NodeKind, bool) {
	k, ok := nodeKindByName[name]
	return k, ok
}

// AllNodeKinds returns every declared kind in declaration order.
func AllNodeKinds() []NodeKind {
	kinds := make([]NodeKind, numNodeKinds)
	for i := range kinds {
		kinds[i] = NodeKind(i)
	}
	return kinds
}

// IsLeaf reports whether nodes of kind k carry a literal and never have
// children.
func (k NodeKind) IsLeaf() bool {
	switch k {
	case KindConstant, KindGeneralizedIdentifier, KindIdentifier, KindLiteralExpression, KindPrimitiveType:
		return true
	default:
		return false
	}
}

// IsPairedExpression reports whether k binds a key to a value at slots 0 and 2.
func (k NodeKind) IsPairedExpression() bool {
	switch k {
	case KindGeneralizedIdentifierPairedAnyLiteral,
		KindGeneralizedIdentifierPairedExpression,
		KindIdentifierPairedExpression:
		return true
	default:
		return false
	}
}

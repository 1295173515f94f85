package ast

// Unbounded is the arity of kinds whose children are a variable-length list.
const Unbounded = -1

// arities gives the number of attribute slots of each production. Optional
// slots count even when absent, so a child's attribute index is always its
// grammar slot.
var arities = [numNodeKinds]int{
	KindArithmeticExpression:                  3, // left, operator, right
	KindArrayWrapper:                          Unbounded,
	KindAsExpression:                          3, // left, as, type
	KindAsNullablePrimitiveType:               2, // as, type
	KindAsType:                                2, // as, type
	KindConstant:                              0,
	KindCsv:                                   2, // node, comma
	KindEachExpression:                        2, // each, body
	KindEqualityExpression:                    3,
	KindErrorHandlingExpression:               3, // try, protected, otherwise
	KindErrorRaisingExpression:                2, // error, expression
	KindFieldProjection:                       4, // [, content, ], ?
	KindFieldSelector:                         4, // [, content, ], ?
	KindFieldSpecification:                    3, // optional, name, type spec
	KindFieldSpecificationList:                4, // [, content, ..., ]
	KindFieldTypeSpecification:                2, // =, type
	KindFunctionExpression:                    4, // parameters, return type, =>, body
	KindFunctionType:                          3, // function, parameters, return type
	KindGeneralizedIdentifier:                 0,
	KindGeneralizedIdentifierPairedAnyLiteral: 3, // key, =, value
	KindGeneralizedIdentifierPairedExpression: 3,
	KindIdentifier:                            0,
	KindIdentifierExpression:                  2, // @, identifier
	KindIdentifierPairedExpression:            3,
	KindIfExpression:                          6, // if, cond, then, true, else, false
	KindInvokeExpression:                      3, // (, content, )
	KindIsExpression:                          3,
	KindIsNullablePrimitiveType:               2,
	KindItemAccessExpression:                  4, // {, content, }, ?
	KindLetExpression:                         4, // let, bindings, in, body
	KindListExpression:                        3,
	KindListLiteral:                           3,
	KindListType:                              3, // {, item type, }
	KindLiteralExpression:                     0,
	KindLogicalExpression:                     3,
	KindMetadataExpression:                    3, // left, meta, right
	KindNotImplementedExpression:              1, // ...
	KindNullablePrimitiveType:                 2, // nullable, primitive
	KindNullableType:                          2,
	KindOtherwiseExpression:                   2, // otherwise, expression
	KindParameter:                             3, // optional, name, type
	KindParameterList:                         3,
	KindParenthesizedExpression:               3,
	KindPrimitiveType:                         0,
	KindRangeExpression:                       3, // left, .., right
	KindRecordExpression:                      3,
	KindRecordLiteral:                         3,
	KindRecordType:                            1, // field specification list
	KindRecursivePrimaryExpression:            2, // head, recursive expressions
	KindRelationalExpression:                  3,
	KindSection:                               5, // attributes, section, name, ;, members
	KindSectionMember:                         4, // attributes, shared, paired expression, ;
	KindTableType:                             2, // table, row type
	KindTypePrimaryType:                       2, // type, primary type
	KindUnaryExpression:                       2, // operators, operand
}

// Arity returns the number of attribute slots of kind k, or Unbounded.
// Invalid kinds report zero.
func (k NodeKind) Arity() int {
	if !k.IsValid() {
		return 0
	}
	return arities[k]
}

// HasAttribute reports whether index is a valid attribute slot of kind k.
func (k NodeKind) HasAttribute(index int) bool {
	if index < 0 {
		return false
	}
	arity := k.Arity()
	return arity == Unbounded || index < arity
}

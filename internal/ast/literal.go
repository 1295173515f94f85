package ast

// LiteralKind classifies a LiteralExpression.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralLogical
	LiteralNull
	LiteralNumeric
	LiteralText
)

var literalKindNames = [...]string{
	LiteralNone:    "",
	LiteralLogical: "logical",
	LiteralNull:    "null",
	LiteralNumeric: "numeric",
	LiteralText:    "text",
}

func (k LiteralKind) String() string {
	if k < 0 || int(k) >= len(literalKindNames) {
		return "literal(?)"
	}
	return literalKindNames[k]
}

// ParseLiteralKind maps a name produced by String back to its kind.
func ParseLiteralKind(name string) (LiteralKind, bool) {
	for k, n := range literalKindNames {
		if n == name {
			return LiteralKind(k), true
		}
	}
	return LiteralNone, false
}

// PrimitiveTypeName is the keyword text of a PrimitiveType leaf.
type PrimitiveTypeName string

const (
	PrimitiveAction       PrimitiveTypeName = "action"
	PrimitiveAny          PrimitiveTypeName = "any"
	PrimitiveAnyNonNull   PrimitiveTypeName = "anynonnull"
	PrimitiveBinary       PrimitiveTypeName = "binary"
	PrimitiveDate         PrimitiveTypeName = "date"
	PrimitiveDateTime     PrimitiveTypeName = "datetime"
	PrimitiveDateTimeZone PrimitiveTypeName = "datetimezone"
	PrimitiveDuration     PrimitiveTypeName = "duration"
	PrimitiveFunction     PrimitiveTypeName = "function"
	PrimitiveList         PrimitiveTypeName = "list"
	PrimitiveLogical      PrimitiveTypeName = "logical"
	PrimitiveNone         PrimitiveTypeName = "none"
	PrimitiveNull         PrimitiveTypeName = "null"
	PrimitiveNumber       PrimitiveTypeName = "number"
	PrimitiveRecord       PrimitiveTypeName = "record"
	PrimitiveTable        PrimitiveTypeName = "table"
	PrimitiveText         PrimitiveTypeName = "text"
	PrimitiveTime         PrimitiveTypeName = "time"
	PrimitiveType         PrimitiveTypeName = "type"
)

var primitiveTypeNames = map[PrimitiveTypeName]bool{
	PrimitiveAction: true, PrimitiveAny: true, PrimitiveAnyNonNull: true,
	PrimitiveBinary: true, PrimitiveDate: true, PrimitiveDateTime: true,
	PrimitiveDateTimeZone: true, PrimitiveDuration: true, PrimitiveFunction: true,
	PrimitiveList: true, PrimitiveLogical: true, PrimitiveNone: true,
	PrimitiveNull: true, PrimitiveNumber: true, PrimitiveRecord: true,
	PrimitiveTable: true, PrimitiveText: true, PrimitiveTime: true,
	PrimitiveType: true,
}

// IsValid reports whether n is an M primitive type keyword.
func (n PrimitiveTypeName) IsValid() bool {
	return primitiveTypeNames[n]
}

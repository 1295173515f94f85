// Package types models M value types and the relations between them.
package types

import (
	"fmt"
	"slices"
	"strings"

	gfn "github.com/panyam/goutils/fn"

	"github.com/jward/mlens/internal/ast"
)

// Kind is the base classification of a type.
type Kind int

const (
	KindAction Kind = iota
	KindAny
	KindAnyNonNull
	KindBinary
	KindDate
	KindDateTime
	KindDateTimeZone
	KindDuration
	KindFunction
	KindList
	KindLogical
	KindNone
	KindNotApplicable
	KindNull
	KindNumber
	KindRecord
	KindTable
	KindText
	KindTime
	KindType
	KindUnknown

	numKinds
)

var kindNames = [numKinds]string{
	KindAction:        "action",
	KindAny:           "any",
	KindAnyNonNull:    "anynonnull",
	KindBinary:        "binary",
	KindDate:          "date",
	KindDateTime:      "datetime",
	KindDateTimeZone:  "datetimezone",
	KindDuration:      "duration",
	KindFunction:      "function",
	KindList:          "list",
	KindLogical:       "logical",
	KindNone:          "none",
	KindNotApplicable: "not applicable",
	KindNull:          "null",
	KindNumber:        "number",
	KindRecord:        "record",
	KindTable:         "table",
	KindText:          "text",
	KindTime:          "time",
	KindType:          "type",
	KindUnknown:       "unknown",
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return "Kind(?)"
	}
	return kindNames[k]
}

// ExtendedKind refines a Kind with structure.
type ExtendedKind int

const (
	NotExtended ExtendedKind = iota
	ExtAnyUnion
	ExtGenericList
	ExtDefinedList
	ExtDefinedRecord
	ExtDefinedFunction
)

func (e ExtendedKind) String() string {
	switch e {
	case NotExtended:
		return ""
	case ExtAnyUnion:
		return "AnyUnion"
	case ExtGenericList:
		return "GenericList"
	case ExtDefinedList:
		return "DefinedList"
	case ExtDefinedRecord:
		return "DefinedRecord"
	case ExtDefinedFunction:
		return "DefinedFunction"
	default:
		return "ExtendedKind(?)"
	}
}

// Type is an immutable type value. Use the constructors; the structural
// fields are only meaningful for the matching Extended kind.
type Type struct {
	Kind       Kind
	Extended   ExtendedKind
	IsNullable bool

	// AnyUnion
	Members []*Type
	// GenericList
	Item *Type
	// DefinedList
	Elements []*Type
	// DefinedRecord
	Fields []Field
	IsOpen bool
	// DefinedFunction
	Parameters []Parameter
	Return     *Type
}

// Field is one named field of a defined record.
type Field struct {
	Name string
	Type *Type
}

// Parameter is one parameter of a defined function. A nil Type accepts any
// value.
type Parameter struct {
	Name       string
	IsOptional bool
	IsNullable bool
	Type       *Type
}

// Shared instances of the unstructured types.
var (
	Action        = Primitive(KindAction, false)
	Any           = Primitive(KindAny, true)
	AnyNonNull    = Primitive(KindAnyNonNull, false)
	Binary        = Primitive(KindBinary, false)
	Date          = Primitive(KindDate, false)
	DateTime      = Primitive(KindDateTime, false)
	DateTimeZone  = Primitive(KindDateTimeZone, false)
	Duration      = Primitive(KindDuration, false)
	Function      = Primitive(KindFunction, false)
	List          = Primitive(KindList, false)
	Logical       = Primitive(KindLogical, false)
	None          = Primitive(KindNone, false)
	NotApplicable = Primitive(KindNotApplicable, false)
	Null          = Primitive(KindNull, true)
	Number        = Primitive(KindNumber, false)
	Record        = Primitive(KindRecord, false)
	Table         = Primitive(KindTable, false)
	Text          = Primitive(KindText, false)
	Time          = Primitive(KindTime, false)
	TypeType      = Primitive(KindType, false)
	Unknown       = Primitive(KindUnknown, false)
)

// Primitive returns an unstructured type of the given kind.
func Primitive(kind Kind, nullable bool) *Type {
	return &Type{Kind: kind, IsNullable: nullable}
}

// Nullable returns a copy of t with IsNullable set. Null, Any and the
// unresolved kinds are returned unchanged.
func (t *Type) Nullable() *Type {
	if t.IsNullable || t.Kind == KindNull || t.Kind == KindUnknown || t.Kind == KindNotApplicable {
		return t
	}
	c := *t
	c.IsNullable = true
	return &c
}

// NewAnyUnion returns the union of members. Nested unions are flattened,
// equal members collapse and None is dropped; a union of one member is that
// member.
func NewAnyUnion(members ...*Type) *Type {
	var flat []*Type
	for _, m := range members {
		if m.Kind == KindNone {
			continue
		}
		if m.Extended == ExtAnyUnion {
			flat = append(flat, m.Members...)
		} else {
			flat = append(flat, m)
		}
	}
	var unique []*Type
	for _, m := range flat {
		if !slices.ContainsFunc(unique, func(u *Type) bool { return IsEqualType(u, m) == TriTrue }) {
			unique = append(unique, m)
		}
	}
	switch len(unique) {
	case 0:
		return None
	case 1:
		return unique[0]
	}
	nullable := slices.ContainsFunc(unique, func(u *Type) bool { return u.IsNullable })
	return &Type{Kind: KindAny, Extended: ExtAnyUnion, IsNullable: nullable, Members: unique}
}

// NewGenericList returns a list whose every item has type item.
func NewGenericList(item *Type, nullable bool) *Type {
	return &Type{Kind: KindList, Extended: ExtGenericList, IsNullable: nullable, Item: item}
}

// NewDefinedList returns a list with exactly the given element types.
func NewDefinedList(elements []*Type, nullable bool) *Type {
	return &Type{Kind: KindList, Extended: ExtDefinedList, IsNullable: nullable, Elements: elements}
}

// NewDefinedRecord returns a record with the given fields. Duplicate names
// keep their first position and last type.
func NewDefinedRecord(fields []Field, isOpen, nullable bool) *Type {
	unique := make([]Field, 0, len(fields))
	for _, f := range fields {
		if i := slices.IndexFunc(unique, func(u Field) bool { return u.Name == f.Name }); i >= 0 {
			unique[i].Type = f.Type
			continue
		}
		unique = append(unique, f)
	}
	return &Type{Kind: KindRecord, Extended: ExtDefinedRecord, IsNullable: nullable, Fields: unique, IsOpen: isOpen}
}

// NewDefinedFunction returns a function with the given signature.
func NewDefinedFunction(params []Parameter, ret *Type, nullable bool) *Type {
	return &Type{Kind: KindFunction, Extended: ExtDefinedFunction, IsNullable: nullable, Parameters: params, Return: ret}
}

// Field returns the type of the named field of a defined record.
func (t *Type) Field(name string) (*Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// IsUnresolved reports whether t is Unknown or NotApplicable.
func (t *Type) IsUnresolved() bool {
	return t.Kind == KindUnknown || t.Kind == KindNotApplicable
}

// String renders t in M type syntax.
func (t *Type) String() string {
	var s string
	switch t.Extended {
	case ExtAnyUnion:
		return strings.Join(gfn.Map(t.Members, (*Type).String), " | ")
	case ExtGenericList:
		s = "{" + t.Item.String() + "}"
	case ExtDefinedList:
		s = "{" + strings.Join(gfn.Map(t.Elements, (*Type).String), ", ") + "}"
	case ExtDefinedRecord:
		fields := gfn.Map(t.Fields, func(f Field) string { return f.Name + ": " + f.Type.String() })
		if t.IsOpen {
			fields = append(fields, "...")
		}
		s = "[" + strings.Join(fields, ", ") + "]"
	case ExtDefinedFunction:
		params := gfn.Map(t.Parameters, func(p Parameter) string {
			var b strings.Builder
			if p.IsOptional {
				b.WriteString("optional ")
			}
			b.WriteString(p.Name)
			if p.Type != nil {
				b.WriteString(" as " + p.Type.String())
			}
			return b.String()
		})
		ret := "any"
		if t.Return != nil {
			ret = t.Return.String()
		}
		s = fmt.Sprintf("(%s) => %s", strings.Join(params, ", "), ret)
	default:
		s = t.Kind.String()
	}
	if t.IsNullable && t.Kind != KindNull && t.Kind != KindAny {
		return "nullable " + s
	}
	return s
}

var primitiveKinds = map[ast.PrimitiveTypeName]Kind{
	ast.PrimitiveAction:       KindAction,
	ast.PrimitiveAny:          KindAny,
	ast.PrimitiveAnyNonNull:   KindAnyNonNull,
	ast.PrimitiveBinary:       KindBinary,
	ast.PrimitiveDate:         KindDate,
	ast.PrimitiveDateTime:     KindDateTime,
	ast.PrimitiveDateTimeZone: KindDateTimeZone,
	ast.PrimitiveDuration:     KindDuration,
	ast.PrimitiveFunction:     KindFunction,
	ast.PrimitiveList:         KindList,
	ast.PrimitiveLogical:      KindLogical,
	ast.PrimitiveNone:         KindNone,
	ast.PrimitiveNull:         KindNull,
	ast.PrimitiveNumber:       KindNumber,
	ast.PrimitiveRecord:       KindRecord,
	ast.PrimitiveTable:        KindTable,
	ast.PrimitiveText:         KindText,
	ast.PrimitiveTime:         KindTime,
	ast.PrimitiveType:         KindType,
}

// FromPrimitive returns the type named by a primitive type keyword. Unknown
// keywords map to Unknown.
func FromPrimitive(name ast.PrimitiveTypeName, nullable bool) *Type {
	kind, ok := primitiveKinds[name]
	if !ok {
		return Unknown
	}
	return Primitive(kind, nullable || kind == KindNull || kind == KindAny)
}

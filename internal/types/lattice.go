package types

import (
	"github.com/jward/mlens/internal/errs"
)

// Tri is a three-valued answer. Indeterminate means the operands carry
// too little information to decide.
type Tri int

const (
	TriIndeterminate Tri = iota
	TriTrue
	TriFalse
)

func (t Tri) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "indeterminate"
	}
}

// TriOf lifts a bool.
func TriOf(b bool) Tri {
	if b {
		return TriTrue
	}
	return TriFalse
}

// allOf is true when every result is true, false when any is false.
func allOf(results ...Tri) Tri {
	out := TriTrue
	for _, r := range results {
		switch r {
		case TriFalse:
			return TriFalse
		case TriIndeterminate:
			out = TriIndeterminate
		}
	}
	return out
}

// anyOf is true when any result is true, false when every one is false.
func anyOf(results ...Tri) Tri {
	out := TriFalse
	for _, r := range results {
		switch r {
		case TriTrue:
			return TriTrue
		case TriIndeterminate:
			out = TriIndeterminate
		}
	}
	return out
}

// IsEqualType compares two types structurally. Unknown or NotApplicable on
// either side is indeterminate.
func IsEqualType(a, b *Type) Tri {
	if a.IsUnresolved() || b.IsUnresolved() {
		return TriIndeterminate
	}
	if a.Kind != b.Kind || a.Extended != b.Extended || a.IsNullable != b.IsNullable {
		return TriFalse
	}

	switch a.Extended {
	case NotExtended:
		return TriTrue
	case ExtAnyUnion:
		return allOf(unionCovers(a, b), unionCovers(b, a))
	case ExtGenericList:
		return IsEqualType(a.Item, b.Item)
	case ExtDefinedList:
		if len(a.Elements) != len(b.Elements) {
			return TriFalse
		}
		results := make([]Tri, len(a.Elements))
		for i := range a.Elements {
			results[i] = IsEqualType(a.Elements[i], b.Elements[i])
		}
		return allOf(results...)
	case ExtDefinedRecord:
		if a.IsOpen != b.IsOpen || len(a.Fields) != len(b.Fields) {
			return TriFalse
		}
		results := make([]Tri, 0, len(a.Fields))
		for _, f := range a.Fields {
			other, ok := b.Field(f.Name)
			if !ok {
				return TriFalse
			}
			results = append(results, IsEqualType(f.Type, other))
		}
		return allOf(results...)
	case ExtDefinedFunction:
		if len(a.Parameters) != len(b.Parameters) {
			return TriFalse
		}
		results := []Tri{optionalEqual(a.Return, b.Return)}
		for i, p := range a.Parameters {
			q := b.Parameters[i]
			if p.IsOptional != q.IsOptional || p.IsNullable != q.IsNullable {
				return TriFalse
			}
			results = append(results, optionalEqual(p.Type, q.Type))
		}
		return allOf(results...)
	default:
		errs.Unreachable("unhandled extended kind", map[string]any{"extendedKind": int(a.Extended)})
		return TriIndeterminate
	}
}

// unionCovers reports whether every member of a has an equal member in b.
func unionCovers(a, b *Type) Tri {
	results := make([]Tri, len(a.Members))
	for i, m := range a.Members {
		candidates := make([]Tri, len(b.Members))
		for j, n := range b.Members {
			candidates[j] = IsEqualType(m, n)
		}
		results[i] = anyOf(candidates...)
	}
	return allOf(results...)
}

// optionalEqual compares types where nil stands for "any".
func optionalEqual(a, b *Type) Tri {
	switch {
	case a == nil && b == nil:
		return TriTrue
	case a == nil || b == nil:
		return TriFalse
	default:
		return IsEqualType(a, b)
	}
}

// IsSubset reports whether every value of left is also a value of right.
func IsSubset(left, right *Type) Tri {
	if left.IsUnresolved() || right.IsUnresolved() {
		return TriIndeterminate
	}
	if left.Kind == KindNull && right.Kind == KindAnyNonNull {
		return TriFalse
	}
	if left.Extended == ExtAnyUnion {
		if right.Extended == ExtAnyUnion && IsEqualType(left, right) == TriTrue {
			return TriTrue
		}
		results := make([]Tri, len(left.Members))
		for i, m := range left.Members {
			results[i] = IsSubset(m, right)
		}
		return allOf(results...)
	}

	switch right.Kind {
	case KindAction, KindBinary, KindDate, KindDateTime, KindDateTimeZone, KindDuration,
		KindFunction, KindLogical, KindNumber, KindTable, KindText, KindTime, KindType:
		if right.IsNullable && left.Kind == KindNull {
			return TriTrue
		}
		return IsEqualType(left, right)

	case KindNull:
		return TriOf(left.Kind == KindNull)

	case KindList:
		return isSubsetOfList(left, right)

	case KindRecord:
		return isSubsetOfRecord(left, right)

	case KindAny:
		if right.Extended == ExtAnyUnion {
			results := make([]Tri, len(right.Members))
			for i, m := range right.Members {
				results[i] = IsSubset(left, m)
			}
			return anyOf(results...)
		}
		return TriTrue

	case KindAnyNonNull:
		return TriOf(left.Kind != KindNull)

	case KindNone:
		return TriOf(left.Kind == KindNone)

	default:
		errs.Unreachable("unhandled type kind", map[string]any{"kind": right.Kind.String()})
		return TriIndeterminate
	}
}

func isSubsetOfList(left, right *Type) Tri {
	if left.Kind != KindList || (left.IsNullable && !right.IsNullable) {
		return TriFalse
	}

	switch right.Extended {
	case NotExtended:
		return TriTrue
	case ExtGenericList:
		// A list of any places no constraint on its items.
		if right.Item == nil || (right.Item.Kind == KindAny && right.Item.Extended == NotExtended) {
			return TriTrue
		}
		switch left.Extended {
		case NotExtended:
			return TriFalse
		case ExtGenericList:
			return IsEqualType(left.Item, right.Item)
		case ExtDefinedList:
			results := make([]Tri, len(left.Elements))
			for i, e := range left.Elements {
				results[i] = IsSubset(e, right.Item)
			}
			return allOf(results...)
		}
		return TriFalse
	case ExtDefinedList:
		return IsEqualType(left.Nullable(), right.Nullable())
	default:
		errs.Unreachable("unhandled list extension", map[string]any{"extendedKind": right.Extended.String()})
		return TriIndeterminate
	}
}

func isSubsetOfRecord(left, right *Type) Tri {
	if left.Kind != KindRecord || (left.IsNullable && !right.IsNullable) {
		return TriFalse
	}

	switch right.Extended {
	case NotExtended:
		return TriTrue
	case ExtDefinedRecord:
		if left.Extended != ExtDefinedRecord {
			return TriFalse
		}
		if !right.IsOpen && (left.IsOpen || len(left.Fields) != len(right.Fields)) {
			return TriFalse
		}
		results := make([]Tri, 0, len(right.Fields))
		for _, f := range right.Fields {
			lt, ok := left.Field(f.Name)
			if !ok {
				return TriFalse
			}
			results = append(results, IsSubset(lt, f.Type))
		}
		return allOf(results...)
	default:
		errs.Unreachable("unhandled record extension", map[string]any{"extendedKind": right.Extended.String()})
		return TriIndeterminate
	}
}

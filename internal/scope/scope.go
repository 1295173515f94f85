// Package scope computes which names are visible at each node of a tree.
//
// ForTree walks an ancestry from the root down, giving each node the scope
// of its parent plus whatever bindings the parent introduces for that
// child. Results are returned as a delta over a caller-owned cache that is
// never mutated; the caller merges the delta after a successful pass.
package scope

import (
	"maps"
	"slices"

	"github.com/jward/mlens/internal/ast"
)

// ItemKind identifies the construct that introduced a name.
type ItemKind int

const (
	ItemEach ItemKind = iota
	ItemKeyValuePair
	ItemParameter
	ItemSectionMember
	ItemUndefined
)

var itemKindNames = [...]string{
	ItemEach:          "Each",
	ItemKeyValuePair:  "KeyValuePair",
	ItemParameter:     "Parameter",
	ItemSectionMember: "SectionMember",
	ItemUndefined:     "Undefined",
}

func (k ItemKind) String() string {
	if k < 0 || int(k) >= len(itemKindNames) {
		return "ItemKind(?)"
	}
	return itemKindNames[k]
}

// Item is one visible name.
type Item interface {
	Kind() ItemKind
	// NodeID is the node that introduced the name.
	NodeID() int
	// Recursive reports whether the name is visible inside its own
	// definition.
	Recursive() bool
}

// EachItem is the implicit "_" of an each expression.
type EachItem struct {
	ID             int
	IsRecursive    bool
	EachExpression ast.Node
}

// KeyValuePairItem is a let binding or record field.
type KeyValuePairItem struct {
	ID          int
	IsRecursive bool
	Key         *ast.AstNode
	// Value is nil when the binding has no parsed value.
	Value ast.Node
}

// ParameterItem is a function parameter.
type ParameterItem struct {
	ID          int
	IsRecursive bool
	Name        *ast.AstNode
	IsOptional  bool
	IsNullable  bool
	// Type is empty for parameters without an annotation.
	Type ast.PrimitiveTypeName
}

// SectionMemberItem is a section member.
type SectionMemberItem struct {
	ID          int
	IsRecursive bool
	Key         *ast.AstNode
	Value       ast.Node
}

// UndefinedItem is an identifier reference whose definition was not
// resolved where it was recorded.
type UndefinedItem struct {
	ID   int
	Node ast.Node
}

func (i *EachItem) Kind() ItemKind { return ItemEach }
func (i *EachItem) NodeID() int { return i.ID }
func (i *EachItem) Recursive() bool { return i.IsRecursive }

func (i *KeyValuePairItem) Kind() ItemKind { return ItemKeyValuePair }
func (i *KeyValuePairItem) NodeID() int { return i.ID }
func (i *KeyValuePairItem) Recursive() bool { return i.IsRecursive }

func (i *ParameterItem) Kind() ItemKind { return ItemParameter }
func (i *ParameterItem) NodeID() int { return i.ID }
func (i *ParameterItem) Recursive() bool { return i.IsRecursive }

func (i *SectionMemberItem) Kind() ItemKind { return ItemSectionMember }
func (i *SectionMemberItem) NodeID() int { return i.ID }
func (i *SectionMemberItem) Recursive() bool { return i.IsRecursive }

func (i *UndefinedItem) Kind() ItemKind { return ItemUndefined }
func (i *UndefinedItem) NodeID() int { return i.ID }
func (i *UndefinedItem) Recursive() bool { return false }

// ItemByKey maps each visible name to the item that binds it.
type ItemByKey map[string]Item

// Keys returns the names in sorted order.
func (m ItemByKey) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// ByID maps node ids to the scope visible at that node.
type ByID map[int]ItemByKey

// Merge copies every entry of delta into s, replacing existing entries.
func (s ByID) Merge(delta ByID) {
	maps.Copy(s, delta)
}

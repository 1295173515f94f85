package ast

import "fmt"

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line" yaml:"line" cbor:"line"`
	Character int `json:"character" yaml:"character" cbor:"character"`
}

// Before reports whether p sorts strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Character < other.Character
}

// After reports whether p sorts strictly after other.
func (p Position) After(other Position) bool {
	return other.Before(p)
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Character)
}

// Span is the token range a concrete node covers. End is exclusive.
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether p falls within the span, both ends inclusive.
// A cursor sitting right after the last character still touches the node.
func (s Span) Contains(p Position) bool {
	return !p.Before(s.Start) && !p.After(s.End)
}

// NoAttribute marks a node without a parent slot (the root).
const NoAttribute = -1

// Node is either a concrete *AstNode or a partial *ContextNode. Both carry a
// unique id and a kind; neither owns its children, which live in the tree
// index.
type Node interface {
	ID() int
	Kind() NodeKind
	// AttributeIndex is the slot this node occupies in its parent's
	// production. ok is false for the root.
	AttributeIndex() (index int, ok bool)
	isNode()
}

// AstNode is a node the parser completed.
type AstNode struct {
	NodeID    int
	NodeKind  NodeKind
	Attribute int
	Span      Span

	// Literal is the source text of leaf kinds (Constant, Identifier,
	// GeneralizedIdentifier, LiteralExpression, PrimitiveType).
	Literal     string
	LiteralKind LiteralKind
}

func (n *AstNode) ID() int { return n.NodeID }
func (n *AstNode) Kind() NodeKind { return n.NodeKind }
func (n *AstNode) isNode() {}
func (n *AstNode) String() string { return fmt.Sprintf("%s#%d", n.NodeKind, n.NodeID) }
func (n *AstNode) IsLeaf() bool { return n.NodeKind.IsLeaf() }
func (n *AstNode) AttributeIndex() (int, bool) {
	return n.Attribute, n.Attribute != NoAttribute
}

// ContextNode is a node the parser was still building when it stopped.
// Its children may be missing or themselves partial.
type ContextNode struct {
	NodeID    int
	NodeKind  NodeKind
	Attribute int

	// Start is where the node's first token begins, when one was read.
	Start    Position
	HasStart bool
}

func (n *ContextNode) ID() int { return n.NodeID }
func (n *ContextNode) Kind() NodeKind { return n.NodeKind }
func (n *ContextNode) isNode() {}
func (n *ContextNode) String() string { return fmt.Sprintf("%s#%d(context)", n.NodeKind, n.NodeID) }
func (n *ContextNode) AttributeIndex() (int, bool) {
	return n.Attribute, n.Attribute != NoAttribute
}

// IsAst reports whether n is a concrete node.
func IsAst(n Node) bool {
	_, ok := n.(*AstNode)
	return ok
}

// IsContext reports whether n is a partial node.
func IsContext(n Node) bool {
	_, ok := n.(*ContextNode)
	return ok
}

// IsKind reports whether n is non-nil and of one of the given kinds.
func IsKind(n Node, kinds ...NodeKind) bool {
	if n == nil {
		return false
	}
	for _, k := range kinds {
		if n.Kind() == k {
			return true
		}
	}
	return false
}

// StartOf returns the first position of n, if known.
func StartOf(n Node) (Position, bool) {
	switch n := n.(type) {
	case *AstNode:
		return n.Span.Start, true
	case *ContextNode:
		return n.Start, n.HasStart
	default:
		return Position{}, false
	}
}

// IsBefore reports whether p sits strictly before the first character of n.
// Nodes without a known start are never after the cursor.
func IsBefore(p Position, n Node) bool {
	start, ok := StartOf(n)
	if !ok {
		return false
	}
	return p.Before(start)
}

package mlens

import (
	"fmt"

	"github.com/jward/mlens/internal/analysis"
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/types"
)

// QueryBuilder answers questions about one indexed document. It wraps a
// single analysis session, so scopes computed by one query are reused by
// the next. Like the session, it is not safe for concurrent use.
type QueryBuilder struct {
	document *Document
	session  *analysis.Session
}

// Document returns the stored document the queries read.
func (q *QueryBuilder) Document() *Document {
	return q.document
}

// Node returns the tree node with id.
func (q *QueryBuilder) Node(id int) (Node, bool) {
	return q.session.Tree().Node(id)
}

// ParentID returns the id of id's parent.
func (q *QueryBuilder) ParentID(id int) (int, bool) {
	return q.session.Tree().ParentID(id)
}

// InspectAt inspects the cursor at line and character, both 0-based.
func (q *QueryBuilder) InspectAt(line, character int) (*Inspected, error) {
	return q.session.InspectAt(ast.Position{Line: line, Character: character})
}

// ScopeFor returns the names visible at a node.
func (q *QueryBuilder) ScopeFor(nodeID int) (ScopeItems, error) {
	return q.session.ScopeFor(nodeID)
}

// TypeOf infers the type of a node.
func (q *QueryBuilder) TypeOf(nodeID int) (*Type, error) {
	return q.session.TypeOf(nodeID)
}

// ExpectedTypeOf returns the category required of the slot a node fills.
func (q *QueryBuilder) ExpectedTypeOf(nodeID int) (Category, error) {
	return q.session.ExpectedTypeOf(nodeID)
}

// Accepts reports whether a node's type fits its slot.
func (q *QueryBuilder) Accepts(nodeID int) (Tri, error) {
	return q.session.Accepts(nodeID)
}

// IsSubset reports whether every value of left's type is a value of
// right's type.
func (q *QueryBuilder) IsSubset(leftID, rightID int) (Tri, error) {
	return q.session.IsSubset(leftID, rightID)
}

// IsEqualType reports whether two nodes have the same type.
func (q *QueryBuilder) IsEqualType(leftID, rightID int) (Tri, error) {
	return q.session.IsEqualType(leftID, rightID)
}

// Completions ranks the names visible at the cursor against prefix.
func (q *QueryBuilder) Completions(line, character int, prefix string) ([]Completion, error) {
	return q.session.Completions(ast.Position{Line: line, Character: character}, prefix)
}

// ExpectedType looks up the expected-type table directly: the category the
// grammar requires of child index under a parent of the named kind.
func ExpectedType(parentKind string, index int) (Category, error) {
	kind, ok := ast.ParseNodeKind(parentKind)
	if !ok {
		return types.CategoryNotApplicable, fmt.Errorf("expected type: unknown node kind %q", parentKind)
	}
	return types.ExpectedType(kind, index)
}

// Package analysis bundles one document's tree with the caches the
// inspection passes share. The API, the CLI and the script runtime all ask
// their questions through a Session.
package analysis

import (
	"fmt"
	"maps"

	"github.com/jward/mlens/internal/activenode"
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/inspection"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/settings"
	"github.com/jward/mlens/internal/typeinspect"
	"github.com/jward/mlens/internal/types"
)

// Session answers questions about one tree. Scopes computed by any
// operation are kept and reused by later ones. A Session is not safe for
// concurrent use.
type Session struct {
	s      settings.Settings
	c      nodeidmap.Collection
	types  *typeinspect.Inspector
	scopes scope.ByID
}

// New returns a session over c.
func New(s settings.Settings, c nodeidmap.Collection) *Session {
	in := typeinspect.New(s, c, nil)
	return &Session{
		s:      s,
		c:      c,
		types:  in,
		scopes: in.ScopeByID(),
	}
}

// Tree returns the tree the session reads.
func (ss *Session) Tree() nodeidmap.Collection {
	return ss.c
}

// Settings returns the settings every pass of the session runs with.
func (ss *Session) Settings() settings.Settings {
	return ss.s
}

// InspectAt inspects the cursor at position. A position before every
// token yields an empty result.
func (ss *Session) InspectAt(position ast.Position) (*inspection.Inspected, error) {
	an, err := activenode.FromPosition(ss.c, position)
	if err != nil {
		return nil, errs.Ensure(ss.s, fmt.Errorf("inspect at %s: %w", position, err))
	}
	return inspection.Inspect(ss.s, an, ss.c)
}

// InspectLeaf inspects the cursor at position with an explicitly chosen
// leaf, for callers that already know which token the cursor belongs to.
func (ss *Session) InspectLeaf(position ast.Position, leafID int) (*inspection.Inspected, error) {
	an, err := activenode.New(ss.c, position, leafID)
	if err != nil {
		return nil, errs.Ensure(ss.s, err)
	}
	return inspection.Inspect(ss.s, an, ss.c)
}

// ScopeFor returns the names visible at nodeID. The map is the caller's
// own; changing it leaves the session cache alone.
func (ss *Session) ScopeFor(nodeID int) (scope.ItemByKey, error) {
	if items, ok := ss.scopes[nodeID]; ok {
		return maps.Clone(items), nil
	}
	ancestry, err := nodeidmap.ExpectAncestry(ss.c, nodeID)
	if err != nil {
		return nil, errs.Ensure(ss.s, err)
	}
	delta, err := scope.ForTree(ss.s, ss.c, ancestry, ss.scopes)
	if err != nil {
		return nil, err
	}
	ss.scopes.Merge(delta)
	return maps.Clone(ss.scopes[nodeID]), nil
}

// TypeOf infers the type of nodeID.
func (ss *Session) TypeOf(nodeID int) (*types.Type, error) {
	return ss.types.InferID(nodeID)
}

// ExpectedTypeOf returns the category the grammar expects in the slot
// nodeID occupies. The root occupies no slot and expects nothing.
func (ss *Session) ExpectedTypeOf(nodeID int) (category types.Category, err error) {
	defer errs.Recover(ss.s, &err)
	n, err := nodeidmap.ExpectXorNode(ss.c, nodeID)
	if err != nil {
		return types.CategoryNotApplicable, err
	}
	attr, ok := n.AttributeIndex()
	if !ok {
		return types.CategoryNotApplicable, nil
	}
	parent, err := nodeidmap.ParentXorNode(ss.c, nodeID)
	if err != nil || parent == nil {
		return types.CategoryNotApplicable, err
	}
	return types.ExpectedType(parent.Kind(), attr)
}

// Accepts reports whether nodeID's inferred type satisfies the category
// its slot expects.
func (ss *Session) Accepts(nodeID int) (types.Tri, error) {
	category, err := ss.ExpectedTypeOf(nodeID)
	if err != nil {
		return types.TriIndeterminate, err
	}
	t, err := ss.TypeOf(nodeID)
	if err != nil {
		return types.TriIndeterminate, err
	}
	return category.Accepts(t), nil
}

// IsSubset compares the inferred types of two nodes.
func (ss *Session) IsSubset(leftID, rightID int) (types.Tri, error) {
	left, right, err := ss.typePair(leftID, rightID)
	if err != nil {
		return types.TriIndeterminate, err
	}
	return types.IsSubset(left, right), nil
}

// IsEqualType compares the inferred types of two nodes.
func (ss *Session) IsEqualType(leftID, rightID int) (types.Tri, error) {
	left, right, err := ss.typePair(leftID, rightID)
	if err != nil {
		return types.TriIndeterminate, err
	}
	return types.IsEqualType(left, right), nil
}

func (ss *Session) typePair(leftID, rightID int) (*types.Type, *types.Type, error) {
	left, err := ss.TypeOf(leftID)
	if err != nil {
		return nil, nil, err
	}
	right, err := ss.TypeOf(rightID)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Completions ranks the names visible at position against prefix.
func (ss *Session) Completions(position ast.Position, prefix string) ([]inspection.Completion, error) {
	inspected, err := ss.InspectAt(position)
	if err != nil {
		return nil, err
	}
	return inspection.Completions(inspected, prefix), nil
}

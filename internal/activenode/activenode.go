// Package activenode describes where a cursor sits in a syntax tree: the
// leaf-to-root ancestry of the node nearest the cursor and the identifier
// under it, if any.
package activenode

import (
	"fmt"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
	"github.com/jward/mlens/internal/nodeidmap"
)

// ActiveNode is the cursor context handed to the inspector.
type ActiveNode struct {
	Position ast.Position
	// Ancestry runs from the node nearest the cursor (index 0) to the root.
	Ancestry []ast.Node
	// IdentifierUnderPosition is the Identifier or GeneralizedIdentifier
	// leaf the cursor touches, or nil.
	IdentifierUnderPosition *ast.AstNode
}

// New builds the active node for an explicit leaf.
func New(c nodeidmap.Collection, position ast.Position, leafID int) (*ActiveNode, error) {
	ancestry, err := nodeidmap.ExpectAncestry(c, leafID)
	if err != nil {
		return nil, fmt.Errorf("active node for %d: %w", leafID, err)
	}
	an := &ActiveNode{Position: position, Ancestry: ancestry}
	if leaf, ok := ancestry[0].(*ast.AstNode); ok &&
		ast.IsKind(leaf, ast.KindIdentifier, ast.KindGeneralizedIdentifier) &&
		leaf.Span.Contains(position) {
		an.IdentifierUnderPosition = leaf
	}
	return an, nil
}

// FromPosition picks the rightmost leaf starting at or before position and
// builds its active node. It returns nil when the cursor precedes every
// leaf. A cursor sitting right after a non-punctuation token, and touching
// the next one, stays with the earlier token.
func FromPosition(c nodeidmap.Collection, position ast.Position) (*ActiveNode, error) {
	var (
		best, prev ast.Node
	)
	for _, id := range c.LeafIDs() {
		n, err := nodeidmap.ExpectXorNode(c, id)
		if err != nil {
			return nil, err
		}
		start, ok := ast.StartOf(n)
		if !ok {
			// Partial leaves without tokens attach to whatever precedes them.
			if best != nil {
				prev, best = best, n
			}
			continue
		}
		if start.After(position) {
			break
		}
		prev, best = best, n
	}
	if best == nil {
		return nil, nil
	}
	if cur, ok := best.(*ast.AstNode); ok && cur.Span.Start == position {
		if p, ok := prev.(*ast.AstNode); ok && p.Kind() != ast.KindConstant && p.Span.End == position {
			best = p
		}
	}
	return New(c, position, best.ID())
}

// Leaf returns the node nearest the cursor.
func (a *ActiveNode) Leaf() ast.Node {
	return a.Ancestry[0]
}

// Root returns the last ancestry entry.
func (a *ActiveNode) Root() ast.Node {
	return a.Ancestry[len(a.Ancestry)-1]
}

// Previous returns the ancestry entry n steps closer to the cursor than
// index, or nil when there is none. A present node of a kind outside
// allowed is an invariant violation.
func (a *ActiveNode) Previous(index, n int, allowed ...ast.NodeKind) (ast.Node, error) {
	return a.at(index-n, allowed)
}

// Next returns the ancestry entry n steps closer to the root than index, or
// nil when there is none.
func (a *ActiveNode) Next(index, n int, allowed ...ast.NodeKind) (ast.Node, error) {
	return a.at(index+n, allowed)
}

func (a *ActiveNode) at(i int, allowed []ast.NodeKind) (ast.Node, error) {
	if i < 0 || i >= len(a.Ancestry) {
		return nil, nil
	}
	n := a.Ancestry[i]
	if len(allowed) > 0 && !ast.IsKind(n, allowed...) {
		return nil, errs.Invariant("unexpected ancestry node kind", map[string]any{
			"nodeId":  n.ID(),
			"kind":    n.Kind().String(),
			"allowed": fmt.Sprint(allowed),
		})
	}
	return n, nil
}

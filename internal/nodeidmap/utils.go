package nodeidmap

import (
	"fmt"
	"maps"
	"slices"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/errs"
)

// ExpectXorNode returns the node with the given id or an invariant error.
func ExpectXorNode(c Collection, id int) (ast.Node, error) {
	n, ok := c.Node(id)
	if !ok {
		return nil, errs.Invariant("node not found", map[string]any{"nodeId": id})
	}
	return n, nil
}

// ParentXorNode returns the node's parent, or nil for the root. When allowed
// kinds are given the parent must be one of them.
func ParentXorNode(c Collection, id int, allowed ...ast.NodeKind) (ast.Node, error) {
	parentID, ok := c.ParentID(id)
	if !ok {
		return nil, nil
	}
	parent, err := ExpectXorNode(c, parentID)
	if err != nil {
		return nil, err
	}
	if err := checkKind(parent, allowed); err != nil {
		return nil, err
	}
	return parent, nil
}

// XorChildByAttributeIndex returns the child in the given slot, or nil when
// the slot is empty. When allowed kinds are given, a present child of any
// other kind is an invariant violation.
func XorChildByAttributeIndex(c Collection, parentID, attr int, allowed ...ast.NodeKind) (ast.Node, error) {
	for _, id := range c.ChildIDs(parentID) {
		child, err := ExpectXorNode(c, id)
		if err != nil {
			return nil, err
		}
		idx, _ := child.AttributeIndex()
		if idx < attr {
			continue
		}
		if idx > attr {
			break
		}
		if err := checkKind(child, allowed); err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, nil
}

// ExpectXorChildByAttributeIndex is XorChildByAttributeIndex for slots that
// must be filled.
func ExpectXorChildByAttributeIndex(c Collection, parentID, attr int, allowed ...ast.NodeKind) (ast.Node, error) {
	child, err := XorChildByAttributeIndex(c, parentID, attr, allowed...)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, errs.Invariant("expected child at attribute index", map[string]any{
			"parentId":       parentID,
			"attributeIndex": attr,
		})
	}
	return child, nil
}

// AstChildByAttributeIndex returns the slot's child only when it is
// concrete.
func AstChildByAttributeIndex(c Collection, parentID, attr int, allowed ...ast.NodeKind) (*ast.AstNode, error) {
	child, err := XorChildByAttributeIndex(c, parentID, attr, allowed...)
	if err != nil || child == nil {
		return nil, err
	}
	n, _ := child.(*ast.AstNode)
	return n, nil
}

// XorChildren returns the node's children in attribute order.
func XorChildren(c Collection, id int) ([]ast.Node, error) {
	ids := c.ChildIDs(id)
	children := make([]ast.Node, 0, len(ids))
	for _, childID := range ids {
		child, err := ExpectXorNode(c, childID)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

// ExpectAncestry returns the path from the node up to the root, node first.
func ExpectAncestry(c Collection, id int) ([]ast.Node, error) {
	var ancestry []ast.Node
	seen := make(map[int]bool)
	for {
		if seen[id] {
			return nil, errs.Invariant("cycle in parent links", map[string]any{"nodeId": id})
		}
		seen[id] = true
		n, err := ExpectXorNode(c, id)
		if err != nil {
			return nil, err
		}
		ancestry = append(ancestry, n)
		parentID, ok := c.ParentID(id)
		if !ok {
			return ancestry, nil
		}
		id = parentID
	}
}

func checkKind(n ast.Node, allowed []ast.NodeKind) error {
	if len(allowed) == 0 || ast.IsKind(n, allowed...) {
		return nil
	}
	return errs.Invariant("unexpected node kind", map[string]any{
		"nodeId":  n.ID(),
		"kind":    n.Kind().String(),
		"allowed": fmt.Sprint(allowed),
	})
}

// AllIDs returns every node id of c in ascending order.
func AllIDs(c Collection) []int {
	if t, ok := c.(interface{ IDs() []int }); ok {
		return t.IDs()
	}
	seen := make(map[int]bool)
	for _, id := range c.LeafIDs() {
		for ok := true; ok && !seen[id]; id, ok = c.ParentID(id) {
			seen[id] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

package treefile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/nodeidmap"
)

// Tree builds the tree index. Ids must be unique, exactly one node may lack
// a parent, every parent must exist and every node must be reachable from
// the root.
func (d *Document) Tree() (*nodeidmap.Tree, error) {
	byID := make(map[int]ast.Node, len(d.Nodes))
	children := make(map[int][]int)
	rootID, hasRoot := 0, false

	for i := range d.Nodes {
		r := &d.Nodes[i]
		n, err := r.node()
		if err != nil {
			return nil, err
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("node %d: duplicate id", r.ID)
		}
		byID[r.ID] = n
		if r.Parent == nil {
			if hasRoot {
				return nil, fmt.Errorf("node %d: second root (first is %d)", r.ID, rootID)
			}
			rootID, hasRoot = r.ID, true
			continue
		}
		children[*r.Parent] = append(children[*r.Parent], r.ID)
	}
	if !hasRoot {
		return nil, errors.New("tree has no root")
	}

	t := nodeidmap.NewTree()
	if err := t.AddRoot(byID[rootID]); err != nil {
		return nil, err
	}
	queue := []int{rootID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]
		for _, id := range children[parent] {
			if err := t.AddChild(parent, byID[id]); err != nil {
				return nil, err
			}
			queue = append(queue, id)
		}
		delete(children, parent)
	}
	for parent, ids := range children {
		return nil, fmt.Errorf("node %d: parent %d not in tree", ids[0], parent)
	}
	return t, nil
}

func (r *NodeRecord) node() (ast.Node, error) {
	kind, ok := ast.ParseNodeKind(r.Kind)
	if !ok {
		return nil, fmt.Errorf("node %d: unknown kind %q", r.ID, r.Kind)
	}
	attr := ast.NoAttribute
	if r.Attribute != nil {
		attr = *r.Attribute
	}
	if (r.Parent == nil) != (r.Attribute == nil) {
		return nil, fmt.Errorf("node %d: parent and attribute must be given together", r.ID)
	}

	if r.Context {
		n := &ast.ContextNode{NodeID: r.ID, NodeKind: kind, Attribute: attr}
		if r.Start != nil {
			n.Start, n.HasStart = *r.Start, true
		}
		return n, nil
	}

	if r.Start == nil || r.End == nil {
		return nil, fmt.Errorf("node %d: concrete node without span", r.ID)
	}
	literalKind := ast.LiteralNone
	if r.LiteralKind != "" {
		if literalKind, ok = ast.ParseLiteralKind(r.LiteralKind); !ok {
			return nil, fmt.Errorf("node %d: unknown literal kind %q", r.ID, r.LiteralKind)
		}
	}
	if literalKind != ast.LiteralNone && kind != ast.KindLiteralExpression {
		return nil, fmt.Errorf("node %d: literal kind on %s", r.ID, kind)
	}
	return &ast.AstNode{
		NodeID:      r.ID,
		NodeKind:    kind,
		Attribute:   attr,
		Span:        ast.Span{Start: *r.Start, End: *r.End},
		Literal:     r.Literal,
		LiteralKind: literalKind,
	}, nil
}

// FromTree dumps t under uri, nodes in id order.
func FromTree(uri string, t *nodeidmap.Tree) *Document {
	doc := &Document{Version: Version, URI: uri}
	for _, id := range t.IDs() {
		n, _ := t.Node(id)
		doc.Nodes = append(doc.Nodes, Record(t, n))
	}
	return doc
}

// Record is the dump form of n.
func Record(c nodeidmap.Collection, n ast.Node) NodeRecord {
	r := NodeRecord{ID: n.ID(), Kind: n.Kind().String()}
	if attr, ok := n.AttributeIndex(); ok {
		parent, _ := c.ParentID(n.ID())
		r.Parent, r.Attribute = &parent, &attr
	}
	switch n := n.(type) {
	case *ast.AstNode:
		start, end := n.Span.Start, n.Span.End
		r.Start, r.End = &start, &end
		r.Literal = n.Literal
		r.LiteralKind = n.LiteralKind.String()
	case *ast.ContextNode:
		r.Context = true
		if n.HasStart {
			start := n.Start
			r.Start = &start
		}
	}
	return r
}

// SortedByID returns the records ordered by id.
func (d *Document) SortedByID() []NodeRecord {
	nodes := slices.Clone(d.Nodes)
	slices.SortFunc(nodes, func(a, b NodeRecord) int { return a.ID - b.ID })
	return nodes
}

// Package nodeidmap indexes a syntax tree by node id and provides the
// traversal helpers the inspection passes share.
package nodeidmap

import (
	"fmt"
	"slices"

	"github.com/jward/mlens/internal/ast"
)

// Collection is a read-only tree index. Children are ordered by attribute
// index.
type Collection interface {
	Node(id int) (ast.Node, bool)
	ParentID(id int) (int, bool)
	ChildIDs(id int) []int
	LeafIDs() []int
}

var _ Collection = (*Tree)(nil)

// Tree is the in-memory Collection. It is built once and then only read.
type Tree struct {
	nodes    map[int]ast.Node
	parents  map[int]int
	children map[int][]int
	root     int
	hasRoot  bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		nodes:    make(map[int]ast.Node),
		parents:  make(map[int]int),
		children: make(map[int][]int),
	}
}

// AddRoot inserts the root node. Its attribute index must be NoAttribute.
func (t *Tree) AddRoot(n ast.Node) error {
	if t.hasRoot {
		return fmt.Errorf("add root %d: tree already has root %d", n.ID(), t.root)
	}
	if _, ok := n.AttributeIndex(); ok {
		return fmt.Errorf("add root %d: root must not have an attribute index", n.ID())
	}
	if err := t.insert(n); err != nil {
		return err
	}
	t.root = n.ID()
	t.hasRoot = true
	return nil
}

// AddChild inserts n under parentID. The parent must already exist and n's
// attribute index must be a free slot of the parent's production.
func (t *Tree) AddChild(parentID int, n ast.Node) error {
	parent, ok := t.nodes[parentID]
	if !ok {
		return fmt.Errorf("add node %d: parent %d not found", n.ID(), parentID)
	}
	attr, ok := n.AttributeIndex()
	if !ok {
		return fmt.Errorf("add node %d: child without attribute index", n.ID())
	}
	if !parent.Kind().HasAttribute(attr) {
		return fmt.Errorf("add node %d: %s has no attribute %d", n.ID(), parent.Kind(), attr)
	}
	siblings := t.children[parentID]
	pos, found := slices.BinarySearchFunc(siblings, attr, func(id, target int) int {
		a, _ := t.nodes[id].AttributeIndex()
		return a - target
	})
	if found {
		return fmt.Errorf("add node %d: attribute %d of %d already taken", n.ID(), attr, parentID)
	}
	if err := t.insert(n); err != nil {
		return err
	}
	t.children[parentID] = slices.Insert(siblings, pos, n.ID())
	t.parents[n.ID()] = parentID
	return nil
}

func (t *Tree) insert(n ast.Node) error {
	if !n.Kind().IsValid() {
		return fmt.Errorf("add node %d: invalid kind %d", n.ID(), int(n.Kind()))
	}
	if _, dup := t.nodes[n.ID()]; dup {
		return fmt.Errorf("add node %d: duplicate id", n.ID())
	}
	t.nodes[n.ID()] = n
	return nil
}

// Node returns the node with the given id.
func (t *Tree) Node(id int) (ast.Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// ParentID returns the id of the node's parent. ok is false for the root
// and for unknown ids.
func (t *Tree) ParentID(id int) (int, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// ChildIDs returns the node's children in attribute order. The slice must
// not be modified.
func (t *Tree) ChildIDs(id int) []int {
	return t.children[id]
}

// Root returns the root id.
func (t *Tree) Root() (int, bool) {
	return t.root, t.hasRoot
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// IDs returns every node id in ascending order.
func (t *Tree) IDs() []int {
	ids := make([]int, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LeafIDs returns the ids of nodes without children, ordered by source
// position and then by id.
func (t *Tree) LeafIDs() []int {
	var leaves []int
	for id := range t.nodes {
		if len(t.children[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	slices.SortFunc(leaves, func(a, b int) int {
		pa, okA := ast.StartOf(t.nodes[a])
		pb, okB := ast.StartOf(t.nodes[b])
		switch {
		case okA && okB && pa.Before(pb):
			return -1
		case okA && okB && pb.Before(pa):
			return 1
		}
		return a - b
	})
	return leaves
}

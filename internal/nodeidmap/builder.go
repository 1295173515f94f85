package nodeidmap

import (
	"errors"
	"fmt"

	"github.com/jward/mlens/internal/ast"
)

// Builder constructs a Tree in document order. Leaves are laid out left to
// right on the current line separated by one space; composite spans cover
// their leaves. Ids are assigned from 1 in creation order.
//
//	b := NewBuilder()
//	b.Open(ast.KindParenthesizedExpression)
//	b.Leaf(ast.KindConstant, "(")
//	b.Literal(ast.LiteralNumeric, "1")
//	b.Leaf(ast.KindConstant, ")")
//	b.Close()
//	tree, err := b.Build()
type Builder struct {
	tree    *Tree
	stack   []*frame
	nextID  int
	pos     ast.Position
	lastEnd ast.Position
	err     error
}

type frame struct {
	node     ast.Node
	nextAttr int
	started  bool
	start    ast.Position
	end      ast.Position
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{tree: NewTree(), nextID: 1}
}

// Open starts a concrete composite node and returns its id.
func (b *Builder) Open(kind ast.NodeKind) int {
	id := b.nextID
	n := &ast.AstNode{NodeID: id, NodeKind: kind, Attribute: ast.NoAttribute}
	b.push(n, &n.Attribute)
	return id
}

// OpenContext starts a partial node and returns its id.
func (b *Builder) OpenContext(kind ast.NodeKind) int {
	id := b.nextID
	n := &ast.ContextNode{NodeID: id, NodeKind: kind, Attribute: ast.NoAttribute}
	b.push(n, &n.Attribute)
	return id
}

func (b *Builder) push(n ast.Node, attr *int) {
	b.nextID++
	b.add(n, attr)
	b.stack = append(b.stack, &frame{node: n})
}

// add links n under the innermost open node, or makes it the root.
func (b *Builder) add(n ast.Node, attr *int) {
	if len(b.stack) == 0 {
		b.fail(b.tree.AddRoot(n))
		return
	}
	top := b.stack[len(b.stack)-1]
	*attr = top.nextAttr
	top.nextAttr++
	b.fail(b.tree.AddChild(top.node.ID(), n))
}

// Close finishes the innermost open node and returns its id.
func (b *Builder) Close() int {
	if len(b.stack) == 0 {
		b.fail(errors.New("close without open node"))
		return 0
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]

	switch n := top.node.(type) {
	case *ast.AstNode:
		if top.started {
			n.Span = ast.Span{Start: top.start, End: top.end}
		} else {
			n.Span = ast.Span{Start: b.lastEnd, End: b.lastEnd}
		}
	case *ast.ContextNode:
		n.Start, n.HasStart = top.start, top.started
	}
	return top.node.ID()
}

// Leaf adds a concrete leaf of the given kind and returns its id.
func (b *Builder) Leaf(kind ast.NodeKind, literal string) int {
	return b.leaf(kind, literal, ast.LiteralNone)
}

// Literal adds a LiteralExpression leaf.
func (b *Builder) Literal(kind ast.LiteralKind, text string) int {
	return b.leaf(ast.KindLiteralExpression, text, kind)
}

func (b *Builder) leaf(kind ast.NodeKind, literal string, literalKind ast.LiteralKind) int {
	if !kind.IsLeaf() {
		b.fail(fmt.Errorf("leaf %q: %s is not a leaf kind", literal, kind))
	}
	id := b.nextID
	b.nextID++
	start := b.pos
	end := ast.Position{Line: start.Line, Character: start.Character + len(literal)}
	n := &ast.AstNode{
		NodeID:      id,
		NodeKind:    kind,
		Attribute:   ast.NoAttribute,
		Span:        ast.Span{Start: start, End: end},
		Literal:     literal,
		LiteralKind: literalKind,
	}
	b.add(n, &n.Attribute)

	for _, f := range b.stack {
		if !f.started {
			f.started = true
			f.start = start
		}
		f.end = end
	}
	b.lastEnd = end
	b.pos = ast.Position{Line: end.Line, Character: end.Character + 1}
	return id
}

// Skip leaves the next attribute slot of the innermost open node empty.
func (b *Builder) Skip() {
	if len(b.stack) == 0 {
		b.fail(errors.New("skip without open node"))
		return
	}
	b.stack[len(b.stack)-1].nextAttr++
}

// Newline moves layout to the start of the next line.
func (b *Builder) Newline() {
	b.pos = ast.Position{Line: b.pos.Line + 1}
}

// PeekID returns the id the next created node will receive.
func (b *Builder) PeekID() int {
	return b.nextID
}

// Position returns where the next leaf will start.
func (b *Builder) Position() ast.Position {
	return b.pos
}

// Build returns the tree, or the first error encountered while building.
func (b *Builder) Build() (*Tree, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.stack) != 0 {
		return nil, fmt.Errorf("build: %d node(s) left open", len(b.stack))
	}
	if _, ok := b.tree.Root(); !ok {
		return nil, errors.New("build: empty tree")
	}
	return b.tree, nil
}

func (b *Builder) fail(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

package mlens

import (
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/store"
	"github.com/jward/mlens/internal/treefile"
)

// storeNodes maps a dump's records onto node rows.
func storeNodes(doc *treefile.Document) []store.Node {
	nodes := make([]store.Node, 0, len(doc.Nodes))
	for _, r := range doc.Nodes {
		n := store.Node{
			NodeID:         r.ID,
			Kind:           r.Kind,
			IsContext:      r.Context,
			ParentID:       r.Parent,
			AttributeIndex: r.Attribute,
			Literal:        r.Literal,
			LiteralKind:    r.LiteralKind,
		}
		if r.Start != nil {
			n.StartLine, n.StartChar = &r.Start.Line, &r.Start.Character
		}
		if r.End != nil {
			n.EndLine, n.EndChar = &r.End.Line, &r.End.Character
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// dumpFromStore is the inverse of storeNodes.
func dumpFromStore(uri string, nodes []store.Node) *treefile.Document {
	doc := &treefile.Document{Version: treefile.Version, URI: uri, Nodes: make([]treefile.NodeRecord, 0, len(nodes))}
	for _, n := range nodes {
		r := treefile.NodeRecord{
			ID:          n.NodeID,
			Kind:        n.Kind,
			Context:     n.IsContext,
			Parent:      n.ParentID,
			Attribute:   n.AttributeIndex,
			Literal:     n.Literal,
			LiteralKind: n.LiteralKind,
		}
		if n.StartLine != nil && n.StartChar != nil {
			r.Start = &ast.Position{Line: *n.StartLine, Character: *n.StartChar}
		}
		if n.EndLine != nil && n.EndChar != nil {
			r.End = &ast.Position{Line: *n.EndLine, Character: *n.EndChar}
		}
		doc.Nodes = append(doc.Nodes, r)
	}
	return doc
}

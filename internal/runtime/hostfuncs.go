package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/mlens/internal/analysis"
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/inspection"
	"github.com/jward/mlens/internal/nodeidmap"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/types"
)

// Diagnostic is one finding a check script reported.
type Diagnostic struct {
	NodeID  int    `json:"node_id"`
	Message string `json:"message"`
}

type reporter struct {
	diagnostics []Diagnostic
}

// sessionGlobals returns the host functions that read ss. Findings passed
// to report() are appended to rep.
func sessionGlobals(ss *analysis.Session, rep *reporter) map[string]any {
	return map[string]any{
		"node":          makeNodeFn(ss),
		"children":      makeChildrenFn(ss),
		"node_ids":      makeIDListFn("node_ids", func() []int { return nodeidmap.AllIDs(ss.Tree()) }),
		"leaf_ids":      makeIDListFn("leaf_ids", func() []int { return ss.Tree().LeafIDs() }),
		"scope_at":      makeScopeAtFn(ss),
		"type_of":       makeTypeOfFn(ss),
		"expected_type": makeExpectedTypeFn(ss),
		"accepts":       makeAcceptsFn(ss),
		"is_subset":     makeCompareFn("is_subset", ss.IsSubset),
		"is_equal_type": makeCompareFn("is_equal_type", ss.IsEqualType),
		"inspect_at":    makeInspectAtFn(ss),
		"report":        makeReportFn(rep),
	}
}

// nodeArg reads a node id argument.
func nodeArg(name string, args []object.Object, i int) (int, *object.Error) {
	id, err := toInt(args[i])
	if err != nil {
		return 0, object.Errorf("%s: node id: %v", name, err)
	}
	return id, nil
}

func positionToObject(p ast.Position) object.Object {
	return object.NewMap(map[string]object.Object{
		"line":      object.NewInt(int64(p.Line)),
		"character": object.NewInt(int64(p.Character)),
	})
}

func nodeToObject(c nodeidmap.Collection, n ast.Node) object.Object {
	m := map[string]object.Object{
		"id":        object.NewInt(int64(n.ID())),
		"kind":      object.NewString(n.Kind().String()),
		"context":   object.NewBool(false),
		"attribute": object.Nil,
		"parent":    object.Nil,
		"literal":   object.Nil,
		"start":     object.Nil,
		"end":       object.Nil,
	}
	if attr, ok := n.AttributeIndex(); ok {
		m["attribute"] = object.NewInt(int64(attr))
	}
	if parent, ok := c.ParentID(n.ID()); ok {
		m["parent"] = object.NewInt(int64(parent))
	}
	switch n := n.(type) {
	case *ast.AstNode:
		m["start"] = positionToObject(n.Span.Start)
		m["end"] = positionToObject(n.Span.End)
		if n.Literal != "" {
			m["literal"] = object.NewString(n.Literal)
		}
		if n.LiteralKind != ast.LiteralNone {
			m["literal_kind"] = object.NewString(n.LiteralKind.String())
		}
	case *ast.ContextNode:
		m["context"] = object.NewBool(true)
		if n.HasStart {
			m["start"] = positionToObject(n.Start)
		}
	}
	return object.NewMap(m)
}

func intsToList(ids []int) object.Object {
	out := make([]object.Object, 0, len(ids))
	for _, id := range ids {
		out = append(out, object.NewInt(int64(id)))
	}
	return object.NewList(out)
}

// node(id) → map or nil
func makeNodeFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("node", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node", 1, len(args))
		}
		id, errObj := nodeArg("node", args, 0)
		if errObj != nil {
			return errObj
		}
		n, ok := ss.Tree().Node(id)
		if !ok {
			return object.Nil
		}
		return nodeToObject(ss.Tree(), n)
	})
}

// children(id) → [id]
func makeChildrenFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("children", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("children", 1, len(args))
		}
		id, errObj := nodeArg("children", args, 0)
		if errObj != nil {
			return errObj
		}
		return intsToList(ss.Tree().ChildIDs(id))
	})
}

func makeIDListFn(name string, ids func() []int) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError(name, 0, len(args))
		}
		return intsToList(ids())
	})
}

func scopeToObject(items scope.ItemByKey) object.Object {
	m := make(map[string]object.Object, len(items))
	for key, item := range items {
		m[key] = object.NewString(item.Kind().String())
	}
	return object.NewMap(m)
}

// scope_at(id) → {name: item kind}
func makeScopeAtFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("scope_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("scope_at", 1, len(args))
		}
		id, errObj := nodeArg("scope_at", args, 0)
		if errObj != nil {
			return errObj
		}
		items, err := ss.ScopeFor(id)
		if err != nil {
			return object.Errorf("scope_at: %v", err)
		}
		return scopeToObject(items)
	})
}

// type_of(id) → string
func makeTypeOfFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("type_of", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("type_of", 1, len(args))
		}
		id, errObj := nodeArg("type_of", args, 0)
		if errObj != nil {
			return errObj
		}
		t, err := ss.TypeOf(id)
		if err != nil {
			return object.Errorf("type_of: %v", err)
		}
		return object.NewString(t.String())
	})
}

// expected_type(id) → category name
func makeExpectedTypeFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("expected_type", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("expected_type", 1, len(args))
		}
		id, errObj := nodeArg("expected_type", args, 0)
		if errObj != nil {
			return errObj
		}
		c, err := ss.ExpectedTypeOf(id)
		if err != nil {
			return object.Errorf("expected_type: %v", err)
		}
		return object.NewString(c.String())
	})
}

// accepts(id) → "true" | "false" | "indeterminate"
func makeAcceptsFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("accepts", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("accepts", 1, len(args))
		}
		id, errObj := nodeArg("accepts", args, 0)
		if errObj != nil {
			return errObj
		}
		tri, err := ss.Accepts(id)
		if err != nil {
			return object.Errorf("accepts: %v", err)
		}
		return object.NewString(tri.String())
	})
}

func makeCompareFn(name string, compare func(left, right int) (types.Tri, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError(name, 2, len(args))
		}
		left, errObj := nodeArg(name, args, 0)
		if errObj != nil {
			return errObj
		}
		right, errObj := nodeArg(name, args, 1)
		if errObj != nil {
			return errObj
		}
		tri, err := compare(left, right)
		if err != nil {
			return object.Errorf("%s: %v", name, err)
		}
		return object.NewString(tri.String())
	})
}

// inspectedToObject is the script form of an inspection result.
func inspectedToObject(in *inspection.Inspected) object.Object {
	m := map[string]object.Object{
		"scope":      scopeToObject(in.Scope),
		"invoke":     object.Nil,
		"identifier": object.Nil,
	}
	if inv := in.InvokeExpression; inv != nil {
		im := map[string]object.Object{
			"node_id":        object.NewInt(int64(inv.Node.ID())),
			"name":           object.NewString(inv.Name),
			"num_arguments":  object.Nil,
			"argument_index": object.Nil,
		}
		if inv.Arguments != nil {
			im["num_arguments"] = object.NewInt(int64(inv.Arguments.NumArguments))
			im["argument_index"] = object.NewInt(int64(inv.Arguments.PositionArgumentIndex))
		}
		m["invoke"] = object.NewMap(im)
	}
	if pi := in.PositionIdentifier; pi != nil {
		idm := map[string]object.Object{
			"kind":       object.NewString(pi.Kind.String()),
			"name":       object.NewString(pi.Identifier.Literal),
			"node_id":    object.NewInt(int64(pi.Identifier.NodeID)),
			"definition": object.Nil,
		}
		if pi.Definition != nil {
			idm["definition"] = object.NewInt(int64(pi.Definition.ID()))
		}
		m["identifier"] = object.NewMap(idm)
	}
	return object.NewMap(m)
}

// inspect_at(line, character) → {scope, invoke, identifier}
func makeInspectAtFn(ss *analysis.Session) *object.Builtin {
	return object.NewBuiltin("inspect_at", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("inspect_at", 2, len(args))
		}
		line, err := toInt(args[0])
		if err != nil {
			return object.Errorf("inspect_at: line: %v", err)
		}
		char, err := toInt(args[1])
		if err != nil {
			return object.Errorf("inspect_at: character: %v", err)
		}
		in, err := ss.InspectAt(ast.Position{Line: line, Character: char})
		if err != nil {
			return object.Errorf("inspect_at: %v", err)
		}
		return inspectedToObject(in)
	})
}

// report(id, message)
func makeReportFn(rep *reporter) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("report", 2, len(args))
		}
		id, errObj := nodeArg("report", args, 0)
		if errObj != nil {
			return errObj
		}
		var msg string
		if s, ok := args[1].(*object.String); ok {
			msg = s.Value()
		} else {
			msg = args[1].Inspect()
		}
		rep.diagnostics = append(rep.diagnostics, Diagnostic{NodeID: id, Message: msg})
		return object.Nil
	})
}

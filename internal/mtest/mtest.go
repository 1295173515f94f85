// Package mtest builds small M syntax trees for tests.
//
//	f := mtest.Build(t, mtest.Let(
//		[]mtest.Binding{mtest.B("x", mtest.Num("1"))},
//		mtest.Mark("body", mtest.Ident("x")),
//	))
//	f.ID("body")
package mtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/nodeidmap"
)

// Writer is the state an Expr writes into.
type Writer struct {
	*nodeidmap.Builder
	marks map[string]int
}

// Expr writes one syntax node (and its subtree) in document order.
type Expr func(w *Writer)

// Fixture is a built tree plus the ids recorded by Mark.
type Fixture struct {
	Tree  *nodeidmap.Tree
	marks map[string]int
	t     testing.TB
}

// Build writes e as the root of a new tree.
func Build(t testing.TB, e Expr) *Fixture {
	t.Helper()
	w := &Writer{Builder: nodeidmap.NewBuilder(), marks: make(map[string]int)}
	e(w)
	tree, err := w.Build()
	require.NoError(t, err)
	return &Fixture{Tree: tree, marks: w.marks, t: t}
}

// ID returns the id recorded under name.
func (f *Fixture) ID(name string) int {
	f.t.Helper()
	id, ok := f.marks[name]
	require.True(f.t, ok, "no node marked %q", name)
	return id
}

// Node returns the node recorded under name.
func (f *Fixture) Node(name string) ast.Node {
	f.t.Helper()
	n, ok := f.Tree.Node(f.ID(name))
	require.True(f.t, ok)
	return n
}

// Ast returns the concrete node recorded under name.
func (f *Fixture) Ast(name string) *ast.AstNode {
	f.t.Helper()
	n, ok := f.Node(name).(*ast.AstNode)
	require.True(f.t, ok, "node %q is not concrete", name)
	return n
}

// Start returns the first position of the concrete node marked name.
func (f *Fixture) Start(name string) ast.Position {
	return f.Ast(name).Span.Start
}

// End returns the position just after the concrete node marked name.
func (f *Fixture) End(name string) ast.Position {
	return f.Ast(name).Span.End
}

// Mark records the id of the root node e writes.
func Mark(name string, e Expr) Expr {
	return func(w *Writer) {
		w.marks[name] = w.PeekID()
		e(w)
	}
}

// Raw writes directly to the builder.
func Raw(f func(b *nodeidmap.Builder)) Expr {
	return func(w *Writer) { f(w.Builder) }
}

// Newline moves the layout to a new line before writing e.
func Newline(e Expr) Expr {
	return func(w *Writer) {
		w.Newline()
		e(w)
	}
}

func constant(w *Writer, text string) {
	w.Leaf(ast.KindConstant, text)
}

// Num is a numeric literal.
func Num(text string) Expr {
	return func(w *Writer) { w.Literal(ast.LiteralNumeric, text) }
}

// Text is a text literal; quotes are added.
func Text(s string) Expr {
	return func(w *Writer) { w.Literal(ast.LiteralText, `"`+s+`"`) }
}

// Logical is true or false.
func Logical(v bool) Expr {
	text := "false"
	if v {
		text = "true"
	}
	return func(w *Writer) { w.Literal(ast.LiteralLogical, text) }
}

// Null is the null literal.
func Null() Expr {
	return func(w *Writer) { w.Literal(ast.LiteralNull, "null") }
}

// Ident is an identifier reference.
func Ident(name string) Expr {
	return func(w *Writer) {
		w.Open(ast.KindIdentifierExpression)
		w.Skip()
		w.Leaf(ast.KindIdentifier, name)
		w.Close()
	}
}

// InclusiveIdent is an "@name" reference.
func InclusiveIdent(name string) Expr {
	return func(w *Writer) {
		w.Open(ast.KindIdentifierExpression)
		constant(w, "@")
		w.Leaf(ast.KindIdentifier, name)
		w.Close()
	}
}

// Binding is a key with an optional value. A nil Value leaves the value
// slot empty.
type Binding struct {
	Key     string
	Value   Expr
	KeyMark string
}

// B is a binding.
func B(key string, value Expr) Binding {
	return Binding{Key: key, Value: value}
}

// MarkedKey records the binding's key node under name.
func (b Binding) MarkedKey(name string) Binding {
	b.KeyMark = name
	return b
}

func writeWrapped(w *Writer, open, close string, items []Expr) {
	constant(w, open)
	writeCsv(w, items)
	constant(w, close)
}

func writeCsv(w *Writer, items []Expr) {
	w.Open(ast.KindArrayWrapper)
	for i, item := range items {
		w.Open(ast.KindCsv)
		item(w)
		if i < len(items)-1 {
			constant(w, ",")
		}
		w.Close()
	}
	w.Close()
}

func pair(kind, keyKind ast.NodeKind, b Binding) Expr {
	return func(w *Writer) {
		w.Open(kind)
		if b.KeyMark != "" {
			w.marks[b.KeyMark] = w.PeekID()
		}
		w.Leaf(keyKind, b.Key)
		constant(w, "=")
		if b.Value != nil {
			b.Value(w)
		}
		w.Close()
	}
}

func pairs(kind, keyKind ast.NodeKind, bindings []Binding) []Expr {
	items := make([]Expr, len(bindings))
	for i, b := range bindings {
		items[i] = pair(kind, keyKind, b)
	}
	return items
}

// Let is "let bindings in body".
func Let(bindings []Binding, body Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindLetExpression)
		constant(w, "let")
		writeCsv(w, pairs(ast.KindIdentifierPairedExpression, ast.KindIdentifier, bindings))
		constant(w, "in")
		body(w)
		w.Close()
	}
}

// Record is "[k = v, ...]".
func Record(fields ...Binding) Expr {
	return func(w *Writer) {
		w.Open(ast.KindRecordExpression)
		writeWrapped(w, "[", "]", pairs(ast.KindGeneralizedIdentifierPairedExpression, ast.KindGeneralizedIdentifier, fields))
		w.Close()
	}
}

// RecordLiteral is a record in literal position (section attributes).
func RecordLiteral(fields ...Binding) Expr {
	return func(w *Writer) {
		w.Open(ast.KindRecordLiteral)
		writeWrapped(w, "[", "]", pairs(ast.KindGeneralizedIdentifierPairedAnyLiteral, ast.KindGeneralizedIdentifier, fields))
		w.Close()
	}
}

// List is "{a, b}".
func List(items ...Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindListExpression)
		writeWrapped(w, "{", "}", items)
		w.Close()
	}
}

// Paren is "(e)".
func Paren(e Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindParenthesizedExpression)
		constant(w, "(")
		e(w)
		constant(w, ")")
		w.Close()
	}
}

// Each is "each body".
func Each(body Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindEachExpression)
		constant(w, "each")
		body(w)
		w.Close()
	}
}

// Param is a function parameter declaration.
type Param struct {
	Name     string
	Optional bool
	Type     ast.PrimitiveTypeName
	Nullable bool
}

// P is an untyped parameter.
func P(name string) Param {
	return Param{Name: name}
}

func writePrimitive(w *Writer, prim ast.PrimitiveTypeName, nullable bool) {
	if nullable {
		w.Open(ast.KindNullablePrimitiveType)
		constant(w, "nullable")
		w.Leaf(ast.KindPrimitiveType, string(prim))
		w.Close()
		return
	}
	w.Leaf(ast.KindPrimitiveType, string(prim))
}

func writeAsNullablePrimitive(w *Writer, prim ast.PrimitiveTypeName, nullable bool) {
	w.Open(ast.KindAsNullablePrimitiveType)
	constant(w, "as")
	writePrimitive(w, prim, nullable)
	w.Close()
}

// Fn is "(params) => body".
func Fn(params []Param, body Expr) Expr {
	return TypedFn(params, "", false, body)
}

// TypedFn is "(params) as ret => body". An empty ret omits the annotation.
func TypedFn(params []Param, ret ast.PrimitiveTypeName, nullable bool, body Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindFunctionExpression)

		items := make([]Expr, len(params))
		for i, p := range params {
			items[i] = func(w *Writer) {
				w.Open(ast.KindParameter)
				if p.Optional {
					constant(w, "optional")
				} else {
					w.Skip()
				}
				w.Leaf(ast.KindIdentifier, p.Name)
				if p.Type != "" {
					writeAsNullablePrimitive(w, p.Type, p.Nullable)
				}
				w.Close()
			}
		}
		w.Open(ast.KindParameterList)
		writeWrapped(w, "(", ")", items)
		w.Close()

		if ret != "" {
			writeAsNullablePrimitive(w, ret, nullable)
		} else {
			w.Skip()
		}
		constant(w, "=>")
		body(w)
		w.Close()
	}
}

// Suffix is one recursive primary expression suffix.
type Suffix = Expr

// Access is head followed by suffixes: "head[field](args){item}".
func Access(head Expr, suffixes ...Suffix) Expr {
	return func(w *Writer) {
		w.Open(ast.KindRecursivePrimaryExpression)
		head(w)
		w.Open(ast.KindArrayWrapper)
		for _, s := range suffixes {
			s(w)
		}
		w.Close()
		w.Close()
	}
}

// Call is "callee(args)".
func Call(callee string, args ...Expr) Expr {
	return Access(Ident(callee), Args(args...))
}

// Args is an invocation suffix.
func Args(args ...Expr) Suffix {
	return func(w *Writer) {
		w.Open(ast.KindInvokeExpression)
		writeWrapped(w, "(", ")", args)
		w.Close()
	}
}

// Field is a "[name]" selector suffix.
func Field(name string) Suffix {
	return func(w *Writer) {
		w.Open(ast.KindFieldSelector)
		constant(w, "[")
		w.Leaf(ast.KindGeneralizedIdentifier, name)
		constant(w, "]")
		w.Close()
	}
}

// Item is a "{index}" item access suffix.
func Item(index Expr) Suffix {
	return func(w *Writer) {
		w.Open(ast.KindItemAccessExpression)
		constant(w, "{")
		index(w)
		constant(w, "}")
		w.Close()
	}
}

// Binary is "left op right" for the binary operator kinds.
func Binary(kind ast.NodeKind, left Expr, op string, right Expr) Expr {
	return func(w *Writer) {
		w.Open(kind)
		left(w)
		constant(w, op)
		right(w)
		w.Close()
	}
}

// As is "e as [nullable] prim".
func As(e Expr, prim ast.PrimitiveTypeName, nullable bool) Expr {
	return func(w *Writer) {
		w.Open(ast.KindAsExpression)
		e(w)
		constant(w, "as")
		writePrimitive(w, prim, nullable)
		w.Close()
	}
}

// Is is "e is [nullable] prim".
func Is(e Expr, prim ast.PrimitiveTypeName, nullable bool) Expr {
	return func(w *Writer) {
		w.Open(ast.KindIsExpression)
		e(w)
		constant(w, "is")
		writePrimitive(w, prim, nullable)
		w.Close()
	}
}

// If is "if cond then t else f".
func If(cond, t, f Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindIfExpression)
		constant(w, "if")
		cond(w)
		constant(w, "then")
		t(w)
		constant(w, "else")
		f(w)
		w.Close()
	}
}

// Try is "try e" or, with a non-nil otherwise, "try e otherwise o".
func Try(e, otherwise Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindErrorHandlingExpression)
		constant(w, "try")
		e(w)
		if otherwise != nil {
			w.Open(ast.KindOtherwiseExpression)
			constant(w, "otherwise")
			otherwise(w)
			w.Close()
		}
		w.Close()
	}
}

// Raise is "error e".
func Raise(e Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindErrorRaisingExpression)
		constant(w, "error")
		e(w)
		w.Close()
	}
}

// Unary is "op operand".
func Unary(op string, operand Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindUnaryExpression)
		w.Open(ast.KindArrayWrapper)
		constant(w, op)
		w.Close()
		operand(w)
		w.Close()
	}
}

// Meta is "left meta right".
func Meta(left, right Expr) Expr {
	return func(w *Writer) {
		w.Open(ast.KindMetadataExpression)
		left(w)
		constant(w, "meta")
		right(w)
		w.Close()
	}
}

// TypePrimitive is "type prim".
func TypePrimitive(prim ast.PrimitiveTypeName) Expr {
	return func(w *Writer) {
		w.Open(ast.KindTypePrimaryType)
		constant(w, "type")
		w.Leaf(ast.KindPrimitiveType, string(prim))
		w.Close()
	}
}

// NotImplemented is "...".
func NotImplemented() Expr {
	return func(w *Writer) {
		w.Open(ast.KindNotImplementedExpression)
		constant(w, "...")
		w.Close()
	}
}

// Section is "section Name; member = value; ...".
func Section(name string, members ...Binding) Expr {
	return func(w *Writer) {
		w.Open(ast.KindSection)
		w.Skip()
		constant(w, "section")
		w.Leaf(ast.KindIdentifier, name)
		constant(w, ";")
		w.Open(ast.KindArrayWrapper)
		for _, m := range members {
			w.Newline()
			w.Open(ast.KindSectionMember)
			w.Skip()
			w.Skip()
			pair(ast.KindIdentifierPairedExpression, ast.KindIdentifier, m)(w)
			constant(w, ";")
			w.Close()
		}
		w.Close()
		w.Close()
	}
}

// Partial is a context node of the given kind whose present children are
// written in slot order.
func Partial(kind ast.NodeKind, children ...Expr) Expr {
	return func(w *Writer) {
		w.OpenContext(kind)
		for _, c := range children {
			c(w)
		}
		w.Close()
	}
}

// Skip leaves a slot of the enclosing node empty.
func Skip() Expr {
	return func(w *Writer) { w.Skip() }
}

// Constant is a keyword or punctuation leaf.
func Constant(text string) Expr {
	return func(w *Writer) { constant(w, text) }
}

// Leaf is a concrete leaf of any leaf kind.
func Leaf(kind ast.NodeKind, literal string) Expr {
	return func(w *Writer) { w.Leaf(kind, literal) }
}

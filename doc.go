// Package mlens provides semantic inspection of Power Query M syntax trees.
// It does not parse M itself: trees come from an external parser as dump
// files (JSON, YAML or CBOR) holding a flat node list.
//
// # Pipeline
//
//  1. Index: each dump is decoded, validated (JSON against an embedded
//     schema, every format for tree shape), hashed and stored in SQLite.
//     Unchanged documents are skipped by content hash.
//
//  2. Query: [Engine.Open] rebuilds a stored tree and wraps it in an
//     analysis session. Scopes computed by one query are cached for the
//     next.
//
// # Usage
//
//	e, err := mlens.New("mlens.db", "")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/dumps")
//
//	q, err := e.Open("file:///query.pq")
//	inspected, err := q.InspectAt(3, 14)
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Open] provides:
//
//   - [QueryBuilder.InspectAt]: names in scope at a cursor, the call the
//     cursor is an argument of, and the identifier under it.
//   - [QueryBuilder.ScopeFor]: names visible at a node.
//   - [QueryBuilder.TypeOf]: the inferred type of a node.
//   - [QueryBuilder.ExpectedTypeOf] and [QueryBuilder.Accepts]: the
//     category the grammar requires of a node's slot, and whether the
//     inferred type fits it.
//   - [QueryBuilder.IsSubset] and [QueryBuilder.IsEqualType]: three-valued
//     type comparison.
//   - [QueryBuilder.Completions]: visible names ranked against a prefix.
//
// # Checks
//
// Checks are Risor scripts under checks/ that walk a session through host
// functions and call report(id, message). [Engine.Check] runs one,
// [Engine.CheckAll] runs the bundled set. See the internal/runtime package
// for the globals exposed to scripts.
package mlens

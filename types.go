package mlens

import (
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/inspection"
	"github.com/jward/mlens/internal/runtime"
	"github.com/jward/mlens/internal/scope"
	"github.com/jward/mlens/internal/settings"
	"github.com/jward/mlens/internal/store"
	"github.com/jward/mlens/internal/types"
)

// Public type aliases for internal types used in the Engine and
// QueryBuilder API. External consumers use these names; no conversion is
// needed.

type Store = store.Store
type Document = store.Document
type Settings = settings.Settings
type Diagnostic = runtime.Diagnostic

type Node = ast.Node
type Position = ast.Position

type Inspected = inspection.Inspected
type Completion = inspection.Completion
type ScopeItems = scope.ItemByKey

type Type = types.Type
type Tri = types.Tri
type Category = types.Category

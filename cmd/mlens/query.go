package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/mlens"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the semantic index",
	Long:  "Run scope, type and cursor queries against indexed syntax trees. All line and character numbers are 0-based.",
}

func init() {
	queryCmd.AddCommand(documentsCmd)
	queryCmd.AddCommand(inspectCmd)
	queryCmd.AddCommand(scopeCmd)
	queryCmd.AddCommand(typeCmd)
	queryCmd.AddCommand(expectedCmd)
	queryCmd.AddCommand(subsetCmd)
	queryCmd.AddCommand(equalCmd)
	queryCmd.AddCommand(completeCmd)
}

// --- Helpers ---

// openEngine opens the engine on the --db path (or default). The database
// must already exist.
func openEngine() (*mlens.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(findRepoRoot(cwd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'mlens index' first)", dbPath)
	}
	return newEngine(dbPath, false)
}

// openDocument opens the engine and a query builder for uri. The caller
// closes the engine.
func openDocument(uri string) (*mlens.Engine, *mlens.QueryBuilder, error) {
	engine, err := openEngine()
	if err != nil {
		return nil, nil, err
	}
	q, err := engine.Open(uri)
	if err != nil {
		engine.Close()
		return nil, nil, err
	}
	return engine, q, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// parsePosition parses <line> <char> arguments.
func parsePosition(lineArg, charArg string) (int, int, error) {
	line, err := parseIntArg(lineArg, "line")
	if err != nil {
		return 0, 0, err
	}
	character, err := parseIntArg(charArg, "character")
	if err != nil {
		return 0, 0, err
	}
	return line, character, nil
}

func scopeToCLI(items mlens.ScopeItems) []CLIScopeEntry {
	out := make([]CLIScopeEntry, 0, len(items))
	for _, key := range items.Keys() {
		item := items[key]
		out = append(out, CLIScopeEntry{
			Name:      key,
			Kind:      item.Kind().String(),
			NodeID:    item.NodeID(),
			Recursive: item.Recursive(),
		})
	}
	return out
}

func inspectionToCLI(in *mlens.Inspected) CLIInspection {
	out := CLIInspection{Scope: scopeToCLI(in.Scope)}
	if inv := in.InvokeExpression; inv != nil {
		out.Invoke = &CLIInvoke{NodeID: inv.Node.ID(), Name: inv.Name}
		if args := inv.Arguments; args != nil {
			num, index := args.NumArguments, args.PositionArgumentIndex
			out.Invoke.NumArguments, out.Invoke.ArgumentIndex = &num, &index
		}
	}
	if pi := in.PositionIdentifier; pi != nil {
		out.Identifier = &CLIIdentifier{
			Name:   pi.Identifier.Literal,
			Kind:   pi.Kind.String(),
			NodeID: pi.Identifier.ID(),
		}
		if pi.Definition != nil {
			id := pi.Definition.ID()
			out.Identifier.DefinitionID = &id
		}
	}
	return out
}

// --- Commands ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

func runDocuments(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("documents", err)
	}
	defer engine.Close()

	docs, err := engine.Store().Documents()
	if err != nil {
		return outputError("documents", err)
	}
	out := make([]CLIDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, CLIDocument{
			ID:        d.ID,
			URI:       d.URI,
			Hash:      d.Hash,
			NodeCount: d.NodeCount,
			IndexedAt: d.IndexedAt.Format(time.RFC3339),
		})
	}
	return outputResult(CLIResult{Command: "documents", Results: out})
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <uri> <line> <char>",
	Short: "Inspect the names, call and identifier at a cursor",
	Args:  cobra.ExactArgs(3),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	line, character, err := parsePosition(args[1], args[2])
	if err != nil {
		return outputError("inspect", err)
	}
	engine, q, err := openDocument(args[0])
	if err != nil {
		return outputError("inspect", err)
	}
	defer engine.Close()

	in, err := q.InspectAt(line, character)
	if err != nil {
		return outputError("inspect", err)
	}
	return outputResult(CLIResult{Command: "inspect", Results: inspectionToCLI(in)})
}

var scopeCmd = &cobra.Command{
	Use:   "scope <uri> <node>",
	Short: "List the names visible at a node",
	Args:  cobra.ExactArgs(2),
	RunE:  runScope,
}

func runScope(cmd *cobra.Command, args []string) error {
	nodeID, err := parseIntArg(args[1], "node")
	if err != nil {
		return outputError("scope", err)
	}
	engine, q, err := openDocument(args[0])
	if err != nil {
		return outputError("scope", err)
	}
	defer engine.Close()

	items, err := q.ScopeFor(nodeID)
	if err != nil {
		return outputError("scope", err)
	}
	return outputResult(CLIResult{Command: "scope", Results: scopeToCLI(items)})
}

var typeCmd = &cobra.Command{
	Use:   "type <uri> <node>",
	Short: "Infer a node's type and check it against its slot",
	Args:  cobra.ExactArgs(2),
	RunE:  runType,
}

func runType(cmd *cobra.Command, args []string) error {
	nodeID, err := parseIntArg(args[1], "node")
	if err != nil {
		return outputError("type", err)
	}
	engine, q, err := openDocument(args[0])
	if err != nil {
		return outputError("type", err)
	}
	defer engine.Close()

	n, ok := q.Node(nodeID)
	if !ok {
		return outputError("type", fmt.Errorf("node %d not found in %s", nodeID, args[0]))
	}
	t, err := q.TypeOf(nodeID)
	if err != nil {
		return outputError("type", err)
	}
	expected, err := q.ExpectedTypeOf(nodeID)
	if err != nil {
		return outputError("type", err)
	}
	accepts, err := q.Accepts(nodeID)
	if err != nil {
		return outputError("type", err)
	}
	return outputResult(CLIResult{Command: "type", Results: CLIType{
		NodeID:   nodeID,
		Kind:     n.Kind().String(),
		Type:     t.String(),
		Expected: expected.String(),
		Accepts:  accepts.String(),
	}})
}

var expectedCmd = &cobra.Command{
	Use:   "expected <parent-kind> <index>",
	Short: "Look up the category the grammar requires of a child slot",
	Args:  cobra.ExactArgs(2),
	RunE:  runExpected,
}

func runExpected(cmd *cobra.Command, args []string) error {
	index, err := parseIntArg(args[1], "index")
	if err != nil {
		return outputError("expected", err)
	}
	category, err := mlens.ExpectedType(args[0], index)
	if err != nil {
		return outputError("expected", err)
	}
	return outputResult(CLIResult{Command: "expected", Results: CLIExpected{
		ParentKind: args[0],
		Index:      index,
		Category:   category.String(),
	}})
}

var subsetCmd = &cobra.Command{
	Use:   "subset <uri> <left> <right>",
	Short: "Check whether the left node's type is a subset of the right's",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare("subset", args, (*mlens.QueryBuilder).IsSubset)
	},
}

var equalCmd = &cobra.Command{
	Use:   "equal <uri> <left> <right>",
	Short: "Check whether two nodes have the same type",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompare("equal", args, (*mlens.QueryBuilder).IsEqualType)
	},
}

func runCompare(command string, args []string, compare func(*mlens.QueryBuilder, int, int) (mlens.Tri, error)) error {
	left, err := parseIntArg(args[1], "left")
	if err != nil {
		return outputError(command, err)
	}
	right, err := parseIntArg(args[2], "right")
	if err != nil {
		return outputError(command, err)
	}
	engine, q, err := openDocument(args[0])
	if err != nil {
		return outputError(command, err)
	}
	defer engine.Close()

	result, err := compare(q, left, right)
	if err != nil {
		return outputError(command, err)
	}
	leftType, err := q.TypeOf(left)
	if err != nil {
		return outputError(command, err)
	}
	rightType, err := q.TypeOf(right)
	if err != nil {
		return outputError(command, err)
	}
	return outputResult(CLIResult{Command: command, Results: CLIVerdict{
		Relation:  command,
		Left:      left,
		LeftType:  leftType.String(),
		Right:     right,
		RightType: rightType.String(),
		Result:    result.String(),
	}})
}

var completeCmd = &cobra.Command{
	Use:   "complete <uri> <line> <char> [prefix]",
	Short: "Rank the names visible at a cursor against a prefix",
	Args:  cobra.RangeArgs(3, 4),
	RunE:  runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	line, character, err := parsePosition(args[1], args[2])
	if err != nil {
		return outputError("complete", err)
	}
	prefix := ""
	if len(args) == 4 {
		prefix = args[3]
	}
	engine, q, err := openDocument(args[0])
	if err != nil {
		return outputError("complete", err)
	}
	defer engine.Close()

	completions, err := q.Completions(line, character, prefix)
	if err != nil {
		return outputError("complete", err)
	}
	out := make([]CLICompletion, 0, len(completions))
	for _, c := range completions {
		out = append(out, CLICompletion{Label: c.Label, Kind: c.Kind.String(), Distance: c.Distance})
	}
	return outputResult(CLIResult{Command: "complete", Results: out})
}

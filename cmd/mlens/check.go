package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jward/mlens"
	"github.com/jward/mlens/internal/ast"
	"github.com/jward/mlens/internal/runtime"
	"github.com/jward/mlens/scripts"
)

var flagScript string

var checkCmd = &cobra.Command{
	Use:   "check <uri>",
	Short: "Run check scripts against an indexed document",
	Long:  "Runs every bundled check, or only --script, against the stored tree for uri and prints the diagnostics they report.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagScript, "script", "", "run only the named check (e.g. unresolved)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	uri := args[0]
	engine, q, err := openDocument(uri)
	if err != nil {
		return outputError("check", err)
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	names := scripts.Checks
	byCheck := map[string][]mlens.Diagnostic{}
	if flagScript != "" {
		names = []string{flagScript}
		diags, err := engine.Check(ctx, uri, runtime.CheckScriptPath(flagScript))
		if err != nil {
			return outputError("check", err)
		}
		byCheck[flagScript] = diags
	} else {
		byCheck, err = engine.CheckAll(ctx, uri)
		if err != nil {
			return outputError("check", err)
		}
	}

	out := []CLIDiagnostic{}
	for _, name := range names {
		for _, d := range byCheck[name] {
			out = append(out, diagnosticToCLI(q, name, d))
		}
	}
	return outputResult(CLIResult{Command: "check", Results: out})
}

// diagnosticToCLI locates d by its node's start, when the node has one.
func diagnosticToCLI(q *mlens.QueryBuilder, check string, d mlens.Diagnostic) CLIDiagnostic {
	out := CLIDiagnostic{Check: check, NodeID: d.NodeID, Message: d.Message}
	n, ok := q.Node(d.NodeID)
	if !ok {
		return out
	}
	out.Kind = n.Kind().String()
	var start ast.Position
	switch n := n.(type) {
	case *ast.AstNode:
		start = n.Span.Start
	case *ast.ContextNode:
		if !n.HasStart {
			return out
		}
		start = n.Start
	}
	line, character := start.Line, start.Character
	out.Line, out.Character = &line, &character
	return out
}

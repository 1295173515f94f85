package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var validFormats = []string{"json", "text"}

func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIDocument:
		formatDocumentsText(w, v)
	case []CLIScopeEntry:
		formatScopeText(w, v)
	case CLIInspection:
		formatInspectionText(w, v)
	case CLIType:
		formatTypeText(w, v)
	case CLIExpected:
		fmt.Fprintf(w, "%s[%d]: %s\n", v.ParentKind, v.Index, v.Category)
	case CLIVerdict:
		fmt.Fprintf(w, "#%d (%s) %s #%d (%s): %s\n",
			v.Left, v.LeftType, v.Relation, v.Right, v.RightType, verdict(v.Result))
	case []CLICompletion:
		formatCompletionsText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// verdict colors a three-valued result.
func verdict(result string) string {
	switch result {
	case "true":
		return color.GreenString(result)
	case "false":
		return color.RedString(result)
	default:
		return color.YellowString(result)
	}
}

func formatDocumentsText(w io.Writer, docs []CLIDocument) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tURI\tNODES\tINDEXED")
	for _, d := range docs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", d.ID, d.URI, d.NodeCount, d.IndexedAt)
	}
	tw.Flush()
}

func formatScopeText(w io.Writer, entries []CLIScopeEntry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tNODE\tRECURSIVE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", e.Name, e.Kind, e.NodeID, e.Recursive)
	}
	tw.Flush()
}

func formatInspectionText(w io.Writer, in CLIInspection) {
	if in.Identifier != nil {
		fmt.Fprintf(w, "Identifier: %s (%s, #%d)", in.Identifier.Name, in.Identifier.Kind, in.Identifier.NodeID)
		if in.Identifier.DefinitionID != nil {
			fmt.Fprintf(w, " defined at #%d", *in.Identifier.DefinitionID)
		}
		fmt.Fprintln(w)
	}
	if in.Invoke != nil {
		name := in.Invoke.Name
		if name == "" {
			name = "(expression)"
		}
		fmt.Fprintf(w, "Invoke: %s (#%d)", name, in.Invoke.NodeID)
		if in.Invoke.ArgumentIndex != nil {
			fmt.Fprintf(w, " argument %d of %d", *in.Invoke.ArgumentIndex, *in.Invoke.NumArguments)
		}
		fmt.Fprintln(w)
	}
	if len(in.Scope) > 0 {
		fmt.Fprintln(w, "Scope:")
		formatScopeText(w, in.Scope)
	}
}

func formatTypeText(w io.Writer, t CLIType) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tKIND\tTYPE\tEXPECTED\tACCEPTS")
	fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", t.NodeID, t.Kind, t.Type, t.Expected, verdict(t.Accepts))
	tw.Flush()
}

func formatCompletionsText(w io.Writer, completions []CLICompletion) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tKIND\tDISTANCE")
	for _, c := range completions {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Label, c.Kind, c.Distance)
	}
	tw.Flush()
}

// formatDiagnosticsText writes "line:char: check: message", or the node id
// when the node carries no span.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		loc := fmt.Sprintf("#%d", d.NodeID)
		if d.Line != nil {
			loc = fmt.Sprintf("%d:%d", *d.Line, *d.Character)
		}
		fmt.Fprintf(w, "%s: %s: %s\n", loc, color.CyanString(d.Check), d.Message)
	}
}

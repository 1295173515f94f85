package main

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIDocument is a JSON-friendly indexed document.
type CLIDocument struct {
	ID        int64  `json:"id"`
	URI       string `json:"uri"`
	Hash      string `json:"hash"`
	NodeCount int    `json:"node_count"`
	IndexedAt string `json:"indexed_at"`
}

// CLIScopeEntry is one visible name.
type CLIScopeEntry struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	NodeID    int    `json:"node_id"`
	Recursive bool   `json:"recursive,omitempty"`
}

// CLIInvoke is the call the cursor is an argument of.
type CLIInvoke struct {
	NodeID        int    `json:"node_id"`
	Name          string `json:"name,omitempty"`
	NumArguments  *int   `json:"num_arguments,omitempty"`
	ArgumentIndex *int   `json:"argument_index,omitempty"`
}

// CLIIdentifier is the identifier under the cursor.
type CLIIdentifier struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	NodeID       int    `json:"node_id"`
	DefinitionID *int   `json:"definition_id,omitempty"`
}

// CLIInspection is the result of inspecting a cursor.
type CLIInspection struct {
	Scope      []CLIScopeEntry `json:"scope"`
	Invoke     *CLIInvoke      `json:"invoke,omitempty"`
	Identifier *CLIIdentifier  `json:"identifier,omitempty"`
}

// CLIType is a node's inferred type alongside what its slot expects.
type CLIType struct {
	NodeID   int    `json:"node_id"`
	Kind     string `json:"kind"`
	Type     string `json:"type"`
	Expected string `json:"expected"`
	Accepts  string `json:"accepts"`
}

// CLIExpected is one expected-type table lookup.
type CLIExpected struct {
	ParentKind string `json:"parent_kind"`
	Index      int    `json:"index"`
	Category   string `json:"category"`
}

// CLIVerdict is a three-valued type comparison.
type CLIVerdict struct {
	Relation  string `json:"relation"`
	Left      int    `json:"left"`
	LeftType  string `json:"left_type"`
	Right     int    `json:"right"`
	RightType string `json:"right_type"`
	Result    string `json:"result"`
}

// CLICompletion is one ranked completion.
type CLICompletion struct {
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Distance int    `json:"distance"`
}

// CLIDiagnostic is one check finding, located when the node has a span.
type CLIDiagnostic struct {
	Check     string `json:"check"`
	NodeID    int    `json:"node_id"`
	Kind      string `json:"kind,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Character *int   `json:"character,omitempty"`
	Message   string `json:"message"`
}

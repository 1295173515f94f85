package store

import "time"

// Document is one indexed tree dump.
type Document struct {
	ID        int64
	URI       string
	Hash      string
	NodeCount int
	IndexedAt time.Time
}

// Node is one stored syntax node. Optional columns are nil when absent:
// ParentID and AttributeIndex for the root, the span for context nodes.
type Node struct {
	DocumentID     int64
	NodeID         int
	Kind           string
	IsContext      bool
	ParentID       *int
	AttributeIndex *int
	Literal        string
	LiteralKind    string
	StartLine      *int
	StartChar      *int
	EndLine        *int
	EndChar        *int
}

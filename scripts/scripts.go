// Package scripts embeds the bundled check scripts so a binary can run
// them without a scripts directory on disk.
package scripts

import "embed"

// FS holds checks/*.risor.
//
//go:embed checks/*.risor
var FS embed.FS

// Checks lists the bundled check names in the order mlens runs them.
var Checks = []string{"expected_types", "unresolved"}

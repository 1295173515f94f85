// Package mlens provides semantic inspection of Power Query M syntax trees:
// identifier scope at a cursor, cached scope construction and a
// three-valued type engine.
package mlens

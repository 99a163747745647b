package models

import (
	"encoding/json"
	"strings"
)

// CellKind identifies the type of a notebook cell
type CellKind string

const (
	CellKindCode     CellKind = "code"
	CellKindMarkdown CellKind = "markdown"
)

// Cell is a single markdown or code unit within a notebook document.
// Source follows the nbformat convention of one entry per line, each
// keeping its trailing newline. Outputs are carried opaquely so that
// execution results survive a load/save round trip.
type Cell struct {
	Kind     CellKind
	Source   []string
	Outputs  []json.RawMessage
	Metadata map[string]any
}

// NewCell creates a cell of the given kind holding text
func NewCell(kind CellKind, text string) *Cell {
	c := &Cell{
		Kind:     kind,
		Metadata: map[string]any{},
	}
	c.SetText(text)
	return c
}

// Text returns the cell's logical content: the source lines concatenated
// with no inserted separators.
func (c *Cell) Text() string {
	return strings.Join(c.Source, "")
}

// SetText replaces the cell's source with text split into the nbformat
// line-array convention.
func (c *Cell) SetText(text string) {
	c.Source = splitLines(text)
}

// IsBlank reports whether the cell's content is empty or all-whitespace
func (c *Cell) IsBlank() bool {
	return strings.TrimSpace(c.Text()) == ""
}

// splitLines splits text so each line keeps its trailing newline.
// An empty string yields an empty slice rather than [""].
func splitLines(text string) []string {
	if text == "" {
		return []string{}
	}
	lines := strings.SplitAfter(text, "\n")
	// SplitAfter leaves a trailing empty entry when text ends with a newline
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

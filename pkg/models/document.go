package models

import (
	"fmt"
	"strings"
)

// Document is an ordered, mutable sequence of cells plus notebook-level
// metadata. Cell indices are positions, not identities: Insert and Delete
// shift the indices of every subsequent cell.
type Document struct {
	Cells    []*Cell
	Metadata map[string]any
}

// NewDocument creates an empty document carrying the kernelspec and
// language_info metadata a fresh notebook needs to open in Jupyter.
func NewDocument() *Document {
	return &Document{
		Cells: []*Cell{},
		Metadata: map[string]any{
			"kernelspec": map[string]any{
				"display_name": "Python 3",
				"language":     "python",
				"name":         "python3",
			},
			"language_info": map[string]any{
				"codemirror_mode": map[string]any{
					"name":    "ipython",
					"version": 3,
				},
				"file_extension":     ".py",
				"mimetype":           "text/x-python",
				"name":               "python",
				"nbconvert_exporter": "python",
				"pygments_lexer":     "ipython3",
				"version":            "3.8.10",
			},
		},
	}
}

// Len returns the number of cells
func (d *Document) Len() int {
	return len(d.Cells)
}

// Insert places cell at index when 0 <= index < Len(); any out-of-range
// index degrades to an append. The cell is never dropped and no error is
// ever raised.
func (d *Document) Insert(cell *Cell, index int) {
	if index >= 0 && index < len(d.Cells) {
		d.Cells = append(d.Cells[:index], append([]*Cell{cell}, d.Cells[index:]...)...)
		return
	}
	d.Cells = append(d.Cells, cell)
}

// Append adds cell at the end of the document
func (d *Document) Append(cell *Cell) {
	d.Cells = append(d.Cells, cell)
}

// Replace overwrites the source of the cell at index with text. Returns
// false without touching the document when index is out of range.
func (d *Document) Replace(index int, text string) bool {
	if index < 0 || index >= len(d.Cells) {
		return false
	}
	d.Cells[index].SetText(text)
	return true
}

// Delete removes the cell at index. Returns false without touching the
// document when index is out of range.
func (d *Document) Delete(index int) bool {
	if index < 0 || index >= len(d.Cells) {
		return false
	}
	d.Cells = append(d.Cells[:index], d.Cells[index+1:]...)
	return true
}

// ToContextText renders every cell, including blank ones, as a numbered
// plain-text transcript. This is the view fed back to the model as prompt
// context; blank in-flight placeholder cells stay visible here on purpose,
// unlike in Serialize.
func (d *Document) ToContextText() string {
	var sb strings.Builder
	sb.WriteString("# Notebook Content:\n\n")
	for i, cell := range d.Cells {
		fmt.Fprintf(&sb, "## Cell %d (%s):\n%s\n\n", i+1, cell.Kind, cell.Text())
	}
	return sb.String()
}

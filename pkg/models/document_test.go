package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInsertOutOfRangeAppends(t *testing.T) {
	tests := []struct {
		name  string
		index int
	}{
		{"negative index", -1},
		{"index equal to length", 2},
		{"index far past end", 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument()
			doc.Append(NewCell(CellKindMarkdown, "first"))
			doc.Append(NewCell(CellKindMarkdown, "second"))

			doc.Insert(NewCell(CellKindCode, "x = 1"), tt.index)

			if doc.Len() != 3 {
				t.Fatalf("expected 3 cells, got %d", doc.Len())
			}
			if got := doc.Cells[2].Text(); got != "x = 1" {
				t.Errorf("expected inserted cell appended at end, last cell is %q", got)
			}
		})
	}
}

func TestInsertInRange(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "first"))
	doc.Append(NewCell(CellKindMarkdown, "third"))

	doc.Insert(NewCell(CellKindMarkdown, "second"), 1)

	want := []string{"first", "second", "third"}
	for i, text := range want {
		if got := doc.Cells[i].Text(); got != text {
			t.Errorf("cell %d: expected %q, got %q", i, text, got)
		}
	}
}

func TestReplaceOutOfRange(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindCode, "x = 1"))

	if doc.Replace(1, "changed") {
		t.Error("expected Replace out of range to return false")
	}
	if doc.Replace(-1, "changed") {
		t.Error("expected Replace at negative index to return false")
	}
	if got := doc.Cells[0].Text(); got != "x = 1" {
		t.Errorf("cell content changed by failed Replace: %q", got)
	}
}

func TestDeleteOutOfRange(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindCode, "x = 1"))

	if doc.Delete(1) {
		t.Error("expected Delete out of range to return false")
	}
	if doc.Delete(-1) {
		t.Error("expected Delete at negative index to return false")
	}
	if doc.Len() != 1 {
		t.Errorf("cell count changed by failed Delete: %d", doc.Len())
	}
}

func TestDeleteShiftsIndices(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "a"))
	doc.Append(NewCell(CellKindMarkdown, "b"))
	doc.Append(NewCell(CellKindMarkdown, "c"))

	if !doc.Delete(1) {
		t.Fatal("expected Delete in range to succeed")
	}
	if doc.Len() != 2 {
		t.Fatalf("expected 2 cells, got %d", doc.Len())
	}
	if got := doc.Cells[1].Text(); got != "c" {
		t.Errorf("expected cell at index 1 to be %q, got %q", "c", got)
	}
}

func TestCellText(t *testing.T) {
	cell := NewCell(CellKindCode, "def add(a, b):\n    return a + b\n")

	wantSource := []string{"def add(a, b):\n", "    return a + b\n"}
	if len(cell.Source) != len(wantSource) {
		t.Fatalf("expected %d source lines, got %d: %#v", len(wantSource), len(cell.Source), cell.Source)
	}
	for i, line := range wantSource {
		if cell.Source[i] != line {
			t.Errorf("line %d: expected %q, got %q", i, line, cell.Source[i])
		}
	}
	if got := cell.Text(); got != "def add(a, b):\n    return a + b\n" {
		t.Errorf("Text() did not round-trip: %q", got)
	}
}

func TestContextTextIncludesBlankCells(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "# Title"))
	doc.Append(NewCell(CellKindCode, ""))

	text := doc.ToContextText()
	if !strings.Contains(text, "## Cell 1 (markdown):") {
		t.Errorf("context text missing first cell header:\n%s", text)
	}
	if !strings.Contains(text, "## Cell 2 (code):") {
		t.Errorf("context text missing blank cell header:\n%s", text)
	}
}

func TestSerializeExcludesBlankCells(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "# Title"))
	doc.Append(NewCell(CellKindCode, "   \n\t\n"))

	data, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var raw struct {
		Cells []json.RawMessage `json:"cells"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(raw.Cells) != 1 {
		t.Errorf("expected blank cell filtered out, got %d cells", len(raw.Cells))
	}
}

func TestSerializeFieldShapes(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "# Title"))
	doc.Append(NewCell(CellKindCode, "print(1)"))

	data, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	var raw struct {
		Cells    []map[string]json.RawMessage `json:"cells"`
		Metadata map[string]any               `json:"metadata"`
		NBFormat int                          `json:"nbformat"`
		Minor    int                          `json:"nbformat_minor"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if raw.NBFormat != 4 || raw.Minor != 5 {
		t.Errorf("expected nbformat 4.5, got %d.%d", raw.NBFormat, raw.Minor)
	}
	if _, ok := raw.Metadata["kernelspec"]; !ok {
		t.Error("fresh document metadata missing kernelspec")
	}

	md := raw.Cells[0]
	if _, ok := md["outputs"]; ok {
		t.Error("markdown cell must not persist outputs")
	}
	if _, ok := md["execution_count"]; ok {
		t.Error("markdown cell must not persist execution_count")
	}

	code := raw.Cells[1]
	if string(code["execution_count"]) != "null" {
		t.Errorf("code cell execution_count should be null, got %s", code["execution_count"])
	}
	if string(code["outputs"]) != "[]" {
		t.Errorf("code cell outputs should default to [], got %s", code["outputs"])
	}
}

func TestRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc.Append(NewCell(CellKindMarkdown, "# Analysis\n\nSome prose.\n"))
	doc.Append(NewCell(CellKindCode, "import math\nprint(math.pi)\n"))

	data, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	loaded, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 cells after round trip, got %d", loaded.Len())
	}
	for i := range doc.Cells {
		if loaded.Cells[i].Kind != doc.Cells[i].Kind {
			t.Errorf("cell %d kind changed: %s -> %s", i, doc.Cells[i].Kind, loaded.Cells[i].Kind)
		}
		if loaded.Cells[i].Text() != doc.Cells[i].Text() {
			t.Errorf("cell %d source changed:\n%q\n%q", i, doc.Cells[i].Text(), loaded.Cells[i].Text())
		}
	}

	// second pass must be byte-stable
	again, err := loaded.Serialize()
	if err != nil {
		t.Fatalf("second Serialize failed: %v", err)
	}
	if string(again) != string(data) {
		t.Error("serialize/deserialize/serialize is not stable")
	}
}

func TestDeserializeValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"not json", "not a notebook", true},
		{"missing cells", `{"metadata": {}, "nbformat": 4, "nbformat_minor": 5}`, true},
		{"missing nbformat", `{"cells": [], "metadata": {}}`, true},
		{"minimal valid", `{"cells": [], "metadata": {}, "nbformat": 4, "nbformat_minor": 5}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Deserialize([]byte(tt.input))
			if tt.wantErr && err == nil {
				t.Error("expected FormatError, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr && err != nil {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Errorf("expected *FormatError, got %T", err)
				}
			}
		})
	}
}

func TestDeserializeCellDefaults(t *testing.T) {
	input := `{
		"cells": [
			{"metadata": {}, "source": "x = 1\n"},
			{"cell_type": "markdown", "metadata": {}, "source": ["# Hi\n"]}
		],
		"metadata": {},
		"nbformat": 4,
		"nbformat_minor": 5
	}`

	doc, err := Deserialize([]byte(input))
	if err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if doc.Cells[0].Kind != CellKindCode {
		t.Errorf("missing cell_type should default to code, got %s", doc.Cells[0].Kind)
	}
	if got := doc.Cells[0].Text(); got != "x = 1\n" {
		t.Errorf("string source not normalized: %q", got)
	}
	if doc.Cells[1].Kind != CellKindMarkdown {
		t.Errorf("expected markdown cell, got %s", doc.Cells[1].Kind)
	}
}

package models

import (
	"encoding/json"
	"fmt"
)

const (
	nbFormat      = 4
	nbFormatMinor = 5
)

// FormatError reports a persisted notebook that fails required-field
// validation on load.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid notebook format: %s", e.Reason)
}

// rawMarkdownCell is the on-disk shape of a markdown cell. Markdown cells
// never persist outputs or an execution count.
type rawMarkdownCell struct {
	CellType string         `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
}

// rawCodeCell additionally carries execution_count (always null on save)
// and outputs, passed through opaquely.
type rawCodeCell struct {
	CellType       string            `json:"cell_type"`
	ExecutionCount *int              `json:"execution_count"`
	Metadata       map[string]any    `json:"metadata"`
	Outputs        []json.RawMessage `json:"outputs"`
	Source         []string          `json:"source"`
}

type rawDocument struct {
	Cells    []json.RawMessage `json:"cells"`
	Metadata map[string]any    `json:"metadata"`
	NBFormat int               `json:"nbformat"`
	Minor    int               `json:"nbformat_minor"`
}

// sourceLines accepts the two source encodings found in notebooks in the
// wild: an array of lines or a single string.
type sourceLines []string

func (s *sourceLines) UnmarshalJSON(data []byte) error {
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*s = lines
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*s = splitLines(text)
	return nil
}

type rawInCell struct {
	CellType string            `json:"cell_type"`
	Metadata map[string]any    `json:"metadata"`
	Source   sourceLines       `json:"source"`
	Outputs  []json.RawMessage `json:"outputs"`
}

// Serialize emits the document as nbformat 4.5 JSON. Cells whose content
// is empty or all-whitespace are excluded so transient or failed
// placeholder cells never leak into saved output.
func (d *Document) Serialize() ([]byte, error) {
	raw := rawDocument{
		Cells:    []json.RawMessage{},
		Metadata: d.Metadata,
		NBFormat: nbFormat,
		Minor:    nbFormatMinor,
	}
	if raw.Metadata == nil {
		raw.Metadata = map[string]any{}
	}

	for _, cell := range d.Cells {
		if cell.IsBlank() {
			continue
		}
		var (
			data []byte
			err  error
		)
		metadata := cell.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		if cell.Kind == CellKindCode {
			outputs := cell.Outputs
			if outputs == nil {
				outputs = []json.RawMessage{}
			}
			data, err = json.Marshal(rawCodeCell{
				CellType: string(CellKindCode),
				Metadata: metadata,
				Outputs:  outputs,
				Source:   cell.Source,
			})
		} else {
			data, err = json.Marshal(rawMarkdownCell{
				CellType: string(CellKindMarkdown),
				Metadata: metadata,
				Source:   cell.Source,
			})
		}
		if err != nil {
			return nil, fmt.Errorf("marshal cell: %w", err)
		}
		raw.Cells = append(raw.Cells, data)
	}

	out, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal notebook: %w", err)
	}
	return out, nil
}

// Deserialize parses nbformat JSON into a document. Missing required
// top-level fields produce a FormatError; a missing cell_type defaults
// to code.
func Deserialize(data []byte) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &FormatError{Reason: err.Error()}
	}
	for _, field := range []string{"cells", "nbformat"} {
		if _, ok := probe[field]; !ok {
			return nil, &FormatError{Reason: fmt.Sprintf("missing required field %q", field)}
		}
	}

	var cells []rawInCell
	if err := json.Unmarshal(probe["cells"], &cells); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("cells: %s", err)}
	}

	doc := NewDocument()
	if rawMeta, ok := probe["metadata"]; ok {
		var metadata map[string]any
		if err := json.Unmarshal(rawMeta, &metadata); err == nil && metadata != nil {
			doc.Metadata = metadata
		}
	}

	for _, rc := range cells {
		kind := CellKind(rc.CellType)
		if kind != CellKindMarkdown {
			kind = CellKindCode
		}
		cell := &Cell{
			Kind:     kind,
			Source:   rc.Source,
			Metadata: rc.Metadata,
		}
		if cell.Source == nil {
			cell.Source = []string{}
		}
		if cell.Metadata == nil {
			cell.Metadata = map[string]any{}
		}
		if kind == CellKindCode {
			cell.Outputs = rc.Outputs
		}
		doc.Append(cell)
	}

	return doc, nil
}

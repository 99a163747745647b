package generate

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PlannedCell is one planned-cell descriptor inside a section of a
// derive-mode plan. Content is filled for markdown plans, Purpose for
// code plans; both are advisory.
type PlannedCell struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Purpose string `json:"purpose,omitempty"`
}

// Section is one titled unit of a derive-mode plan
type Section struct {
	Title string        `json:"title"`
	Cells []PlannedCell `json:"cells"`
}

// Structure is the derive-mode notebook plan: a title plus ordered
// sections driving the iteration loop. It lives for exactly one derive
// session.
type Structure struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

// Outline renders the plan as the markdown overview placed at the top of
// a derived notebook.
func (s *Structure) Outline() string {
	var sb strings.Builder
	sb.WriteString("# " + s.Title + "\n\n## Sections:\n")
	for _, section := range s.Sections {
		sb.WriteString("- " + section.Title + "\n")
	}
	return sb.String()
}

var titleCaser = cases.Title(language.English)

// parseStructure extracts the plan JSON from a model response. Models
// wrap JSON in prose despite instructions, so the response is sliced from
// the first '{' to the last '}' before decoding. Returns false when no
// valid plan with a title and at least one section can be recovered.
func parseStructure(response string) (*Structure, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	var structure Structure
	if err := json.Unmarshal([]byte(response[start:end+1]), &structure); err != nil {
		return nil, false
	}
	if structure.Title == "" || len(structure.Sections) == 0 {
		return nil, false
	}
	return &structure, true
}

// fallbackStructure is the single-section plan substituted when the model
// fails to produce usable JSON. Structure-parse failures never abort a
// derive session.
func fallbackStructure(prompt string) *Structure {
	prompt = strings.TrimSpace(prompt)
	return &Structure{
		Title: titleCaser.String(prompt),
		Sections: []Section{
			{
				Title: "Introduction",
				Cells: []PlannedCell{
					{Type: "markdown", Content: "# " + prompt + "\n\nThis notebook will explore " + prompt},
					{Type: "code", Purpose: "Setup"},
				},
			},
		},
	}
}

// Package parse converts model output into typed notebook cells. It
// understands the <md>/<code> tag grammar the generation prompts ask for,
// and falls back to fenced-code-block splitting when the model ignores
// the instructions.
package parse

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mattsolo1/nbgen/pkg/models"
)

// VersionCompleteMarker terminates a derive-mode response. Everything
// from the marker onward is ignored by the parser.
const VersionCompleteMarker = "<version_complete>"

var (
	mdRegion   = regexp.MustCompile(`(?s)<md>(.*?)</md>`)
	codeRegion = regexp.MustCompile(`(?s)<code>(.*?)</code>`)

	// fencedBlock captures a complete ```python ... ``` block including
	// its markers; fenceMarker matches a single opening or closing fence
	// line, language-tagged or bare.
	fencedBlock = regexp.MustCompile("(?s)```python.*?```")
	fenceMarker = regexp.MustCompile("```[a-zA-Z0-9_+-]*[ \t]*\r?\n?")
)

// Parse converts a text blob into zero or more cells. It is a pure
// function of its input: the same text always yields the same cells, and
// malformed input yields an empty result rather than an error. Callers
// polling a growing stream buffer must treat an empty result as "nothing
// complete yet".
//
// Strategy selection is by content inspection: the literal substrings
// <md> or <code> anywhere select the tag grammar, otherwise the blob is
// split on fenced code blocks.
func Parse(text string) []*models.Cell {
	if strings.Contains(text, "<md>") || strings.Contains(text, "<code>") {
		return parseTagged(text)
	}
	return parseFenced(text)
}

// HasCompleteUnit reports whether increment closes a tagged cell or ends
// the response. This is the chunking rule derive-mode streaming uses to
// decide when an accumulated buffer is worth parsing.
func HasCompleteUnit(increment string) bool {
	return strings.Contains(increment, "</md>") ||
		strings.Contains(increment, "</code>") ||
		strings.Contains(increment, VersionCompleteMarker)
}

type region struct {
	start int
	body  string
	kind  models.CellKind
}

// parseTagged emits one cell per complete <md>...</md> or <code>...</code>
// region, in document position order. Regions whose closing tag has not
// arrived yet are skipped, which makes repeated calls on a growing buffer
// safe.
func parseTagged(text string) []*models.Cell {
	if i := strings.Index(text, VersionCompleteMarker); i >= 0 {
		text = text[:i]
	}

	var regions []region
	for _, m := range mdRegion.FindAllStringSubmatchIndex(text, -1) {
		regions = append(regions, region{
			start: m[0],
			body:  text[m[2]:m[3]],
			kind:  models.CellKindMarkdown,
		})
	}
	for _, m := range codeRegion.FindAllStringSubmatchIndex(text, -1) {
		regions = append(regions, region{
			start: m[0],
			body:  text[m[2]:m[3]],
			kind:  models.CellKindCode,
		})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].start < regions[j].start })

	cells := make([]*models.Cell, 0, len(regions))
	for _, r := range regions {
		body := strings.TrimSpace(r.body)
		if r.kind == models.CellKindCode {
			body = strings.TrimSpace(fenceMarker.ReplaceAllString(body, ""))
		}
		cells = append(cells, models.NewCell(r.kind, body))
	}
	return cells
}

// parseFenced splits untagged text on ```python fenced blocks: fenced
// segments become code cells, non-blank text between them becomes
// markdown cells, blank segments are dropped.
func parseFenced(text string) []*models.Cell {
	var cells []*models.Cell

	appendMarkdown := func(segment string) {
		segment = strings.TrimSpace(segment)
		if segment != "" {
			cells = append(cells, models.NewCell(models.CellKindMarkdown, segment))
		}
	}

	last := 0
	for _, m := range fencedBlock.FindAllStringIndex(text, -1) {
		appendMarkdown(text[last:m[0]])
		code := strings.TrimSpace(fenceMarker.ReplaceAllString(text[m[0]:m[1]], ""))
		if code != "" {
			cells = append(cells, models.NewCell(models.CellKindCode, code))
		}
		last = m[1]
	}
	appendMarkdown(text[last:])

	return cells
}

package generate

import "github.com/mattsolo1/nbgen/pkg/models"

// Mode selects the generation strategy
type Mode string

const (
	// ModeSingle generates content for one cell from one chat request
	ModeSingle Mode = "single"
	// ModeDerive plans a notebook outline, then generates each section
	ModeDerive Mode = "derive"
)

// Request describes one generation run. It is immutable once a session
// has started.
type Request struct {
	Prompt  string
	Context string
	Kind    models.CellKind
	Mode    Mode
	Model   string
}

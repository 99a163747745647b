package generate

// Event is one notification from a running session. Events arrive on the
// session's channel in the order the transport produced them; exactly one
// terminal event (Complete or Failure) ends the stream, after which the
// channel is closed.
type Event interface {
	sessionEvent()
}

// Update carries generated text: the cumulative response buffer in single
// mode, one accumulated complete-tagged unit in derive mode.
type Update struct {
	Text string
}

// StructureReady announces the derive-mode plan, letting the consumer
// render the outline before any section content arrives.
type StructureReady struct {
	Structure *Structure
}

// SectionStart announces that generation of the numbered section begins
type SectionStart struct {
	Index int
	Title string
}

// Complete is the terminal success event
type Complete struct{}

// Failure is the terminal error event
type Failure struct {
	Err error
}

func (Update) sessionEvent()         {}
func (StructureReady) sessionEvent() {}
func (SectionStart) sessionEvent()   {}
func (Complete) sessionEvent()       {}
func (Failure) sessionEvent()        {}

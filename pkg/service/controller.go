package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/nbgen/pkg/generate"
	"github.com/mattsolo1/nbgen/pkg/history"
	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/parse"
)

// ErrGenerationInFlight is returned when a generation is requested while
// another one still holds the placeholder. Overlapping sessions are
// rejected, never queued.
var ErrGenerationInFlight = errors.New("a generation is already in progress")

// ErrCellOutOfRange is returned for document edits naming a cell index
// that does not exist.
var ErrCellOutOfRange = errors.New("cell index out of range")

// Controller bridges the document model and generation sessions. It is
// the single writer of the placeholder index and the only party applying
// session events to the document; direct edits go through its methods
// too, so the session-update path and the user-edit path are serialized
// on one mutex.
//
// At most one placeholder cell exists at a time. It holds live progress
// text while a stream is incomplete, is replaced in place by parsed
// cells as complete tagged units arrive, and is deleted on failure so an
// error never leaves a "Generating..." cell behind.
type Controller struct {
	mu      sync.Mutex
	doc     *models.Document
	client  generate.ChatClient
	prompts generate.Prompts
	logger  *logrus.Logger
	hist    *history.Log
	notify  func(generate.Event)

	current     int // selected cell, -1 when nothing is selected
	placeholder int // in-flight placeholder, -1 when no generation is bound
	fresh       bool
	deriving    bool
	outlineCell int
	inFlight    bool
	emitted     int

	cancel  context.CancelFunc
	done    chan struct{}
	termErr error
	entry   *history.Entry
}

// ControllerOption configures a Controller
type ControllerOption func(*Controller)

// WithControllerLogger routes controller logging
func WithControllerLogger(logger *logrus.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithHistory enables recording finished runs to a generation log
func WithHistory(hist *history.Log) ControllerOption {
	return func(c *Controller) {
		c.hist = hist
	}
}

// WithNotify registers a callback invoked after each session event has
// been reconciled into the document. Used by hosts to display progress.
func WithNotify(fn func(generate.Event)) ControllerOption {
	return func(c *Controller) {
		c.notify = fn
	}
}

// NewController creates a controller owning doc
func NewController(doc *models.Document, client generate.ChatClient, prompts generate.Prompts, options ...ControllerOption) *Controller {
	c := &Controller{
		doc:         doc,
		client:      client,
		prompts:     prompts,
		logger:      logrus.StandardLogger(),
		current:     -1,
		placeholder: -1,
		outlineCell: -1,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// SetNotify registers the progress callback. Call it before starting a
// generation; the callback runs on the event-consumption goroutine.
func (c *Controller) SetNotify(fn func(generate.Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notify = fn
}

// Generating reports whether a session currently holds the placeholder
func (c *Controller) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// ResetDocument replaces the controller's document. Rejected while a
// generation is in flight: the placeholder index would go stale.
func (c *Controller) ResetDocument(doc *models.Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrGenerationInFlight
	}
	c.doc = doc
	c.current = doc.Len() - 1
	c.placeholder = -1
	return nil
}

// Cells returns the document's cells for display. The slice is a copy;
// the cells are live and must not be mutated by callers.
func (c *Controller) Cells() []*models.Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	cells := make([]*models.Cell, len(c.doc.Cells))
	copy(cells, c.doc.Cells)
	return cells
}

// ContextText returns the document transcript fed to generation prompts
func (c *Controller) ContextText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.ToContextText()
}

// Serialize renders the document in its persisted format
func (c *Controller) Serialize() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc.Serialize()
}

// SetCurrent selects the cell new generations insert after. Index -1
// clears the selection (placeholders then go to the end).
func (c *Controller) SetCurrent(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < -1 || index >= c.doc.Len() {
		return ErrCellOutOfRange
	}
	c.current = index
	return nil
}

// AddCell appends a cell and returns its index
func (c *Controller) AddCell(kind models.CellKind, text string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc.Append(models.NewCell(kind, text))
	c.current = c.doc.Len() - 1
	return c.current
}

// DeleteCell removes the cell at index. The in-flight placeholder cannot
// be deleted from the outside; deleting a cell before it shifts the
// tracked indices down.
func (c *Controller) DeleteCell(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index == c.placeholder && c.placeholder >= 0 {
		return ErrGenerationInFlight
	}
	if !c.doc.Delete(index) {
		return ErrCellOutOfRange
	}
	if c.placeholder > index {
		c.placeholder--
	}
	if c.current >= c.doc.Len() {
		c.current = c.doc.Len() - 1
	}
	return nil
}

// UpdateCellContent overwrites the source of the cell at index
func (c *Controller) UpdateCellContent(index int, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.doc.Replace(index, text) {
		return ErrCellOutOfRange
	}
	return nil
}

// StartSingle inserts a placeholder cell of kind after the current
// selection (or at the end) and starts a single-cell session for prompt.
func (c *Controller) StartSingle(prompt string, kind models.CellKind, useContext bool, model string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrGenerationInFlight
	}

	contextText := ""
	if useContext {
		contextText = c.doc.ToContextText()
	}

	placeholder := models.NewCell(kind, fmt.Sprintf("Generating %s content with %s...", kind, model))
	if c.current >= 0 && c.current < c.doc.Len() {
		c.doc.Insert(placeholder, c.current+1)
		c.current++
		c.placeholder = c.current
	} else {
		c.doc.Append(placeholder)
		c.placeholder = c.doc.Len() - 1
	}

	session := c.beginSession(generate.Request{
		Prompt:  prompt,
		Context: contextText,
		Kind:    kind,
		Mode:    generate.ModeSingle,
		Model:   model,
	}, false, useContext)
	c.mu.Unlock()

	c.launch(session)
	return nil
}

// StartDerive starts a whole-notebook derivation. With reset, the
// document is replaced by a fresh one holding only a title markdown
// cell; otherwise generation builds on the existing cells. The session
// advances through its planned sections on its own.
func (c *Controller) StartDerive(prompt string, useContext, reset bool, model string) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrGenerationInFlight
	}

	c.outlineCell = -1
	if reset || c.doc.Len() == 0 {
		c.doc = models.NewDocument()
		c.doc.Append(models.NewCell(models.CellKindMarkdown, fmt.Sprintf("# %s\n\nGenerating notebook...", prompt)))
		c.outlineCell = 0
	}
	c.doc.Append(models.NewCell(models.CellKindCode, "# Generating initial code..."))
	c.placeholder = c.doc.Len() - 1
	c.current = c.placeholder

	session := c.beginSession(generate.Request{
		Prompt: prompt,
		Mode:   generate.ModeDerive,
		Model:  model,
	}, true, useContext)
	c.mu.Unlock()

	c.launch(session)
	return nil
}

// beginSession sets up in-flight bookkeeping. Caller holds the mutex.
func (c *Controller) beginSession(req generate.Request, deriving, useContext bool) *generate.Session {
	c.fresh = true
	c.deriving = deriving
	c.inFlight = true
	c.emitted = 0
	c.termErr = nil
	c.done = make(chan struct{})
	c.entry = &history.Entry{
		StartedAt: time.Now(),
		Mode:      string(req.Mode),
		Model:     req.Model,
		Prompt:    req.Prompt,
		CellKind:  string(req.Kind),
	}

	options := []generate.SessionOption{generate.WithLogger(c.logger)}
	if deriving && useContext {
		options = append(options, generate.WithContextFunc(c.ContextText))
	}
	return generate.NewSession(c.client, c.prompts, req, options...)
}

func (c *Controller) launch(session *generate.Session) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	done := c.done
	c.mu.Unlock()

	go session.Run(ctx)
	go c.consume(session, done)
}

// Cancel aborts the in-flight session, if any. The abort surfaces
// through the normal failure path, which cleans up the placeholder.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the in-flight session has fully resolved, returning
// its terminal error (nil on success). Returns immediately when nothing
// is in flight.
func (c *Controller) Wait() error {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.termErr
}

// consume applies session events to the document in transport order. The
// done channel is the one created for this session; a later session may
// already own c.done by the time the loop drains.
func (c *Controller) consume(session *generate.Session, done chan struct{}) {
	c.mu.Lock()
	notify := c.notify
	c.mu.Unlock()

	for ev := range session.Events() {
		switch ev := ev.(type) {
		case generate.Update:
			c.applyUpdate(ev.Text)
		case generate.StructureReady:
			c.applyStructure(ev.Structure)
		case generate.SectionStart:
			c.beginSection(ev.Title)
		case generate.Failure:
			c.finishFailed(ev.Err)
		case generate.Complete:
			c.finishCompleted()
		}
		if notify != nil {
			notify(ev)
		}
	}

	c.mu.Lock()
	if c.done == done {
		c.done = nil
		c.cancel = nil
	}
	c.mu.Unlock()
	close(done)
}

// applyUpdate reconciles one text emission. A parse yielding nothing
// writes the raw text into the placeholder as live progress. A parse
// yielding cells replaces the placeholder in place; in derive mode a
// tracked cell that already holds an earlier unit's content is kept and
// the new cells go after it. Either way the tracked index ends at the
// last inserted cell.
func (c *Controller) applyUpdate(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.placeholder < 0 {
		return
	}

	cells := parse.Parse(text)
	if len(cells) == 0 {
		c.doc.Replace(c.placeholder, text)
		return
	}

	at := c.placeholder
	if c.fresh || !c.deriving {
		// single mode re-parses the cumulative buffer, so the
		// previously parsed cell is contained in this batch
		c.doc.Delete(c.placeholder)
	} else {
		at++
	}
	for i, cell := range cells {
		c.doc.Insert(cell, at+i)
	}
	c.placeholder = at + len(cells) - 1
	c.current = c.placeholder
	c.fresh = false
	c.emitted += len(cells)
}

// applyStructure writes the derive plan's outline into the title cell of
// a freshly reset document.
func (c *Controller) applyStructure(structure *generate.Structure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.outlineCell >= 0 {
		c.doc.Replace(c.outlineCell, structure.Outline())
	}
}

// beginSection readies the placeholder for the next planned section: the
// initial placeholder is reused while it still holds placeholder text,
// afterwards a new one is appended at the end.
func (c *Controller) beginSection(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := fmt.Sprintf("## %s\nGenerating...", title)
	if c.placeholder >= 0 && c.fresh {
		c.doc.Replace(c.placeholder, text)
		return
	}
	c.doc.Append(models.NewCell(models.CellKindMarkdown, text))
	c.placeholder = c.doc.Len() - 1
	c.current = c.placeholder
	c.fresh = true
}

// finishFailed deletes the placeholder, clears all in-flight state and
// records the run. Cells reconciled from earlier increments are kept:
// once a parse has landed, the tracked cell holds real content and only
// a still-fresh placeholder (raw progress text) is removed.
func (c *Controller) finishFailed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.placeholder >= 0 && c.fresh {
		c.doc.Delete(c.placeholder)
		if c.current >= c.doc.Len() {
			c.current = c.doc.Len() - 1
		}
	}
	c.placeholder = -1
	c.fresh = false
	c.deriving = false
	c.inFlight = false
	c.termErr = err

	status := history.StatusFailed
	if errors.Is(err, context.Canceled) {
		status = history.StatusCancelled
	}
	c.record(status, err.Error())
	c.logger.WithError(err).Warn("generation failed")
}

func (c *Controller) finishCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.placeholder = -1
	c.fresh = false
	c.deriving = false
	c.inFlight = false
	c.record(history.StatusCompleted, "")
}

// record logs the finished run. Logging failures never fail a
// generation. Caller holds the mutex.
func (c *Controller) record(status, errText string) {
	if c.hist == nil || c.entry == nil {
		return
	}
	c.entry.CellsEmitted = c.emitted
	c.entry.Status = status
	c.entry.Error = errText
	if err := c.hist.Record(c.entry); err != nil {
		c.logger.WithError(err).Warn("failed to record generation history")
	}
	c.entry = nil
}

// Package generate drives streaming generation requests against a chat
// model and exposes their results incrementally over a channel.
package generate

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/ollama"
	"github.com/mattsolo1/nbgen/pkg/parse"
)

// State is the lifecycle of a session. A started session always ends in
// Completed or Failed; there is no retry.
type State int32

const (
	StateIdle State = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatClient is the transport a session speaks through. *ollama.Client
// satisfies it; tests substitute fakes.
type ChatClient interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, fn func(delta string)) error
}

// Session manages one logical generation request. Create with NewSession,
// start with Run on its own goroutine, consume Events until the channel
// closes.
type Session struct {
	req       Request
	client    ChatClient
	prompts   Prompts
	logger    *logrus.Logger
	contextFn func() string

	events chan Event
	state  atomic.Int32
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithContextFunc supplies a callback the derive strategy uses to take a
// fresh document snapshot before each section request, so later sections
// see the cells earlier sections produced.
func WithContextFunc(fn func() string) SessionOption {
	return func(s *Session) {
		s.contextFn = fn
	}
}

// WithLogger routes session logging somewhere other than the default
func WithLogger(logger *logrus.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates an idle session for req
func NewSession(client ChatClient, prompts Prompts, req Request, options ...SessionOption) *Session {
	s := &Session{
		req:     req,
		client:  client,
		prompts: prompts,
		logger:  logrus.StandardLogger(),
		events:  make(chan Event),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Events returns the session's notification channel. It is closed after
// the terminal event.
func (s *Session) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
}

// Run executes the session to its terminal state, emitting events along
// the way, then closes the event channel. Call it once, on its own
// goroutine. Cancelling ctx aborts the transport at its next read and
// surfaces as a Failure.
func (s *Session) Run(ctx context.Context) {
	defer close(s.events)

	var err error
	switch s.req.Mode {
	case ModeDerive:
		err = s.runDerive(ctx)
	default:
		err = s.runSingle(ctx)
	}

	if err != nil {
		s.setState(StateFailed)
		s.logger.WithError(err).Debug("generation session failed")
		s.events <- Failure{Err: err}
		return
	}
	s.setState(StateCompleted)
	s.events <- Complete{}
}

// runSingle issues one chat request and emits the cumulative response
// buffer after every increment.
func (s *Session) runSingle(ctx context.Context) error {
	system := s.prompts.SingleCode
	if s.req.Kind == models.CellKindMarkdown {
		system = s.prompts.SingleMarkdown
	}
	if s.req.Context != "" {
		system += "\n\nCurrent notebook context:\n" + s.req.Context
	}

	messages := []ollama.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: s.req.Prompt},
	}

	s.setState(StateRequesting)
	var buf strings.Builder
	return s.client.Chat(ctx, s.req.Model, messages, func(delta string) {
		s.setState(StateStreaming)
		buf.WriteString(delta)
		s.events <- Update{Text: buf.String()}
	})
}

// runDerive plans the notebook structure, then generates each section in
// order. Within a section stream, the accumulator is emitted as one
// finished unit whenever the just-received increment closes a tagged
// cell, then reset for the next unit.
func (s *Session) runDerive(ctx context.Context) error {
	structure, err := s.planStructure(ctx)
	if err != nil {
		return err
	}
	s.events <- StructureReady{Structure: structure}

	for i, section := range structure.Sections {
		s.events <- SectionStart{Index: i, Title: section.Title}
		if err := s.generateSection(ctx, section); err != nil {
			return err
		}
	}
	return nil
}

// planStructure asks for the strict-JSON plan. A response that cannot be
// parsed is recovered with a default single-section structure; only
// transport failures propagate.
func (s *Session) planStructure(ctx context.Context) (*Structure, error) {
	messages := []ollama.Message{
		{Role: "system", Content: s.prompts.StructureSys},
		{Role: "user", Content: fmt.Sprintf(s.prompts.StructureUser, s.req.Prompt)},
	}

	s.setState(StateRequesting)
	var buf strings.Builder
	err := s.client.Chat(ctx, s.req.Model, messages, func(delta string) {
		s.setState(StateStreaming)
		buf.WriteString(delta)
	})
	if err != nil {
		return nil, err
	}

	structure, ok := parseStructure(buf.String())
	if !ok {
		s.logger.WithField("prompt", s.req.Prompt).Debug("structure response unusable, using fallback plan")
		structure = fallbackStructure(s.req.Prompt)
	}
	return structure, nil
}

func (s *Session) generateSection(ctx context.Context, section Section) error {
	contextText := s.req.Context
	if s.contextFn != nil {
		contextText = s.contextFn()
	}
	if contextText == "" {
		contextText = "No previous context"
	}

	messages := []ollama.Message{
		{Role: "system", Content: s.prompts.SectionSys},
		{Role: "user", Content: fmt.Sprintf(s.prompts.SectionUser, section.Title, contextText)},
	}

	var unit strings.Builder
	return s.client.Chat(ctx, s.req.Model, messages, func(delta string) {
		s.setState(StateStreaming)
		unit.WriteString(delta)
		if parse.HasCompleteUnit(delta) {
			s.events <- Update{Text: unit.String()}
			unit.Reset()
		}
	})
}

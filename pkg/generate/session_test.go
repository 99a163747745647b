package generate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/ollama"
)

// scriptedClient plays back one canned response per Chat call and records
// what it was asked.
type scriptedClient struct {
	responses []scriptedResponse
	calls     [][]ollama.Message
}

type scriptedResponse struct {
	deltas []string
	err    error
}

func (c *scriptedClient) Chat(ctx context.Context, model string, messages []ollama.Message, fn func(string)) error {
	call := len(c.calls)
	c.calls = append(c.calls, messages)
	if call >= len(c.responses) {
		return errors.New("unexpected extra Chat call")
	}
	resp := c.responses[call]
	for _, d := range resp.deltas {
		fn(d)
	}
	return resp.err
}

func collectEvents(t *testing.T, s *Session) []Event {
	t.Helper()
	go s.Run(context.Background())
	var events []Event
	for ev := range s.Events() {
		events = append(events, ev)
	}
	return events
}

func TestSingleSessionEmitsCumulativeBuffer(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{deltas: []string{"<code>\n", "```python\nx = 1\n```\n", "</code>"}},
	}}

	session := NewSession(client, DefaultPrompts(), Request{
		Prompt: "make x",
		Kind:   models.CellKindCode,
		Mode:   ModeSingle,
		Model:  "llama3:latest",
	})
	events := collectEvents(t, session)

	require.Len(t, events, 4)
	assert.Equal(t, Update{Text: "<code>\n"}, events[0])
	assert.Equal(t, Update{Text: "<code>\n```python\nx = 1\n```\n"}, events[1])
	assert.Equal(t, Update{Text: "<code>\n```python\nx = 1\n```\n</code>"}, events[2])
	assert.Equal(t, Complete{}, events[3])
	assert.Equal(t, StateCompleted, session.State())
}

func TestSingleSessionPromptSelection(t *testing.T) {
	tests := []struct {
		name       string
		kind       models.CellKind
		wantSystem string
		notSystem  string
	}{
		{"code request", models.CellKindCode, "Generate code content", "Generate markdown content"},
		{"markdown request", models.CellKindMarkdown, "Generate markdown content", "Generate code content"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{responses: []scriptedResponse{{deltas: []string{"ok"}}}}
			session := NewSession(client, DefaultPrompts(), Request{
				Prompt:  "do it",
				Context: "# Notebook Content:\n",
				Kind:    tt.kind,
				Mode:    ModeSingle,
			})
			collectEvents(t, session)

			require.Len(t, client.calls, 1)
			system := client.calls[0][0]
			assert.Equal(t, "system", system.Role)
			assert.Contains(t, system.Content, tt.wantSystem)
			assert.NotContains(t, system.Content, tt.notSystem)
			assert.Contains(t, system.Content, "Current notebook context:")
			assert.Equal(t, "do it", client.calls[0][1].Content)
		})
	}
}

func TestSingleSessionFailure(t *testing.T) {
	cause := errors.New("connection refused")
	client := &scriptedClient{responses: []scriptedResponse{
		{deltas: []string{"partial"}, err: cause},
	}}

	session := NewSession(client, DefaultPrompts(), Request{Prompt: "p", Mode: ModeSingle})
	events := collectEvents(t, session)

	last := events[len(events)-1]
	failure, ok := last.(Failure)
	require.True(t, ok, "terminal event should be Failure, got %T", last)
	assert.ErrorIs(t, failure.Err, cause)
	assert.Equal(t, StateFailed, session.State())
}

func TestDeriveSessionIteratesSections(t *testing.T) {
	plan := `{"title": "Waves", "sections": [{"title": "Setup", "cells": []}, {"title": "Plotting", "cells": []}]}`
	client := &scriptedClient{responses: []scriptedResponse{
		{deltas: []string{plan}},
		{deltas: []string{"<md>\nSetup\n", "</md>", "<code>\nimport numpy\n</code>"}},
		{deltas: []string{"<md>\nPlotting\n</md>"}},
	}}

	session := NewSession(client, DefaultPrompts(), Request{
		Prompt: "plot waves",
		Mode:   ModeDerive,
	})
	events := collectEvents(t, session)

	require.Len(t, events, 7)

	structure, ok := events[0].(StructureReady)
	require.True(t, ok, "first event should be StructureReady, got %T", events[0])
	assert.Equal(t, "Waves", structure.Structure.Title)

	assert.Equal(t, SectionStart{Index: 0, Title: "Setup"}, events[1])
	// one unit per closing tag, accumulator reset in between
	assert.Equal(t, Update{Text: "<md>\nSetup\n</md>"}, events[2])
	assert.Equal(t, Update{Text: "<code>\nimport numpy\n</code>"}, events[3])
	assert.Equal(t, SectionStart{Index: 1, Title: "Plotting"}, events[4])
	assert.Equal(t, Update{Text: "<md>\nPlotting\n</md>"}, events[5])
	assert.Equal(t, Complete{}, events[6])
}

func TestDeriveSessionRecoversBadStructure(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{deltas: []string{"I would love to help! Here is my thinking..."}},
		{deltas: []string{"<md>\nIntro\n</md>"}},
	}}

	session := NewSession(client, DefaultPrompts(), Request{
		Prompt: "plot sine waves",
		Mode:   ModeDerive,
	})
	events := collectEvents(t, session)

	structure, ok := events[0].(StructureReady)
	require.True(t, ok)
	assert.Equal(t, "Plot Sine Waves", structure.Structure.Title)
	require.Len(t, structure.Structure.Sections, 1)
	assert.Equal(t, "Introduction", structure.Structure.Sections[0].Title)

	assert.Equal(t, Complete{}, events[len(events)-1])
}

func TestDeriveSessionSectionContext(t *testing.T) {
	plan := `{"title": "T", "sections": [{"title": "Only", "cells": []}]}`
	client := &scriptedClient{responses: []scriptedResponse{
		{deltas: []string{plan}},
		{deltas: []string{"<md>\nx\n</md>"}},
	}}

	snapshot := "## Cell 1 (markdown):\n# T\n"
	session := NewSession(client, DefaultPrompts(), Request{Prompt: "p", Mode: ModeDerive},
		WithContextFunc(func() string { return snapshot }))
	collectEvents(t, session)

	require.Len(t, client.calls, 2)
	sectionUser := client.calls[1][1].Content
	assert.Contains(t, sectionUser, "notebook section: Only")
	assert.Contains(t, sectionUser, snapshot)
}

func TestDeriveSessionStructureFailure(t *testing.T) {
	cause := errors.New("server down")
	client := &scriptedClient{responses: []scriptedResponse{
		{err: cause},
	}}

	session := NewSession(client, DefaultPrompts(), Request{Prompt: "p", Mode: ModeDerive})
	events := collectEvents(t, session)

	require.Len(t, events, 1)
	failure, ok := events[0].(Failure)
	require.True(t, ok)
	assert.ErrorIs(t, failure.Err, cause)
}

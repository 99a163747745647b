// Package service is the notebook generation core: it owns the document,
// talks to Ollama, and reconciles streamed model output into cells.
package service

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/mattsolo1/nbgen/pkg/generate"
	"github.com/mattsolo1/nbgen/pkg/history"
	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/ollama"
)

// Service is the core notebook generation service
type Service struct {
	Controller *Controller
	History    *history.Log
	Config     *Config

	client *ollama.Client
	logger *logrus.Logger
}

// Config holds service configuration
type Config struct {
	OllamaHost     string
	Model          string
	DataDir        string
	UseContext     bool
	JupyterCommand string
	PromptsPath    string
}

// Option configures a Service
type Option func(*Service)

// WithLogger routes service and controller logging
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a new notebook generation service
func New(config *Config, options ...Option) (*Service, error) {
	s := &Service{
		Config: config,
		logger: logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(s)
	}

	prompts, err := generate.LoadPrompts(config.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
		hist, err := history.Open(filepath.Join(config.DataDir, "history.db"))
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		s.History = hist
	}

	s.client = ollama.NewClient(config.OllamaHost)

	controllerOptions := []ControllerOption{WithControllerLogger(s.logger)}
	if s.History != nil {
		controllerOptions = append(controllerOptions, WithHistory(s.History))
	}
	s.Controller = NewController(models.NewDocument(), s.client, prompts, controllerOptions...)

	return s, nil
}

// NewDocument discards the current document and starts an empty one
func (s *Service) NewDocument() error {
	return s.Controller.ResetDocument(models.NewDocument())
}

// Open loads the notebook at path into the service. The current document
// is left untouched when the file cannot be read or does not validate.
func (s *Service) Open(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read notebook: %w", err)
	}

	doc, err := models.Deserialize(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return s.Controller.ResetDocument(doc)
}

// Save writes the current document to path. Blank cells, including any
// in-flight placeholder, are filtered out of the written file.
func (s *Service) Save(path string) error {
	data, err := s.Controller.Serialize()
	if err != nil {
		return fmt.Errorf("serialize notebook: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	return nil
}

// AddCell appends a cell and returns its index
func (s *Service) AddCell(kind models.CellKind, text string) int {
	return s.Controller.AddCell(kind, text)
}

// DeleteCell removes the cell at index
func (s *Service) DeleteCell(index int) error {
	return s.Controller.DeleteCell(index)
}

// UpdateCellContent overwrites the source of the cell at index
func (s *Service) UpdateCellContent(index int, text string) error {
	return s.Controller.UpdateCellContent(index, text)
}

// Cells returns the current cells for display
func (s *Service) Cells() []*models.Cell {
	return s.Controller.Cells()
}

// StartSingleGeneration generates one cell of kind from prompt
func (s *Service) StartSingleGeneration(prompt string, kind models.CellKind) error {
	return s.Controller.StartSingle(prompt, kind, s.Config.UseContext, s.Config.Model)
}

// StartDeriveGeneration generates a whole notebook from prompt. With
// reset, the current document is replaced first.
func (s *Service) StartDeriveGeneration(prompt string, reset bool) error {
	return s.Controller.StartDerive(prompt, s.Config.UseContext, reset, s.Config.Model)
}

// OnEvent registers a callback invoked after each generation event has
// been reconciled into the document. Set it before starting a generation.
func (s *Service) OnEvent(fn func(generate.Event)) {
	s.Controller.SetNotify(fn)
}

// Wait blocks until the in-flight generation resolves
func (s *Service) Wait() error {
	return s.Controller.Wait()
}

// Cancel aborts the in-flight generation, if any
func (s *Service) Cancel() {
	s.Controller.Cancel()
}

// Generating reports whether a generation is in flight
func (s *Service) Generating() bool {
	return s.Controller.Generating()
}

// ListModels returns the models the local Ollama install serves
func (s *Service) ListModels(ctx context.Context) ([]string, error) {
	return ollama.ListModels(ctx)
}

// OpenInJupyter launches the configured Jupyter command on path and does
// not wait for it to exit.
func (s *Service) OpenInJupyter(path string) error {
	parts := strings.Fields(s.Config.JupyterCommand)
	if len(parts) == 0 {
		parts = []string{"jupyter", "notebook"}
	}
	args := append(parts[1:], path)

	cmd := exec.Command(parts[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch jupyter: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"pid": cmd.Process.Pid, "path": path}).Debug("launched jupyter")
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// Close releases service resources
func (s *Service) Close() error {
	if s.History != nil {
		return s.History.Close()
	}
	return nil
}

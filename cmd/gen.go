package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/generate"
	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewGenCmd(svc **service.Service) *cobra.Command {
	var (
		file      string
		kind      string
		model     string
		noContext bool
	)

	cmd := &cobra.Command{
		Use:   "gen <prompt>",
		Short: "Generate a single notebook cell",
		Long: `Generate one cell from a prompt and append it to a notebook.

The existing notebook content is sent along as context unless
--no-context is given. Progress streams to stderr while the model
responds.

Examples:
  nbgen gen "plot a sine wave" -f analysis.ipynb
  nbgen gen "explain the approach" -f analysis.ipynb -k markdown
  nbgen gen "load the csv" -f fresh.ipynb --no-context`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			prompt := args[0]

			cellKind := models.CellKindCode
			switch kind {
			case "code", "":
			case "markdown", "md":
				cellKind = models.CellKindMarkdown
			default:
				return fmt.Errorf("unknown cell kind %q (want code or markdown)", kind)
			}

			if err := loadNotebook(s, file); err != nil {
				return err
			}
			if noContext {
				s.Config.UseContext = false
			}
			if model != "" {
				s.Config.Model = model
			}

			s.OnEvent(streamProgress())
			if err := s.StartSingleGeneration(prompt, cellKind); err != nil {
				return err
			}
			if err := s.Wait(); err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			if err := s.Save(file); err != nil {
				return err
			}
			fmt.Printf("Appended %s cell to %s\n", cellKind, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "notebook.ipynb", "Notebook file to append into")
	cmd.Flags().StringVarP(&kind, "kind", "k", "code", "Cell kind to generate (code or markdown)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Override the configured model")
	cmd.Flags().BoolVar(&noContext, "no-context", false, "Do not send existing cells as context")

	return cmd
}

// loadNotebook opens path into the service, starting a fresh document
// when the file does not exist yet.
func loadNotebook(s *service.Service, path string) error {
	err := s.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return s.NewDocument()
	}
	return err
}

// streamProgress renders generation events on stderr
func streamProgress() func(generate.Event) {
	return func(ev generate.Event) {
		switch ev := ev.(type) {
		case generate.Update:
			fmt.Fprint(os.Stderr, ".")
		case generate.StructureReady:
			fmt.Fprintf(os.Stderr, "Planned %d sections: %s\n", len(ev.Structure.Sections), ev.Structure.Title)
		case generate.SectionStart:
			fmt.Fprintf(os.Stderr, "\n[%d] %s ", ev.Index+1, ev.Title)
		case generate.Complete:
			fmt.Fprintln(os.Stderr, " done")
		case generate.Failure:
			fmt.Fprintln(os.Stderr)
		}
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewNewCmd(svc **service.Service) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "new [title]",
		Short: "Create a new notebook",
		Long: `Create a new notebook file with a title cell.

Examples:
  nbgen new                          # Create untitled.ipynb
  nbgen new "Signal Analysis"        # Create signal-analysis.ipynb
  nbgen new "EDA" -o scratch.ipynb   # Create at an explicit path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			title := "Untitled"
			if len(args) > 0 && args[0] != "" {
				title = args[0]
			}

			if err := s.NewDocument(); err != nil {
				return err
			}
			s.AddCell(models.CellKindMarkdown, "# "+title)

			path := output
			if path == "" {
				path = notebookFilename(title)
			}
			if err := s.Save(path); err != nil {
				return fmt.Errorf("create notebook: %w", err)
			}

			fmt.Printf("Created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output notebook path")

	return cmd
}

// notebookFilename slugifies a title into an .ipynb filename
func notebookFilename(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "untitled"
	}
	return slug + ".ipynb"
}

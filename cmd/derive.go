package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewDeriveCmd(svc **service.Service) *cobra.Command {
	var (
		output   string
		model    string
		appendTo bool
	)

	cmd := &cobra.Command{
		Use:   "derive <prompt>",
		Short: "Generate a whole notebook from a prompt",
		Long: `Plan a notebook structure for the prompt, then generate each
section in order. The planned outline and per-section progress stream
to stderr.

By default the output starts from a fresh document; --append builds on
the cells already in the file.

Examples:
  nbgen derive "explore the iris dataset" -o iris.ipynb
  nbgen derive "add a clustering section" -o iris.ipynb --append`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			prompt := args[0]

			if appendTo {
				if err := loadNotebook(s, output); err != nil {
					return err
				}
			}
			if model != "" {
				s.Config.Model = model
			}

			s.OnEvent(streamProgress())
			if err := s.StartDeriveGeneration(prompt, !appendTo); err != nil {
				return err
			}
			if err := s.Wait(); err != nil {
				return fmt.Errorf("derivation failed: %w", err)
			}

			if err := s.Save(output); err != nil {
				return err
			}
			fmt.Printf("Wrote %d cells to %s\n", len(s.Cells()), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "notebook.ipynb", "Output notebook path")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Override the configured model")
	cmd.Flags().BoolVar(&appendTo, "append", false, "Build on the existing notebook instead of starting fresh")

	return cmd
}

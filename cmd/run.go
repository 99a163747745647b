package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewRunCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.ipynb>",
		Short: "Open a notebook in Jupyter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc
			path := args[0]

			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("open notebook: %w", err)
			}
			if err := s.OpenInJupyter(path); err != nil {
				return err
			}
			fmt.Printf("Opened %s in Jupyter\n", path)
			return nil
		},
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewModelsCmd(svc **service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the local Ollama install serves",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			names, err := s.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list models: %w", err)
			}
			if len(names) == 0 {
				fmt.Println("No models installed. Try: ollama pull llama3")
				return nil
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}

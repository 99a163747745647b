package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewHistoryCmd(svc **service.Service) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if s.History == nil {
				return fmt.Errorf("history is disabled (no data_dir configured)")
			}
			entries, err := s.History.Recent(limit)
			if err != nil {
				return fmt.Errorf("read history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("No generations recorded yet")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tMODE\tMODEL\tSTATUS\tCELLS\tPROMPT")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					e.StartedAt.Local().Format("2006-01-02 15:04"),
					e.Mode, e.Model, e.Status, e.CellsEmitted, firstLine(e.Prompt))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")

	return cmd
}

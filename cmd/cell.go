package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mattsolo1/nbgen/pkg/models"
	"github.com/mattsolo1/nbgen/pkg/service"
)

func NewCellCmd(svc **service.Service) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cell",
		Short: "Edit notebook cells directly",
	}

	cmd.AddCommand(newCellAddCmd(svc))
	cmd.AddCommand(newCellSetCmd(svc))
	cmd.AddCommand(newCellDeleteCmd(svc))
	cmd.AddCommand(newCellShowCmd(svc))

	return cmd
}

func newCellAddCmd(svc **service.Service) *cobra.Command {
	var (
		file string
		kind string
	)

	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Append a cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			cellKind := models.CellKindCode
			if kind == "markdown" || kind == "md" {
				cellKind = models.CellKindMarkdown
			}

			if err := loadNotebook(s, file); err != nil {
				return err
			}
			index := s.AddCell(cellKind, args[0])
			if err := s.Save(file); err != nil {
				return err
			}
			fmt.Printf("Added cell %d to %s\n", index, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "notebook.ipynb", "Notebook file")
	cmd.Flags().StringVarP(&kind, "kind", "k", "code", "Cell kind (code or markdown)")

	return cmd
}

func newCellSetCmd(svc **service.Service) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set <index> <text>",
		Short: "Overwrite a cell's content",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid cell index %q", args[0])
			}

			if err := s.Open(file); err != nil {
				return err
			}
			if err := s.UpdateCellContent(index, args[1]); err != nil {
				return err
			}
			if err := s.Save(file); err != nil {
				return err
			}
			fmt.Printf("Updated cell %d in %s\n", index, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "notebook.ipynb", "Notebook file")

	return cmd
}

func newCellDeleteCmd(svc **service.Service) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "delete <index>",
		Short: "Delete a cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid cell index %q", args[0])
			}

			if err := s.Open(file); err != nil {
				return err
			}
			if err := s.DeleteCell(index); err != nil {
				return err
			}
			if err := s.Save(file); err != nil {
				return err
			}
			fmt.Printf("Deleted cell %d from %s\n", index, file)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "notebook.ipynb", "Notebook file")

	return cmd
}

func newCellShowCmd(svc **service.Service) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List the cells in a notebook",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := *svc

			if err := s.Open(file); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tKIND\tCONTENT")
			for i, cell := range s.Cells() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", i, cell.Kind, firstLine(cell.Text()))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "notebook.ipynb", "Notebook file")

	return cmd
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	if len(line) > 72 {
		line = line[:72] + "..."
	}
	return line
}

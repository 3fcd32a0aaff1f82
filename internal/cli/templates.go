package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"quizforge-service/internal/templates"
)

// NewTemplatesCmd inspects the built-in template catalog.
func NewTemplatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect the built-in quiz templates",
	}

	var filter templates.Filter
	list := &cobra.Command{
		Use:   "list",
		Short: "List templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := templates.Default()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tQUESTIONS\tDIFFICULTY")
			for _, t := range catalog.List(filter) {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", t.ID, t.Title, t.Category, len(t.Questions), t.Difficulty)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&filter.Query, "query", "", "match title or description")
	list.Flags().StringVar(&filter.Category, "category", "", "category id")
	cmd.AddCommand(list)
	return cmd
}

package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/weekendly/internal/catalog"
	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newCatalogCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the activities, vibes, categories and colors plans are built from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(out(cmd), formatCatalog())
			return nil
		},
	}
}

func formatCatalog() string {
	var b strings.Builder

	b.WriteString(formatter.Header("Activities") + "\n")
	rows := make([][]string, 0, len(catalog.Activities))
	for _, a := range catalog.Activities {
		rows = append(rows, []string{a.ID, a.Name, formatter.CategoryStyle(a.Category).Render(string(a.Category)), formatter.Dim(a.Icon)})
	}
	b.WriteString(formatter.RenderTable([]string{"ID", "NAME", "CATEGORY", "ICON"}, rows))

	b.WriteString("\n" + formatter.Header("Vibes") + "\n")
	for _, v := range catalog.Vibes {
		b.WriteString(fmt.Sprintf("  %-10s %s\n", v.ID, formatter.Dim(v.Name)))
	}

	b.WriteString("\n" + formatter.Header("Categories") + "\n")
	for _, c := range catalog.Categories {
		b.WriteString(fmt.Sprintf("  %-12s %s\n", formatter.CategoryStyle(c.Value).Render(string(c.Value)), formatter.Dim(c.Label)))
	}

	b.WriteString("\n" + formatter.Header("Colors") + "\n")
	for _, c := range catalog.Colors {
		b.WriteString(fmt.Sprintf("  %-8s %s\n", c.Name, formatter.Swatch(c.Hex)))
	}
	return b.String()
}

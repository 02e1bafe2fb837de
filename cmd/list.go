package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/cache"
	"github.com/esphen/keg/internal/style"
)

var listCmd = &cobra.Command{
	Use:          "list",
	Short:        "List known formulas and installed revisions",
	RunE:         runList,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	receipts, err := a.store.Receipts()
	if err != nil {
		return err
	}

	installed := make(map[string]*cache.Receipt, len(receipts))
	for _, r := range receipts {
		installed[r.Name] = r
	}

	for _, name := range a.catalog.Names() {
		fmt.Fprintln(a.out, style.Bold.Render(name))

		for _, f := range a.catalog.Revisions(name) {
			mark := " "
			if r := installed[name]; r != nil && r.SHA256 == f.Source().SHA256 {
				mark = style.Success.Render("*")
			}

			fmt.Fprintf(a.out, "  %s %s %s\n", mark, f.Version(), style.Dim.Render(f.Source().SHA256[:12]))
		}
	}

	return nil
}

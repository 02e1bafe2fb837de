package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/formula"
	"github.com/esphen/keg/internal/style"
)

var infoCmd = &cobra.Command{
	Use:          "info <formula>",
	Short:        "Show a formula",
	RunE:         runInfo,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func init() {
	infoCmd.Flags().String("sha256", "", "Select a formula revision by checksum prefix")
}

func runInfo(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	checksum, _ := cmd.Flags().GetString("sha256")

	f, err := resolveFormula(a.catalog, args[0], checksum)
	if err != nil {
		return err
	}

	return printInfo(a, f)
}

func printInfo(a *app, f formula.Formula) error {
	fmt.Fprintf(a.out, "%s %s\n", style.Bold.Render(f.Name()), f.Version())
	if f.Desc() != "" {
		fmt.Fprintln(a.out, f.Desc())
	}

	if f.Homepage() != "" {
		fmt.Fprintln(a.out, f.Homepage())
	}

	fmt.Fprintf(a.out, "\nSource: %s\nSHA256: %s\n", f.Source().URL, f.Source().SHA256)

	if deps := f.Dependencies(); len(deps) > 0 {
		fmt.Fprintln(a.out, "\nDependencies:")
		for _, d := range deps {
			fmt.Fprintf(a.out, "  %s %s\n", d.Name, style.Dim.Render("("+string(d.Scope)+")"))
		}
	}

	fmt.Fprintln(a.out, "\nBuild:")
	for i, s := range f.Steps() {
		fmt.Fprintf(a.out, "  %d. %s\n", i+1, s)
	}

	fmt.Fprintln(a.out, "\nInstalls:")
	for _, art := range f.Artifacts() {
		dir, err := formula.DestDir(a.cfg.Prefix, art.Dest, f.Name())
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "  %s -> %s\n", art.Src, dir)
	}

	receipt, err := a.store.GetReceipt(f.Name())
	if err != nil {
		return err
	}

	if receipt != nil {
		status := fmt.Sprintf("%s@%s", receipt.Name, receipt.Version)
		if receipt.SHA256 != f.Source().SHA256 {
			status += " (other revision " + receipt.SHA256[:12] + ")"
		}

		fmt.Fprintf(a.out, "\nInstalled: %s on %s\n", status, receipt.InstalledAt.Format("2006-01-02"))
	} else {
		fmt.Fprintf(a.out, "\n%s\n", style.Dim.Render("Not installed"))
	}

	return nil
}

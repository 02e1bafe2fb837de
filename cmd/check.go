package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/installer"
	"github.com/esphen/keg/internal/style"
)

var checkCmd = &cobra.Command{
	Use:          "check <name>",
	Short:        "Verify an installed formula",
	Long:         `Re-hash the installed files of a formula and confirm its run-time dependencies are still present.`,
	RunE:         runCheck,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func runCheck(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	inst, err := a.installer()
	if err != nil {
		return err
	}

	report, err := inst.Check(args[0])
	if err != nil {
		return err
	}

	return printReport(a, report)
}

func printReport(a *app, report *installer.Report) error {
	r := report.Receipt

	for _, p := range report.Missing {
		style.Warn(a.out, "missing %s", p)
	}

	for _, p := range report.Modified {
		style.Warn(a.out, "modified %s", p)
	}

	for _, d := range report.MissingDeps {
		style.Warn(a.out, "run-time dependency %s is unavailable", d)
	}

	if !report.OK() {
		return fmt.Errorf("%s@%s is damaged", r.Name, r.Version)
	}

	style.Done(a.out, "%s@%s is intact (%d files)", r.Name, r.Version, len(r.Files))

	return nil
}

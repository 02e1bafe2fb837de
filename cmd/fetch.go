package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:          "fetch <formula>",
	Short:        "Download and verify a formula's source archive",
	Long:         `Download the source archive into the cache and verify its sha256 without building anything. With --no-cache the archive is written to the working directory instead.`,
	RunE:         runFetch,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func init() {
	fetchCmd.Flags().String("sha256", "", "Select a formula revision by checksum prefix")
}

func runFetch(cmd *cobra.Command, args []string) error {
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

	inst, err := a.installer()
	if err != nil {
		return err
	}

	// with --no-cache the archive is written to the working directory
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	path, err := inst.Fetch(cmd.Context(), f, cwd)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, path)

	return nil
}

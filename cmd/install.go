package cmd

import (
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:          "install <formula>",
	Short:        "Build and install a formula",
	Long:         `Resolve dependencies, fetch and verify the source archive, run the build steps and copy the artifacts into the prefix.`,
	RunE:         runInstall,
	SilenceUsage: true,
	Args:         cobra.ExactArgs(1),
}

func init() {
	installCmd.Flags().String("sha256", "", "Select a formula revision by checksum prefix")
}

func runInstall(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

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

	_, err = inst.Install(cmd.Context(), f)
	return err
}

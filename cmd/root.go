package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/codes"
	"github.com/esphen/keg/internal/style"
	"github.com/esphen/keg/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "keg [formula]",
	Short: "Build and install formulas from source",
	Long: `Fetch, verify, build and install a formula such as the wsta WebSocket client.

A formula is a name (wsta), a pinned version (wsta@0.2.0) or a path to a
formula file (./wsta.toml).`,
	RunE:          runInstall,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.MaximumNArgs(1),
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		style.Fail(os.Stderr, "%v", err)
		os.Exit(codes.ExitCode(err))
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	rootCmd.PersistentFlags().StringP("prefix", "p", "", "Install prefix (default ~/.local)")
	rootCmd.PersistentFlags().String("home", "", "keg home for the download cache and receipts (default ~/.keg)")
	rootCmd.PersistentFlags().BoolP("silent", "s", false, "Suppress console output from build steps")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringP("out", "o", "", "Output file for build logs")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable download cache")
	rootCmd.PersistentFlags().Bool("keep-build", false, "Keep the staging build directory")
	rootCmd.Flags().String("sha256", "", "Select a formula revision by checksum prefix")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(cacheCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/esphen/keg/internal/style"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the download cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:          "stats",
	Short:        "Show download cache usage",
	RunE:         runCacheStats,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

var cacheCleanCmd = &cobra.Command{
	Use:          "clean",
	Short:        "Remove cached source archives",
	RunE:         runCacheClean,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	count, size, err := a.store.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Cache: %s\nArchives: %d\nSize: %s\n", a.store.Root(), count, formatSize(size))

	return nil
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, args)
	if err != nil {
		return err
	}
	defer a.Close()

	inst, err := a.installer()
	if err != nil {
		return err
	}

	if err := inst.ClearCache(cmd.Context()); err != nil {
		return err
	}

	style.Done(a.out, "Download cache cleared")

	return nil
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

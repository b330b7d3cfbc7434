package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clistcal",
	Short: "Syncs upcoming programming contests from clist.by into your calendar",
	Long: `clistcal fetches upcoming contests from clist.by, keeps the AtCoder,
Codeforces, DMOJ and LeetCode ones, and adds each contest that is not yet in
your primary calendar. Created events are tagged so they can be cleared later.

Without a subcommand, clistcal runs sync, so "clistcal --clear" is
"clistcal sync --clear".`,
	SilenceUsage: true,
}

var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the CLI and exits non-zero when any operation failed.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "clistcal version %s\n" .Version}}`)

	rootCmd.SetArgs(withDefaultCommand(os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withDefaultCommand routes empty argument lists and lists starting with a
// flag to sync. Root help and version flags are left alone.
func withDefaultCommand(args []string) []string {
	if len(args) == 0 {
		return []string{"sync"}
	}
	switch args[0] {
	case "-h", "--help", "-v", "--version":
		return args
	}
	if strings.HasPrefix(args[0], "-") {
		return append([]string{"sync"}, args...)
	}
	return args
}

func init() {
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/ui"
)

// Global flags available on every subcommand
var (
	configFlag  string
	noColorFlag bool
)

// rootCmd is the base "hop" command.
var rootCmd = &cobra.Command{
	Use:   "hop",
	Short: "SSH into your fleet without thinking about it",
	Long: `hop keeps a local inventory of your cloud hosts and figures out how to
reach each one: directly, through a jump-host, or through a separately
credentialed relay, based on the routing rules in your config.

The inventory is cached locally, so most commands respond instantly and
refresh in the background when the cache has gone stale.

Examples:
  hop list
  hop connect web-1
  hop route i-0abc123def456
  hop scan --search nginx`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&machineMode, "json", false, "machine-readable JSON output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// exitCodeError carries a child process exit code up to Execute, which
// mirrors it. Returning it instead of calling os.Exit inside the command
// lets deferred work, like joining a background refresh, finish first.
type exitCodeError struct{ code int }

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command and exits non-zero on error.
// Structured errors print their suggestion; in machine mode errors go to
// stdout as a JSON envelope. Child process exit codes pass through
// silently: ssh and scp already printed their own diagnostics.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if exit, ok := err.(exitCodeError); ok {
			os.Exit(exit.code)
		}
		if MachineMode() {
			WriteJSONFromError(os.Stdout, err) //nolint:errcheck
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

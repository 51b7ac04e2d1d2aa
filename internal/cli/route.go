package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/sshcmd"
	"github.com/rileyhilliard/hop/internal/ui"
)

var routeCmd = &cobra.Command{
	Use:   "route <host>",
	Short: "Show how a host would be reached, without connecting",
	Long: `Resolve the routing plan for a host and print it.

Shows the matched profile, the target address, the relay arguments, and
the full ssh command that 'hop connect' would run.

Examples:
  hop route web-1
  hop route i-0abc123def456 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return routeCommand(args[0])
	},
}

func init() {
	rootCmd.AddCommand(routeCmd)
}

func routeCommand(query string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	defer a.awaitRefresh(rootCmd.Context())
	snap, err := a.snapshot(rootCmd.Context(), false)
	if err != nil {
		return err
	}

	host, err := a.findHost(snap, query)
	if err != nil {
		return err
	}

	plan, err := a.plan(host)
	if err != nil {
		return err
	}

	opts := a.sshOptions(host)
	argv := sshcmd.Build(plan, opts)

	if MachineMode() {
		return WriteJSONSuccess(os.Stdout, map[string]interface{}{
			"host":       host,
			"target":     plan.Target,
			"profile":    plan.ProfileName,
			"relay_args": plan.RelayArgs,
			"command":    argv,
		})
	}

	labelStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		fmt.Printf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", label+":")), value)
	}

	field("host", host.DisplayName())
	field("id", host.ID)
	field("state", host.State)
	field("target", plan.Target)
	if plan.UsesRelay() {
		field("profile", plan.ProfileName)
		field("relay", strings.Join(plan.RelayArgs, " "))
	} else {
		field("profile", "direct")
	}
	field("key", opts.KeyPath)
	field("command", strings.Join(argv, " "))
	return nil
}

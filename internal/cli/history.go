package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/history"
	"github.com/rileyhilliard/hop/internal/ui"
)

var historyClearFlag bool

var historyCmd = &cobra.Command{
	Use:   "history [host]",
	Short: "Show recent connections and commands",
	Long: `Show the recorded connection and command history, newest first.

With a host argument only that host's entries are shown. The history is
capped, so old entries age out on their own.

Examples:
  hop history
  hop history web-1
  hop history --clear`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		return historyCommand(query)
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyClearFlag, "clear", false, "delete the recorded history")
	rootCmd.AddCommand(historyCmd)
}

func historyCommand(query string) error {
	path, err := history.DefaultPath()
	if err != nil {
		return err
	}
	store := history.NewStore(path)

	if historyClearFlag {
		if err := store.Clear(); err != nil {
			return err
		}
		if !MachineMode() {
			fmt.Println("History cleared")
		}
		return nil
	}

	var entries []history.Entry
	if query != "" {
		// A host query may be a name rather than an ID; resolve it
		// against the inventory when possible.
		hostID := query
		if a, aerr := loadApp(); aerr == nil {
			if snap, serr := a.snapshot(rootCmd.Context(), false); serr == nil {
				if host, ok := snap.Find(query); ok {
					hostID = host.ID
				}
			}
			defer a.awaitRefresh(rootCmd.Context())
		}
		entries, err = store.ForHost(hostID)
	} else {
		entries, err = store.Load()
	}
	if err != nil {
		return err
	}

	if MachineMode() {
		return WriteJSONSuccess(os.Stdout, entries)
	}

	if len(entries) == 0 {
		fmt.Println("No history yet")
		return nil
	}

	timeStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	hostStyle := lipgloss.NewStyle().Foreground(ui.ColorSecondary)
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s",
			timeStyle.Render(e.Timestamp.Format("2006-01-02 15:04")),
			hostStyle.Render(e.HostName))
		if e.Command != "" {
			line += "  " + e.Command
		}
		if e.Profile != "" {
			line += timeStyle.Render("  (via " + e.Profile + ")")
		}
		fmt.Println(line)
	}
	return nil
}

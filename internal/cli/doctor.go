package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/doctor"
	"github.com/rileyhilliard/hop/internal/inventory/cache"
	"github.com/rileyhilliard/hop/internal/ui"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the local environment",
	Long: `Check that everything hop depends on is in place: the ssh and aws
binaries, the SSH agent, the config file, configured keys and their
permissions, and the inventory cache.

Examples:
  hop doctor
  hop doctor --fix`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand()
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Fix issues that can be fixed automatically")
	rootCmd.AddCommand(doctorCmd)
}

func doctorCommand() error {
	cfg, err := doctorConfig()
	if err != nil {
		return err
	}

	cachePath, err := cache.DefaultPath()
	if err != nil {
		return err
	}

	checks := doctor.NewChecks(configFlag, cfg, cache.NewStore(cachePath))
	results := doctor.RunAll(checks)

	if doctorFix {
		for i, r := range results {
			if !r.Fixable || r.Status == doctor.StatusPass {
				continue
			}
			if err := checks[i].Fix(); err != nil {
				printWarning(fmt.Sprintf("could not fix %s: %v", r.Name, err))
				continue
			}
			results[i] = checks[i].Run()
		}
	}

	if MachineMode() {
		if err := WriteJSONSuccess(os.Stdout, map[string]interface{}{
			"checks":  results,
			"summary": doctor.Summary(results),
		}); err != nil {
			return err
		}
	} else {
		printDoctorResults(checks, results)
	}

	if doctor.HasFailures(results) {
		os.Exit(1)
	}
	return nil
}

// doctorConfig loads the config leniently: a broken config file is itself a
// finding, so the checks run against defaults instead of aborting.
func doctorConfig() (*config.Config, error) {
	path, err := config.Find(configFlag)
	if err != nil || path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultConfig(), nil
	}
	return cfg, nil
}

func printDoctorResults(checks []doctor.Check, results []doctor.CheckResult) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ui.ColorPrimary)
	mutedStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	lastCategory := ""
	for i, r := range results {
		if cat := checks[i].Category(); cat != lastCategory {
			if lastCategory != "" {
				fmt.Println()
			}
			fmt.Println(headerStyle.Render(cat))
			lastCategory = cat
		}

		symbol := ui.SymbolSuccess
		style := lipgloss.NewStyle().Foreground(ui.ColorSuccess)
		switch r.Status {
		case doctor.StatusWarn:
			symbol = ui.SymbolPending
			style = lipgloss.NewStyle().Foreground(ui.ColorWarning)
		case doctor.StatusFail:
			symbol = ui.SymbolFail
			style = lipgloss.NewStyle().Foreground(ui.ColorError)
		}

		fmt.Printf("  %s %s\n", style.Render(symbol), r.Message)
		if r.Suggestion != "" && r.Status != doctor.StatusPass {
			fmt.Printf("    %s\n", mutedStyle.Render(r.Suggestion))
		}
	}

	fmt.Println()
	fmt.Println(doctor.Summary(results))
	if n := doctor.FixableCount(results); n > 0 && !doctorFix {
		fmt.Println(mutedStyle.Render(fmt.Sprintf("%d fixable with 'hop doctor --fix'", n)))
	}
}

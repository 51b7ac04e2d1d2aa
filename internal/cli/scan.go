package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/scan"
	"github.com/rileyhilliard/hop/internal/ui"
)

// scanCommandTimeout bounds each remote listing or command.
const scanCommandTimeout = 30 * time.Second

var (
	scanSearchFlag   string
	scanParallelFlag int
	scanHostFlag     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run file listings and commands across the fleet",
	Long: `Scan the fleet with the paths and commands from your scan rules.

Every scan rule matching a host contributes its paths and commands on top
of the default scan paths. Results are stored locally; use --search to
query previous results without touching the fleet.

Examples:
  hop scan
  hop scan --host web-1
  hop scan --parallel 4
  hop scan --search nginx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if scanSearchFlag != "" {
			return scanSearchCommand(scanSearchFlag)
		}
		return scanCommand()
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanSearchFlag, "search", "s", "", "search stored results instead of scanning")
	scanCmd.Flags().IntVarP(&scanParallelFlag, "parallel", "p", 0, "max concurrent hosts (default 8)")
	scanCmd.Flags().StringVar(&scanHostFlag, "host", "", "scan a single host")
	rootCmd.AddCommand(scanCmd)
}

func scanCommand() error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx := rootCmd.Context()
	defer a.awaitRefresh(ctx)
	snap, err := a.snapshot(ctx, false)
	if err != nil {
		return err
	}

	hosts := runningHosts(snap)
	if scanHostFlag != "" {
		host, ferr := a.findHost(snap, scanHostFlag)
		if ferr != nil {
			return ferr
		}
		hosts = []inventory.HostRecord{host}
	}

	var jobs []scan.Job
	for _, host := range hosts {
		paths, commands, perr := scan.Plan(host, a.cfg.DefaultScanPaths, a.cfg.ScanRules)
		if perr != nil {
			return perr
		}
		if len(paths) == 0 && len(commands) == 0 {
			continue
		}

		plan, rerr := a.plan(host)
		if rerr != nil {
			printWarning(rerr.Error())
			continue
		}

		jobs = append(jobs, scan.Job{
			Host:     host,
			Plan:     plan,
			Options:  a.sshOptions(host),
			Paths:    paths,
			Commands: commands,
		})
	}

	if len(jobs) == 0 {
		fmt.Println("Nothing to scan")
		return nil
	}

	var spinner *ui.Spinner
	if !MachineMode() {
		spinner = ui.NewSpinner(fmt.Sprintf("Scanning %d hosts", len(jobs)))
		spinner.Start()
	}

	runner := scan.NewRunner(scanParallelFlag, scanCommandTimeout)
	findings := runner.Run(ctx, jobs)

	if spinner != nil {
		spinner.Success()
	}

	if path, perr := scan.DefaultResultsPath(); perr == nil {
		if serr := scan.NewResultStore(path).Save(findings); serr != nil {
			printWarning("Could not store scan results: " + serr.Error())
		}
	}

	if MachineMode() {
		return WriteJSONSuccess(os.Stdout, findings)
	}
	printFindings(findings)
	return nil
}

func scanSearchCommand(keyword string) error {
	path, err := scan.DefaultResultsPath()
	if err != nil {
		return err
	}

	findings, err := scan.NewResultStore(path).Search(keyword)
	if err != nil {
		return err
	}

	if MachineMode() {
		return WriteJSONSuccess(os.Stdout, findings)
	}
	if len(findings) == 0 {
		fmt.Printf("No stored results match '%s'\n", keyword)
		return nil
	}
	printFindings(findings)
	return nil
}

func printFindings(findings []scan.Finding) {
	hostStyle := lipgloss.NewStyle().Foreground(ui.ColorSecondary).Bold(true)
	sourceStyle := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	errStyle := lipgloss.NewStyle().Foreground(ui.ColorError)

	for _, f := range findings {
		header := fmt.Sprintf("%s %s", hostStyle.Render(f.HostName), sourceStyle.Render(f.Source))
		fmt.Println(header)
		if f.Err != "" {
			fmt.Println("  " + errStyle.Render(f.Err))
		}
		if f.Content != "" {
			for _, line := range strings.Split(f.Content, "\n") {
				fmt.Println("  " + line)
			}
		}
	}
}

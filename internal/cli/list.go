package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/probe"
	"github.com/rileyhilliard/hop/internal/ui"
)

var (
	listRefreshFlag bool
	listProbeFlag   bool
	listRegionFlag  string
	listAllFlag     bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cached host inventory",
	Long: `List the hosts in the local inventory cache.

The cache serves immediately even when stale; a background refresh keeps
it current. Use --refresh to force a synchronous fetch, and --probe to
test SSH reachability of each directly routed host.

Examples:
  hop list
  hop list --refresh
  hop list --region us-west-2 --probe
  hop list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommand()
	},
}

func init() {
	listCmd.Flags().BoolVarP(&listRefreshFlag, "refresh", "r", false, "force a synchronous inventory refresh")
	listCmd.Flags().BoolVar(&listProbeFlag, "probe", false, "probe SSH reachability of each host")
	listCmd.Flags().StringVar(&listRegionFlag, "region", "", "only show hosts in this region")
	listCmd.Flags().BoolVarP(&listAllFlag, "all", "a", false, "include stopped and terminated hosts")
	rootCmd.AddCommand(listCmd)
}

// listRow is the JSON shape for one host in machine mode.
type listRow struct {
	inventory.HostRecord
	Route string `json:"route"`
	Probe string `json:"probe,omitempty"`
}

func listCommand() error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx := rootCmd.Context()
	defer a.awaitRefresh(ctx)
	snap, err := a.snapshot(ctx, listRefreshFlag)
	if err != nil {
		return err
	}

	hosts := snap.Hosts
	if !listAllFlag {
		hosts = runningHosts(snap)
	}
	if listRegionFlag != "" {
		var filtered []inventory.HostRecord
		for _, h := range hosts {
			if strings.EqualFold(h.Region, listRegionFlag) {
				filtered = append(filtered, h)
			}
		}
		hosts = filtered
	}

	rows := make([]listRow, len(hosts))
	for i, h := range hosts {
		plan, perr := a.plan(h)
		routeName := "direct"
		if perr != nil {
			routeName = "unroutable"
		} else if plan.UsesRelay() {
			routeName = plan.ProfileName
		}
		rows[i] = listRow{HostRecord: h, Route: routeName}
	}

	if listProbeFlag {
		probeRows(a, hosts, rows)
	}

	if MachineMode() {
		return WriteJSONSuccess(os.Stdout, map[string]interface{}{
			"fetched_at": snap.FetchedAt,
			"hosts":      rows,
		})
	}

	tableRows := make([]ui.HostRow, len(rows))
	for i, r := range rows {
		addr := r.PublicAddr
		if addr == "" {
			addr = r.PrivateAddr
		}
		tableRows[i] = ui.HostRow{
			Name:    r.DisplayName(),
			ID:      r.ID,
			State:   r.State,
			Region:  r.Region,
			Address: addr,
			Route:   r.Route,
			Probe:   r.Probe,
		}
	}
	fmt.Println(ui.RenderHostTable(tableRows))
	return nil
}

// probeRows fills in reachability for directly routed hosts. Relayed hosts
// are skipped: their private addresses are not reachable from here.
func probeRows(a *app, hosts []inventory.HostRecord, rows []listRow) {
	timeout := a.cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var addresses []string
	var indices []int
	for i, h := range hosts {
		if rows[i].Route != "direct" || h.PublicAddr == "" {
			continue
		}
		addresses = append(addresses, h.PublicAddr)
		indices = append(indices, i)
	}

	results := probe.All(addresses, timeout, 0)
	for j, res := range results {
		i := indices[j]
		if res.Success {
			rows[i].Probe = ui.SymbolSuccess + " " + ui.FormatDuration(res.Latency)
		} else if perr, ok := res.Error.(*probe.Error); ok {
			rows[i].Probe = ui.SymbolFail + " " + perr.Reason.String()
		} else {
			rows[i].Probe = ui.SymbolFail
		}
	}
	for i, r := range rows {
		if r.Probe == "" && r.Route != "direct" && r.Route != "unroutable" {
			rows[i].Probe = ui.SymbolRelay + " via relay"
		}
	}
}

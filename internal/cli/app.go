package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/inventory/cache"
	"github.com/rileyhilliard/hop/internal/route"
	"github.com/rileyhilliard/hop/internal/sshcmd"
	"github.com/rileyhilliard/hop/internal/ui"
)

// app bundles the loaded config with the inventory coordinator so commands
// share one setup path.
type app struct {
	cfg         *config.Config
	coordinator *inventory.Coordinator
	keys        *sshcmd.KeyResolver

	refreshing bool // a background refresh was started during this command
}

// refreshGrace caps how long a command lingers after its output waiting
// for a background refresh to land in the cache.
const refreshGrace = 30 * time.Second

// loadApp loads the config, validates it, and wires up the coordinator.
// Soft config problems (a rule referencing a missing profile) print as
// warnings here; they never block startup.
func loadApp() (*app, error) {
	path, err := config.Find(configFlag)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if !MachineMode() {
		for _, warning := range config.Lint(cfg) {
			printWarning(warning)
		}
	}

	cachePath, err := cache.DefaultPath()
	if err != nil {
		return nil, err
	}

	fetcher := inventory.NewCLIFetcher(cfg.Regions)
	coordinator := inventory.NewCoordinator(fetcher, cache.NewStore(cachePath), cfg.CacheTTL)

	return &app{
		cfg:         cfg,
		coordinator: coordinator,
		keys:        sshcmd.NewKeyResolver(cfg),
	}, nil
}

// snapshot returns the inventory, forcing a synchronous refresh when asked.
// A forced refresh shows a spinner and reports the delta; a stale serve
// kicks off a background refresh and mentions the cache age.
func (a *app) snapshot(ctx context.Context, force bool) (*inventory.Snapshot, error) {
	var spinner *ui.Spinner
	if force && !MachineMode() {
		spinner = ui.NewSpinner("Refreshing inventory")
		spinner.Start()
	}

	snap, fresh, err := a.coordinator.Get(ctx, force)
	if spinner != nil {
		if err != nil {
			spinner.Fail()
		} else {
			spinner.Success()
		}
	}
	if err != nil {
		if snap == nil {
			return nil, err
		}
		// Stale data beats no data; the error becomes a warning.
		if !MachineMode() {
			printWarning(err.Error())
		}
	}
	if snap == nil {
		return nil, errors.New(errors.ErrCache,
			"No inventory available",
			"Run 'hop list --refresh' to fetch it")
	}

	if !fresh && !force {
		a.refreshing = true
	}
	if !MachineMode() {
		a.reportDeltas()
		if a.refreshing {
			printWarning(fmt.Sprintf("Inventory is %s old; refreshing in the background",
				ui.FormatDuration(snap.Age())))
		}
	}
	return snap, nil
}

// awaitRefresh joins the background refresh a stale read started, so the
// fetched inventory actually reaches the cache before the process exits.
// Commands defer this right after loadApp; with no refresh pending it is
// a no-op.
func (a *app) awaitRefresh(ctx context.Context) {
	if !a.refreshing {
		return
	}
	waitCtx, cancel := context.WithTimeout(ctx, refreshGrace)
	defer cancel()

	err := a.coordinator.Wait(waitCtx)
	if MachineMode() {
		return
	}
	if err != nil {
		printWarning(err.Error())
		return
	}
	a.reportDeltas()
}

// reportDeltas drains pending refresh deltas and prints the changes.
func (a *app) reportDeltas() {
	for {
		select {
		case d := <-a.coordinator.Deltas():
			if d.Added == 0 && d.Removed == 0 {
				continue
			}
			printInfo(fmt.Sprintf("Inventory changed: +%d -%d (total %d)",
				d.Added, d.Removed, d.Total))
		default:
			return
		}
	}
}

// findHost resolves a host query against the snapshot, or opens the
// interactive picker when the query is empty.
func (a *app) findHost(snap *inventory.Snapshot, query string) (inventory.HostRecord, error) {
	if query == "" {
		if MachineMode() || !ui.IsTerminal(os.Stdin) {
			return inventory.HostRecord{}, errors.New(errors.ErrCache,
				"No host specified",
				"Pass a host name or instance ID")
		}
		picked, err := ui.PickHost(runningHosts(snap))
		if err != nil {
			return inventory.HostRecord{}, err
		}
		if picked == nil {
			return inventory.HostRecord{}, errors.New(errors.ErrCache,
				"No host selected", "")
		}
		return *picked, nil
	}

	host, ok := snap.Find(query)
	if !ok {
		return inventory.HostRecord{}, errors.New(errors.ErrCache,
			fmt.Sprintf("Host not found: %s", query),
			"Run 'hop list' to see known hosts, or 'hop list --refresh' to update")
	}
	return host, nil
}

// plan resolves the routing plan for a host. Resolver warnings (a rule
// pointing at a missing profile) print but do not block the direct
// fallback; hard errors (relay host without a private address) do.
func (a *app) plan(host inventory.HostRecord) (route.Plan, error) {
	rules, err := a.cfg.RouteRules()
	if err != nil {
		return route.Plan{}, err
	}

	plan, err := route.Resolve(host, rules, a.cfg.RouteProfiles())
	if err != nil {
		if _, ok := err.(*route.ProfileNotFoundError); ok {
			if !MachineMode() {
				printWarning(err.Error() + "; connecting directly")
			}
			return plan, nil
		}
		return route.Plan{}, errors.WrapWithCode(err, errors.ErrRoute,
			"Cannot resolve a route to "+host.DisplayName(),
			"Check the host's addresses and your routing rules")
	}
	return plan, nil
}

// sshOptions builds the per-connection options for a host, resolving the
// key through the configured lookup chain.
func (a *app) sshOptions(host inventory.HostRecord) sshcmd.Options {
	return sshcmd.Options{
		User:    a.cfg.DefaultUser,
		KeyPath: a.keys.Resolve(host),
	}
}

// runningHosts filters the snapshot down to connectable hosts.
func runningHosts(snap *inventory.Snapshot) []inventory.HostRecord {
	var out []inventory.HostRecord
	for _, h := range snap.Hosts {
		if h.Running() {
			out = append(out, h)
		}
	}
	return out
}

func printWarning(msg string) {
	style := lipgloss.NewStyle().Foreground(ui.ColorWarning)
	fmt.Fprintf(os.Stderr, "%s %s\n", style.Render("!"), msg)
}

func printInfo(msg string) {
	style := lipgloss.NewStyle().Foreground(ui.ColorInfo)
	fmt.Fprintf(os.Stderr, "%s %s\n", style.Render("»"), msg)
}

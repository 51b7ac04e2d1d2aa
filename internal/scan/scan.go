// Package scan runs file listings and shell commands across fleet hosts
// and keeps a searchable record of what they returned.
//
// Unlike routing, scan rules are cumulative: every rule matching a host
// contributes its paths and commands on top of the configured defaults.
package scan

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rileyhilliard/hop/internal/config"
	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/inventory"
	"github.com/rileyhilliard/hop/internal/logger"
	"github.com/rileyhilliard/hop/internal/match"
	"github.com/rileyhilliard/hop/internal/route"
	"github.com/rileyhilliard/hop/internal/sshcmd"
	"github.com/rileyhilliard/hop/internal/util"
)

// DefaultParallelism bounds concurrent SSH sessions during a fleet scan.
const DefaultParallelism = 8

// Job describes everything needed to scan one host.
type Job struct {
	Host     inventory.HostRecord
	Plan     route.Plan
	Options  sshcmd.Options
	Paths    []string
	Commands []string
}

// Finding is one captured output from a scanned host.
type Finding struct {
	HostID    string    `json:"host_id"`
	HostName  string    `json:"host_name,omitempty"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Err       string    `json:"error,omitempty"`
}

// Plan merges the default paths with every scan rule matching the host.
// All matching rules contribute; order follows the config with duplicates
// dropped. An invalid rule condition is a config defect and aborts the plan.
func Plan(host inventory.HostRecord, defaults []string, rules []config.ScanRule) (paths, commands []string, err error) {
	paths = appendUnique(paths, defaults...)

	for _, rule := range rules {
		conds, perr := match.ParseConditions(rule.Match)
		if perr != nil {
			return nil, nil, errors.WrapWithCode(perr, errors.ErrConfig,
				fmt.Sprintf("Scan rule '%s' has an invalid condition", rule.Name),
				"Valid conditions: name_contains, name_regex, region, id, type_contains, has_public_addr")
		}
		ok, merr := match.Matches(host, conds)
		if merr != nil {
			return nil, nil, errors.WrapWithCode(merr, errors.ErrConfig,
				fmt.Sprintf("Scan rule '%s' failed to evaluate", rule.Name),
				"Check the rule's regex pattern")
		}
		if !ok {
			continue
		}
		paths = appendUnique(paths, rule.Paths...)
		commands = appendUnique(commands, rule.Commands...)
	}
	return paths, commands, nil
}

// Runner executes scan jobs over ssh with bounded parallelism.
type Runner struct {
	parallelism int
	timeout     time.Duration
	log         logger.Logger

	// runCommand is swappable for tests.
	runCommand func(ctx context.Context, argv []string) (string, error)
}

// NewRunner creates a runner. parallelism <= 0 uses DefaultParallelism.
func NewRunner(parallelism int, timeout time.Duration) *Runner {
	r := &Runner{
		parallelism: parallelism,
		timeout:     timeout,
		log:         logger.Default(),
	}
	if r.parallelism <= 0 {
		r.parallelism = DefaultParallelism
	}
	r.runCommand = r.execute
	return r
}

// SetLogger overrides the runner's logger.
func (r *Runner) SetLogger(log logger.Logger) {
	r.log = log
}

// Run scans all jobs and returns every finding. Per-host failures are
// recorded as findings with Err set; only context cancellation stops the run.
func (r *Runner) Run(ctx context.Context, jobs []Job) []Finding {
	results := make([][]Finding, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.scanHost(ctx, job)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // Workers never fail; findings carry errors

	var all []Finding
	for _, fs := range results {
		all = append(all, fs...)
	}
	return all
}

// scanHost runs every path listing and command for one host sequentially.
// Hosts scan in parallel, commands on a single host do not.
func (r *Runner) scanHost(ctx context.Context, job Job) []Finding {
	var findings []Finding

	record := func(source, content string, err error) {
		f := Finding{
			HostID:    job.Host.ID,
			HostName:  job.Host.DisplayName(),
			Source:    source,
			Content:   content,
			Timestamp: time.Now(),
		}
		if err != nil {
			f.Err = err.Error()
			r.log.Warn("Scan of %s on %s failed: %v", source, job.Host.DisplayName(), err)
		}
		findings = append(findings, f)
	}

	for _, path := range job.Paths {
		opts := job.Options
		opts.RemoteCommand = "ls -la " + util.ShellQuotePreserveTilde(path)
		out, err := r.runCommand(ctx, sshcmd.Build(job.Plan, opts))
		record(path, out, err)
		if ctx.Err() != nil {
			return findings
		}
	}

	for _, command := range job.Commands {
		opts := job.Options
		opts.RemoteCommand = command
		out, err := r.runCommand(ctx, sshcmd.Build(job.Plan, opts))
		record(command, out, err)
		if ctx.Err() != nil {
			return findings
		}
	}
	return findings
}

// execute runs an argv and captures combined output.
func (r *Runner) execute(ctx context.Context, argv []string) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	content := strings.TrimRight(string(out), "\n")
	if err != nil {
		return content, errors.WrapWithCode(err, errors.ErrExec,
			"Remote command failed", "")
	}
	return content, nil
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

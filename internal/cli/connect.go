package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/history"
	"github.com/rileyhilliard/hop/internal/sshcmd"
)

var (
	connectUserFlag string
	connectKeyFlag  string
)

var connectCmd = &cobra.Command{
	Use:   "connect [host] [-- command...]",
	Short: "Open an SSH session to a fleet host",
	Long: `Resolve the reachability plan for a host and open an SSH session.

The host can be a name or an instance ID. With no host argument an
interactive picker opens. Anything after -- runs as a remote command
instead of an interactive shell.

Examples:
  hop connect
  hop connect web-1
  hop connect i-0abc123def456 -- uptime
  hop connect web-1 --user admin --key ~/.ssh/admin.pem`,
	RunE: func(cmd *cobra.Command, args []string) error {
		host := ""
		var remote []string
		if len(args) > 0 {
			host = args[0]
			remote = args[1:]
		}
		return connectCommand(host, strings.Join(remote, " "))
	},
}

func init() {
	connectCmd.Flags().StringVarP(&connectUserFlag, "user", "u", "", "SSH username (overrides config)")
	connectCmd.Flags().StringVarP(&connectKeyFlag, "key", "i", "", "SSH key path (overrides key discovery)")
	rootCmd.AddCommand(connectCmd)
}

func connectCommand(query, remoteCommand string) error {
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
	if !host.Running() {
		return errors.New(errors.ErrSSH,
			fmt.Sprintf("Host %s is %s", host.DisplayName(), host.State),
			"Only running hosts accept connections")
	}

	plan, err := a.plan(host)
	if err != nil {
		return err
	}

	opts := a.sshOptions(host)
	if connectUserFlag != "" {
		opts.User = connectUserFlag
	}
	if connectKeyFlag != "" {
		opts.KeyPath = connectKeyFlag
	}
	opts.RemoteCommand = remoteCommand

	if opts.KeyPath != "" && !sshcmd.CheckPermissions(opts.KeyPath) {
		printWarning(fmt.Sprintf("Key %s has loose permissions; ssh may refuse it. Run 'chmod 600 %s'",
			opts.KeyPath, opts.KeyPath))
	}

	argv := sshcmd.Build(plan, opts)

	if !MachineMode() {
		target := host.DisplayName()
		if plan.UsesRelay() {
			printInfo(fmt.Sprintf("Connecting to %s via relay profile '%s'", target, plan.ProfileName))
		} else {
			printInfo("Connecting to " + target)
		}
	}

	recordHistory(host.ID, host.DisplayName(), remoteCommand, plan.ProfileName)

	return runSSH(argv)
}

// recordHistory best-effort appends to the history file.
func recordHistory(hostID, hostName, command, profile string) {
	path, err := history.DefaultPath()
	if err != nil {
		return
	}
	store := history.NewStore(path)
	if err := store.Record(history.Entry{
		HostID:   hostID,
		HostName: hostName,
		Command:  command,
		Profile:  profile,
	}); err != nil {
		printWarning("Could not record history: " + err.Error())
	}
}

// runSSH hands the terminal to ssh and mirrors its exit code.
func runSSH(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			// ssh already printed its own diagnostics.
			return exitCodeError{code: exitErr.ExitCode()}
		}
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Could not launch ssh",
			"Check that the ssh binary is on your PATH")
	}
	return nil
}

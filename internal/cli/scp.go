package cli

import (
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/sshcmd"
)

var scpDownloadFlag bool

var scpCmd = &cobra.Command{
	Use:   "scp <host> <local-path> <remote-path>",
	Short: "Copy files to or from a fleet host",
	Long: `Copy files through the host's resolved routing plan.

Relay-routed hosts work transparently: the same jump-host arguments used
for 'hop connect' are passed to scp. Directories copy recursively.

Examples:
  hop scp web-1 ./dist /opt/app
  hop scp web-1 ./backup.tgz /tmp/backup.tgz --download`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return scpCommand(args[0], args[1], args[2])
	},
}

func init() {
	scpCmd.Flags().BoolVarP(&scpDownloadFlag, "download", "d", false, "copy from the host instead of to it")
	rootCmd.AddCommand(scpCmd)
}

func scpCommand(query, localPath, remotePath string) error {
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
	var argv []string
	if scpDownloadFlag {
		argv = sshcmd.BuildDownload(plan, opts, remotePath, localPath)
	} else {
		argv = sshcmd.BuildUpload(plan, opts, localPath, remotePath)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitCodeError{code: exitErr.ExitCode()}
		}
		return errors.WrapWithCode(err, errors.ErrSSH,
			"Could not launch scp",
			"Check that the scp binary is on your PATH")
	}
	return nil
}

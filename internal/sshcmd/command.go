// Package sshcmd builds ssh and scp invocations from a resolved
// reachability plan. Commands are always argv slices, never shell strings.
// The IdentitiesOnly flag rides along only when an explicit key is present;
// forcing it without a key breaks agent-only authentication.
package sshcmd

import (
	"fmt"

	"github.com/rileyhilliard/hop/internal/route"
)

// Options carry the per-invocation connection parameters.
type Options struct {
	// User is the SSH username on the target.
	User string

	// KeyPath is the identity file for the target. Empty leaves
	// credential resolution to the agent and ssh config.
	KeyPath string

	// RemoteCommand runs on the target instead of an interactive shell.
	RemoteCommand string
}

// baseArgs are shared by ssh and scp. Fleet hosts are recycled constantly,
// so host key pinning would only produce noise.
func baseArgs(bin string) []string {
	return []string{
		bin,
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
	}
}

// identityArgs returns the key arguments, or nil when no key is set.
func identityArgs(keyPath string) []string {
	if keyPath == "" {
		return nil
	}
	// IdentitiesOnly prevents "Too many authentication failures" when the
	// agent holds more keys than the server's attempt limit.
	return []string{"-o", "IdentitiesOnly=yes", "-i", keyPath}
}

// Build constructs the ssh argv for a plan.
func Build(plan route.Plan, opts Options) []string {
	cmd := baseArgs("ssh")
	cmd = append(cmd, plan.RelayArgs...)
	cmd = append(cmd, identityArgs(opts.KeyPath)...)
	cmd = append(cmd, fmt.Sprintf("%s@%s", opts.User, plan.Target))
	if opts.RemoteCommand != "" {
		cmd = append(cmd, opts.RemoteCommand)
	}
	return cmd
}

// BuildUpload constructs the scp argv copying a local path to the target.
func BuildUpload(plan route.Plan, opts Options, localPath, remotePath string) []string {
	cmd := scpBase(plan, opts)
	cmd = append(cmd, localPath, fmt.Sprintf("%s@%s:%s", opts.User, plan.Target, remotePath))
	return cmd
}

// BuildDownload constructs the scp argv copying a remote path to a local one.
func BuildDownload(plan route.Plan, opts Options, remotePath, localPath string) []string {
	cmd := scpBase(plan, opts)
	cmd = append(cmd, fmt.Sprintf("%s@%s:%s", opts.User, plan.Target, remotePath), localPath)
	return cmd
}

// scpBase shares the relay and identity discipline with ssh.
// scp accepts both -J and -o ProxyCommand, so relay args pass through as-is.
func scpBase(plan route.Plan, opts Options) []string {
	cmd := baseArgs("scp")
	cmd = append(cmd, "-r")
	cmd = append(cmd, plan.RelayArgs...)
	cmd = append(cmd, identityArgs(opts.KeyPath)...)
	return cmd
}

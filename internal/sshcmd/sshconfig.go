package sshcmd

import (
	"os"
	"path/filepath"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/hop/internal/config"
)

// identityFromSSHConfig looks up the IdentityFile for a host in the user's
// ~/.ssh/config. Returns empty when no config exists, the host has no
// entry, or only the ssh default would apply.
func identityFromSSHConfig(host string) string {
	if host == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".ssh", "config")

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return ""
	}

	identity, err := cfg.Get(host, "IdentityFile")
	if err != nil || identity == "" {
		return ""
	}

	// ssh_config reports the ssh built-in default for hosts with no
	// explicit IdentityFile; only honor explicit entries.
	if identity == ssh_config.Default("IdentityFile") {
		return ""
	}

	expanded := config.ExpandPath(identity)
	if _, err := os.Stat(expanded); err != nil {
		return ""
	}
	return expanded
}

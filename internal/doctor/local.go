package doctor

import (
	"fmt"
	"net"
	"os"
	"os/exec"
)

// BinaryCheck verifies a required command-line tool is installed.
type BinaryCheck struct {
	Binary     string
	Required   bool
	Suggestion string
}

func (c *BinaryCheck) Name() string     { return "binary_" + c.Binary }
func (c *BinaryCheck) Category() string { return "TOOLS" }

func (c *BinaryCheck) Run() CheckResult {
	path, err := exec.LookPath(c.Binary)
	if err != nil {
		status := StatusWarn
		if c.Required {
			status = StatusFail
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    c.Binary + " not found in PATH",
			Suggestion: c.Suggestion,
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%s found (%s)", c.Binary, path),
	}
}

func (c *BinaryCheck) Fix() error {
	return nil // System package installation is out of scope
}

// AgentCheck verifies the SSH agent is reachable. Hosts without a configured
// key fall back to agent auth, so a dead agent usually means failed logins.
type AgentCheck struct{}

func (c *AgentCheck) Name() string     { return "ssh_agent" }
func (c *AgentCheck) Category() string { return "SSH" }

func (c *AgentCheck) Run() CheckResult {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent not running",
			Suggestion: "Start it with: eval $(ssh-agent) && ssh-add",
		}
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "SSH agent socket not accessible",
			Suggestion: "Restart it with: eval $(ssh-agent) && ssh-add",
		}
	}
	conn.Close() //nolint:errcheck // Best-effort close, error not actionable

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "SSH agent running",
	}
}

func (c *AgentCheck) Fix() error {
	return nil // Starting an agent only helps inside the user's shell
}

// Package probe tests whether fleet hosts are reachable over SSH.
// A probe proves an SSH server answers at the address; it deliberately does
// not authenticate, so an auth rejection still counts as reachable.
package probe

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/errgroup"
)

// DefaultPort is the SSH port probed when none is specified.
const DefaultPort = "22"

// Error represents a failed probe with a categorized failure reason.
type Error struct {
	Address string
	Reason  FailReason
	Cause   error
}

// FailReason categorizes why a probe failed.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailTimeout
	FailRefused
	FailUnreachable
	FailDNS
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailTimeout:
		return "connection timed out"
	case FailRefused:
		return "connection refused"
	case FailUnreachable:
		return "host unreachable"
	case FailDNS:
		return "hostname not resolvable"
	default:
		return "unknown error"
	}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Address, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Address, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Probe tests SSH reachability of an address and returns the latency.
// It performs:
//  1. A TCP connection to the SSH port
//  2. An SSH protocol handshake with no credentials
//
// A handshake that reaches authentication proves a live SSH server, so
// auth rejections are success. Returns an *Error with categorized reason
// on failure.
func Probe(address string, timeout time.Duration) (time.Duration, error) {
	start := time.Now()

	hostport := address
	if _, _, err := net.SplitHostPort(address); err != nil {
		hostport = net.JoinHostPort(address, DefaultPort)
	}

	conn, err := net.DialTimeout("tcp", hostport, timeout)
	if err != nil {
		return 0, categorize(address, err)
	}
	defer conn.Close()

	cfg := &ssh.ClientConfig{
		User:            "probe",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // Reachability check only, no data flows
		Timeout:         timeout,
	}

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return 0, categorize(address, err)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, hostport, cfg)
	if err != nil {
		if isAuthError(err) {
			// Server answered and rejected our empty credentials:
			// that is a reachable host.
			return time.Since(start), nil
		}
		return 0, categorize(address, err)
	}

	client := ssh.NewClient(c, chans, reqs)
	client.Close() //nolint:errcheck // Probe connection, close error not actionable
	return time.Since(start), nil
}

// Result contains the outcome of probing a single address.
type Result struct {
	Address string
	Latency time.Duration
	Error   error
	Success bool
}

// All probes multiple addresses with bounded parallelism and returns a
// result per address, in input order.
func All(addresses []string, timeout time.Duration, parallelism int) []Result {
	if parallelism <= 0 {
		parallelism = 8
	}

	results := make([]Result, len(addresses))
	var g errgroup.Group
	g.SetLimit(parallelism)

	for i, addr := range addresses {
		g.Go(func() error {
			latency, err := Probe(addr, timeout)
			results[i] = Result{
				Address: addr,
				Latency: latency,
				Error:   err,
				Success: err == nil,
			}
			return nil
		})
	}

	g.Wait() //nolint:errcheck // Workers never return errors; results carry them
	return results
}

// categorize maps transport errors to probe failure reasons.
func categorize(address string, err error) *Error {
	msg := err.Error()

	reason := FailUnknown
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out"):
		reason = FailTimeout
	case strings.Contains(msg, "connection refused"):
		reason = FailRefused
	case strings.Contains(msg, "no route to host") || strings.Contains(msg, "network is unreachable"):
		reason = FailUnreachable
	case strings.Contains(msg, "no such host"):
		reason = FailDNS
	}

	return &Error{Address: address, Reason: reason, Cause: err}
}

// isAuthError reports whether a handshake error happened at the
// authentication stage, which implies the server itself is reachable.
func isAuthError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") ||
		strings.Contains(msg, "no supported methods remain")
}

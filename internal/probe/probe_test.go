package probe

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFailReason_String(t *testing.T) {
	tests := []struct {
		reason   FailReason
		expected string
	}{
		{FailTimeout, "connection timed out"},
		{FailRefused, "connection refused"},
		{FailUnreachable, "host unreachable"},
		{FailDNS, "hostname not resolvable"},
		{FailUnknown, "unknown error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.reason.String())
	}
}

func TestError_Format(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := &Error{Address: "10.0.0.9", Reason: FailRefused, Cause: cause}

	assert.Contains(t, err.Error(), "10.0.0.9")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestError_FormatWithoutCause(t *testing.T) {
	err := &Error{Address: "web.example.com", Reason: FailDNS}
	assert.Equal(t, "probe web.example.com failed: hostname not resolvable", err.Error())
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason FailReason
	}{
		{"dial timeout", errors.New("dial tcp 10.0.0.9:22: i/o timeout"), FailTimeout},
		{"timed out", errors.New("connection timed out"), FailTimeout},
		{"refused", errors.New("dial tcp 10.0.0.9:22: connect: connection refused"), FailRefused},
		{"no route", errors.New("connect: no route to host"), FailUnreachable},
		{"network unreachable", errors.New("connect: network is unreachable"), FailUnreachable},
		{"dns", errors.New("lookup ghost.example.com: no such host"), FailDNS},
		{"other", errors.New("ssh: handshake failed: EOF"), FailUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := categorize("10.0.0.9", tt.err)
			assert.Equal(t, tt.reason, err.Reason)
			assert.Equal(t, "10.0.0.9", err.Address)
			assert.Equal(t, tt.err, err.Cause)
		})
	}
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none]")))
	assert.True(t, isAuthError(errors.New("ssh: unable to authenticate, no supported methods remain")))
	assert.False(t, isAuthError(errors.New("ssh: handshake failed: EOF")))
}

func TestProbe_ConnectionRefused(t *testing.T) {
	// Grab a port the kernel just released so nothing is listening on it.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = Probe(addr, 2*time.Second)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, FailRefused, perr.Reason)
	assert.Equal(t, addr, perr.Address)
}

func TestProbe_NonSSHServer(t *testing.T) {
	// A listener that accepts and immediately hangs up fails the handshake
	// without ever reaching authentication.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, err = Probe(ln.Addr().String(), 2*time.Second)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.NotEqual(t, FailRefused, perr.Reason)
}

func TestProbe_DefaultPortAppended(t *testing.T) {
	// A bare hostname that cannot resolve exercises the port-joining path.
	_, err := Probe("host.invalid", time.Second)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "host.invalid", perr.Address)
}

func TestAll_ResultsInInputOrder(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	closed := ln.Addr().String()
	require.NoError(t, ln.Close())

	addresses := []string{closed, "host.invalid", closed}
	results := All(addresses, 2*time.Second, 2)

	require.Len(t, results, len(addresses))
	for i, r := range results {
		assert.Equal(t, addresses[i], r.Address)
		assert.False(t, r.Success)
		assert.Error(t, r.Error)
	}
}

func TestAll_Empty(t *testing.T) {
	assert.Empty(t, All(nil, time.Second, 0))
}

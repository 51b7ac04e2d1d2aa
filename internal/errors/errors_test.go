package errors

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodes(t *testing.T) {
	// Verify all expected error codes exist
	codes := []string{
		ErrConfig,
		ErrFetch,
		ErrCache,
		ErrRoute,
		ErrSSH,
		ErrExec,
	}

	for _, code := range codes {
		assert.NotEmpty(t, code, "error code should not be empty")
	}

	// Verify codes are unique
	seen := make(map[string]bool)
	for _, code := range codes {
		assert.False(t, seen[code], "error code %q should be unique", code)
		seen[code] = true
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		message    string
		suggestion string
	}{
		{
			name:       "config error",
			code:       ErrConfig,
			message:    "Invalid configuration in .hop.yaml",
			suggestion: "Check your configuration file syntax",
		},
		{
			name:       "fetch error",
			code:       ErrFetch,
			message:    "Inventory fetch failed",
			suggestion: "Check your cloud credentials and network connection",
		},
		{
			name:       "cache error",
			code:       ErrCache,
			message:    "Cannot write inventory cache",
			suggestion: "Check permissions on ~/.hop",
		},
		{
			name:       "route error",
			code:       ErrRoute,
			message:    "Rule 'prod' references missing profile 'bastion'",
			suggestion: "Add the profile under 'profiles:' or fix the rule",
		},
		{
			name:       "ssh error",
			code:       ErrSSH,
			message:    "Cannot reach host",
			suggestion: "Check the host is running and reachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, tt.suggestion)

			require.NotNil(t, err)
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.suggestion, err.Suggestion)
			assert.Nil(t, err.Cause)
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "Cannot connect to relay")

	assert.Equal(t, ErrSSH, err.Code)
	assert.Equal(t, "Cannot connect to relay", err.Message)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapWithCode(t *testing.T) {
	cause := errors.New("no such file")
	err := WrapWithCode(cause, ErrCache, "Cache file unreadable", "Delete ~/.hop/snapshot.json and refresh")

	assert.Equal(t, ErrCache, err.Code)
	assert.Equal(t, "Cache file unreadable", err.Message)
	assert.Equal(t, "Delete ~/.hop/snapshot.json and refresh", err.Suggestion)
	assert.Equal(t, cause, err.Cause)
}

func TestError_Format(t *testing.T) {
	err := WrapWithCode(errors.New("dial tcp: timeout"), ErrSSH,
		"Cannot reach bastion",
		"Check your VPN connection")

	out := err.Error()
	assert.True(t, strings.HasPrefix(out, "✗ Cannot reach bastion"))
	assert.Contains(t, out, "dial tcp: timeout")
	assert.Contains(t, out, "Check your VPN connection")
}

func TestError_FormatWithoutSuggestion(t *testing.T) {
	err := New(ErrFetch, "Fetch failed", "")
	out := err.Error()

	assert.Contains(t, out, "Fetch failed")
	assert.NotContains(t, out, "\n\n  \n")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(cause, "wrapped")

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestIsCode(t *testing.T) {
	err := New(ErrRoute, "bad route", "")

	assert.True(t, IsCode(err, ErrRoute))
	assert.False(t, IsCode(err, ErrConfig))
	assert.False(t, IsCode(nil, ErrRoute))
	assert.False(t, IsCode(errors.New("plain"), ErrRoute))
}

func TestIsCode_Wrapped(t *testing.T) {
	inner := New(ErrCache, "cache broken", "")
	outer := WrapWithCode(inner, ErrFetch, "refresh failed", "")

	// errors.As finds the outermost structured error first
	assert.True(t, IsCode(outer, ErrFetch))
}

package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Styled output depends on the terminal profile; pin it to Ascii so the
// assertions see plain text everywhere tests run.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestRenderHostTable_Empty(t *testing.T) {
	assert.Equal(t, "No hosts in inventory", RenderHostTable(nil))
}

func TestRenderHostTable_Columns(t *testing.T) {
	out := RenderHostTable([]HostRow{
		{Name: "web-1", ID: "i-0abc", State: "running", Region: "us-west-2", Address: "54.1.2.3", Route: "direct"},
		{Name: "db-1", ID: "i-0def", State: "running", Region: "us-west-2", Address: "10.0.0.9", Route: "corp-relay"},
	})

	for _, want := range []string{"NAME", "ID", "STATE", "REGION", "ADDRESS", "ROUTE", "web-1", "db-1", "corp-relay", "54.1.2.3"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "PROBE")
}

func TestRenderHostTable_ProbeColumnWhenPresent(t *testing.T) {
	out := RenderHostTable([]HostRow{
		{Name: "web-1", ID: "i-0abc", State: "running", Route: "direct", Probe: "12ms"},
		{Name: "db-1", ID: "i-0def", State: "running", Route: "direct"},
	})

	assert.Contains(t, out, "PROBE")
	assert.Contains(t, out, "12ms")
}

func TestRenderHostTable_WidthGrowsWithContent(t *testing.T) {
	long := "a-rather-long-host-name-tag"
	out := RenderHostTable([]HostRow{
		{Name: long, ID: "i-1", State: "running", Route: "direct"},
	})

	// The name must not be truncated to the minimum column width.
	assert.Contains(t, out, long)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d        time.Duration
		expected string
	}{
		{50 * time.Millisecond, "0.05s"},
		{300 * time.Millisecond, "0.3s"},
		{1200 * time.Millisecond, "1.2s"},
		{3 * time.Second, "3.0s"},
		{59 * time.Second, "59.0s"},
		{90 * time.Second, "1m30s"},
		{12*time.Minute + 30*time.Second, "12m30s"},
		{time.Hour + time.Minute, "1h1m"},
		{2 * time.Hour, "2h0m"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatDuration(tt.d))
	}
}

func TestSpinner_SuccessOutput(t *testing.T) {
	var b strings.Builder
	s := NewSpinner("Refreshing inventory")
	s.SetOutput(func(str string) { b.WriteString(str) })

	s.Start()
	s.Success()

	out := b.String()
	assert.Contains(t, out, "Refreshing inventory")
	assert.Contains(t, out, SymbolSuccess)
}

func TestSpinner_FailOutput(t *testing.T) {
	var out strings.Builder
	s := NewSpinner("Refreshing inventory")
	s.SetOutput(func(str string) { out.WriteString(str) })

	s.Start()
	s.Fail()

	assert.Contains(t, out.String(), SymbolFail)
}

func TestSpinner_DoubleStartIsSafe(t *testing.T) {
	var out strings.Builder
	s := NewSpinner("working")
	s.SetOutput(func(str string) { out.WriteString(str) })

	s.Start()
	s.Start()
	s.Success()

	require.Contains(t, out.String(), "working")
}

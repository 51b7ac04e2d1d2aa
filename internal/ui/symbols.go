package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Reachable, or operation succeeded
	SymbolFail     = "✗" // Unreachable, or operation failed
	SymbolPending  = "○" // Not yet probed
	SymbolProgress = "◐" // In progress
	SymbolRelay    = "⇄" // Host reached through a relay
	SymbolStale    = "⊙" // Served from a stale cache
)

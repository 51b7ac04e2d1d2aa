// Package ui provides terminal output components for hop's CLI.
//
// The package includes the inventory table, an interactive host picker,
// a refresh spinner, and styled text output using the Lip Gloss library.
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Running hosts, successful probes
//	ColorError     (red)    - Failures and unreachable hosts
//	ColorWarning   (yellow) - Stale cache, relay warnings
//	ColorInfo      (cyan)   - Informational messages
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui

// Package util holds small helpers shared across commands.
package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping embedded single
// quotes, so the remote shell treats it literally.
func ShellQuote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a path while keeping a leading ~ unquoted,
// so the remote shell still expands it to the remote home directory. Scan
// paths use this: the config may name ~/ but the path after it can contain
// spaces.
func ShellQuotePreserveTilde(path string) string {
	if path == "~" || path == "~/" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	return ShellQuote(path)
}

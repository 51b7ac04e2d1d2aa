// Package inventory manages the fleet inventory: host records fetched from
// the cloud provider, the cached snapshot of the last fetch, and the refresh
// coordinator that serves cached data while revalidating in the background.
package inventory

import "github.com/rileyhilliard/hop/internal/inventory/cache"

// HostRecord is an immutable snapshot of one remote machine.
// It is declared in the cache subpackage (the dependency leaf) and aliased
// here so callers keep using inventory.HostRecord.
type HostRecord = cache.HostRecord

// Snapshot is an ordered sequence of host records plus the time they were
// fetched. Declared in the cache subpackage and aliased here so callers
// keep using inventory.Snapshot.
type Snapshot = cache.Snapshot

// HostRecord and Snapshot are declared here and re-exported from the parent
// inventory package as type aliases; the coordinator imports this package,
// so the shared model types must live at the leaf to avoid an import cycle.
package cache

import "time"

// HostRecord is an immutable snapshot of one remote machine.
// Records are produced only by an inventory fetch and never mutated;
// a refresh produces an entirely new collection.
type HostRecord struct {
	// ID is the stable cloud identifier (e.g., "i-0abc123").
	ID string `json:"id"`

	// Name is the human-readable name tag. May be empty.
	Name string `json:"name,omitempty"`

	// Kind is the instance type (e.g., "t3.medium").
	Kind string `json:"kind,omitempty"`

	// State is the lifecycle state (e.g., "running", "stopped").
	State string `json:"state,omitempty"`

	// Region the host lives in (e.g., "us-east-1").
	Region string `json:"region,omitempty"`

	// PublicAddr is the public IP or hostname, empty when the host
	// has no public interface.
	PublicAddr string `json:"public_addr,omitempty"`

	// PrivateAddr is the VPC-internal address, empty when unknown.
	PrivateAddr string `json:"private_addr,omitempty"`

	// KeyName is the cloud key-pair name used to launch the host.
	// Used as a hint for local SSH key discovery.
	KeyName string `json:"key_name,omitempty"`
}

// Running reports whether the host is in the running lifecycle state.
func (h HostRecord) Running() bool {
	return h.State == "running"
}

// DisplayName returns the name tag, falling back to the ID for unnamed hosts.
func (h HostRecord) DisplayName() string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

// Snapshot is an ordered sequence of host records plus the time they were
// fetched. Snapshots are replaced wholesale on every successful fetch.
type Snapshot struct {
	FetchedAt time.Time    `json:"fetched_at"`
	Hosts     []HostRecord `json:"hosts"`
}

// IDSet returns the set of host IDs in the snapshot.
func (s *Snapshot) IDSet() map[string]bool {
	ids := make(map[string]bool, len(s.Hosts))
	for _, h := range s.Hosts {
		ids[h.ID] = true
	}
	return ids
}

// Find returns the first host whose ID or name matches the query.
// Matching is exact on ID, then exact on name.
func (s *Snapshot) Find(query string) (HostRecord, bool) {
	for _, h := range s.Hosts {
		if h.ID == query {
			return h, true
		}
	}
	for _, h := range s.Hosts {
		if h.Name == query {
			return h, true
		}
	}
	return HostRecord{}, false
}

// Age returns how long ago the snapshot was fetched.
func (s *Snapshot) Age() time.Duration {
	return time.Since(s.FetchedAt)
}

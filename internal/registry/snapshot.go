package registry

import "ascent/pkg/domain"

// MilestoneSnapshot is the externally aggregated set of qualitative facts for
// one domain. SchemaVersion must match the domain's declared version so a
// renamed milestone cannot silently read as "absent".
type MilestoneSnapshot struct {
	SchemaVersion int             `json:"schema_version"`
	Facts         map[string]bool `json:"facts"`
}

// Holds reports whether the fact is present and true.
func (s MilestoneSnapshot) Holds(name string) bool {
	return s.Facts[name]
}

// Clone returns a deep copy, so logged snapshots cannot be mutated by callers.
func (s MilestoneSnapshot) Clone() MilestoneSnapshot {
	out := MilestoneSnapshot{SchemaVersion: s.SchemaVersion}
	if s.Facts != nil {
		out.Facts = make(map[string]bool, len(s.Facts))
		for k, v := range s.Facts {
			out.Facts[k] = v
		}
	}
	return out
}

// SnapshotSet carries milestone snapshots for several domains in one pass.
type SnapshotSet map[domain.DomainID]MilestoneSnapshot

// SignalSnapshot is the externally aggregated set of behavioral counters that
// the compliance rule table reads.
type SignalSnapshot struct {
	SchemaVersion int            `json:"schema_version"`
	Counters      map[string]int `json:"counters"`
}

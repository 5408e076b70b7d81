// Package snapshot keeps the latest milestone and signal snapshots reported
// for each user so the maintenance pass can re-evaluate without the caller.
package snapshot

import (
	"ascent/internal/registry"
)

// Latest is what was last reported for one user. Signals is nil when no
// signal snapshot has been received.
type Latest struct {
	Milestones registry.SnapshotSet     `json:"milestones"`
	Signals    *registry.SignalSnapshot `json:"signals,omitempty"`
}

// Empty reports whether nothing has been reported.
func (l Latest) Empty() bool {
	return len(l.Milestones) == 0 && l.Signals == nil
}

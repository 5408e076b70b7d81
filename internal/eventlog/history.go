package eventlog

import (
	"time"

	"ascent/pkg/domain"
)

// LevelAt replays the level-changing events of one domain and returns the
// level and the time it was entered. ok is false when the log holds no
// level change for the domain, in which case the state's creation time is
// the only reference. Events must be in append order.
func LevelAt(events []*Event, domainID domain.DomainID) (level int, enteredAt time.Time, ok bool) {
	for _, e := range events {
		if e.Domain != domainID || !e.Kind.ChangesLevel() {
			continue
		}
		level = e.ToLevel
		enteredAt = e.At
		ok = true
	}
	return level, enteredAt, ok
}

// LevelEnteredAt is LevelAt without the level.
func LevelEnteredAt(events []*Event, domainID domain.DomainID) (time.Time, bool) {
	_, at, ok := LevelAt(events, domainID)
	return at, ok
}

// DaysAtLevel is the whole number of days since the last level change.
func DaysAtLevel(events []*Event, domainID domain.DomainID, now time.Time) (int, bool) {
	at, ok := LevelEnteredAt(events, domainID)
	if !ok {
		return 0, false
	}
	return int(now.Sub(at) / (24 * time.Hour)), true
}

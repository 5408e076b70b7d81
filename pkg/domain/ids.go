package domain

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	dErrors "ascent/pkg/domain-errors"
)

// UserID identifies the user whose progression is tracked. All engine calls
// take it explicitly; there is no ambient "current user".
type UserID uuid.UUID

// EventID identifies an event log entry.
type EventID uuid.UUID

// GateID identifies a compliance gate row.
type GateID uuid.UUID

func (id UserID) String() string  { return uuid.UUID(id).String() }
func (id EventID) String() string { return uuid.UUID(id).String() }
func (id GateID) String() string  { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id EventID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GateID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id EventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id GateID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *GateID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

// NewEventID returns a random event id.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewGateID returns a random gate id.
func NewGateID() GateID { return GateID(uuid.New()) }

// ParseUserID parses a user id at a trust boundary.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	return UserID(u), err
}

// ParseGateID parses a gate id at a trust boundary.
func ParseGateID(s string) (GateID, error) {
	u, err := parseUUID(s, "gate ID")
	return GateID(u), err
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

// DomainID names a progression domain in the registry.
type DomainID string

// Feature names an application feature that may be unlocked or gated.
type Feature string

// Action names a remedial action that fulfils a gate.
type Action string

func (d DomainID) String() string { return string(d) }
func (f Feature) String() string  { return string(f) }
func (a Action) String() string   { return string(a) }

var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,63}$`)

// ParseDomainID normalizes and checks the shape of a domain identifier.
// Whether the domain exists is the registry's concern.
func ParseDomainID(s string) (DomainID, error) {
	v, err := parseSlug(s, "domain")
	return DomainID(v), err
}

// ParseFeature normalizes and checks the shape of a feature identifier.
func ParseFeature(s string) (Feature, error) {
	v, err := parseSlug(s, "feature")
	return Feature(v), err
}

// ParseAction normalizes and checks the shape of an action identifier.
func ParseAction(s string) (Action, error) {
	v, err := parseSlug(s, "action")
	return Action(v), err
}

func parseSlug(s, label string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	if !slugPattern.MatchString(v) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+": "+s)
	}
	return v, nil
}

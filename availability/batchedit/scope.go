package batchedit

import (
	"fmt"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

// SessionScope is the target session set of a bulk edit.
type SessionScope string

const (
	ScopeMorning SessionScope = "morning"
	ScopeEvening SessionScope = "evening"
	ScopeAll     SessionScope = "all"
)

// ParseSessionScope returns ErrInvalidScope for anything but the three known scopes.
func ParseSessionScope(s string) (SessionScope, error) {
	scope := SessionScope(s)
	if err := scope.Validate(); err != nil {
		return "", err
	}

	return scope, nil
}

func (s SessionScope) Validate() error {
	switch s {
	case ScopeMorning, ScopeEvening, ScopeAll:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, string(s))
	}
}

// Sessions returns the session ids covered by the scope in display order.
func (s SessionScope) Sessions() []availability.SessionID {
	switch s {
	case ScopeMorning:
		return []availability.SessionID{availability.MorningSession}
	case ScopeEvening:
		return []availability.SessionID{availability.EveningSession}
	case ScopeAll:
		return availability.SessionIDs()
	default:
		return nil
	}
}

// Covers reports whether the session is part of the scope.
func (s SessionScope) Covers(id availability.SessionID) bool {
	for _, covered := range s.Sessions() {
		if covered == id {
			return true
		}
	}

	return false
}

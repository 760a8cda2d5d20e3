package availability

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SessionID identifies one of the two class slots of a day.
type SessionID string

const (
	MorningSession SessionID = "morning_class"
	EveningSession SessionID = "evening_class"
)

// SessionIDs returns both session ids in display order.
func SessionIDs() []SessionID {
	return []SessionID{MorningSession, EveningSession}
}

// Validate returns ErrUnknownSession for anything but the two well-known ids.
func (id SessionID) Validate() error {
	switch id {
	case MorningSession, EveningSession:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSession, string(id))
	}
}

func (id SessionID) String() string {
	return string(id)
}

// Session is the static definition of a class slot. It is maintained outside this engine.
type Session struct {
	ID           SessionID
	BaseCapacity int
	Price        decimal.Decimal
}

// SessionCatalog holds the base capacity of both sessions.
type SessionCatalog struct {
	sessions map[SessionID]Session
}

// BuildSessionCatalog is a factory method for SessionCatalog.
//
// Both sessions must be present: resolving a grid with a guessed default capacity
// could show seats that do not exist.
func BuildSessionCatalog(sessions []Session) (SessionCatalog, error) {
	byID := make(map[SessionID]Session, len(sessions))

	for _, s := range sessions {
		if err := s.ID.Validate(); err != nil {
			return SessionCatalog{}, err
		}

		if s.BaseCapacity < 0 {
			return SessionCatalog{}, fmt.Errorf("%w: %s", ErrNegativeBaseCapacity, s.ID)
		}

		if _, exists := byID[s.ID]; exists {
			return SessionCatalog{}, fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID)
		}

		byID[s.ID] = s
	}

	var missing []error
	for _, id := range SessionIDs() {
		if _, ok := byID[id]; !ok {
			missing = append(missing, fmt.Errorf("%w: %s", ErrSessionMissingFromCatalog, id))
		}
	}

	if len(missing) > 0 {
		return SessionCatalog{}, errors.Join(missing...)
	}

	return SessionCatalog{sessions: byID}, nil
}

// Session returns the definition of the session with the given id.
func (c SessionCatalog) Session(id SessionID) (Session, bool) {
	s, ok := c.sessions[id]
	return s, ok
}

// BaseCapacity returns the base capacity of the session, or 0 for an unknown id.
func (c SessionCatalog) BaseCapacity(id SessionID) int {
	return c.sessions[id].BaseCapacity
}

// Sessions returns all sessions in display order.
func (c SessionCatalog) Sessions() []Session {
	sessions := make([]Session, 0, len(c.sessions))
	for _, id := range SessionIDs() {
		if s, ok := c.sessions[id]; ok {
			sessions = append(sessions, s)
		}
	}

	return sessions
}

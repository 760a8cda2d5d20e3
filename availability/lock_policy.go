package availability

import (
	"time"
)

const (
	defaultMorningCutoff = 10 * time.Hour
	defaultEveningCutoff = 17 * time.Hour
)

// LockEnforcement decides what a save does with a locked cell.
type LockEnforcement int

const (
	// LockAdvisory keeps the lock flag informational: saves go through and are logged.
	LockAdvisory LockEnforcement = iota

	// LockBlocking rejects saves that touch a locked cell with ErrSlotLocked.
	LockBlocking
)

func (e LockEnforcement) String() string {
	switch e {
	case LockAdvisory:
		return "advisory"
	case LockBlocking:
		return "blocking"
	default:
		return "unknown"
	}
}

// ParseLockEnforcement parses "advisory" or "blocking".
func ParseLockEnforcement(s string) (LockEnforcement, error) {
	switch s {
	case "advisory":
		return LockAdvisory, nil
	case "blocking":
		return LockBlocking, nil
	default:
		return LockAdvisory, ErrInvalidLockEnforcement
	}
}

// LockPolicy derives whether a cell is past its operational cutoff.
//
// Dates before today are always locked, dates after today never are. For today, each
// session locks once the local time of day reaches its cutoff.
type LockPolicy struct {
	location *time.Location
	cutoffs  map[SessionID]time.Duration
}

// LockPolicyOption defines a functional option for configuring LockPolicy.
type LockPolicyOption func(*LockPolicy) error

// WithLocation sets the location in which "today" and the cutoffs are evaluated.
func WithLocation(loc *time.Location) LockPolicyOption {
	return func(p *LockPolicy) error {
		if loc == nil {
			return ErrNilLocation
		}

		p.location = loc

		return nil
	}
}

// WithCutoff sets the local time of day at which the session locks on its own date.
func WithCutoff(sessionID SessionID, hour, minute int) LockPolicyOption {
	return func(p *LockPolicy) error {
		if err := sessionID.Validate(); err != nil {
			return err
		}

		cutoff := time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
		if hour < 0 || minute < 0 || minute > 59 || cutoff > 24*time.Hour {
			return ErrInvalidCutoff
		}

		p.cutoffs[sessionID] = cutoff

		return nil
	}
}

// NewLockPolicy creates a LockPolicy with the default cutoffs (morning 10:00, evening 17:00, UTC).
func NewLockPolicy(options ...LockPolicyOption) (LockPolicy, error) {
	p := DefaultLockPolicy()

	for _, option := range options {
		if err := option(&p); err != nil {
			return LockPolicy{}, err
		}
	}

	return p, nil
}

// DefaultLockPolicy returns a LockPolicy with the default cutoffs in UTC.
func DefaultLockPolicy() LockPolicy {
	return LockPolicy{
		location: time.UTC,
		cutoffs: map[SessionID]time.Duration{
			MorningSession: defaultMorningCutoff,
			EveningSession: defaultEveningCutoff,
		},
	}
}

// Location returns the location the policy evaluates "today" in.
func (p LockPolicy) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}

	return p.location
}

// Cutoff returns the time of day after which the session is locked on its own date.
func (p LockPolicy) Cutoff(sessionID SessionID) time.Duration {
	if cutoff, ok := p.cutoffs[sessionID]; ok {
		return cutoff
	}

	return DefaultLockPolicy().cutoffs[sessionID]
}

// IsLocked reports whether the cell is past its cutoff at the instant now.
func (p LockPolicy) IsLocked(date Date, sessionID SessionID, now time.Time) bool {
	loc := p.Location()
	today := DateOf(now, loc)

	switch {
	case date.Before(today):
		return true
	case date.After(today):
		return false
	}

	// wall clock time of day, not elapsed time, so DST switch days lock at the same local hour
	local := now.In(loc)
	timeOfDay := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second

	return timeOfDay >= p.Cutoff(sessionID)
}

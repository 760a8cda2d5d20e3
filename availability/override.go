package availability

import (
	"fmt"
	"sort"
	"strings"
)

// OverrideVersion is the row version of a persisted CalendarOverride.
// Zero means the row has not been persisted yet.
type OverrideVersion = uint64

// CalendarOverride is a persisted exception to a session's default capacity or openness
// for one specific date. It is unique on (Date, SessionID).
//
// IsClosed and CustomCapacity are mutually exclusive: a closed override carries no capacity.
// A nil CustomCapacity means "use the base capacity".
//
// When used as a write payload, Version holds the version the editor observed. Stores that
// check versions reject the write if the persisted row has moved on.
type CalendarOverride struct {
	Date           Date
	SessionID      SessionID
	IsClosed       bool
	ClosureReason  string
	CustomCapacity *int
	Version        OverrideVersion
}

// BuildClosedOverride is a factory method for a CalendarOverride that closes a session.
func BuildClosedOverride(date Date, sessionID SessionID, reason string) (CalendarOverride, error) {
	o := CalendarOverride{
		Date:          date,
		SessionID:     sessionID,
		IsClosed:      true,
		ClosureReason: strings.TrimSpace(reason),
	}

	if err := o.Validate(); err != nil {
		return CalendarOverride{}, err
	}

	return o, nil
}

// BuildCapacityOverride is a factory method for a CalendarOverride with a custom capacity.
func BuildCapacityOverride(date Date, sessionID SessionID, capacity int) (CalendarOverride, error) {
	o := CalendarOverride{
		Date:           date,
		SessionID:      sessionID,
		CustomCapacity: &capacity,
	}

	if err := o.Validate(); err != nil {
		return CalendarOverride{}, err
	}

	return o, nil
}

// WithVersion returns a copy of o carrying the given version.
func (o CalendarOverride) WithVersion(version OverrideVersion) CalendarOverride {
	o.Version = version
	return o
}

// Key returns the natural key of the override.
func (o CalendarOverride) Key() SlotKey {
	return SlotKey{Date: o.Date, SessionID: o.SessionID}
}

// HasCustomCapacity reports whether the override replaces the base capacity.
func (o CalendarOverride) HasCustomCapacity() bool {
	return o.CustomCapacity != nil
}

// Validate checks the invariants of a write payload.
func (o CalendarOverride) Validate() error {
	if o.Date.IsZero() {
		return ErrInvalidDate
	}

	if err := o.SessionID.Validate(); err != nil {
		return err
	}

	if o.IsClosed && o.CustomCapacity != nil {
		return ErrClosedOverrideWithCap
	}

	if o.CustomCapacity != nil && *o.CustomCapacity < 0 {
		return fmt.Errorf("%w: %s %s", ErrNegativeCapacity, o.Date, o.SessionID)
	}

	return nil
}

// OverrideIndex gives constant time access to overrides by their natural key.
type OverrideIndex map[SlotKey]CalendarOverride

// IndexOverrides builds an OverrideIndex and rejects duplicate keys.
func IndexOverrides(overrides []CalendarOverride) (OverrideIndex, error) {
	index := make(OverrideIndex, len(overrides))

	for _, o := range overrides {
		if _, exists := index[o.Key()]; exists {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateOverride, o.Date, o.SessionID)
		}

		index[o.Key()] = o
	}

	return index, nil
}

// Lookup returns the override for the cell, or nil if there is none.
func (idx OverrideIndex) Lookup(date Date, sessionID SessionID) *CalendarOverride {
	o, ok := idx[SlotKey{Date: date, SessionID: sessionID}]
	if !ok {
		return nil
	}

	return &o
}

// SortOverrides orders overrides by date, then morning before evening.
func SortOverrides(overrides []CalendarOverride) {
	sort.SliceStable(overrides, func(i, j int) bool {
		if c := overrides[i].Date.Compare(overrides[j].Date); c != 0 {
			return c < 0
		}

		return sessionOrder(overrides[i].SessionID) < sessionOrder(overrides[j].SessionID)
	})
}

func sessionOrder(id SessionID) int {
	for i, known := range SessionIDs() {
		if id == known {
			return i
		}
	}

	return len(SessionIDs())
}

package batchedit

import (
	"fmt"
)

type seatChangeKind int

const (
	absoluteSeats seatChangeKind = iota + 1
	seatDelta
)

// SeatChange is the pending seat value of an edit. It is either an absolute number of
// resulting available seats (single-day) or a delta added to the existing capacity (bulk).
// The zero value is neither and is rejected by both modes.
type SeatChange struct {
	kind  seatChangeKind
	value int
}

// AbsoluteSeats is the resulting number of available seats of a single-day edit.
func AbsoluteSeats(n int) SeatChange {
	return SeatChange{kind: absoluteSeats, value: n}
}

// SeatDelta is the number of seats added to (or, if negative, removed from) each selected date.
func SeatDelta(n int) SeatChange {
	return SeatChange{kind: seatDelta, value: n}
}

func (c SeatChange) IsAbsolute() bool { return c.kind == absoluteSeats }
func (c SeatChange) IsDelta() bool    { return c.kind == seatDelta }

// Value returns the seat count or the delta, depending on the kind.
func (c SeatChange) Value() int {
	return c.value
}

func (c SeatChange) String() string {
	switch c.kind {
	case absoluteSeats:
		return fmt.Sprintf("seats=%d", c.value)
	case seatDelta:
		return fmt.Sprintf("delta=%+d", c.value)
	default:
		return "unset"
	}
}

package batchedit

import (
	"errors"
)

var (
	ErrEmptySelection       = errors.New("bulk selection must contain at least one date")
	ErrSelectionHasBookings = errors.New("date has bookings and cannot be bulk edited")
	ErrDateNotInGrid        = errors.New("date is not part of the resolved grid")
	ErrInvalidScope         = errors.New("invalid session scope")
	ErrSeatModeMismatch     = errors.New("seat change does not match the edit mode")
	ErrSessionNotInScope    = errors.New("session is not part of this edit")
	ErrInvalidTransition    = errors.New("edit session is not in a state that allows this")
)

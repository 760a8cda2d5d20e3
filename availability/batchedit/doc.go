// Package batchedit holds pending edits of the availability grid and turns them into
// CalendarOverride write payloads.
//
// There are two edit modes with different seat semantics:
//
//   - single-day: one EditSessionState per session, seats are the resulting available seats
//     (AbsoluteSeats), so the saved capacity is seats + occupied
//   - bulk: one shared EditSessionState for a selection of dates and a SessionScope, seats are
//     a delta (SeatDelta) added to each date's existing capacity independently
//
// A bulk selection never contains a date that has bookings in either session. This is
// enforced when a date is added and again, against fresh data, when the edit is saved.
//
// Everything in this package is pure. Fetching fresh data and persisting rows is done by
// the engine package.
package batchedit

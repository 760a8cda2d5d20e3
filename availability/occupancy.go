package availability

// SlotKey identifies one (date × session) cell of the grid.
type SlotKey struct {
	Date      Date
	SessionID SessionID
}

// Occupancy is the booking aggregate: the sum of guest counts of active (non-cancelled)
// bookings per date and session. Cells without bookings are absent and read as 0.
//
// It is derived from the booking workflow and never mutated by this engine.
type Occupancy map[SlotKey]int

// Occupied returns the number of booked guests for the cell.
func (o Occupancy) Occupied(date Date, sessionID SessionID) int {
	return o[SlotKey{Date: date, SessionID: sessionID}]
}

// HasBookings reports whether either session of the day has booked guests.
func (o Occupancy) HasBookings(date Date) bool {
	for _, id := range SessionIDs() {
		if o.Occupied(date, id) > 0 {
			return true
		}
	}

	return false
}

// Add accumulates pax for a cell. Used by aggregators that receive rows per booking.
func (o Occupancy) Add(date Date, sessionID SessionID, pax int) {
	o[SlotKey{Date: date, SessionID: sessionID}] += pax
}

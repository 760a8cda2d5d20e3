package availability

import (
	"sort"
	"time"
)

// Status is the resolved booking state of one session on one date.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusFull   Status = "FULL"
	StatusClosed Status = "CLOSED"
)

// SessionStatus is the resolved view of one (date × session) cell.
type SessionStatus struct {
	SessionID       SessionID
	Status          Status
	Seats           int
	Capacity        int
	Occupied        int
	IsLocked        bool
	Reason          string
	OverrideVersion OverrideVersion
}

// HasOverride reports whether a persisted override contributed to the status.
func (s SessionStatus) HasOverride() bool {
	return s.OverrideVersion > 0
}

// DayAvailability is the resolved view of one date. It is recomputed on demand and never persisted.
type DayAvailability struct {
	Date        Date
	Morning     SessionStatus
	Evening     SessionStatus
	HasBookings bool
}

// Session returns the status of the given session.
func (d DayAvailability) Session(id SessionID) SessionStatus {
	if id == EveningSession {
		return d.Evening
	}

	return d.Morning
}

// Sessions returns both session statuses in display order.
func (d DayAvailability) Sessions() []SessionStatus {
	return []SessionStatus{d.Morning, d.Evening}
}

// Snapshot bundles the three inputs of the resolver, fetched once for a visible range.
type Snapshot struct {
	Catalog   SessionCatalog
	Occupancy Occupancy
	Overrides OverrideIndex
}

// BuildSnapshot is a factory method for Snapshot. It validates the session catalog and
// rejects duplicate overrides, so that a grid is never resolved from inconsistent inputs.
func BuildSnapshot(sessions []Session, occupancy Occupancy, overrides []CalendarOverride) (Snapshot, error) {
	catalog, err := BuildSessionCatalog(sessions)
	if err != nil {
		return Snapshot{}, err
	}

	index, err := IndexOverrides(overrides)
	if err != nil {
		return Snapshot{}, err
	}

	if occupancy == nil {
		occupancy = Occupancy{}
	}

	return Snapshot{Catalog: catalog, Occupancy: occupancy, Overrides: index}, nil
}

// Resolve merges base capacity, booked guests, and an optional override into the status
// of a single (date × session) cell. It is a pure function.
//
//   - closed override: CLOSED with 0 seats, capacity is still reported for display
//   - otherwise capacity is the custom capacity, or the base capacity without one
//   - seats = max(0, capacity - occupied), OPEN if seats > 0 else FULL
//
// Negative inputs are treated as 0 so the result never shows seats that do not exist.
func Resolve(date Date, sessionID SessionID, baseCapacity int, occupied int, override *CalendarOverride) SessionStatus {
	occupied = max(0, occupied)

	capacity := baseCapacity
	if override != nil && override.CustomCapacity != nil {
		capacity = *override.CustomCapacity
	}
	capacity = max(0, capacity)

	status := SessionStatus{
		SessionID: sessionID,
		Capacity:  capacity,
		Occupied:  occupied,
	}

	if override != nil {
		status.OverrideVersion = override.Version
	}

	if override != nil && override.IsClosed {
		status.Status = StatusClosed
		status.Seats = 0
		status.Reason = override.ClosureReason

		return status
	}

	status.Seats = max(0, capacity-occupied)

	if status.Seats > 0 {
		status.Status = StatusOpen
	} else {
		status.Status = StatusFull
	}

	return status
}

// ResolveDay resolves both sessions of a date independently and attaches the lock flags.
func ResolveDay(date Date, snapshot Snapshot, locks LockPolicy, now time.Time) DayAvailability {
	day := DayAvailability{Date: date, HasBookings: snapshot.Occupancy.HasBookings(date)}

	for _, id := range SessionIDs() {
		status := Resolve(
			date,
			id,
			snapshot.Catalog.BaseCapacity(id),
			snapshot.Occupancy.Occupied(date, id),
			snapshot.Overrides.Lookup(date, id),
		)
		status.IsLocked = locks.IsLocked(date, id, now)

		if id == MorningSession {
			day.Morning = status
		} else {
			day.Evening = status
		}
	}

	return day
}

// Grid is the resolved availability of every date in a range.
type Grid struct {
	Range DateRange
	Days  map[Date]DayAvailability
}

// ResolveGrid runs ResolveDay for every date of the range.
func ResolveGrid(dateRange DateRange, snapshot Snapshot, locks LockPolicy, now time.Time) Grid {
	grid := Grid{
		Range: dateRange,
		Days:  make(map[Date]DayAvailability, dateRange.Days()),
	}

	for _, d := range dateRange.Dates() {
		grid.Days[d] = ResolveDay(d, snapshot, locks, now)
	}

	return grid
}

// Day returns the availability of the date, or false if the date is outside the grid.
func (g Grid) Day(date Date) (DayAvailability, bool) {
	day, ok := g.Days[date]
	return day, ok
}

// Dates returns the dates of the grid in ascending order.
func (g Grid) Dates() []Date {
	dates := make([]Date, 0, len(g.Days))
	for d := range g.Days {
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	return dates
}

// OrderedDays returns the days of the grid in ascending date order.
func (g Grid) OrderedDays() []DayAvailability {
	dates := g.Dates()
	days := make([]DayAvailability, 0, len(dates))

	for _, d := range dates {
		days = append(days, g.Days[d])
	}

	return days
}

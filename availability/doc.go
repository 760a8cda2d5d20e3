// Package availability provides the core types and pure functions of the session capacity
// and availability engine.
//
// Every calendar day has exactly two class sessions (morning and evening). For each
// (date × session) pair the engine merges three independently changing inputs into one
// deterministic status:
//   - SessionCatalog: the static base capacity (and price) per session
//   - Occupancy: the sum of active (non-cancelled) guest counts per date and session
//   - OverrideIndex: sparse date-level exceptions (forced closure or custom capacity)
//
// Key types:
//   - Date, DateRange: calendar days and inclusive day ranges
//   - SessionStatus, DayAvailability, Grid: the resolved, never persisted views
//   - CalendarOverride: the persisted exception row, unique on (date, session)
//   - LockPolicy: advisory cutoff flags for same-day edits
//
// Common usage pattern:
//
//	snapshot, err := availability.BuildSnapshot(sessions, occupancy, overrides)
//	if err != nil {
//		// handle error, never resolve from partial data
//	}
//
//	grid := availability.ResolveGrid(dateRange, snapshot, lockPolicy, time.Now())
//	day, _ := grid.Day(date)
//	morning := day.Session(availability.MorningSession)
//
// The resolver has no side effects, so it can be re-run freely after every edit.
package availability

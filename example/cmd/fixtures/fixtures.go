package main

import (
	"math/rand/v2"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AntonStoeckl/session-availability-go/availability"
)

const (
	morningBaseCapacity = 12
	eveningBaseCapacity = 14

	bookingStatusConfirmed = "confirmed"
	bookingStatusCancelled = "cancelled"
)

var closureReasons = []string{"Private Event", "Holiday", "Maintenance", "Staff Training"}

// Fixtures is the generated data set.
type Fixtures struct {
	Sessions  []availability.Session
	Bookings  []FixtureBooking
	Overrides []availability.CalendarOverride
}

type FixtureBooking struct {
	ID        uuid.UUID
	Date      availability.Date
	SessionID availability.SessionID
	Pax       int
	Status    string
}

// GenerateFixtures creates bookings and overrides for days days starting at from.
// Per session and day:
//   - 5% closed with a reason, no bookings
//   - 10% with a custom capacity between 6 and 20
//   - otherwise bookings that fill up to the capacity, 10% of them cancelled
//
// The result only depends on the arguments.
func GenerateFixtures(from availability.Date, days int, seed uint64) Fixtures {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ids := newUUIDSource(rng)

	fixtures := Fixtures{
		Sessions: []availability.Session{
			{ID: availability.MorningSession, BaseCapacity: morningBaseCapacity, Price: decimal.RequireFromString("45.00")},
			{ID: availability.EveningSession, BaseCapacity: eveningBaseCapacity, Price: decimal.RequireFromString("55.00")},
		},
	}

	for i := 0; i < days; i++ {
		date := from.AddDays(i)

		for _, session := range fixtures.Sessions {
			capacity := session.BaseCapacity
			roll := rng.IntN(100)

			switch {
			case roll < 5:
				fixtures.Overrides = append(fixtures.Overrides, availability.CalendarOverride{
					Date:          date,
					SessionID:     session.ID,
					IsClosed:      true,
					ClosureReason: closureReasons[rng.IntN(len(closureReasons))],
					Version:       1,
				})

				continue

			case roll < 15:
				custom := 6 + rng.IntN(15)
				capacity = custom
				fixtures.Overrides = append(fixtures.Overrides, availability.CalendarOverride{
					Date:           date,
					SessionID:      session.ID,
					CustomCapacity: &custom,
					Version:        1,
				})
			}

			fixtures.Bookings = append(fixtures.Bookings, generateBookings(rng, ids, date, session.ID, capacity)...)
		}
	}

	return fixtures
}

func generateBookings(
	rng *rand.Rand,
	ids *uuidSource,
	date availability.Date,
	sessionID availability.SessionID,
	capacity int,
) []FixtureBooking {
	target := rng.IntN(capacity + 1)

	var bookings []FixtureBooking
	for booked := 0; booked < target; {
		pax := min(1+rng.IntN(4), target-booked)

		status := bookingStatusConfirmed
		if rng.IntN(10) == 0 {
			status = bookingStatusCancelled
		} else {
			booked += pax
		}

		bookings = append(bookings, FixtureBooking{
			ID:        ids.next(),
			Date:      date,
			SessionID: sessionID,
			Pax:       pax,
			Status:    status,
		})
	}

	return bookings
}

// BuildSQL renders the fixtures as INSERT statements. Existing sessions are updated,
// existing overrides are kept.
func BuildSQL(fixtures Fixtures) (string, error) {
	dialect := goqu.Dialect("postgres")

	sessionRows := make([]any, 0, len(fixtures.Sessions))
	for _, s := range fixtures.Sessions {
		sessionRows = append(sessionRows, goqu.Record{
			"id":            s.ID.String(),
			"base_capacity": s.BaseCapacity,
			"price":         s.Price.StringFixed(2),
		})
	}

	sessionsSQL, _, err := dialect.Insert("class_sessions").
		Rows(sessionRows...).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"base_capacity": goqu.L("EXCLUDED.base_capacity"),
			"price":         goqu.L("EXCLUDED.price"),
		})).
		ToSQL()
	if err != nil {
		return "", err
	}

	statements := []string{sessionsSQL}

	if len(fixtures.Bookings) > 0 {
		bookingRows := make([]any, 0, len(fixtures.Bookings))
		for _, b := range fixtures.Bookings {
			bookingRows = append(bookingRows, goqu.Record{
				"id":           b.ID.String(),
				"booking_date": b.Date.String(),
				"session_id":   b.SessionID.String(),
				"pax_count":    b.Pax,
				"status":       b.Status,
			})
		}

		bookingsSQL, _, bookingsErr := dialect.Insert("bookings").Rows(bookingRows...).ToSQL()
		if bookingsErr != nil {
			return "", bookingsErr
		}

		statements = append(statements, bookingsSQL)
	}

	if len(fixtures.Overrides) > 0 {
		overrideRows := make([]any, 0, len(fixtures.Overrides))
		for _, o := range fixtures.Overrides {
			record := goqu.Record{
				"date":            o.Date.String(),
				"session_id":      o.SessionID.String(),
				"is_closed":       o.IsClosed,
				"closure_reason":  nil,
				"custom_capacity": nil,
				"version":         o.Version,
			}

			if o.IsClosed {
				record["closure_reason"] = o.ClosureReason
			}

			if o.CustomCapacity != nil {
				record["custom_capacity"] = *o.CustomCapacity
			}

			overrideRows = append(overrideRows, record)
		}

		overridesSQL, _, overridesErr := dialect.Insert("calendar_overrides").
			Rows(overrideRows...).
			OnConflict(goqu.DoNothing()).
			ToSQL()
		if overridesErr != nil {
			return "", overridesErr
		}

		statements = append(statements, overridesSQL)
	}

	return strings.Join(statements, ";\n\n") + ";\n", nil
}

// uuidSource derives version 4 UUIDs from the seeded generator, so the ids are reproducible.
type uuidSource struct {
	rng *rand.Rand
}

func newUUIDSource(rng *rand.Rand) *uuidSource {
	return &uuidSource{rng: rng}
}

func (s *uuidSource) next() uuid.UUID {
	var id uuid.UUID
	for i := range id {
		id[i] = byte(s.rng.UintN(256))
	}

	id[6] = (id[6] & 0x0f) | 0x40
	id[8] = (id[8] & 0x3f) | 0x80

	return id
}

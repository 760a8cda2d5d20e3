package availability

import (
	"errors"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	gridWindowDays   = 42
	daysPerWeek      = 7
	maxDateRangeDays = 366
)

// Date is a calendar day without a time of day or a location.
// The zero value is not a valid date. Date is comparable and can be used as a map key.
type Date struct {
	year  int
	month time.Month
	day   int
}

// NewDate builds a Date and normalizes overflowing values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC), time.UTC)
}

// DateOf returns the calendar day of t in the given location.
func DateOf(t time.Time, loc *time.Location) Date {
	if loc != nil {
		t = t.In(loc)
	}

	year, month, day := t.Date()

	return Date{year: year, month: month, day: day}
}

// ParseDate parses a date in the ISO layout "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, errors.Join(ErrInvalidDate, err)
	}

	return DateOf(t, time.UTC), nil
}

// MustParseDate is like ParseDate but panics on invalid input. Meant for tests and fixtures.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}

	return d
}

func (d Date) Year() int         { return d.year }
func (d Date) Month() time.Month { return d.month }
func (d Date) Day() int          { return d.day }

// IsZero reports whether d is the zero value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight of d in UTC.
func (d Date) Time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the date n days after d (or before, for negative n).
func (d Date) AddDays(n int) Date {
	return NewDate(d.year, d.month, d.day+n)
}

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Compare returns -1 if d is before other, +1 if d is after other, and 0 if they are equal.
func (d Date) Compare(other Date) int {
	switch {
	case d.year != other.year:
		return compareInts(d.year, other.year)
	case d.month != other.month:
		return compareInts(int(d.month), int(other.month))
	default:
		return compareInts(d.day, other.day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

// String formats d as "2006-01-02".
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From Date
	To   Date
}

// BuildDateRange is a factory method for DateRange.
// Returns an error if to is before from or if the range is longer than one year.
func BuildDateRange(from, to Date) (DateRange, error) {
	if from.IsZero() || to.IsZero() {
		return DateRange{}, ErrInvalidDate
	}

	if to.Before(from) {
		return DateRange{}, ErrInvalidDateRange
	}

	if to.Time().Sub(from.Time()) >= maxDateRangeDays*24*time.Hour {
		return DateRange{}, ErrDateRangeTooLong
	}

	return DateRange{From: from, To: to}, nil
}

// SingleDay returns a range covering only d.
func SingleDay(d Date) DateRange {
	return DateRange{From: d, To: d}
}

// RangeCovering returns the smallest range containing all given dates.
// Returns false if dates is empty.
func RangeCovering(dates []Date) (DateRange, bool) {
	if len(dates) == 0 {
		return DateRange{}, false
	}

	r := SingleDay(dates[0])
	for _, d := range dates[1:] {
		if d.Before(r.From) {
			r.From = d
		}

		if d.After(r.To) {
			r.To = d
		}
	}

	return r, true
}

// GridWindow returns the six-week window displayed for a month: it starts on the Monday
// on or before the 1st and includes lead and trail days of the adjacent months.
func GridWindow(year int, month time.Month) DateRange {
	first := NewDate(year, month, 1)
	offset := (int(first.Weekday()) + daysPerWeek - int(time.Monday)) % daysPerWeek
	from := first.AddDays(-offset)

	return DateRange{From: from, To: from.AddDays(gridWindowDays - 1)}
}

// Contains reports whether d lies within the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Days returns the number of days in the range.
func (r DateRange) Days() int {
	return int(r.To.Time().Sub(r.From.Time())/(24*time.Hour)) + 1
}

// Dates enumerates all days of the range in ascending order.
func (r DateRange) Dates() []Date {
	dates := make([]Date, 0, r.Days())
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		dates = append(dates, d)
	}

	return dates
}

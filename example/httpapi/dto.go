package httpapi

import (
	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/batchedit"
)

const (
	seatModeAbsolute = "absolute"
	seatModeDelta    = "delta"
)

// GridQuery selects the range of GET /v1/grid. Month wins over From/To.
type GridQuery struct {
	Month string `query:"month" validate:"omitempty,datetime=2006-01"`
	From  string `query:"from"  validate:"omitempty,datetime=2006-01-02"`
	To    string `query:"to"    validate:"omitempty,datetime=2006-01-02"`
}

type BeginSingleDayRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// BeginBulkRequest selects Dates minus Exclude. Excluded dates may have bookings.
type BeginBulkRequest struct {
	Dates   []string `json:"dates"   validate:"required,min=1,max=366,dive,datetime=2006-01-02"`
	Exclude []string `json:"exclude" validate:"max=366,dive,datetime=2006-01-02"`
	Scope   string   `json:"scope"   validate:"required,oneof=morning evening all"`
}

// UpdateEditRequest changes pending values of an edit. Nil fields are left as they are.
// Seats is the absolute number of available seats for single-day edits and the delta for bulk edits.
type UpdateEditRequest struct {
	SessionID string  `json:"session_id" validate:"omitempty,oneof=morning_class evening_class"`
	IsClosed  *bool   `json:"is_closed"`
	Reason    *string `json:"reason"     validate:"omitempty,max=200"`
	Seats     *int    `json:"seats"      validate:"omitempty,min=-1000,max=1000"`
}

type SessionStatusResponse struct {
	SessionID       string `json:"session_id"`
	Status          string `json:"status"`
	Seats           int    `json:"seats"`
	Capacity        int    `json:"capacity"`
	Occupied        int    `json:"occupied"`
	IsLocked        bool   `json:"is_locked"`
	Reason          string `json:"reason,omitempty"`
	OverrideVersion uint64 `json:"override_version"`
}

type DayResponse struct {
	Date        string                `json:"date"`
	HasBookings bool                  `json:"has_bookings"`
	Morning     SessionStatusResponse `json:"morning"`
	Evening     SessionStatusResponse `json:"evening"`
}

type GridResponse struct {
	From string        `json:"from"`
	To   string        `json:"to"`
	Days []DayResponse `json:"days"`
}

type EditStateResponse struct {
	SessionID string `json:"session_id,omitempty"`
	IsClosed  bool   `json:"is_closed"`
	Reason    string `json:"reason"`
	Seats     int    `json:"seats"`
	SeatMode  string `json:"seat_mode"`
	Occupied  int    `json:"occupied"`
}

type EditResponse struct {
	ID     string              `json:"id"`
	Mode   string              `json:"mode"`
	Phase  string              `json:"phase"`
	Scope  string              `json:"scope"`
	Dates  []string            `json:"dates"`
	States []EditStateResponse `json:"states"`
}

func toGridResponse(grid availability.Grid) GridResponse {
	days := grid.OrderedDays()

	response := GridResponse{
		From: grid.Range.From.String(),
		To:   grid.Range.To.String(),
		Days: make([]DayResponse, 0, len(days)),
	}

	for _, day := range days {
		response.Days = append(response.Days, DayResponse{
			Date:        day.Date.String(),
			HasBookings: day.HasBookings,
			Morning:     toSessionStatusResponse(day.Morning),
			Evening:     toSessionStatusResponse(day.Evening),
		})
	}

	return response
}

func toSessionStatusResponse(status availability.SessionStatus) SessionStatusResponse {
	return SessionStatusResponse{
		SessionID:       status.SessionID.String(),
		Status:          string(status.Status),
		Seats:           status.Seats,
		Capacity:        status.Capacity,
		Occupied:        status.Occupied,
		IsLocked:        status.IsLocked,
		Reason:          status.Reason,
		OverrideVersion: status.OverrideVersion,
	}
}

func toEditResponse(edit *batchedit.EditSession) EditResponse {
	dates := edit.Dates()
	states := edit.States()

	response := EditResponse{
		ID:     edit.ID().String(),
		Mode:   string(edit.Mode()),
		Phase:  string(edit.Phase()),
		Scope:  string(edit.Scope()),
		Dates:  make([]string, 0, len(dates)),
		States: make([]EditStateResponse, 0, len(states)),
	}

	for _, d := range dates {
		response.Dates = append(response.Dates, d.String())
	}

	for _, st := range states {
		seatMode := seatModeAbsolute
		if st.Seats.IsDelta() {
			seatMode = seatModeDelta
		}

		response.States = append(response.States, EditStateResponse{
			SessionID: st.SessionID.String(),
			IsClosed:  st.IsClosed,
			Reason:    st.Reason,
			Seats:     st.Seats.Value(),
			SeatMode:  seatMode,
			Occupied:  st.Occupied,
		})
	}

	return response
}

func parseDates(values []string) ([]availability.Date, error) {
	dates := make([]availability.Date, 0, len(values))

	for _, v := range values {
		d, err := availability.ParseDate(v)
		if err != nil {
			return nil, err
		}

		dates = append(dates, d)
	}

	return dates, nil
}

package httpapi_test

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/engine"
	"github.com/AntonStoeckl/session-availability-go/example/httpapi"
	"github.com/AntonStoeckl/session-availability-go/testutil/memstore"
)

var (
	now = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type envelope struct {
	Code    int                 `json:"code"`
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data"`
}

func Test_GetGrid_ByMonth_ReturnsTheSixWeekWindow(t *testing.T) {
	// arrange
	app, _ := givenApp(t, memstore.New(12, 14))

	// act
	status, body := doRequest(t, app, fiber.MethodGet, "/v1/grid?month=2026-11", nil)

	// assert
	require.Equal(t, fiber.StatusOK, status, body.Message)

	grid := decodeGrid(t, body)
	assert.Equal(t, "2026-10-26", grid.From)
	assert.Equal(t, "2026-12-06", grid.To)
	assert.Len(t, grid.Days, 42)
	assert.Equal(t, "2026-10-26", grid.Days[0].Date)
}

func Test_GetGrid_ByRange_ResolvesOverridesAndBookings(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	store.AddBooking(memstore.Booking{Date: nov(3), SessionID: availability.MorningSession, Pax: 9})
	closed, err := availability.BuildClosedOverride(nov(4), availability.EveningSession, "Private Event")
	require.NoError(t, err)
	store.PutOverride(closed)

	app, _ := givenApp(t, store)

	// act
	status, body := doRequest(t, app, fiber.MethodGet, "/v1/grid?from=2026-11-02&to=2026-11-04", nil)

	// assert
	require.Equal(t, fiber.StatusOK, status, body.Message)

	grid := decodeGrid(t, body)
	require.Len(t, grid.Days, 3)
	assert.Equal(t, 12, grid.Days[0].Morning.Seats)
	assert.Equal(t, "OPEN", grid.Days[0].Morning.Status)
	assert.Equal(t, 3, grid.Days[1].Morning.Seats)
	assert.True(t, grid.Days[1].HasBookings)
	assert.Equal(t, "CLOSED", grid.Days[2].Evening.Status)
	assert.Equal(t, "Private Event", grid.Days[2].Evening.Reason)
	assert.Equal(t, uint64(1), grid.Days[2].Evening.OverrideVersion)
}

func Test_GetGrid_RejectsInvalidQueries(t *testing.T) {
	app, _ := givenApp(t, memstore.New(12, 14))

	testCases := []struct {
		name  string
		query string
	}{
		{name: "no range", query: ""},
		{name: "only from", query: "?from=2026-11-02"},
		{name: "to before from", query: "?from=2026-11-04&to=2026-11-02"},
		{name: "malformed month", query: "?month=2026-13"},
		{name: "malformed date", query: "?from=02.11.2026&to=2026-11-04"},
		{name: "longer than a year", query: "?from=2026-01-01&to=2027-06-01"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			status, body := doRequest(t, app, fiber.MethodGet, "/v1/grid"+tc.query, nil)

			// assert
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.Equal(t, "error", body.Status)
		})
	}
}

func Test_GetGrid_FetchFailure_Returns503(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	store.FailOn(memstore.OpListSessions, errors.New("catalog unavailable"))
	app, _ := givenApp(t, store)

	// act
	status, body := doRequest(t, app, fiber.MethodGet, "/v1/grid?month=2026-11", nil)

	// assert
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, availability.ErrFetchFailed.Error(), body.Message)
}

func Test_SingleDayEdit_CloseAndSave(t *testing.T) {
	// arrange
	store := memstore.New(12, 14).WithVersionCheck()
	app, registry := givenApp(t, store)

	// act - begin
	status, body := doRequest(t, app, fiber.MethodPost, "/v1/edits/single", map[string]any{"date": "2026-11-03"})

	// assert - begin
	require.Equal(t, fiber.StatusCreated, status, body.Message)

	edit := decodeEdit(t, body)
	assert.Equal(t, "single_day", edit.Mode)
	assert.Equal(t, "editing", edit.Phase)
	assert.Equal(t, []string{"2026-11-03"}, edit.Dates)
	require.Len(t, edit.States, 2)
	assert.Equal(t, 12, edit.States[0].Seats)
	assert.Equal(t, "absolute", edit.States[0].SeatMode)
	assert.Equal(t, 14, edit.States[1].Seats)

	// act - update
	status, body = doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{
		"session_id": "evening_class",
		"is_closed":  true,
		"reason":     "  Private Event ",
	})

	// assert - update
	require.Equal(t, fiber.StatusOK, status, body.Message)

	updated := decodeEdit(t, body)
	assert.True(t, updated.States[1].IsClosed)
	assert.Equal(t, "Private Event", updated.States[1].Reason)

	// act - save
	status, body = doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	// assert - save
	require.Equal(t, fiber.StatusOK, status, body.Message)

	grid := decodeGrid(t, body)
	require.Len(t, grid.Days, 1)
	assert.Equal(t, "CLOSED", grid.Days[0].Evening.Status)
	assert.Equal(t, "Private Event", grid.Days[0].Evening.Reason)
	assert.Equal(t, "OPEN", grid.Days[0].Morning.Status)
	assert.Equal(t, 0, registry.Len(), "saved edits are dropped")

	persisted, ok := store.Override(nov(3), availability.EveningSession)
	require.True(t, ok)
	assert.True(t, persisted.IsClosed)

	_, ok = store.Override(nov(3), availability.MorningSession)
	assert.False(t, ok, "untouched session is not written")
}

func Test_SingleDayEdit_NegativeSeats_Returns422(t *testing.T) {
	// arrange
	app, _ := givenApp(t, memstore.New(12, 14))
	edit := givenSingleDayEdit(t, app, "2026-11-03")

	// act
	status, body := doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{
		"session_id": "morning_class",
		"seats":      -1,
	})

	// assert
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Message, availability.ErrNegativeSeats.Error())
}

func Test_UpdateEdit_UnknownSession_Returns400(t *testing.T) {
	// arrange
	app, _ := givenApp(t, memstore.New(12, 14))
	edit := givenSingleDayEdit(t, app, "2026-11-03")

	// act
	status, _ := doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{
		"session_id": "lunch_class",
		"seats":      5,
	})

	// assert
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func Test_BulkEdit_DeltaAcrossDates(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	app, _ := givenApp(t, store)

	status, body := doRequest(t, app, fiber.MethodPost, "/v1/edits/bulk", map[string]any{
		"dates": []string{"2026-11-04", "2026-11-02"},
		"scope": "all",
	})
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	edit := decodeEdit(t, body)
	assert.Equal(t, []string{"2026-11-02", "2026-11-04"}, edit.Dates)

	// act
	status, body = doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{"seats": -2})
	require.Equal(t, fiber.StatusOK, status, body.Message)
	updated := decodeEdit(t, body)

	status, body = doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	// assert
	require.Len(t, updated.States, 1)
	assert.Equal(t, "delta", updated.States[0].SeatMode)
	assert.Equal(t, -2, updated.States[0].Seats)

	require.Equal(t, fiber.StatusOK, status, body.Message)
	grid := decodeGrid(t, body)
	require.Len(t, grid.Days, 3, "the affected range spans the dates in between")

	for _, i := range []int{0, 2} {
		assert.Equal(t, 10, grid.Days[i].Morning.Capacity)
		assert.Equal(t, 12, grid.Days[i].Evening.Capacity)
	}

	assert.Equal(t, 12, grid.Days[1].Morning.Capacity, "dates in between are not edited")
	assert.False(t, grid.Days[1].Morning.OverrideVersion > 0)
}

func Test_BulkEdit_DatesWithBookings_Returns422(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	store.AddBooking(memstore.Booking{Date: nov(2), SessionID: availability.EveningSession, Pax: 2})
	app, registry := givenApp(t, store)

	// act
	status, body := doRequest(t, app, fiber.MethodPost, "/v1/edits/bulk", map[string]any{
		"dates": []string{"2026-11-02", "2026-11-03"},
		"scope": "morning",
	})

	// assert
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Contains(t, body.Message, "2026-11-02")
	assert.Equal(t, 0, registry.Len())
}

func Test_BulkEdit_ExcludedDates_AreLeftOut(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	store.AddBooking(memstore.Booking{Date: nov(3), SessionID: availability.MorningSession, Pax: 1})
	app, registry := givenApp(t, store)

	// act
	status, body := doRequest(t, app, fiber.MethodPost, "/v1/edits/bulk", map[string]any{
		"dates":   []string{"2026-11-02", "2026-11-03", "2026-11-04"},
		"exclude": []string{"2026-11-03", "2026-11-04"},
		"scope":   "evening",
	})

	// assert
	require.Equal(t, fiber.StatusCreated, status, body.Message)
	assert.Equal(t, []string{"2026-11-02"}, decodeEdit(t, body).Dates)
	assert.Equal(t, 1, registry.Len())
}

func Test_BulkEdit_InvalidPayload_Returns400(t *testing.T) {
	app, _ := givenApp(t, memstore.New(12, 14))

	testCases := []struct {
		name    string
		payload map[string]any
	}{
		{name: "no dates", payload: map[string]any{"dates": []string{}, "scope": "all"}},
		{name: "unknown scope", payload: map[string]any{"dates": []string{"2026-11-02"}, "scope": "lunch"}},
		{name: "malformed date", payload: map[string]any{"dates": []string{"2026-11-31"}, "scope": "all"}},
		{name: "malformed exclude", payload: map[string]any{"dates": []string{"2026-11-02"}, "exclude": []string{"11/03"}, "scope": "all"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			status, _ := doRequest(t, app, fiber.MethodPost, "/v1/edits/bulk", tc.payload)

			// assert
			assert.Equal(t, fiber.StatusBadRequest, status)
		})
	}
}

func Test_SaveEdit_ConcurrentWrite_Returns409_AndKeepsTheEdit(t *testing.T) {
	// arrange
	store := memstore.New(12, 14).WithVersionCheck()
	app, registry := givenApp(t, store)
	edit := givenSingleDayEdit(t, app, "2026-11-03")

	status, body := doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{
		"session_id": "morning_class",
		"seats":      5,
	})
	require.Equal(t, fiber.StatusOK, status, body.Message)

	concurrent, err := availability.BuildCapacityOverride(nov(3), availability.MorningSession, 20)
	require.NoError(t, err)
	store.PutOverride(concurrent)

	// act
	status, body = doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	// assert
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, availability.ErrConcurrencyConflict.Error(), body.Message)
	assert.Equal(t, 1, registry.Len(), "the edit buffer is kept for a retry")

	persisted, _ := store.Override(nov(3), availability.MorningSession)
	require.NotNil(t, persisted.CustomCapacity)
	assert.Equal(t, 20, *persisted.CustomCapacity)
}

func Test_SaveEdit_PersistenceFailure_Returns502_ThenRetrySucceeds(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	app, registry := givenApp(t, store)
	edit := givenSingleDayEdit(t, app, "2026-11-03")

	status, body := doRequest(t, app, fiber.MethodPatch, "/v1/edits/"+edit.ID, map[string]any{
		"session_id": "evening_class",
		"seats":      4,
	})
	require.Equal(t, fiber.StatusOK, status, body.Message)

	store.FailOn(memstore.OpUpsertOverrides, errors.New("connection reset"))

	// act
	failedStatus, failedBody := doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	store.FailOn(memstore.OpUpsertOverrides, nil)
	retryStatus, retryBody := doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	// assert
	assert.Equal(t, fiber.StatusBadGateway, failedStatus)
	assert.Equal(t, availability.ErrPersistenceFailed.Error(), failedBody.Message)

	require.Equal(t, fiber.StatusOK, retryStatus, retryBody.Message)
	grid := decodeGrid(t, retryBody)
	assert.Equal(t, 4, grid.Days[0].Evening.Seats)
	assert.Equal(t, 0, registry.Len())
}

func Test_CancelEdit_DropsTheEdit(t *testing.T) {
	// arrange
	store := memstore.New(12, 14)
	app, registry := givenApp(t, store)
	edit := givenSingleDayEdit(t, app, "2026-11-03")

	// act
	status, _ := doRequest(t, app, fiber.MethodDelete, "/v1/edits/"+edit.ID, nil)
	afterCancel, _ := doRequest(t, app, fiber.MethodPost, "/v1/edits/"+edit.ID+"/save", nil)

	// assert
	assert.Equal(t, fiber.StatusNoContent, status)
	assert.Equal(t, fiber.StatusNotFound, afterCancel)
	assert.Equal(t, 0, registry.Len())
	assert.Equal(t, 0, store.Calls(memstore.OpUpsertOverrides))
}

func Test_EditRoutes_RejectUnknownAndMalformedIDs(t *testing.T) {
	// arrange
	app, _ := givenApp(t, memstore.New(12, 14))

	// act
	unknown, _ := doRequest(t, app, fiber.MethodPost, "/v1/edits/0198f1a2-7c3e-7d4b-9a55-3b2f4c6d8e90/save", nil)
	malformed, _ := doRequest(t, app, fiber.MethodDelete, "/v1/edits/not-a-uuid", nil)

	// assert
	assert.Equal(t, fiber.StatusNotFound, unknown)
	assert.Equal(t, fiber.StatusBadRequest, malformed)
}

func Test_RequestID_IsEchoedOrGenerated(t *testing.T) {
	// arrange
	app, _ := givenApp(t, memstore.New(12, 14))

	given := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	given.Header.Set("X-Request-ID", "req-42")
	generated := httptest.NewRequest(fiber.MethodGet, "/health", nil)

	// act
	echoedResp, err := app.Test(given, -1)
	require.NoError(t, err)
	generatedResp, err := app.Test(generated, -1)
	require.NoError(t, err)

	// assert
	assert.Equal(t, "req-42", echoedResp.Header.Get("X-Request-ID"))
	assert.Len(t, generatedResp.Header.Get("X-Request-ID"), 36)
}

func givenApp(t *testing.T, store *memstore.Store) (*fiber.App, *httpapi.EditRegistry) {
	t.Helper()

	eng, err := engine.NewEngine(store, store, store, engine.WithClock(func() time.Time { return now }))
	require.NoError(t, err, "creating the engine failed")

	registry := httpapi.NewEditRegistry(time.Hour, nil)

	return httpapi.NewApp(httpapi.NewHandler(eng, registry, nil)), registry
}

func givenSingleDayEdit(t *testing.T, app *fiber.App, date string) httpapi.EditResponse {
	t.Helper()

	status, body := doRequest(t, app, fiber.MethodPost, "/v1/edits/single", map[string]any{"date": date})
	require.Equal(t, fiber.StatusCreated, status, "error in arranging test data: %s", body.Message)

	return decodeEdit(t, body)
}

func doRequest(t *testing.T, app *fiber.App, method, path string, payload any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "request failed")
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var body envelope
	if len(raw) > 0 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(raw, &body), "response is not an envelope: %s", raw)
	}

	return resp.StatusCode, body
}

func decodeGrid(t *testing.T, body envelope) httpapi.GridResponse {
	t.Helper()

	var grid httpapi.GridResponse
	require.NoError(t, json.Unmarshal(body.Data, &grid))

	return grid
}

func decodeEdit(t *testing.T, body envelope) httpapi.EditResponse {
	t.Helper()

	var edit httpapi.EditResponse
	require.NoError(t, json.Unmarshal(body.Data, &edit))

	return edit
}

func nov(day int) availability.Date {
	return availability.NewDate(2026, time.November, day)
}

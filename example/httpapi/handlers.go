package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/AntonStoeckl/session-availability-go/availability"
	"github.com/AntonStoeckl/session-availability-go/availability/batchedit"
)

// AvailabilityEngine is the part of engine.Engine the API uses.
type AvailabilityEngine interface {
	GetGrid(ctx context.Context, dateRange availability.DateRange) (availability.Grid, error)
	BeginSingleDayEdit(ctx context.Context, grid availability.Grid, date availability.Date) (*batchedit.EditSession, error)
	BeginBulkEdit(
		ctx context.Context,
		grid availability.Grid,
		dates []availability.Date,
		scope batchedit.SessionScope,
		excluded ...availability.Date,
	) (*batchedit.EditSession, error)
	SaveEdit(ctx context.Context, edit *batchedit.EditSession) (availability.Grid, error)
	CancelEdit(ctx context.Context, edit *batchedit.EditSession) error
}

// Handler serves the availability routes.
type Handler struct {
	engine   AvailabilityEngine
	registry *EditRegistry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards all output.
func NewHandler(engine AvailabilityEngine, registry *EditRegistry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Handler{
		engine:   engine,
		registry: registry,
		validate: validator.New(),
		logger:   logger,
	}
}

// Register mounts the routes on router.
func (h *Handler) Register(router fiber.Router) {
	v1 := router.Group("/v1")

	v1.Get("/grid", h.GetGrid)
	v1.Post("/edits/single", h.BeginSingleDayEdit)
	v1.Post("/edits/bulk", h.BeginBulkEdit)
	v1.Patch("/edits/:id", h.UpdateEdit)
	v1.Post("/edits/:id/save", h.SaveEdit)
	v1.Delete("/edits/:id", h.CancelEdit)
}

// GetGrid resolves a month window or an explicit range. Plain display reads may use a replica.
func (h *Handler) GetGrid(c *fiber.Ctx) error {
	var query GridQuery
	if err := c.QueryParser(&query); err != nil {
		return errors.Join(ErrInvalidQuery, err)
	}

	if err := h.validate.Struct(query); err != nil {
		return errors.Join(ErrInvalidQuery, err)
	}

	dateRange, err := rangeOf(query)
	if err != nil {
		return err
	}

	grid, err := h.engine.GetGrid(availability.WithEventualConsistency(c.UserContext()), dateRange)
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, toGridResponse(grid))
}

// BeginSingleDayEdit seeds an edit from the primary, so the observed versions are current.
func (h *Handler) BeginSingleDayEdit(c *fiber.Ctx) error {
	var req BeginSingleDayRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	date, err := availability.ParseDate(req.Date)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	grid, err := h.engine.GetGrid(availability.WithStrongConsistency(c.UserContext()), availability.SingleDay(date))
	if err != nil {
		return err
	}

	edit, err := h.engine.BeginSingleDayEdit(c.UserContext(), grid, date)
	if err != nil {
		return err
	}

	h.registry.Add(edit)

	return success(c, fiber.StatusCreated, toEditResponse(edit))
}

// BeginBulkEdit selects the given dates minus the excluded ones.
func (h *Handler) BeginBulkEdit(c *fiber.Ctx) error {
	var req BeginBulkRequest
	if err := h.bind(c, &req); err != nil {
		return err
	}

	dates, err := parseDates(req.Dates)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	excluded, err := parseDates(req.Exclude)
	if err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	dateRange, _ := availability.RangeCovering(dates)
	if _, err = availability.BuildDateRange(dateRange.From, dateRange.To); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	grid, err := h.engine.GetGrid(availability.WithStrongConsistency(c.UserContext()), dateRange)
	if err != nil {
		return err
	}

	edit, err := h.engine.BeginBulkEdit(c.UserContext(), grid, dates, batchedit.SessionScope(req.Scope), excluded...)
	if err != nil {
		return err
	}

	h.registry.Add(edit)

	return success(c, fiber.StatusCreated, toEditResponse(edit))
}

// UpdateEdit applies the given pending values in the order seats, closed flag, reason.
func (h *Handler) UpdateEdit(c *fiber.Ctx) error {
	id, err := editID(c)
	if err != nil {
		return err
	}

	var req UpdateEditRequest
	if err = h.bind(c, &req); err != nil {
		return err
	}

	var response EditResponse

	err = h.registry.Use(id, func(edit *batchedit.EditSession) error {
		sessionID := availability.SessionID(req.SessionID)

		if req.Seats != nil {
			change := batchedit.AbsoluteSeats(*req.Seats)
			if edit.IsBulk() {
				change = batchedit.SeatDelta(*req.Seats)
			}

			if err := edit.SetSeats(sessionID, change); err != nil {
				return err
			}
		}

		if req.IsClosed != nil {
			if err := edit.SetClosed(sessionID, *req.IsClosed); err != nil {
				return err
			}
		}

		if req.Reason != nil {
			if err := edit.SetReason(sessionID, *req.Reason); err != nil {
				return err
			}
		}

		response = toEditResponse(edit)

		return nil
	})
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, response)
}

// SaveEdit persists the edit. A failed save keeps the edit registered so the client can retry.
func (h *Handler) SaveEdit(c *fiber.Ctx) error {
	id, err := editID(c)
	if err != nil {
		return err
	}

	var grid availability.Grid

	err = h.registry.Use(id, func(edit *batchedit.EditSession) error {
		var saveErr error
		grid, saveErr = h.engine.SaveEdit(c.UserContext(), edit)

		return saveErr
	})
	if err != nil {
		return err
	}

	return success(c, fiber.StatusOK, toGridResponse(grid))
}

func (h *Handler) CancelEdit(c *fiber.Ctx) error {
	id, err := editID(c)
	if err != nil {
		return err
	}

	err = h.registry.Use(id, func(edit *batchedit.EditSession) error {
		return h.engine.CancelEdit(c.UserContext(), edit)
	})
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	if err := h.validate.Struct(req); err != nil {
		return errors.Join(ErrInvalidPayload, err)
	}

	return nil
}

func editID(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.Join(ErrInvalidEditID, err)
	}

	return id, nil
}

func rangeOf(query GridQuery) (availability.DateRange, error) {
	if query.Month != "" {
		month, err := time.Parse("2006-01", query.Month)
		if err != nil {
			return availability.DateRange{}, errors.Join(ErrInvalidQuery, err)
		}

		return availability.GridWindow(month.Year(), month.Month()), nil
	}

	if query.From == "" || query.To == "" {
		return availability.DateRange{}, ErrInvalidQuery
	}

	from, err := availability.ParseDate(query.From)
	if err != nil {
		return availability.DateRange{}, errors.Join(ErrInvalidQuery, err)
	}

	to, err := availability.ParseDate(query.To)
	if err != nil {
		return availability.DateRange{}, errors.Join(ErrInvalidQuery, err)
	}

	dateRange, err := availability.BuildDateRange(from, to)
	if err != nil {
		return availability.DateRange{}, errors.Join(ErrInvalidQuery, fmt.Errorf("%s..%s: %w", from, to, err))
	}

	return dateRange, nil
}

package httpapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	headerRequestID = "X-Request-ID"
	localRequestID  = "request_id"

	defaultRequestTimeout = 10 * time.Second
)

const (
	logMsgRequestServed = "request served"
	logMsgRequestFailed = "request failed"

	logAttrRequestID  = "request_id"
	logAttrMethod     = "method"
	logAttrPath       = "path"
	logAttrStatus     = "status"
	logAttrDurationMS = "duration_ms"
	logAttrError      = "error"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AppOption defines a functional option for configuring the fiber app.
type AppOption func(*appConfig)

type appConfig struct {
	requestTimeout time.Duration
}

// WithRequestTimeout bounds the context every handler works with.
func WithRequestTimeout(timeout time.Duration) AppOption {
	return func(c *appConfig) {
		c.requestTimeout = timeout
	}
}

// NewApp creates the fiber app with the jsoniter codec, request ids, request logging,
// the error mapping, and the routes of h.
func NewApp(h *Handler, options ...AppOption) *fiber.App {
	cfg := appConfig{requestTimeout: defaultRequestTimeout}
	for _, option := range options {
		option(&cfg)
	}

	app := fiber.New(fiber.Config{
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(h.logger),
	})

	app.Use(requestContext(h.logger, cfg.requestTimeout))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	h.Register(app)

	return app
}

// requestContext assigns a request id, bounds the handler context, and logs every request.
func requestContext(logger *slog.Logger, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(headerRequestID, id)
		c.Locals(localRequestID, id)

		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		logger.InfoContext(ctx, logMsgRequestServed,
			logAttrRequestID, id,
			logAttrMethod, c.Method(),
			logAttrPath, c.Path(),
			logAttrStatus, status,
			logAttrDurationMS, float64(time.Since(start).Microseconds())/1000,
		)

		return err
	}
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusOf(err)

		if status >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), logMsgRequestFailed,
				logAttrRequestID, c.Locals(localRequestID),
				logAttrPath, c.Path(),
				logAttrStatus, status,
				logAttrError, err.Error(),
			)
		}

		return failure(c, status, messageOf(status, err))
	}
}

// success and failure write the response envelope shared by all routes.
func success(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"code":   status,
		"status": "success",
		"data":   data,
	})
}

func failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"code":    status,
		"status":  "error",
		"message": message,
	})
}

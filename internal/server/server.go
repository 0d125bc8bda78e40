// Package server exposes the query engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KaramelBytes/aircheck-cli/internal/air"
	"github.com/KaramelBytes/aircheck-cli/internal/analysis"
	"github.com/KaramelBytes/aircheck-cli/internal/corpus"
	"github.com/KaramelBytes/aircheck-cli/internal/observability"
)

// Options configures the HTTP API.
type Options struct {
	Corpus     *corpus.Corpus
	Engine     *analysis.Engine
	Forecaster *analysis.Forecaster
	// Years accepted in queries. Empty accepts any year.
	Years    []int
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
}

type server struct {
	opt      Options
	validate *validator.Validate
}

const localRequestID = "request_id"

// New builds the fiber app with all routes registered.
func New(opt Options) *fiber.App {
	if opt.Logger == nil {
		opt.Logger = observability.Discard()
	}
	if opt.Gatherer == nil {
		opt.Gatherer = prometheus.DefaultGatherer
	}
	s := &server{opt: opt, validate: newValidator(opt.Years)}

	app := fiber.New(fiber.Config{
		AppName:               "aircheck",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(requestID())
	app.Use(requestLogger(opt.Logger))

	app.Get("/health", s.health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opt.Gatherer, promhttp.HandlerOpts{})))

	v1 := app.Group("/api/v1")
	v1.Get("/sites", s.sites)
	v1.Get("/pollutants", s.pollutants)
	v1.Get("/years", s.years)
	v1.Get("/average", s.average)
	v1.Get("/forecast", s.forecast)
	v1.Get("/series", s.series)
	v1.Get("/chart", s.chart)
	v1.Get("/summary", s.summary)
	v1.Get("/evaluate", s.evaluate)
	return app
}

// Run serves app on addr until ctx is cancelled, then shuts down within timeout.
func Run(ctx context.Context, app *fiber.App, addr string, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("http server shutting down")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		s.opt.Logger.Error("request failed", "request_id", c.Locals(localRequestID), "error", err)
		msg = "internal error"
	}
	return c.Status(code).JSON(fiber.Map{
		"error":      true,
		"message":    msg,
		"request_id": c.Locals(localRequestID),
	})
}

// statusFor maps a query outcome to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, air.ErrNoData), errors.Is(err, air.ErrNoReadings):
		return fiber.StatusNotFound
	case errors.Is(err, air.ErrInsufficientData):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, air.ErrUnknownPollutant):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func requestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(fiber.HeaderXRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, id)
		c.Locals(localRequestID, id)
		return c.Next()
	}
}

func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		logger.Info("request",
			"request_id", c.Locals(localRequestID),
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration", time.Since(start),
		)
		return err
	}
}

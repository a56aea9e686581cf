package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	"github.com/rs/zerolog"
)

// LocalRequestID clave en Locals del id de la petición.
const LocalRequestID = "requestid"

// RequestID asigna X-Request-ID (o respeta el que envía el cliente).
func RequestID() fiber.Handler {
	return requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: LocalRequestID,
	})
}

// RequestLogger registra cada petición con zerolog: 5xx como error, 4xx como warn.
func RequestLogger(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		var ev *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = log.Error().Err(err)
		case status >= fiber.StatusBadRequest:
			ev = log.Warn()
		default:
			ev = log.Debug()
		}
		ev.Str("request_id", requestIDOf(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(started)).
			Str("company_id", GetCompanyID(c)).
			Msg("http request")
		return err
	}
}

// RequestMetrics cuenta peticiones por ruta registrada (no por path concreto, para acotar cardinalidad).
func RequestMetrics(m *metrics.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		m.ObserveHTTP(c.Method(), c.Route().Path, status, started)
		return err
	}
}

func requestIDOf(c *fiber.Ctx) string {
	if id, ok := c.Locals(LocalRequestID).(string); ok {
		return id
	}
	return ""
}

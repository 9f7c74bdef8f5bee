package http

import (
	"time"

	"product-studio/internal/shared/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the request id in both directions
const RequestIDHeader = "X-Request-ID"

// SessionIDHeader names the studio session a request was made from
const SessionIDHeader = "X-Studio-Session"

// RequestIDMiddleware assigns every request an id and stores it, with the caller's
// studio session if one was sent, in the user context
func RequestIDMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Locals("requestID", requestID)
		c.Set(RequestIDHeader, requestID)
		ctx := utils.WithRequestID(c.UserContext(), requestID)
		if sessionID := c.Get(SessionIDHeader); sessionID != "" {
			ctx = utils.WithSessionID(ctx, sessionID)
		}
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AccessLogMiddleware writes one structured line per request
func AccessLogMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes_in", len(c.Request().Body())),
		}
		ctx := c.UserContext()
		if id := utils.GetRequestIDOrDefault(ctx, ""); id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if sessionID, sessionErr := utils.GetSessionIDFromContext(ctx); sessionErr == nil {
			fields = append(fields, zap.String("session_id", sessionID))
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

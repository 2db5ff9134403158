package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
)

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrTemplateEmpty), errors.Is(err, domain.ErrCompileFailure):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	default:
		return err
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

// requestContext returns the request context carrying the correlation id, if
// the caller sent one.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if cid := requestCorrelationID(c); cid != "" {
		ctx = observability.WithCorrelationID(ctx, cid)
	}
	return ctx
}

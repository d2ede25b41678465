package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/atozfamily/homescholar/internal/llm"
	"github.com/atozfamily/homescholar/internal/validation"
)

// User-facing failure messages. Provider payloads never reach clients.
const (
	msgTimeout     = "The request took too long to complete. Please try again."
	msgProvider    = "The AI service is temporarily unavailable. Please try again shortly."
	msgInternal    = "Something went wrong. Please try again."
	msgBadBody     = "Request body must be valid JSON."
	msgValidation  = "Some fields are missing or invalid."
	msgNotFound    = "Curriculum not found."
	msgUnavailable = "Saved curricula are not available on this server."
)

type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// failureStatus maps a pipeline error to an HTTP status and a safe message.
func failureStatus(err error) (int, string) {
	var (
		unavailable *llm.ErrProviderUnavailable
		rateLimit   *llm.ErrRateLimit
		invalid     *llm.ErrInvalidResponse
		interrupted *llm.ErrStreamInterrupted
		maxTokens   *llm.ErrMaxTokensExceeded
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, msgTimeout
	case errors.As(err, &unavailable), errors.As(err, &rateLimit), errors.As(err, &invalid),
		errors.As(err, &interrupted), errors.As(err, &maxTokens):
		return fiber.StatusBadGateway, msgProvider
	default:
		return fiber.StatusInternalServerError, msgInternal
	}
}

// validationFailure renders a *validation.Error as 400. ok is false for
// any other error.
func validationFailure(c *fiber.Ctx, err error) (handled bool, rerr error) {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return false, nil
	}
	return true, c.Status(fiber.StatusBadRequest).JSON(errorResponse{
		Message: msgValidation,
		Errors:  verr.Map(),
	})
}

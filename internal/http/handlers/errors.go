package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/http/dto"
	"github.com/talent-marketplace/backend/internal/middleware"
	"github.com/talent-marketplace/backend/internal/models"
)

// respondError maps domain sentinels to HTTP statuses. Anything
// unrecognized is an internal error and gets logged, not leaked.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, models.ErrInsufficientFunds):
		status = fiber.StatusUnprocessableEntity
	}

	reqID, _ := c.Locals(middleware.CtxRequestID).(string)
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.Error(err))
		return c.Status(status).JSON(dto.ErrorResponse{Error: "internal error", RequestID: reqID})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: err.Error(), RequestID: reqID})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}

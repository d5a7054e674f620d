package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/http/dto"
	"github.com/talent-marketplace/backend/internal/middleware"
	"github.com/talent-marketplace/backend/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) GetContract(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	contract, err := h.admin.GetContract(c.Context(), contractID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *AdminHandler) GetEscrow(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	account, err := h.admin.GetEscrow(c.Context(), contractID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.EscrowResponse{
		Account:          account,
		AvailableBalance: account.AvailableBalance().String(),
	}})
}

func (h *AdminHandler) ForceStatus(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.ForceStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Status == "" {
		return badRequest(c, "status is required")
	}

	adminID := middleware.GetUserID(c)
	if err := h.admin.ForceStatus(c.Context(), adminID, contractID, req.Status, req.Notes); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AdminHandler) ForceComplete(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.ForceCompleteRequest
	_ = c.BodyParser(&req)

	adminID := middleware.GetUserID(c)
	if err := h.admin.ForceComplete(c.Context(), adminID, contractID, req.Notes); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AdminHandler) EmergencyRelease(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.AdminEscrowActionRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return badRequest(c, "reason is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}

	adminID := middleware.GetUserID(c)
	account, err := h.admin.EmergencyRelease(c.Context(), adminID, contractID, amount, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

func (h *AdminHandler) ForceRefund(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.AdminEscrowActionRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return badRequest(c, "reason is required")
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}

	adminID := middleware.GetUserID(c)
	account, err := h.admin.ForceRefund(c.Context(), adminID, contractID, amount, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

func (h *AdminHandler) Hold(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.HoldRequest
	if err := c.BodyParser(&req); err != nil || req.Reason == "" {
		return badRequest(c, "reason is required")
	}

	adminID := middleware.GetUserID(c)
	account, err := h.admin.Hold(c.Context(), adminID, contractID, req.Reason)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

func (h *AdminHandler) ReleaseHold(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	adminID := middleware.GetUserID(c)
	account, err := h.admin.ReleaseHold(c.Context(), adminID, contractID)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

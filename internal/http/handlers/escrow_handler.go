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

type EscrowHandler struct {
	escrow *services.EscrowService
	log    *zap.Logger
}

func NewEscrowHandler(escrow *services.EscrowService, log *zap.Logger) *EscrowHandler {
	return &EscrowHandler{escrow: escrow, log: log}
}

func (h *EscrowHandler) Get(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	account, err := h.escrow.GetForParty(c.Context(), contractID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.EscrowResponse{
		Account:          account,
		AvailableBalance: account.AvailableBalance().String(),
	}})
}

func (h *EscrowHandler) ListTransactions(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	txs, err := h.escrow.ListTransactionsForParty(c.Context(), contractID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: txs})
}

// Fund is the payment gateway callback. It is authenticated with the
// gateway key, not a user token.
func (h *EscrowHandler) Fund(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("contractId"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.FundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}
	fee := decimal.Zero
	if req.FeeAmount != "" {
		if fee, err = decimal.NewFromString(req.FeeAmount); err != nil {
			return badRequest(c, "invalid fee_amount")
		}
	}

	account, err := h.escrow.Fund(c.Context(), contractID, amount, fee)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: account})
}

// Refund settles money back to the manager after a cancellation. Gateway
// authenticated, same as Fund.
func (h *EscrowHandler) Refund(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("contractId"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.RefundEscrowRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return badRequest(c, "invalid amount")
	}
	description := "refund processed by payment gateway"
	if req.Description != "" {
		description = req.Description
	}

	account, err := h.escrow.Refund(c.Context(), contractID, amount, description)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: account})
}

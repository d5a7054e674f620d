package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/http/dto"
	"github.com/talent-marketplace/backend/internal/middleware"
	"github.com/talent-marketplace/backend/internal/services"
)

type MilestoneHandler struct {
	milestones *services.MilestoneService
	log        *zap.Logger
}

func NewMilestoneHandler(milestones *services.MilestoneService, log *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{milestones: milestones, log: log}
}

func parseMilestoneParams(c *fiber.Ctx) (contractID, milestoneID uuid.UUID, ok bool) {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	milestoneID, err = uuid.Parse(c.Params("mid"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return contractID, milestoneID, true
}

func (h *MilestoneHandler) Start(c *fiber.Ctx) error {
	contractID, milestoneID, ok := parseMilestoneParams(c)
	if !ok {
		return badRequest(c, "invalid contract or milestone id")
	}

	if err := h.milestones.Start(c.Context(), contractID, milestoneID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *MilestoneHandler) Submit(c *fiber.Ctx) error {
	contractID, milestoneID, ok := parseMilestoneParams(c)
	if !ok {
		return badRequest(c, "invalid contract or milestone id")
	}

	var req dto.SubmitMilestoneRequest
	_ = c.BodyParser(&req)

	err := h.milestones.Submit(c.Context(), contractID, milestoneID, middleware.GetUserID(c), req.Notes, req.Deliverables)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *MilestoneHandler) Approve(c *fiber.Ctx) error {
	contractID, milestoneID, ok := parseMilestoneParams(c)
	if !ok {
		return badRequest(c, "invalid contract or milestone id")
	}

	var req dto.ApproveMilestoneRequest
	_ = c.BodyParser(&req)

	if err := h.milestones.Approve(c.Context(), contractID, milestoneID, middleware.GetUserID(c), req.Notes); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *MilestoneHandler) RequestRevision(c *fiber.Ctx) error {
	contractID, milestoneID, ok := parseMilestoneParams(c)
	if !ok {
		return badRequest(c, "invalid contract or milestone id")
	}

	var req dto.RequestRevisionRequest
	_ = c.BodyParser(&req)

	err := h.milestones.RequestRevision(c.Context(), contractID, milestoneID, middleware.GetUserID(c), req.Notes)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

// RetryPayout re-runs the escrow release for a milestone stuck in approved,
// typically after an admin hold was cleared.
func (h *MilestoneHandler) RetryPayout(c *fiber.Ctx) error {
	contractID, milestoneID, ok := parseMilestoneParams(c)
	if !ok {
		return badRequest(c, "invalid contract or milestone id")
	}

	if err := h.milestones.RetryPayout(c.Context(), contractID, milestoneID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/talent-marketplace/backend/internal/http/dto"
	"github.com/talent-marketplace/backend/internal/middleware"
	"github.com/talent-marketplace/backend/internal/repositories"
	"github.com/talent-marketplace/backend/internal/services"
)

type ContractHandler struct {
	contracts *services.ContractService
	log       *zap.Logger
}

func NewContractHandler(contracts *services.ContractService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, log: log}
}

func (h *ContractHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateContractRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	proposalID, err := uuid.Parse(req.ProposalID)
	if err != nil {
		return badRequest(c, "invalid proposal_id")
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return badRequest(c, "invalid total_amount")
	}

	input := services.CreateContractInput{
		ProposalID:     proposalID,
		Title:          req.Title,
		Description:    req.Description,
		TotalAmount:    total,
		Currency:       req.Currency,
		PaymentType:    req.PaymentType,
		EstimatedHours: req.EstimatedHours,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Terms:          req.Terms,
	}
	if req.HourlyRate != nil {
		rate, err := decimal.NewFromString(*req.HourlyRate)
		if err != nil {
			return badRequest(c, "invalid hourly_rate")
		}
		input.HourlyRate = &rate
	}
	if req.ParentContractID != nil {
		parentID, err := uuid.Parse(*req.ParentContractID)
		if err != nil {
			return badRequest(c, "invalid parent_contract_id")
		}
		input.ParentContractID = &parentID
	}
	for _, m := range req.Milestones {
		amount, err := decimal.NewFromString(m.Amount)
		if err != nil {
			return badRequest(c, "invalid milestone amount")
		}
		input.Milestones = append(input.Milestones, services.MilestoneInput{
			Title:       m.Title,
			Description: m.Description,
			Amount:      amount,
			DueDate:     m.DueDate,
		})
	}

	actorID := middleware.GetUserID(c)
	contract, err := h.contracts.CreateFromProposal(c.Context(), actorID, input)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) Get(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	contract, err := h.contracts.GetForParty(c.Context(), contractID, middleware.GetUserID(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contract})
}

func (h *ContractHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.ContractFilter{
		Limit:  20,
		Offset: 0,
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}

	switch c.Query("role") {
	case "manager":
		filter.ManagerID = &userID
	case "talent":
		filter.TalentID = &userID
	default:
		filter.PartyID = &userID
	}

	contracts, err := h.contracts.List(c.Context(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: contracts})
}

func (h *ContractHandler) GetEvents(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	limit, offset := 50, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}

	entries, err := h.contracts.GetEvents(c.Context(), contractID, middleware.GetUserID(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

func (h *ContractHandler) Send(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	if err := h.contracts.Send(c.Context(), contractID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *ContractHandler) Accept(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	if err := h.contracts.Accept(c.Context(), contractID, middleware.GetUserID(c)); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *ContractHandler) Decline(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.DeclineContractRequest
	_ = c.BodyParser(&req)

	if err := h.contracts.Decline(c.Context(), contractID, middleware.GetUserID(c), req.Reason); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *ContractHandler) Cancel(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid contract id")
	}

	var req dto.CancelContractRequest
	_ = c.BodyParser(&req)

	if err := h.contracts.Cancel(c.Context(), contractID, middleware.GetUserID(c), req.Reason); err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true})
}

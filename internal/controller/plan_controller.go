package controller

import (
	"heartlink-be/internal/dto"
	"heartlink-be/internal/pkg/serverutils"
	"heartlink-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IPlanController interface {
	RegisterRoutes(r fiber.Router)
	GetPlans(ctx *fiber.Ctx) error
	GetPlan(ctx *fiber.Ctx) error
	CreatePlan(ctx *fiber.Ctx) error
	UpdatePlan(ctx *fiber.Ctx) error
}

type planController struct {
	service service.IPlanService
}

func NewPlanController(service service.IPlanService) IPlanController {
	return &planController{service: service}
}

func (c *planController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/plans")
	h.Get("/", c.GetPlans)
	h.Get("/:id", c.GetPlan)

	admin := r.Group("/admin/plans", serverutils.JwtMiddleware, serverutils.AdminOnly)
	admin.Post("/", c.CreatePlan)
	admin.Put("/:id", c.UpdatePlan)
}

func (c *planController) GetPlans(ctx *fiber.Ctx) error {
	res, err := c.service.GetActivePlans(ctx.Context())
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching plans", res))
}

func (c *planController) GetPlan(ctx *fiber.Ctx) error {
	planId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid plan id"))
	}

	res, err := c.service.GetActivePlan(ctx.Context(), planId)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success fetching plan", res))
}

func (c *planController) CreatePlan(ctx *fiber.Ctx) error {
	var req dto.PlanCreateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreatePlan(ctx.Context(), &req)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Plan created", res))
}

func (c *planController) UpdatePlan(ctx *fiber.Ctx) error {
	planId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid plan id"))
	}

	var req dto.PlanUpdateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdatePlan(ctx.Context(), planId, &req)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Plan updated", res))
}

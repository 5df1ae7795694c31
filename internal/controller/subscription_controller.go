package controller

import (
	"heartlink-be/internal/pkg/serverutils"
	"heartlink-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	Purchase(ctx *fiber.Ctx) error
	GetMySubscription(ctx *fiber.Ctx) error
	ValidateSubscription(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.ISubscriptionService
}

func NewSubscriptionController(service service.ISubscriptionService) ISubscriptionController {
	return &subscriptionController{service: service}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	r.Post("/plans/:id/purchase", serverutils.JwtMiddleware, c.Purchase)

	h := r.Group("/my-subscription", serverutils.JwtMiddleware)
	h.Get("/", c.GetMySubscription)
	h.Get("/validate", c.ValidateSubscription)
	h.Post("/cancel", c.Cancel)
}

func (c *subscriptionController) Purchase(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}
	planId, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(400, "invalid plan id"))
	}

	res, err := c.service.InitiatePurchase(ctx.Context(), userId, planId)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Checkout session created", res))
}

func (c *subscriptionController) GetMySubscription(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetMySubscription(ctx.Context(), userId)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription", res))
}

func (c *subscriptionController) ValidateSubscription(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ValidateSubscription(ctx.Context(), userId)
	if err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription validation", res))
}

func (c *subscriptionController) Cancel(ctx *fiber.Ctx) error {
	userId, err := currentUserId(ctx)
	if err != nil {
		return err
	}

	if err := c.service.Cancel(ctx.Context(), userId); err != nil {
		return ctx.Status(statusFor(err)).JSON(serverutils.ErrorResponse(statusFor(err), err.Error()))
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Subscription canceled", nil))
}

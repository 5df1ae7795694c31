package controller

import (
	"errors"

	"heartlink-be/internal/pkg/apperrors"
	"heartlink-be/internal/pkg/logger"
	"heartlink-be/internal/pkg/paymentgw"
	"heartlink-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	HandleStripeWebhook(ctx *fiber.Ctx) error
}

type webhookController struct {
	gateway paymentgw.Gateway
	service service.ISubscriptionService
	log     logger.ILogger
}

func NewWebhookController(gateway paymentgw.Gateway, svc service.ISubscriptionService, log logger.ILogger) IWebhookController {
	return &webhookController{
		gateway: gateway,
		service: svc,
		log:     log,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	r.Post("/webhook/stripe", c.HandleStripeWebhook)
}

// HandleStripeWebhook fails closed on authentication and open on everything
// else: a bad signature gets 400 so the processor knows the delivery was
// rejected, while any processing failure is logged and acknowledged with 200
// to stop redelivery of an event we cannot act on.
func (c *webhookController) HandleStripeWebhook(ctx *fiber.Ctx) error {
	payload := ctx.Body()
	sigHeader := ctx.Get("Stripe-Signature")

	ev, err := c.gateway.VerifyAndParseEvent(payload, sigHeader)
	if err != nil {
		if errors.Is(err, apperrors.ErrSignature) {
			c.log.Warn("webhook_controller", "rejected webhook with invalid signature", map[string]interface{}{
				"error": err.Error(),
			})
			return ctx.SendStatus(fiber.StatusBadRequest)
		}
		c.log.Error("webhook_controller", "failed to decode webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		return ctx.SendStatus(fiber.StatusOK)
	}

	if err := c.service.ActivateFromEvent(ctx.Context(), ev); err != nil {
		c.log.Error("webhook_controller", "webhook processing failed", map[string]interface{}{
			"event_type": ev.Type,
			"error":      err.Error(),
		})
	}
	return ctx.SendStatus(fiber.StatusOK)
}

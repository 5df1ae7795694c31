package paymentgw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"heartlink-be/internal/entity"
	"heartlink-be/internal/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

const checkoutCompletedEvent = "checkout.session.completed"

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
}

// StripeGateway implements Gateway against the Stripe API.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))

	return &StripeGateway{
		api:           sc,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, displayName string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(displayName),
	}
	params.Context = ctx

	cust, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe customer creation failed: %w", err)
	}
	return cust.ID, nil
}

func (g *StripeGateway) CreateProductAndPrice(ctx context.Context, plan *entity.SubscriptionPlan) (string, string, error) {
	productParams := &stripe.ProductParams{
		Name:   stripe.String(plan.Name),
		Active: stripe.Bool(plan.Active),
	}
	if plan.Description != "" {
		productParams.Description = stripe.String(plan.Description)
	}
	productParams.Context = ctx
	productParams.AddMetadata("plan_type", string(plan.PlanType))

	product, err := g.api.Products.New(productParams)
	if err != nil {
		return "", "", fmt.Errorf("stripe product creation failed: %w", err)
	}

	priceId, err := g.CreatePrice(ctx, product.ID, plan.AmountMinorUnits(), plan.Currency)
	if err != nil {
		return "", "", err
	}
	return product.ID, priceId, nil
}

func (g *StripeGateway) CreatePrice(ctx context.Context, productId string, amountMinorUnits int64, currency string) (string, error) {
	params := &stripe.PriceParams{
		Product:    stripe.String(productId),
		UnitAmount: stripe.Int64(amountMinorUnits),
		Currency:   stripe.String(currency),
	}
	params.Context = ctx

	price, err := g.api.Prices.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe price creation failed: %w", err)
	}
	return price.ID, nil
}

// RetirePrice deactivates a price. Stripe prices are immutable; a price is
// never edited in place, only retired and replaced.
func (g *StripeGateway) RetirePrice(ctx context.Context, priceId string) error {
	params := &stripe.PriceParams{
		Active: stripe.Bool(false),
	}
	params.Context = ctx

	if _, err := g.api.Prices.Update(priceId, params); err != nil {
		return fmt.Errorf("stripe price retirement failed: %w", err)
	}
	return nil
}

func (g *StripeGateway) UpdateProductMetadata(ctx context.Context, productId string, upd ProductUpdate) error {
	params := &stripe.ProductParams{
		Name:        upd.Name,
		Description: upd.Description,
		Active:      upd.Active,
	}
	params.Context = ctx

	if _, err := g.api.Products.Update(productId, params); err != nil {
		return fmt.Errorf("stripe product update failed: %w", err)
	}
	return nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, customerId, priceId string, userId, planId uuid.UUID) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(customerId),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceId),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(userId.String()),
	}
	params.Context = ctx
	params.AddMetadata("plan_id", planId.String())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session creation failed: %w", err)
	}
	return &CheckoutSession{Id: sess.ID, Url: sess.URL}, nil
}

// VerifyAndParseEvent authenticates the raw payload against the shared
// webhook secret and decodes it once into the tagged variant. Unrecognized
// event types come back with an empty Session so the caller can acknowledge
// them without touching state.
func (g *StripeGateway) VerifyAndParseEvent(payload []byte, signatureHeader string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signatureHeader, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrSignature, err)
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if out.Type != checkoutCompletedEvent {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding checkout session payload: %w", err)
	}

	cc := &CheckoutCompleted{
		SessionId:         sess.ID,
		PaymentStatus:     string(sess.PaymentStatus),
		ClientReferenceId: sess.ClientReferenceID,
	}
	if sess.Metadata != nil {
		cc.PlanId = sess.Metadata["plan_id"]
	}
	if sess.Customer != nil {
		cc.CustomerId = stripe.String(sess.Customer.ID)
	}
	if sess.PaymentIntent != nil {
		cc.PaymentIntentId = stripe.String(sess.PaymentIntent.ID)
	}
	out.Session = cc
	return out, nil
}

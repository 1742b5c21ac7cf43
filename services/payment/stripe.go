package payment

import (
	"context"
	"encoding/json"
	"strings"

	"venuebook/models"
	"venuebook/utils/apperr"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

type paymentIntents interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type refunds interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeGateway takes card payments through PaymentIntents.
type StripeGateway struct {
	intents       paymentIntents
	refunds       refunds
	webhookSecret string
	logger        *zap.Logger
}

// NewStripeGateway creates a StripeGateway backed by the live API.
func NewStripeGateway(secretKey, webhookSecret string, logger *zap.Logger) *StripeGateway {
	sc := client.New(secretKey, nil)
	return &StripeGateway{intents: sc.PaymentIntents, refunds: sc.Refunds, webhookSecret: webhookSecret, logger: logger}
}

func (g *StripeGateway) Name() string { return Stripe }

// Charge creates a PaymentIntent keyed by the booking reference, so retrying
// the same booking never creates a second intent.
func (g *StripeGateway) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(req.Amount.Cents()),
		Currency:     stripe.String(strings.ToLower(currencyOrKES(req.Currency))),
		Description:  stripe.String(req.Description),
		ReceiptEmail: stripe.String(req.Email),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)
	params.AddMetadata("booking_id", req.BookingID)
	params.SetIdempotencyKey("charge-" + req.Reference)

	pi, err := g.intents.New(params)
	if err != nil {
		return ChargeResult{}, apperr.External(Stripe, err)
	}
	g.logger.Info("stripe payment intent created", zap.String("reference", req.Reference), zap.String("intent", pi.ID))
	return ChargeResult{Reference: req.Reference, GatewayTransactionID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (g *StripeGateway) Refund(ctx context.Context, req RefundRequest) (RefundResult, error) {
	if req.GatewayTransactionID == "" {
		return RefundResult{}, apperr.Validation("gateway_transaction_id", "missing for stripe refund")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.GatewayTransactionID),
		Amount:        stripe.Int64(req.Amount.Cents()),
	}
	params.Context = ctx
	params.AddMetadata("reference", req.Reference)
	params.SetIdempotencyKey("refund-" + req.Reference)

	r, err := g.refunds.New(params)
	if err != nil {
		return RefundResult{}, apperr.External(Stripe, err)
	}
	return RefundResult{RefundReference: r.ID, Status: string(r.Status)}, nil
}

// ParseCallback verifies the Stripe-Signature header and reads the intent
// carried by the event.
func (g *StripeGateway) ParseCallback(_ context.Context, cb Callback) (CallbackEvent, error) {
	event, err := webhook.ConstructEventWithOptions(cb.Body, cb.Header.Get("Stripe-Signature"), g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return CallbackEvent{}, apperr.Validation("Stripe-Signature", "webhook signature mismatch")
	}

	kind := string(event.Type)
	if kind != "payment_intent.succeeded" && kind != "payment_intent.payment_failed" {
		return CallbackEvent{}, nil
	}
	if event.Data == nil {
		return CallbackEvent{}, apperr.Validation("body", "event has no data")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return CallbackEvent{}, apperr.Validation("body", "malformed payment intent")
	}

	ev := CallbackEvent{
		Reference:            pi.Metadata["reference"],
		GatewayTransactionID: pi.ID,
		Final:                true,
	}
	if kind == "payment_intent.succeeded" {
		ev.Success = true
		ev.Amount = models.Money(pi.AmountReceived)
	}
	return ev, nil
}

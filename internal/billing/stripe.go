package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeProvider implements Provider using Stripe PaymentIntents.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates a new Stripe billing provider. The API key is
// process-wide state in the Stripe SDK.
func NewStripeProvider(apiKey, webhookSecret string) (*StripeProvider, error) {
	if apiKey == "" {
		return nil, ErrInvalidAPIKey
	}
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}, nil
}

func (s *StripeProvider) Name() string { return "stripe" }

// CreatePayment creates a Stripe PaymentIntent carrying our order id in its
// metadata. The client secret drives the frontend payment sheet; the
// webhook uses the metadata to route the confirmation back.
func (s *StripeProvider) CreatePayment(ctx context.Context, params CreatePaymentParams) (*Payment, error) {
	piParams := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Description: stripe.String("Order " + params.OrderNumber),
	}
	if params.CustomerEmail != "" {
		piParams.ReceiptEmail = stripe.String(params.CustomerEmail)
	}
	piParams.AddMetadata("order_id", params.OrderID)
	piParams.AddMetadata("order_number", params.OrderNumber)
	piParams.Context = ctx

	pi, err := paymentintent.New(piParams)
	if err != nil {
		return nil, wrapStripeErr("create payment intent", err)
	}
	return stripePayment(pi), nil
}

// GetPayment retrieves a PaymentIntent for server-side verification.
func (s *StripeProvider) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	piParams := &stripe.PaymentIntentParams{}
	piParams.Context = ctx

	pi, err := paymentintent.Get(paymentID, piParams)
	if err != nil {
		return nil, wrapStripeErr("get payment intent", err)
	}
	return stripePayment(pi), nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the
// endpoint's signing secret.
func (s *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if err := webhook.ValidatePayload(payload, signature, s.webhookSecret); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookSignature, err)
	}
	return nil
}

func stripePayment(pi *stripe.PaymentIntent) *Payment {
	return &Payment{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		OrderID:      pi.Metadata["order_id"],
	}
}

func wrapStripeErr(op string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return ErrPaymentNotFound
		}
		if stripeErr.Code == stripe.ErrorCodeAmountTooSmall {
			return ErrAmountTooSmall
		}
		return fmt.Errorf("stripe: %s: %s (code: %s)", op, stripeErr.Msg, stripeErr.Code)
	}
	return fmt.Errorf("stripe: %s: %w", op, err)
}

// Package billing abstracts the payment providers. Implementations exist
// for Stripe and Razorpay; handlers and services depend only on Provider so
// tests can swap in MockProvider.
package billing

import (
	"context"
)

// Provider defines the interface for payment processing.
type Provider interface {
	// Name identifies the provider ("stripe", "razorpay"). Recorded on the
	// order's payment row and used as a metric label.
	Name() string

	// CreatePayment registers a pending payment with the provider for an
	// online order. The returned ClientSecret (Stripe) or ID (Razorpay
	// order id) goes to the frontend to drive the payment sheet.
	CreatePayment(ctx context.Context, params CreatePaymentParams) (*Payment, error)

	// GetPayment retrieves a payment from the provider. Used to verify
	// amount and status server-side before trusting a confirmation.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)

	// VerifyWebhookSignature verifies that a webhook delivery is authentic.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// CreatePaymentParams contains parameters for registering a payment.
type CreatePaymentParams struct {
	// OrderID is our order's id, carried in provider metadata so the
	// webhook can find its way back.
	OrderID string

	// OrderNumber is the human-readable receipt reference.
	OrderNumber string

	// AmountCents is the amount in the smallest currency unit.
	AmountCents int64

	// Currency code (ISO 4217), lowercase - e.g. "inr", "usd".
	Currency string

	// CustomerEmail prefills the provider's payment sheet.
	CustomerEmail string
}

// Payment represents a provider-side payment record.
type Payment struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
	OrderID      string
}

// Succeeded reports whether the provider considers the payment settled.
func (p Payment) Succeeded() bool {
	return p.Status == "succeeded" || p.Status == "captured"
}

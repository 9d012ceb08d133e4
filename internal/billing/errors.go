package billing

import "errors"

var (
	// ErrInvalidAPIKey is returned when the provider API key is invalid or missing.
	ErrInvalidAPIKey = errors.New("billing: invalid or missing API key")

	// ErrPaymentNotFound is returned when the payment does not exist at the provider.
	ErrPaymentNotFound = errors.New("billing: payment not found")

	// ErrInvalidWebhookSignature is returned when webhook signature verification fails.
	ErrInvalidWebhookSignature = errors.New("billing: invalid webhook signature")

	// ErrAmountTooSmall is returned when the amount is below the provider's minimum charge.
	ErrAmountTooSmall = errors.New("billing: amount below provider minimum")
)

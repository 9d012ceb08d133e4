package billing

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// RazorpayProvider implements Provider using Razorpay Orders. A Razorpay
// "order" is the provider-side payment registration; the shopper pays
// against it and Razorpay reports the capture by webhook.
type RazorpayProvider struct {
	client        *razorpay.Client
	keySecret     string
	webhookSecret string
}

// NewRazorpayProvider creates a new Razorpay billing provider.
func NewRazorpayProvider(keyID, keySecret, webhookSecret string) (*RazorpayProvider, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrInvalidAPIKey
	}
	return &RazorpayProvider{
		client:        razorpay.NewClient(keyID, keySecret),
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}, nil
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

// CreatePayment creates a Razorpay order for the amount, tagging it with
// our order id in the notes. The returned ID is what the frontend checkout
// widget needs.
func (p *RazorpayProvider) CreatePayment(ctx context.Context, params CreatePaymentParams) (*Payment, error) {
	data := map[string]interface{}{
		"amount":   params.AmountCents,
		"currency": params.Currency,
		"receipt":  params.OrderNumber,
		"notes": map[string]interface{}{
			"order_id":     params.OrderID,
			"order_number": params.OrderNumber,
		},
	}
	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	return razorpayPayment(body, params.OrderID), nil
}

// GetPayment fetches a captured payment for server-side verification.
func (p *RazorpayProvider) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	body, err := p.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetch payment: %w", err)
	}
	return razorpayPayment(body, ""), nil
}

// VerifyWebhookSignature checks the X-Razorpay-Signature header, an HMAC
// SHA-256 of the raw body keyed with the webhook secret.
func (p *RazorpayProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if !utils.VerifyWebhookSignature(string(payload), signature, p.webhookSecret) {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// VerifyPaymentSignature checks the signature Razorpay's checkout widget
// hands the frontend after payment: HMAC SHA-256 over
// "<razorpay_order_id>|<razorpay_payment_id>" keyed with the API secret.
func (p *RazorpayProvider) VerifyPaymentSignature(razorpayOrderID, razorpayPaymentID, signature string) error {
	params := map[string]interface{}{
		"razorpay_order_id":   razorpayOrderID,
		"razorpay_payment_id": razorpayPaymentID,
	}
	if !utils.VerifyPaymentSignature(params, signature, p.keySecret) {
		return ErrInvalidWebhookSignature
	}
	return nil
}

func razorpayPayment(body map[string]interface{}, orderID string) *Payment {
	pay := &Payment{OrderID: orderID}
	if v, ok := body["id"].(string); ok {
		pay.ID = v
	}
	if v, ok := body["amount"].(float64); ok {
		pay.AmountCents = int64(v)
	}
	if v, ok := body["currency"].(string); ok {
		pay.Currency = v
	}
	if v, ok := body["status"].(string); ok {
		pay.Status = v
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		if v, ok := notes["order_id"].(string); ok && v != "" {
			pay.OrderID = v
		}
	}
	return pay
}

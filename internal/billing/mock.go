package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider is a mock billing provider for testing. Simulates successful
// payment flows without calling a real provider.
type MockProvider struct {
	// ProviderName overrides the reported name (default "mock").
	ProviderName string

	// CreatePaymentFunc allows customizing payment creation behavior.
	CreatePaymentFunc func(ctx context.Context, params CreatePaymentParams) (*Payment, error)

	// GetPaymentFunc allows customizing payment retrieval behavior.
	GetPaymentFunc func(ctx context.Context, paymentID string) (*Payment, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification behavior.
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	// Payments stores created payments for retrieval.
	Payments map[string]*Payment

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Payments: make(map[string]*Payment),
		CallLog:  []string{},
	}
}

func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

// CreatePayment creates a mock payment record.
func (m *MockProvider) CreatePayment(ctx context.Context, params CreatePaymentParams) (*Payment, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreatePayment(%d, %s)", params.AmountCents, params.Currency))

	if m.CreatePaymentFunc != nil {
		return m.CreatePaymentFunc(ctx, params)
	}

	pay := &Payment{
		ID:           "pay_" + uuid.New().String(),
		ClientSecret: "secret_" + uuid.New().String(),
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		OrderID:      params.OrderID,
	}
	m.Payments[pay.ID] = pay
	return pay, nil
}

// GetPayment retrieves a previously created mock payment.
func (m *MockProvider) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("GetPayment(%s)", paymentID))

	if m.GetPaymentFunc != nil {
		return m.GetPaymentFunc(ctx, paymentID)
	}
	pay, ok := m.Payments[paymentID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return pay, nil
}

// VerifyWebhookSignature accepts any non-empty signature by default.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	m.CallLog = append(m.CallLog, "VerifyWebhookSignature")

	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	if signature == "" {
		return ErrInvalidWebhookSignature
	}
	return nil
}

// MarkSucceeded flips a stored payment to succeeded, simulating the shopper
// completing the payment sheet.
func (m *MockProvider) MarkSucceeded(paymentID string) {
	if pay, ok := m.Payments[paymentID]; ok {
		pay.Status = "succeeded"
	}
}

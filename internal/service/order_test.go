package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
)

func placeCODOrder(t *testing.T, store *fakeStore, userID uuid.UUID) *domain.OrderDetail {
	t.Helper()
	checkout := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := checkout.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "12 MG Road, Bengaluru 560001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)
	return detail
}

func TestCancel_CODRestoresStockAndCart(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 3)
	detail := placeCODOrder(t, store, userID)
	require.Equal(t, int32(7), store.variants[variantID].CountInStock)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	cancelled, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, cancelled.OrderStatus)
	require.NotNil(t, cancelled.CancelledAt)

	// Stock back on the shelf.
	assert.Equal(t, int32(10), store.variants[variantID].CountInStock)

	// Items back in the cart at the prices the order captured.
	cart, err := store.GetCartByUser(context.Background(), userID)
	require.NoError(t, err)
	items, _ := store.GetCartItems(context.Background(), cart.ID)
	require.Len(t, items, 1)
	assert.Equal(t, variantID, items[0].VariantID)
	assert.Equal(t, int32(3), items[0].Quantity)
	assert.Equal(t, int64(60000), items[0].SellingAtAddCents)
}

func TestCancel_CODReturnsCouponRedemption(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	live := attachCoupon(t, store, userID, domain.Coupon{
		Code: "WELCOME", DiscountType: domain.DiscountFlat, DiscountValue: 10000,
		UsagePerUser: 1, Active: true,
	})
	detail := placeCODOrder(t, store, userID)
	require.Len(t, store.usages, 1, "COD settles the coupon at checkout")

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	_, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)

	// The redemption goes back with the stock: the shopper can use the
	// coupon on their next order.
	assert.Empty(t, store.usages)
	assert.Equal(t, int32(0), store.coupons[live.ID].UsageCount)
	used, err := store.CountCouponUsageByUser(context.Background(), live.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), used)
}

func TestCancel_PendingOnlineDoesNotRestock(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 3)
	detail := placeOnlineOrder(t, store, userID)
	require.Equal(t, int32(10), store.variants[variantID].CountInStock, "online checkout defers stock")

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	cancelled, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, cancelled.OrderStatus)
	assert.Equal(t, int32(10), store.variants[variantID].CountInStock, "nothing to give back")
}

func TestCancel_AlreadyCancelledIsNoOp(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 3)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	_, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)

	again, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, again.OrderStatus)

	// No double restock.
	assert.Equal(t, int32(10), store.variants[variantID].CountInStock)
}

func TestCancel_PaidOrderIsNoOp(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 2)
	detail := placeOnlineOrder(t, store, userID)

	payments := NewPaymentService(store, NopPublisher{}, testLogger())
	_, err := payments.ConfirmPayment(context.Background(), ConfirmPaymentParams{
		OrderID:       detail.Order.ID,
		Provider:      "stripe",
		TransactionID: "pi_123",
		AmountCents:   detail.Order.FinalTotalCents,
		Currency:      "inr",
	})
	require.NoError(t, err)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	result, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err, "cancelling a paid order reports current state, it does not fail")

	assert.Equal(t, domain.OrderStatusConfirmed, result.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPaid, result.PaymentStatus)
	assert.Equal(t, int32(8), store.variants[variantID].CountInStock, "paid stock stays sold")
}

func TestCancel_ForeignOrderLooksMissing(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	_, err := svc.Cancel(context.Background(), uuid.New(), detail.Order.ID)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestCancel_SkipsDeletedVariants(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 2)
	detail := placeCODOrder(t, store, userID)

	// Catalog lost the variant between purchase and cancellation.
	delete(store.variants, variantID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	cancelled, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.OrderStatus)

	cart, _ := store.GetCartByUser(context.Background(), userID)
	items, _ := store.GetCartItems(context.Background(), cart.ID)
	assert.Empty(t, items, "vanished variants are not returned to the cart")
}

func TestCancel_PackedOrderRefused(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 2)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	_, err := svc.AdvanceStatus(context.Background(), detail.Order.ID, domain.OrderStatusPacked)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), userID, detail.Order.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotCancellable)
	assert.Equal(t, int32(8), store.variants[variantID].CountInStock, "no restock on refusal")
}

func TestAdvanceStatus_ForwardOnly(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())

	packed, err := svc.AdvanceStatus(context.Background(), detail.Order.ID, domain.OrderStatusPacked)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPacked, packed.OrderStatus)

	// Walking backwards is refused.
	_, err = svc.AdvanceStatus(context.Background(), detail.Order.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	// Skipping ahead along the pipeline is allowed.
	delivered, err := svc.AdvanceStatus(context.Background(), detail.Order.ID, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, delivered.OrderStatus)
}

func TestAdvanceStatus_CancelledOrdersAreFrozen(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())
	_, err := svc.Cancel(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)

	_, err = svc.AdvanceStatus(context.Background(), detail.Order.ID, domain.OrderStatusPacked)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestGetDetail_OwnerScoped(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())

	got, err := svc.GetDetail(context.Background(), userID, detail.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, detail.Order.OrderNumber, got.Order.OrderNumber)
	assert.Len(t, got.Items, 1)
	assert.Nil(t, got.Payment, "COD order has no payment record")

	_, err = svc.GetDetail(context.Background(), uuid.New(), detail.Order.ID)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
}

func TestGetByOrderNumber(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	detail := placeCODOrder(t, store, userID)

	svc := NewOrderService(store, NopPublisher{}, testLogger())

	got, err := svc.GetByOrderNumber(context.Background(), detail.Order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, detail.Order.ID, got.Order.ID)
	assert.Len(t, got.Items, 1)

	_, err = svc.GetByOrderNumber(context.Background(), "ORD-20200101-XXXX")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

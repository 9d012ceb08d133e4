package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// seedCart puts quantity of a fresh variant into the user's cart and
// returns the variant id. Prices are captured at add, like the real flow.
func seedCart(t *testing.T, store *fakeStore, userID uuid.UUID, mrp, selling int64, stock, quantity int32) uuid.UUID {
	t.Helper()
	variantID := store.addVariant("Basmati Rice", "5kg bag", mrp, selling, stock)
	cart, err := store.GetOrCreateCart(context.Background(), userID)
	require.NoError(t, err)
	require.NoError(t, store.AddCartItem(context.Background(), cart.ID, variantID, quantity, mrp, selling))
	return variantID
}

func attachCoupon(t *testing.T, store *fakeStore, userID uuid.UUID, c domain.Coupon) *domain.Coupon {
	t.Helper()
	live := store.addCoupon(c)
	cart, err := store.GetCartByUser(context.Background(), userID)
	require.NoError(t, err)
	snap := live.Snapshot(0)
	require.NoError(t, store.SetCartCoupon(context.Background(), cart.ID, &snap))
	return live
}

func TestPlaceOrder_CODConfirmsAndSettlesStock(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 2)

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "12 MG Road, Bengaluru 560001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, detail.Order.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPending, detail.Order.PaymentStatus)
	assert.Equal(t, int64(120000), detail.Order.SubtotalCents)
	assert.Equal(t, int64(140000), detail.Order.TotalMRPCents)
	assert.Equal(t, int64(20000), detail.Order.SavingsCents)
	assert.Equal(t, int64(0), detail.Order.DeliveryFeeCents, "subtotal above threshold ships free")
	assert.Equal(t, int64(120000), detail.Order.FinalTotalCents)

	// Stock settled at checkout for COD.
	assert.Equal(t, int32(8), store.variants[variantID].CountInStock)

	// Cart drained.
	cart, err := store.GetCartByUser(context.Background(), userID)
	require.NoError(t, err)
	items, _ := store.GetCartItems(context.Background(), cart.ID)
	assert.Empty(t, items)
	assert.Nil(t, cart.Coupon)
}

func TestPlaceOrder_DeliveryFeeBelowThreshold(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 12000, 10000, 5, 1)

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(DeliveryFeeCents), detail.Order.DeliveryFeeCents)
	assert.Equal(t, int64(10000)+DeliveryFeeCents, detail.Order.FinalTotalCents)
}

func TestPlaceOrder_OnlineDefersStockAndCoupon(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 70000, 60000, 10, 2)
	attachCoupon(t, store, userID, domain.Coupon{
		Code: "SAVE100", DiscountType: domain.DiscountFlat, DiscountValue: 10000, Active: true,
	})

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "12 MG Road, Bengaluru 560001",
		PaymentMethod:   domain.PaymentMethodOnline,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusPending, detail.Order.OrderStatus)
	assert.Equal(t, domain.PaymentStatusPending, detail.Order.PaymentStatus)
	assert.Equal(t, int64(10000), detail.Order.CouponDiscountCents)
	assert.Equal(t, int64(110000), detail.Order.FinalTotalCents)

	// Stock and coupon usage wait for the payment confirmation.
	assert.Equal(t, int32(10), store.variants[variantID].CountInStock)
	assert.Empty(t, store.usages)
}

func TestPlaceOrder_CODRecordsCouponUsage(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	live := attachCoupon(t, store, userID, domain.Coupon{
		Code: "FRESH20", DiscountType: domain.DiscountPercentage, DiscountValue: 20,
		MaxDiscountCents: 8500, Active: true,
	})

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "12 MG Road, Bengaluru 560001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	// 20% of 60000 is 12000, capped at 8500.
	assert.Equal(t, int64(8500), detail.Order.CouponDiscountCents)
	assert.Equal(t, int64(60000)-8500, detail.Order.FinalTotalCents)

	require.Len(t, store.usages, 1)
	assert.Equal(t, live.ID, store.usages[0].CouponID)
	assert.Equal(t, userID, store.usages[0].UserID)
	assert.Equal(t, int64(8500), store.usages[0].DiscountCents)
}

func TestPlaceOrder_CouponSilentlyDroppedBelowMinimum(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 12000, 10000, 5, 1)
	attachCoupon(t, store, userID, domain.Coupon{
		Code: "BIGCART", DiscountType: domain.DiscountFlat, DiscountValue: 5000,
		MinCartValueCents: 50000, Active: true,
	})

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err, "an inapplicable coupon drops, it does not block checkout")

	assert.Nil(t, detail.Order.Coupon)
	assert.Equal(t, int64(0), detail.Order.CouponDiscountCents)
	assert.Empty(t, store.usages)
}

func TestPlaceOrder_ExhaustedCouponDropped(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	seedCart(t, store, userID, 70000, 60000, 10, 1)
	live := attachCoupon(t, store, userID, domain.Coupon{
		Code: "LASTONE", DiscountType: domain.DiscountFlat, DiscountValue: 5000,
		UsageLimit: 1, Active: true,
	})
	// Another shopper took the last redemption after this user attached.
	store.usages = append(store.usages, domain.CouponUsage{
		ID: uuid.New(), CouponID: live.ID, UserID: uuid.New(), OrderID: uuid.New(), DiscountCents: 5000,
	})

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Nil(t, detail.Order.Coupon)
	assert.Equal(t, int64(0), detail.Order.CouponDiscountCents)
	assert.Equal(t, int64(60000), detail.Order.FinalTotalCents, "full price, free delivery over threshold")
	assert.Len(t, store.usages, 1, "the foreign usage is the only ledger row")
}

func TestPlaceOrder_InsufficientStockAborts(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 12000, 10000, 5, 3)

	// Someone else bought most of the stock after the add.
	store.variants[variantID].CountInStock = 2

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	_, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ECONFLICT))

	// Nothing committed: no order, stock untouched, cart intact.
	assert.Empty(t, store.orders)
	assert.Equal(t, int32(2), store.variants[variantID].CountInStock)
	cart, _ := store.GetCartByUser(context.Background(), userID)
	items, _ := store.GetCartItems(context.Background(), cart.ID)
	assert.Len(t, items, 1)
}

func TestPlaceOrder_HonorsPriceAtAdd(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := seedCart(t, store, userID, 12000, 10000, 5, 2)

	// Catalog price hike between add and checkout.
	store.variants[variantID].SellingCents = 15000
	store.variants[variantID].MRPCents = 18000

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	detail, err := svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(20000), detail.Order.SubtotalCents, "shopper pays the price they saw")
	require.Len(t, detail.Items, 1)
	assert.Equal(t, int64(10000), detail.Items[0].SellingCents)
	assert.Equal(t, int64(12000), detail.Items[0].MRPCents)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	_, err := store.GetOrCreateCart(context.Background(), userID)
	require.NoError(t, err)

	svc := NewCheckoutService(store, NopPublisher{}, testLogger())
	_, err = svc.PlaceOrder(context.Background(), userID, PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   domain.PaymentMethodCOD,
	})
	assert.ErrorIs(t, err, domain.ErrCartEmpty)
}

func TestPlaceOrder_RejectsUnknownPaymentMethod(t *testing.T) {
	store := newFakeStore()
	svc := NewCheckoutService(store, NopPublisher{}, testLogger())

	_, err := svc.PlaceOrder(context.Background(), uuid.New(), PlaceOrderParams{
		DeliveryAddress: "4 Gandhi Street, Chennai 600001",
		PaymentMethod:   "upi",
	})
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.EINVALID))
}

func TestDeliveryFee(t *testing.T) {
	assert.Equal(t, int64(DeliveryFeeCents), DeliveryFee(0))
	assert.Equal(t, int64(DeliveryFeeCents), DeliveryFee(FreeDeliveryThresholdCents-1))
	assert.Equal(t, int64(0), DeliveryFee(FreeDeliveryThresholdCents))
	assert.Equal(t, int64(0), DeliveryFee(FreeDeliveryThresholdCents+1))
}

package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
)

func TestAddItem_CapturesPriceSnapshot(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 50)

	svc := NewCartService(store, testLogger())
	summary, err := svc.AddItem(context.Background(), userID, variantID, 2)
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, int64(16000), summary.Items[0].SellingAtAddCents)
	assert.Equal(t, int64(32000), summary.SubtotalCents)
	assert.Equal(t, int64(8000), summary.SavingsCents)
	assert.Equal(t, 2, summary.ItemCount)

	// Snapshot survives a price change.
	store.variants[variantID].SellingCents = 19000
	summary, err = svc.GetSummary(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(32000), summary.SubtotalCents)
	assert.Equal(t, int64(19000), summary.Items[0].LiveSellingCents)
}

func TestAddItem_RejectsOverStock(t *testing.T) {
	store := newFakeStore()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 3)

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), uuid.New(), variantID, 4)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestAddItem_RejectsCombinedLineOverStock(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 5)

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, variantID, 3)
	require.NoError(t, err)

	// 3 already in the cart; another 3 would oversell the line.
	_, err = svc.AddItem(context.Background(), userID, variantID, 3)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	summary, err := svc.GetSummary(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, int32(3), summary.Items[0].Quantity, "line unchanged after rejection")
}

func TestUpdateItemQuantity_ZeroRemoves(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 50)

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, variantID, 2)
	require.NoError(t, err)

	summary, err := svc.UpdateItemQuantity(context.Background(), userID, variantID, 0)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)
}

func TestApplyCoupon_FreezesTerms(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Basmati Rice", "5kg bag", 70000, 60000, 10)
	live := store.addCoupon(domain.Coupon{
		Code: "SAVE100", DiscountType: domain.DiscountFlat, DiscountValue: 10000, Active: true,
	})

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, variantID, 1)
	require.NoError(t, err)

	summary, err := svc.ApplyCoupon(context.Background(), userID, "SAVE100")
	require.NoError(t, err)
	require.NotNil(t, summary.Cart.Coupon)
	assert.Equal(t, int64(10000), summary.CouponDiscount)

	// The rule changes; the frozen snapshot does not.
	live.DiscountValue = 500
	summary, err = svc.GetSummary(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), summary.CouponDiscount)
}

func TestSummary_DetachesCouponBelowMinimum(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	cheap := store.addVariant("Salt", "1kg", 3000, 2000, 50)
	pricey := store.addVariant("Ghee", "1L", 80000, 70000, 10)
	store.addCoupon(domain.Coupon{
		Code: "BIG50", DiscountType: domain.DiscountFlat, DiscountValue: 5000,
		MinCartValueCents: 50000, Active: true,
	})

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, cheap, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, pricey, 1)
	require.NoError(t, err)

	summary, err := svc.ApplyCoupon(context.Background(), userID, "BIG50")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), summary.CouponDiscount)

	// Removing the pricey item drops the cart below the minimum; the
	// coupon detaches instead of erroring.
	summary, err = svc.RemoveItem(context.Background(), userID, pricey)
	require.NoError(t, err)
	assert.Nil(t, summary.Cart.Coupon)
	assert.Equal(t, int64(0), summary.CouponDiscount)
}

func TestApplyCoupon_PerUserLimit(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Basmati Rice", "5kg bag", 70000, 60000, 10)
	live := store.addCoupon(domain.Coupon{
		Code: "ONCE", DiscountType: domain.DiscountFlat, DiscountValue: 5000,
		UsagePerUser: 1, Active: true,
	})
	store.usages = append(store.usages, domain.CouponUsage{
		ID: uuid.New(), CouponID: live.ID, UserID: userID, OrderID: uuid.New(), DiscountCents: 5000,
	})

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, variantID, 1)
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(context.Background(), userID, "ONCE")
	assert.ErrorIs(t, err, domain.ErrCouponUserLimit)
}

func TestMergeGuestLines_TruncatesToStock(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 5)

	svc := NewCartService(store, testLogger())
	_, err := svc.AddItem(context.Background(), userID, variantID, 3)
	require.NoError(t, err)

	// Guest cart wants 4 more, but only 2 fit under current stock.
	summary, err := svc.MergeGuestLines(context.Background(), userID, []domain.GuestCartLine{
		{VariantID: variantID, Quantity: 4, MRPAtAddCents: 20000, SellingAtAddCents: 16000},
	})
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, int32(5), summary.Items[0].Quantity)
}

func TestMergeGuestLines_SkipsDeletedVariants(t *testing.T) {
	store := newFakeStore()
	userID := uuid.New()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 5)

	svc := NewCartService(store, testLogger())
	summary, err := svc.MergeGuestLines(context.Background(), userID, []domain.GuestCartLine{
		{VariantID: uuid.New(), Quantity: 2, MRPAtAddCents: 100, SellingAtAddCents: 100},
		{VariantID: variantID, Quantity: 2, MRPAtAddCents: 20000, SellingAtAddCents: 16000},
	})
	require.NoError(t, err)

	require.Len(t, summary.Items, 1)
	assert.Equal(t, variantID, summary.Items[0].VariantID)
}

func TestGuestAdd_CombinesUnderCap(t *testing.T) {
	store := newFakeStore()
	variantID := store.addVariant("Toor Dal", "1kg", 20000, 16000, 200)

	svc := NewCartService(store, testLogger())
	lines, err := svc.GuestAdd(context.Background(), nil, variantID, 60)
	require.NoError(t, err)

	lines, err = svc.GuestAdd(context.Background(), lines, variantID, 60)
	require.NoError(t, err)

	require.Len(t, lines, 1)
	assert.Equal(t, int32(domain.MaxItemQuantity), lines[0].Quantity)
}

func TestGuestSummarize_CleansLines(t *testing.T) {
	store := newFakeStore()
	deleted := uuid.New()
	low := store.addVariant("Salt", "1kg", 3000, 2000, 1)

	svc := NewCartService(store, testLogger())
	summary, err := svc.GuestSummarize(context.Background(), []domain.GuestCartLine{
		{VariantID: deleted, Quantity: 2, MRPAtAddCents: 100, SellingAtAddCents: 100},
		{VariantID: low, Quantity: 3, MRPAtAddCents: 3000, SellingAtAddCents: 2000},
	}, nil)
	require.NoError(t, err)

	require.Len(t, summary.Lines, 1, "deleted variant dropped")
	assert.Equal(t, int32(1), summary.Lines[0].Quantity, "clamped to stock")
	assert.Equal(t, int64(2000), summary.SubtotalCents)
}

func TestGuestSummarize_DropsInapplicableCoupon(t *testing.T) {
	store := newFakeStore()
	variantID := store.addVariant("Salt", "1kg", 3000, 2000, 50)

	snap := &domain.CouponSnapshot{
		CouponID: uuid.New(), Code: "BIG50", DiscountType: domain.DiscountFlat,
		DiscountValue: 5000, MinCartValueCents: 50000,
	}
	svc := NewCartService(store, testLogger())
	summary, err := svc.GuestSummarize(context.Background(), []domain.GuestCartLine{
		{VariantID: variantID, Quantity: 1, MRPAtAddCents: 3000, SellingAtAddCents: 2000},
	}, snap)
	require.NoError(t, err)

	assert.Nil(t, summary.Coupon)
	assert.Equal(t, int64(0), summary.CouponDiscount)
}

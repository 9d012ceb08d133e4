package email

import (
	"fmt"
	"strings"

	"github.com/verdantmarket/verdant/internal/domain"
)

// Money formats cents as rupees for email bodies.
func Money(cents int64) string {
	return fmt.Sprintf("₹%d.%02d", cents/100, cents%100)
}

// OrderConfirmation builds the order confirmation email for a new order.
func OrderConfirmation(to string, detail domain.OrderDetail) *Email {
	o := detail.Order

	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order!\n\n")
	fmt.Fprintf(&b, "Order %s\n\n", o.OrderNumber)
	for _, item := range detail.Items {
		fmt.Fprintf(&b, "  %s %s x%d - %s\n",
			item.GroceryName, item.VariantName, item.Quantity,
			Money(item.SellingCents*int64(item.Quantity)))
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", Money(o.SubtotalCents))
	if o.SavingsCents > 0 {
		fmt.Fprintf(&b, "You saved: %s\n", Money(o.SavingsCents))
	}
	if o.CouponDiscountCents > 0 && o.Coupon != nil {
		fmt.Fprintf(&b, "Coupon %s: -%s\n", o.Coupon.Code, Money(o.CouponDiscountCents))
	}
	if o.DeliveryFeeCents > 0 {
		fmt.Fprintf(&b, "Delivery fee: %s\n", Money(o.DeliveryFeeCents))
	} else {
		fmt.Fprintf(&b, "Delivery: free\n")
	}
	fmt.Fprintf(&b, "Total: %s\n\n", Money(o.FinalTotalCents))
	if o.PaymentMethod == domain.PaymentMethodCOD {
		fmt.Fprintf(&b, "Payment: cash on delivery\n")
	} else {
		fmt.Fprintf(&b, "Payment: paid online\n")
	}
	fmt.Fprintf(&b, "Delivering to: %s\n", o.DeliveryAddress)

	return &Email{
		To:       []string{to},
		Subject:  "Order Confirmation - " + o.OrderNumber,
		TextBody: b.String(),
	}
}

// OrderCancelled builds the cancellation notice email.
func OrderCancelled(to string, order domain.Order) *Email {
	var b strings.Builder
	fmt.Fprintf(&b, "Your order %s has been cancelled.\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "The items have been returned to your cart at the prices you saw.\n")
	if order.CancelledAt != nil {
		fmt.Fprintf(&b, "Cancelled at: %s\n", order.CancelledAt.Format("2 Jan 2006 15:04 MST"))
	}

	return &Email{
		To:       []string{to},
		Subject:  "Order Cancelled - " + order.OrderNumber,
		TextBody: b.String(),
	}
}

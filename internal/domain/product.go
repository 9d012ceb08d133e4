package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product-related domain errors.
var (
	ErrVariantNotFound   = &Error{Code: ENOTFOUND, Message: "Product variant not found"}
	ErrInsufficientStock = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
)

// Grocery is a catalog product. Shoppers never buy a Grocery directly;
// they buy one of its variants.
type Grocery struct {
	ID        uuid.UUID
	Name      string
	Category  string
	CreatedAt time.Time
}

// Variant is a purchasable SKU under a Grocery (e.g. the "1kg" pack).
// CountInStock is the only mutable field the order core touches.
type Variant struct {
	ID           uuid.UUID
	GroceryID    uuid.UUID
	GroceryName  string
	Name         string
	Unit         string
	MRPCents     int64
	SellingCents int64
	CountInStock int32
	UpdatedAt    time.Time
}

// StockDecrement is one line of a bulk stock adjustment.
type StockDecrement struct {
	VariantID uuid.UUID
	Quantity  int32
}

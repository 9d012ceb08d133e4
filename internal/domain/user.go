package domain

import (
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user id has no row.
var ErrUserNotFound = &Error{Code: ENOTFOUND, Message: "User not found"}

// User is the minimal identity anchor carts and orders hang off. Full
// account management lives in the identity service upstream.
type User struct {
	ID        uuid.UUID
	Email     string
	Name      string
	CreatedAt time.Time
}

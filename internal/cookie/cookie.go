// Package cookie holds the guest cart cookie codec and cookie helpers.
// Guest carts live entirely client-side in an HMAC-signed cookie; the
// server never stores them, it only verifies and re-validates the contents
// against the live catalog when they are read or merged.
package cookie

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/verdantmarket/verdant/internal/domain"
)

// GuestCartCookieName is the cookie carrying the signed guest cart.
const GuestCartCookieName = "verdant_guest_cart"

// GuestCouponCookieName carries the guest cart's frozen coupon snapshot.
const GuestCouponCookieName = "verdant_guest_coupon"

// MaxGuestCartLines bounds the payload so the cookie stays under the 4KB
// browser limit.
const MaxGuestCartLines = 50

// guestCartMaxAge keeps the guest cart for 30 days.
const guestCartMaxAge = 30 * 24 * 60 * 60

var (
	// ErrMalformed is returned when the cookie value is not payload.signature.
	ErrMalformed = errors.New("cookie: malformed guest cart value")

	// ErrBadSignature is returned when the HMAC does not match the payload.
	// A tampered cookie is treated as an empty cart, never an error page.
	ErrBadSignature = errors.New("cookie: guest cart signature mismatch")

	// ErrTooManyLines is returned when encoding would exceed MaxGuestCartLines.
	ErrTooManyLines = errors.New("cookie: guest cart line limit exceeded")
)

// Codec signs and verifies guest cart cookie values. The value format is
// base64url(json-lines) + "." + base64url(hmac-sha256).
type Codec struct {
	secret []byte
}

// NewCodec creates a guest cart codec keyed with the given secret.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("cookie: signing secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Encode serializes and signs guest cart lines into a cookie value.
func (c *Codec) Encode(lines []domain.GuestCartLine) (string, error) {
	if len(lines) > MaxGuestCartLines {
		return "", ErrTooManyLines
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return "", fmt.Errorf("cookie: encode guest cart: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// Decode verifies and deserializes a cookie value. The caller still must
// re-validate the lines against the live catalog; the signature only proves
// the cookie is ours, not that its prices or stock are current.
func (c *Codec) Decode(value string) ([]domain.GuestCartLine, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return nil, ErrBadSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformed
	}
	var lines []domain.GuestCartLine
	if err := json.Unmarshal(payload, &lines); err != nil {
		return nil, ErrMalformed
	}
	return lines, nil
}

// EncodeCoupon serializes and signs a coupon snapshot for the guest coupon
// cookie.
func (c *Codec) EncodeCoupon(snap domain.CouponSnapshot) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("cookie: encode guest coupon: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + c.sign(encoded), nil
}

// DecodeCoupon verifies and deserializes a guest coupon cookie value.
func (c *Codec) DecodeCoupon(value string) (*domain.CouponSnapshot, error) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(c.sign(encoded)), []byte(sig)) {
		return nil, ErrBadSignature
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrMalformed
	}
	var snap domain.CouponSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, ErrMalformed
	}
	return &snap, nil
}

func (c *Codec) sign(encoded string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Config holds cookie attributes shared by all cookies we set.
type Config struct {
	// Secure requires HTTPS. True in production, false in development.
	Secure bool
}

// SetGuestCart writes the signed guest cart cookie.
func (cfg *Config) SetGuestCart(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCartCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   guestCartMaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetGuestCoupon writes the signed guest coupon cookie.
func (cfg *Config) SetGuestCoupon(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCouponCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   guestCartMaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearGuestCoupon removes the guest coupon cookie.
func (cfg *Config) ClearGuestCoupon(w http.ResponseWriter) {
	cfg.clear(w, GuestCouponCookieName)
}

// ClearGuestCart removes the guest cart cookie, used after a login merge.
func (cfg *Config) ClearGuestCart(w http.ResponseWriter) {
	cfg.clear(w, GuestCartCookieName)
}

func (cfg *Config) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Get retrieves a cookie value from the request. Returns empty string if
// the cookie is not present.
func Get(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

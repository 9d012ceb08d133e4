package cookie

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantmarket/verdant/internal/domain"
)

func TestCodecRoundTrip(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	lines := []domain.GuestCartLine{
		{VariantID: uuid.New(), Quantity: 2, MRPAtAddCents: 6000, SellingAtAddCents: 5500},
		{VariantID: uuid.New(), Quantity: 1, MRPAtAddCents: 12000, SellingAtAddCents: 12000},
	}

	value, err := codec.Encode(lines)
	require.NoError(t, err)

	decoded, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Equal(t, lines, decoded)
}

func TestCodecEmptyCart(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	value, err := codec.Encode(nil)
	require.NoError(t, err)

	decoded, err := codec.Decode(value)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestCodecRejectsTamperedPayload(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	value, err := codec.Encode([]domain.GuestCartLine{
		{VariantID: uuid.New(), Quantity: 1, MRPAtAddCents: 100, SellingAtAddCents: 90},
	})
	require.NoError(t, err)

	// Flip a character in the payload half, keep the signature.
	payload, sig, _ := strings.Cut(value, ".")
	tampered := payload[:len(payload)-1] + "A" + "." + sig
	if tampered == value {
		tampered = payload[:len(payload)-1] + "B" + "." + sig
	}

	_, err = codec.Decode(tampered)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodecRejectsWrongSecret(t *testing.T) {
	codec, err := NewCodec("secret-one")
	require.NoError(t, err)
	other, err := NewCodec("secret-two")
	require.NoError(t, err)

	value, err := codec.Encode([]domain.GuestCartLine{
		{VariantID: uuid.New(), Quantity: 1, MRPAtAddCents: 100, SellingAtAddCents: 90},
	})
	require.NoError(t, err)

	_, err = other.Decode(value)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestCodecRejectsMalformedValue(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	for _, value := range []string{"", "no-dot-here", "!!!.???"} {
		_, err := codec.Decode(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestCodecLineLimit(t *testing.T) {
	codec, err := NewCodec("test-secret")
	require.NoError(t, err)

	lines := make([]domain.GuestCartLine, MaxGuestCartLines+1)
	for i := range lines {
		lines[i] = domain.GuestCartLine{VariantID: uuid.New(), Quantity: 1}
	}

	_, err = codec.Encode(lines)
	assert.ErrorIs(t, err, ErrTooManyLines)
}

func TestNewCodecRequiresSecret(t *testing.T) {
	_, err := NewCodec("")
	assert.Error(t, err)
}

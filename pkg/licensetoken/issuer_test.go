package licensetoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters_Claims_Defaults(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC)

	claims, err := Parameters{ProductName: " Widget "}.Claims(now)
	require.NoError(t, err)

	assert.Equal(t, "Widget", claims.Product)
	assert.Equal(t, uuid.Nil.String(), claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.Equal(t, []string{DefaultIssuer}, claims.Audience)
	assert.Empty(t, claims.Edition)
	assert.Empty(t, claims.Client)
	assert.Nil(t, claims.GracePeriodDays)

	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)

	require.NotNil(t, claims.IssuedAt)
	assert.Equal(t, now.Unix(), *claims.IssuedAt)
	assert.Equal(t, now.Unix(), *claims.NotBefore)
	assert.Equal(t, now.AddDate(1, 0, 0).Unix(), *claims.ExpiresAt)
}

func TestParameters_Claims_Explicit(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC)
	start := now.AddDate(0, 1, 0)
	end := start.AddDate(0, 6, 0)

	claims, err := Parameters{
		ProductName:     "Widget",
		SubscriptionID:  "sub-42",
		ClientID:        "client-7",
		Edition:         "Enterprise",
		Issuer:          "Acme",
		Audience:        "Acme Customers",
		StartDate:       start,
		ExpirationDate:  end,
		GracePeriodDays: GraceDays(14),
	}.Claims(now)
	require.NoError(t, err)

	assert.Equal(t, "sub-42", claims.Subject)
	assert.Equal(t, "client-7", claims.Client)
	assert.Equal(t, "Enterprise", claims.Edition)
	assert.Equal(t, "Acme", claims.Issuer)
	assert.Equal(t, []string{"Acme Customers"}, claims.Audience)
	assert.Equal(t, start.Unix(), *claims.NotBefore)
	assert.Equal(t, end.Unix(), *claims.ExpiresAt)
	assert.Equal(t, int64(14), *claims.GracePeriodDays)
}

func TestParameters_Claims_Errors(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		params Parameters
	}{
		{name: "missing product", params: Parameters{}},
		{name: "blank product", params: Parameters{ProductName: "  "}},
		{name: "negative grace", params: Parameters{ProductName: "Widget", GracePeriodDays: GraceDays(-1)}},
		{name: "expiration before start", params: Parameters{ProductName: "Widget", StartDate: now, ExpirationDate: now.Add(-time.Hour)}},
		{name: "expiration equals start", params: Parameters{ProductName: "Widget", StartDate: now, ExpirationDate: now}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.params.Claims(now)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestIssue_ValidatesAgainstPublicKey(t *testing.T) {
	kp, _ := testKeys(t)

	token, err := Issue(Parameters{ProductName: "Widget", GracePeriodDays: GraceDays(3)}, kp.privatePEM)
	require.NoError(t, err)

	v := NewValidator()
	assert.Equal(t, Valid, v.ValidateOne(kp.publicPEM, "Widget", token))
	assert.Equal(t, Invalid, v.ValidateOne(kp.publicPEM, "Gadget", token))

	decoded, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), *decoded.Claims.GracePeriodDays)
}

func TestIssue_Errors(t *testing.T) {
	kp, _ := testKeys(t)

	_, err := Issue(Parameters{ProductName: "Widget"}, "not a key")
	assert.ErrorIs(t, err, ErrKeyFormat)

	_, err = Issue(Parameters{ProductName: "Widget"}, kp.publicPEM)
	assert.ErrorIs(t, err, ErrKeyFormat)

	_, err = Issue(Parameters{}, kp.privatePEM)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestCreateToken(t *testing.T) {
	kp, _ := testKeys(t)
	claims := validClaims("Widget", time.Now())

	token, err := CreateToken(claims, kp.privatePEM)
	require.NoError(t, err)
	assert.Equal(t, mustEncode(t, claims, kp.private), token)
}

func TestKeyCache_CreateToken(t *testing.T) {
	kp, _ := testKeys(t)
	cache := NewKeyCache()
	claims := validClaims("Widget", time.Now())

	first, err := cache.CreateToken(claims, kp.privatePEM)
	require.NoError(t, err)
	second, err := cache.CreateToken(claims, kp.privatePEM)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, mustEncode(t, claims, kp.private), first)
	assert.Equal(t, 1, cache.Len())

	_, err = cache.CreateToken(claims, kp.publicPEM)
	assert.ErrorIs(t, err, ErrKeyFormat)
	assert.Equal(t, 1, cache.Len())
}

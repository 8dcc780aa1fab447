package licensetoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tokens must interoperate with a standard JWT implementation in both directions.

func TestInterop_ForeignTokenValidates(t *testing.T) {
	kp, _ := testKeys(t)
	now := time.Now()

	foreign := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":               "subscription-9",
		"product":           "Widget",
		"iss":               "Acme",
		"aud":               []string{"Acme"},
		"nbf":               now.Add(-time.Hour).Unix(),
		"exp":               now.Add(24 * time.Hour).Unix(),
		"grace_period_days": 3,
	})
	token, err := foreign.SignedString(kp.private)
	require.NoError(t, err)

	v := NewValidator()
	outcome := v.Check(kp.publicPEM, "widget", token)
	assert.Equal(t, Valid, outcome.Result)
	require.NotNil(t, outcome.Claims)
	assert.Equal(t, "subscription-9", outcome.Claims.Subject)
	assert.Equal(t, []string{"Acme"}, outcome.Claims.Audience)
	assert.Equal(t, int64(3), *outcome.Claims.GracePeriodDays)
}

func TestInterop_ForeignHS256Rejected(t *testing.T) {
	kp, _ := testKeys(t)
	now := time.Now()

	// HMAC keyed with the public key bytes, the classic algorithm confusion attack.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"product": "Widget",
		"nbf":     now.Add(-time.Hour).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
	})
	token, err := foreign.SignedString([]byte(kp.publicPEM))
	require.NoError(t, err)

	assert.Equal(t, Invalid, NewValidator().ValidateOne(kp.publicPEM, "Widget", token))
}

func TestInterop_OwnTokenParsesWithJWTLibrary(t *testing.T) {
	kp, _ := testKeys(t)
	now := time.Now()

	claims := validClaims("Widget", now)
	claims.Issuer = "Acme"
	claims.GracePeriodDays = GraceDays(10)
	token := mustEncode(t, claims, kp.private)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return &kp.private.PublicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "Widget", mapClaims["product"])
	assert.Equal(t, "Acme", mapClaims["iss"])
	assert.EqualValues(t, 10, mapClaims["grace_period_days"])

	exp, err := mapClaims.GetExpirationTime()
	require.NoError(t, err)
	assert.Equal(t, *claims.ExpiresAt, exp.Unix())
}

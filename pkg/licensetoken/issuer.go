package licensetoken

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultIssuer is used for both iss and aud when Parameters leaves them empty.
const DefaultIssuer = "license-seal"

// CreateToken signs claims with the private key in privateKeyPEM. Key
// problems are returned as errors wrapping ErrKeyFormat.
func CreateToken(claims Claims, privateKeyPEM string) (string, error) {
	key, err := LoadPrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}
	return Encode(claims, key)
}

// CreateToken is like the package-level CreateToken but parses each private
// key only once.
func (c *KeyCache) CreateToken(claims Claims, privateKeyPEM string) (string, error) {
	key, err := c.PrivateKey(privateKeyPEM)
	if err != nil {
		return "", err
	}
	return Encode(claims, key)
}

// Parameters describe a license to issue. Zero values get defaults in
// Claims: a nil subscription id, DefaultIssuer for issuer and audience, a
// start of now and an expiration one year after the start.
type Parameters struct {
	ProductName     string
	SubscriptionID  string
	ClientID        string
	Edition         string
	Issuer          string
	Audience        string
	StartDate       time.Time
	ExpirationDate  time.Time
	GracePeriodDays *int64
}

// Claims validates p and builds the token payload, filling defaults relative to now.
func (p Parameters) Claims(now time.Time) (Claims, error) {
	product := strings.TrimSpace(p.ProductName)
	if product == "" {
		return Claims{}, fmt.Errorf("product name is required: %w", ErrInvalidParameters)
	}
	if p.GracePeriodDays != nil && *p.GracePeriodDays < 0 {
		return Claims{}, fmt.Errorf("grace period must not be negative, got %d: %w", *p.GracePeriodDays, ErrInvalidParameters)
	}

	start := p.StartDate
	if start.IsZero() {
		start = now
	}
	expiration := p.ExpirationDate
	if expiration.IsZero() {
		expiration = start.AddDate(1, 0, 0)
	}
	if !expiration.After(start) {
		return Claims{}, fmt.Errorf("expiration %s must be after start %s: %w",
			expiration.UTC().Format(time.RFC3339), start.UTC().Format(time.RFC3339), ErrInvalidParameters)
	}

	subscription := strings.TrimSpace(p.SubscriptionID)
	if subscription == "" {
		subscription = uuid.Nil.String()
	}

	claims := Claims{
		Subject:         subscription,
		Product:         product,
		Edition:         strings.TrimSpace(p.Edition),
		Client:          strings.TrimSpace(p.ClientID),
		Issuer:          defaultString(p.Issuer, DefaultIssuer),
		Audience:        []string{defaultString(p.Audience, DefaultIssuer)},
		ID:              uuid.NewString(),
		IssuedAt:        NumericDate(now),
		NotBefore:       NumericDate(start),
		ExpiresAt:       NumericDate(expiration),
		GracePeriodDays: p.GracePeriodDays,
	}
	return claims, nil
}

// Issue builds claims from p at the current time and signs them.
func Issue(p Parameters, privateKeyPEM string) (string, error) {
	claims, err := p.Claims(time.Now())
	if err != nil {
		return "", err
	}
	return CreateToken(claims, privateKeyPEM)
}

func defaultString(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

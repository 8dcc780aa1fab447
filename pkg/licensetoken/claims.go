package licensetoken

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Claim names understood by the codec.
const (
	ClaimSubject         = "sub"
	ClaimProduct         = "product"
	ClaimEdition         = "edition"
	ClaimClient          = "client"
	ClaimIssuer          = "iss"
	ClaimAudience        = "aud"
	ClaimID              = "jti"
	ClaimIssuedAt        = "iat"
	ClaimNotBefore       = "nbf"
	ClaimExpiresAt       = "exp"
	ClaimGracePeriodDays = "grace_period_days"
)

// Claims is the payload of a license token. Timestamps are Unix seconds;
// nil pointers mean the claim is absent, which matters for NotBefore and
// ExpiresAt (both required for a token to validate).
type Claims struct {
	Subject         string
	Product         string
	Edition         string
	Client          string
	Issuer          string
	Audience        []string
	ID              string
	IssuedAt        *int64
	NotBefore       *int64
	ExpiresAt       *int64
	GracePeriodDays *int64
}

// wireClaims fixes the canonical field order of the encoded payload.
type wireClaims struct {
	Subject         string `json:"sub,omitempty"`
	Product         string `json:"product,omitempty"`
	Edition         string `json:"edition,omitempty"`
	Client          string `json:"client,omitempty"`
	Issuer          string `json:"iss,omitempty"`
	Audience        any    `json:"aud,omitempty"`
	ID              string `json:"jti,omitempty"`
	IssuedAt        *int64 `json:"iat,omitempty"`
	NotBefore       *int64 `json:"nbf,omitempty"`
	ExpiresAt       *int64 `json:"exp,omitempty"`
	GracePeriodDays *int64 `json:"grace_period_days,omitempty"`
}

// NumericDate converts t to the Unix-seconds form used by the time claims.
func NumericDate(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

// GraceDays returns a pointer suitable for Claims.GracePeriodDays.
func GraceDays(days int64) *int64 {
	return &days
}

// MarshalJSON encodes the claims in canonical order, omitting empty fields.
// A single audience is written as a plain string.
func (c Claims) MarshalJSON() ([]byte, error) {
	w := wireClaims{
		Subject:         c.Subject,
		Product:         c.Product,
		Edition:         c.Edition,
		Client:          c.Client,
		Issuer:          c.Issuer,
		ID:              c.ID,
		IssuedAt:        c.IssuedAt,
		NotBefore:       c.NotBefore,
		ExpiresAt:       c.ExpiresAt,
		GracePeriodDays: c.GracePeriodDays,
	}
	switch len(c.Audience) {
	case 0:
	case 1:
		w.Audience = c.Audience[0]
	default:
		w.Audience = c.Audience
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a payload object with the same type rules Decode applies.
func (c *Claims) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	parsed, err := claimsFromMap(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// NotBeforeTime returns NotBefore as a time, and false when it is absent.
func (c Claims) NotBeforeTime() (time.Time, bool) {
	return unixTime(c.NotBefore)
}

// ExpiresAtTime returns ExpiresAt as a time, and false when it is absent.
func (c Claims) ExpiresAtTime() (time.Time, bool) {
	return unixTime(c.ExpiresAt)
}

// GracePeriod returns the declared grace period, zero when absent.
func (c Claims) GracePeriod() time.Duration {
	if c.GracePeriodDays == nil || *c.GracePeriodDays <= 0 {
		return 0
	}
	days := *c.GracePeriodDays
	if days > int64(math.MaxInt64/int64(24*time.Hour)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(days) * 24 * time.Hour
}

func unixTime(v *int64) (time.Time, bool) {
	if v == nil {
		return time.Time{}, false
	}
	return time.Unix(*v, 0).UTC(), true
}

// decodeObject parses data as a JSON object, keeping numbers as json.Number
// so that large timestamps survive without float rounding.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("expected a JSON object")
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	return obj, nil
}

func claimsFromMap(raw map[string]any) (Claims, error) {
	var (
		c   Claims
		err error
	)

	texts := []struct {
		name string
		dst  *string
	}{
		{ClaimSubject, &c.Subject},
		{ClaimProduct, &c.Product},
		{ClaimEdition, &c.Edition},
		{ClaimClient, &c.Client},
		{ClaimIssuer, &c.Issuer},
		{ClaimID, &c.ID},
	}
	for _, s := range texts {
		if *s.dst, err = stringClaim(raw, s.name); err != nil {
			return Claims{}, err
		}
	}

	if c.Audience, err = audienceClaim(raw); err != nil {
		return Claims{}, err
	}

	numbers := []struct {
		name string
		dst  **int64
	}{
		{ClaimIssuedAt, &c.IssuedAt},
		{ClaimNotBefore, &c.NotBefore},
		{ClaimExpiresAt, &c.ExpiresAt},
		{ClaimGracePeriodDays, &c.GracePeriodDays},
	}
	for _, n := range numbers {
		if *n.dst, err = numericClaim(raw, n.name); err != nil {
			return Claims{}, err
		}
	}

	if c.GracePeriodDays != nil && *c.GracePeriodDays < 0 {
		return Claims{}, fmt.Errorf("claim %q must not be negative", ClaimGracePeriodDays)
	}

	return c, nil
}

func stringClaim(raw map[string]any, name string) (string, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("claim %q must be a string, got %T", name, v)
	}
	return s, nil
}

func audienceClaim(raw map[string]any) ([]string, error) {
	v, ok := raw[ClaimAudience]
	if !ok || v == nil {
		return nil, nil
	}
	switch aud := v.(type) {
	case string:
		return []string{aud}, nil
	case []any:
		out := make([]string, 0, len(aud))
		for _, item := range aud {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("claim %q must contain only strings, got %T", ClaimAudience, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("claim %q must be a string or an array of strings, got %T", ClaimAudience, v)
	}
}

// numericClaim reads an integer claim. Fractional values are truncated toward
// zero, as peer JWT libraries may emit float timestamps.
func numericClaim(raw map[string]any, name string) (*int64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return nil, nil
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return &i, nil
		}
		parsed, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("claim %q is not a valid number: %w", name, err)
		}
		f = parsed
	case float64:
		f = n
	default:
		return nil, fmt.Errorf("claim %q must be a number, got %T", name, v)
	}

	if math.IsNaN(f) || f >= math.MaxInt64 || f <= math.MinInt64 {
		return nil, fmt.Errorf("claim %q is out of range", name)
	}
	i := int64(f)
	return &i, nil
}

package licensetoken

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// AlgRS256 is the only signing algorithm the codec produces or accepts.
	AlgRS256 = "RS256"

	// MaxTokenLength bounds the input Decode is willing to look at.
	MaxTokenLength = 16 * 1024

	// tokenSegments is the number of dot-separated segments (header.payload.signature).
	tokenSegments = 3
)

// DecodedToken is a token split into its parts. Nothing in it has been
// verified; use Verify on SigningInput and Signature before trusting Claims.
type DecodedToken struct {
	Header       map[string]any
	Claims       Claims
	RawClaims    map[string]any
	SigningInput string
	Signature    []byte
}

// Algorithm returns the header's alg value, or "" when it is absent or not a string.
func (t *DecodedToken) Algorithm() string {
	alg, _ := t.Header["alg"].(string)
	return alg
}

// Encode serializes claims, signs them with key using RS256 and returns the
// compact token. PKCS#1 v1.5 signatures are deterministic, so identical
// inputs produce identical tokens.
func Encode(claims Claims, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("signing key cannot be nil: %w", ErrKeyFormat)
	}

	headerJSON, err := json.Marshal(struct {
		Alg string `json:"alg"`
		Typ string `json:"typ"`
	}{Alg: AlgRS256, Typ: "JWT"})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	signingInput := EncodeSegment(headerJSON) + "." + EncodeSegment(claimsJSON)

	sig, err := sign(signingInput, key)
	if err != nil {
		return "", err
	}

	return signingInput + "." + EncodeSegment(sig), nil
}

// Decode splits token into header, claims and signature without verifying
// it. Every failure wraps ErrMalformedToken. Surrounding whitespace is ignored.
func Decode(token string) (*DecodedToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", ErrMalformedToken)
	}
	if len(token) > MaxTokenLength {
		return nil, fmt.Errorf("token exceeds maximum length of %d bytes: %w", MaxTokenLength, ErrMalformedToken)
	}

	parts := strings.Split(token, ".")
	if len(parts) != tokenSegments {
		return nil, fmt.Errorf("token must have %d segments, got %d: %w", tokenSegments, len(parts), ErrMalformedToken)
	}
	for i, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("segment %d is empty: %w", i+1, ErrMalformedToken)
		}
	}

	header, err := decodeJSONSegment(parts[0])
	if err != nil {
		return nil, fmt.Errorf("header: %v: %w", err, ErrMalformedToken)
	}

	rawClaims, err := decodeJSONSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("payload: %v: %w", err, ErrMalformedToken)
	}

	claims, err := claimsFromMap(rawClaims)
	if err != nil {
		return nil, fmt.Errorf("payload: %v: %w", err, ErrMalformedToken)
	}

	sig, err := DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("signature: %v: %w", err, ErrMalformedToken)
	}

	return &DecodedToken{
		Header:       header,
		Claims:       claims,
		RawClaims:    rawClaims,
		SigningInput: parts[0] + "." + parts[1],
		Signature:    sig,
	}, nil
}

func decodeJSONSegment(segment string) (map[string]any, error) {
	data, err := DecodeSegment(segment)
	if err != nil {
		return nil, err
	}
	return decodeObject(data)
}

func sign(signingInput string, key *rsa.PrivateKey) ([]byte, error) {
	digest := sha256.Sum256([]byte(signingInput))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return sig, nil
}

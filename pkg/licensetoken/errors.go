package licensetoken

import "errors"

var (
	// ErrKeyFormat indicates PEM input that is empty, undecodable, of the wrong
	// block type or not an RSA key.
	ErrKeyFormat = errors.New("invalid key format")
	// ErrMalformedToken indicates a token string that cannot be split, decoded or parsed.
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnsupportedAlgorithm indicates a header alg other than RS256.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
	// ErrSignatureInvalid indicates the signature does not match the signing input.
	ErrSignatureInvalid = errors.New("signature verification failed")
	// ErrProductMismatch indicates a missing product claim or one for another product.
	ErrProductMismatch = errors.New("product mismatch")
	// ErrMissingTemporalClaims indicates a token without nbf or exp.
	ErrMissingTemporalClaims = errors.New("missing nbf or exp claim")
	// ErrNotYetValid indicates a token whose nbf lies beyond the allowed clock skew.
	ErrNotYetValid = errors.New("token is not yet valid")
	// ErrExpired indicates a token past its expiration (with or without grace).
	ErrExpired = errors.New("token has expired")
	// ErrInvalidParameters indicates issuance parameters that cannot produce a usable token.
	ErrInvalidParameters = errors.New("invalid license parameters")
)

package licensetoken

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
)

// CheckAlgorithm accepts only headers whose alg is exactly "RS256". It must
// pass before Verify is attempted, so "none" or HMAC headers never reach the
// RSA verifier.
func CheckAlgorithm(header map[string]any) error {
	raw, ok := header["alg"]
	if !ok {
		return fmt.Errorf("missing alg in header: %w", ErrUnsupportedAlgorithm)
	}
	alg, ok := raw.(string)
	if !ok {
		return fmt.Errorf("alg must be a string, got %T: %w", raw, ErrUnsupportedAlgorithm)
	}
	if alg != AlgRS256 {
		return fmt.Errorf("algorithm %q not allowed: %w", alg, ErrUnsupportedAlgorithm)
	}
	return nil
}

// Verify checks an RS256 signature over signingInput. It reports false for
// any mismatch or error and never panics.
func Verify(signingInput string, signature []byte, key *rsa.PublicKey) (ok bool) {
	if key == nil || key.N == nil || len(signature) == 0 {
		return false
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	digest := sha256.Sum256([]byte(signingInput))
	return rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], signature) == nil
}

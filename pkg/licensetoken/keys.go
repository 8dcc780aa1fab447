package licensetoken

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

const (
	// DefaultKeyBits is the modulus size used by GenerateKeyPair when bits is 0.
	DefaultKeyBits = 2048

	// MinKeyBits is the smallest modulus GenerateKeyPair will produce.
	MinKeyBits = 2048

	pemTypePublicKey     = "PUBLIC KEY"
	pemTypeRSAPublicKey  = "RSA PUBLIC KEY"
	pemTypePrivateKey    = "PRIVATE KEY"
	pemTypeRSAPrivateKey = "RSA PRIVATE KEY"
)

// LoadPublicKey parses an RSA public key from PEM text. SubjectPublicKeyInfo
// ("PUBLIC KEY") is the reference format; PKCS#1 ("RSA PUBLIC KEY") is
// accepted as well.
func LoadPublicKey(pemData string) (*rsa.PublicKey, error) {
	block, err := decodePEM(pemData)
	if err != nil {
		return nil, err
	}

	switch block.Type {
	case pemTypePublicKey:
		pub, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKIX public key: %v: %w", err, ErrKeyFormat)
		}
		rsaPub, ok := pub.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is %T, not RSA: %w", pub, ErrKeyFormat)
		}
		return rsaPub, nil
	case pemTypeRSAPublicKey:
		rsaPub, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS1 public key: %v: %w", err, ErrKeyFormat)
		}
		return rsaPub, nil
	case pemTypePrivateKey, pemTypeRSAPrivateKey:
		return nil, fmt.Errorf("expected a public key, got %q block: %w", block.Type, ErrKeyFormat)
	default:
		return nil, fmt.Errorf("invalid PEM block type %q: %w", block.Type, ErrKeyFormat)
	}
}

// LoadPrivateKey parses an RSA private key from PEM text. PKCS#8
// ("PRIVATE KEY") is the reference format; PKCS#1 ("RSA PRIVATE KEY") is
// accepted as well.
func LoadPrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, err := decodePEM(pemData)
	if err != nil {
		return nil, err
	}

	var key *rsa.PrivateKey
	switch block.Type {
	case pemTypePrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS8 private key: %v: %w", err, ErrKeyFormat)
		}
		rsaKey, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, not RSA: %w", parsed, ErrKeyFormat)
		}
		key = rsaKey
	case pemTypeRSAPrivateKey:
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse PKCS1 private key: %v: %w", err, ErrKeyFormat)
		}
	case pemTypePublicKey, pemTypeRSAPublicKey:
		return nil, fmt.Errorf("expected a private key, got %q block: %w", block.Type, ErrKeyFormat)
	default:
		return nil, fmt.Errorf("invalid PEM block type %q: %w", block.Type, ErrKeyFormat)
	}

	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("inconsistent RSA private key: %v: %w", err, ErrKeyFormat)
	}
	return key, nil
}

func decodePEM(pemData string) (*pem.Block, error) {
	trimmed := strings.TrimSpace(pemData)
	if trimmed == "" {
		return nil, fmt.Errorf("empty PEM input: %w", ErrKeyFormat)
	}
	block, _ := pem.Decode([]byte(trimmed))
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block: %w", ErrKeyFormat)
	}
	return block, nil
}

// GenerateKeyPair creates a new RSA key for license issuance. bits == 0 uses
// DefaultKeyBits.
func GenerateKeyPair(bits int) (*rsa.PrivateKey, error) {
	if bits == 0 {
		bits = DefaultKeyBits
	}
	if bits < MinKeyBits {
		return nil, fmt.Errorf("RSA key size must be at least %d bits, got %d", MinKeyBits, bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return key, nil
}

// MarshalPrivateKeyPEM encodes key as a PKCS#8 "PRIVATE KEY" block.
func MarshalPrivateKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemTypePrivateKey, Bytes: der})), nil
}

// MarshalPublicKeyPEM encodes key as a SubjectPublicKeyInfo "PUBLIC KEY" block.
func MarshalPublicKeyPEM(key *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der})), nil
}

// Fingerprint returns the OpenSSH-style SHA256 fingerprint of key, e.g.
// "SHA256:yN2...". It returns an empty string for keys ssh cannot represent.
func Fingerprint(key *rsa.PublicKey) string {
	if key == nil {
		return ""
	}
	sshKey, err := ssh.NewPublicKey(key)
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(sshKey)
}

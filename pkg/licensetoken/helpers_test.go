package licensetoken

import (
	"crypto/rsa"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testKeyPair struct {
	private    *rsa.PrivateKey
	privatePEM string
	publicPEM  string
}

var (
	keysOnce    sync.Once
	primaryKey  testKeyPair
	otherKey    testKeyPair
	keysFailure error
)

// testKeys returns two distinct 2048-bit key pairs shared by all tests in the package.
func testKeys(t *testing.T) (testKeyPair, testKeyPair) {
	t.Helper()
	keysOnce.Do(func() {
		primaryKey, keysFailure = newTestKeyPair()
		if keysFailure != nil {
			return
		}
		otherKey, keysFailure = newTestKeyPair()
	})
	require.NoError(t, keysFailure)
	return primaryKey, otherKey
}

func newTestKeyPair() (testKeyPair, error) {
	key, err := GenerateKeyPair(2048)
	if err != nil {
		return testKeyPair{}, err
	}
	privatePEM, err := MarshalPrivateKeyPEM(key)
	if err != nil {
		return testKeyPair{}, err
	}
	publicPEM, err := MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		return testKeyPair{}, err
	}
	return testKeyPair{private: key, privatePEM: privatePEM, publicPEM: publicPEM}, nil
}

// validClaims returns claims for product that are valid at now for a year.
func validClaims(product string, now time.Time) Claims {
	return Claims{
		Subject:   "subscription-1",
		Product:   product,
		NotBefore: NumericDate(now),
		ExpiresAt: NumericDate(now.AddDate(1, 0, 0)),
	}
}

func mustEncode(t *testing.T, claims Claims, key *rsa.PrivateKey) string {
	t.Helper()
	token, err := Encode(claims, key)
	require.NoError(t, err)
	return token
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

package license

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

var (
	keyOnce       sync.Once
	keyPrivatePEM string
	keyPublicPEM  string
	keyErr        error
)

func testKeyPEMs(t *testing.T) (privatePEM, publicPEM string) {
	t.Helper()
	keyOnce.Do(func() {
		key, err := licensetoken.GenerateKeyPair(2048)
		if err != nil {
			keyErr = err
			return
		}
		if keyPrivatePEM, keyErr = licensetoken.MarshalPrivateKeyPEM(key); keyErr != nil {
			return
		}
		keyPublicPEM, keyErr = licensetoken.MarshalPublicKeyPEM(&key.PublicKey)
	})
	require.NoError(t, keyErr)
	return keyPrivatePEM, keyPublicPEM
}

// issue signs a license for product valid from start until expires.
func issue(t *testing.T, product string, start, expires time.Time, graceDays int64) string {
	t.Helper()
	privatePEM, _ := testKeyPEMs(t)
	claims := licensetoken.Claims{
		Subject:         "subscription-1",
		Product:         product,
		Edition:         "Enterprise",
		NotBefore:       licensetoken.NumericDate(start),
		ExpiresAt:       licensetoken.NumericDate(expires),
		GracePeriodDays: licensetoken.GraceDays(graceDays),
	}
	token, err := licensetoken.CreateToken(claims, privatePEM)
	require.NoError(t, err)
	return token
}

type mapResolver map[string]string

func (m mapResolver) ResolveLicenseText(product string) (string, bool) {
	token, ok := m[product]
	return token, ok
}

package licensetoken

import (
	"crypto/rsa"
	"sync"
)

// KeyCache memoizes parsed keys by their PEM text. Entries are added on first
// successful load and never evicted; failed loads are not cached. Loading is
// a pure function of the PEM text, so concurrent loads of the same text may
// race harmlessly and the first stored key wins.
//
// A KeyCache is safe for concurrent use.
type KeyCache struct {
	mu      sync.RWMutex
	public  map[string]*rsa.PublicKey
	private map[string]*rsa.PrivateKey
}

// NewKeyCache creates an empty cache.
func NewKeyCache() *KeyCache {
	return &KeyCache{
		public:  make(map[string]*rsa.PublicKey),
		private: make(map[string]*rsa.PrivateKey),
	}
}

// PublicKey returns the cached key for pemData, parsing and storing it on first use.
func (c *KeyCache) PublicKey(pemData string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.public[pemData]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	key, err := LoadPublicKey(pemData)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.public[pemData]; ok {
		return existing, nil
	}
	c.public[pemData] = key
	return key, nil
}

// PrivateKey returns the cached key for pemData, parsing and storing it on first use.
func (c *KeyCache) PrivateKey(pemData string) (*rsa.PrivateKey, error) {
	c.mu.RLock()
	key, ok := c.private[pemData]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	key, err := LoadPrivateKey(pemData)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.private[pemData]; ok {
		return existing, nil
	}
	c.private[pemData] = key
	return key, nil
}

// Len returns the number of cached public and private keys.
func (c *KeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.public) + len(c.private)
}

// publicKeyLoader is satisfied by *KeyCache and by the uncached default.
type publicKeyLoader interface {
	PublicKey(pemData string) (*rsa.PublicKey, error)
}

type directLoader struct{}

func (directLoader) PublicKey(pemData string) (*rsa.PublicKey, error) {
	return LoadPublicKey(pemData)
}

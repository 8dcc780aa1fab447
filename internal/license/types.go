package license

import (
	"time"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// LicenseInfo describes one product's license as of the last check
//
//nolint:revive // Exported type name matches domain context
type LicenseInfo struct {
	Product       string
	Found         bool
	Result        licensetoken.Result
	Claims        *licensetoken.Claims
	Err           error
	ExpiresAt     time.Time
	TimeRemaining TimeRemaining
}

// TimeRemaining represents the remaining time until license expiration
type TimeRemaining struct {
	Years int
	Days  int
	Total time.Duration
}

// Snapshot is the outcome of checking every configured product at once.
// Result is the best result across Licenses.
type Snapshot struct {
	Result    licensetoken.Result
	Licenses  []LicenseInfo
	CheckedAt time.Time
}

// License returns the entry for product, matched case-insensitively like
// token product claims.
func (s Snapshot) License(product string) (LicenseInfo, bool) {
	for _, info := range s.Licenses {
		if licensetoken.EvaluateIdentity(licensetoken.Claims{Product: info.Product}, product) {
			return info, true
		}
	}
	return LicenseInfo{}, false
}

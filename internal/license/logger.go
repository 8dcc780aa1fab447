package license

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// expiryWarningWindow is how close to expiry a valid license starts warning.
const expiryWarningWindow = 30 * 24 * time.Hour

// LogDecision logs a policy decision at its level.
func LogDecision(logger *logrus.Entry, d Decision) {
	logger.WithField("result", d.Result.String()).Log(d.Level, d.Message)
}

// LogLicenseInfo logs license information in a user-friendly format
func LogLicenseInfo(logger *logrus.Entry, info LicenseInfo) {
	entry := logger.WithField("product", info.Product)

	if !info.Found {
		entry.Warn("No license found")
		return
	}

	if info.Result == licensetoken.Invalid || info.Claims == nil {
		if info.Err != nil {
			entry = entry.WithError(info.Err)
		}
		entry.Warn("License validation failed")
		return
	}

	claims := info.Claims
	entry.Infof("License status: %s", info.Result)
	entry.Infof("Subscription: %s", claims.Subject)

	if claims.Edition != "" {
		entry.Infof("Edition: %s", claims.Edition)
	}

	if claims.Client != "" {
		entry.Infof("Client: %s", claims.Client)
	}

	if claims.Issuer != "" {
		entry.Infof("Issued by: %s", claims.Issuer)
	}

	if info.ExpiresAt.IsZero() {
		return
	}

	entry.Infof("License expires: %s", info.ExpiresAt.Format("2006-01-02 15:04:05 MST"))

	switch info.Result {
	case licensetoken.Valid:
		if info.TimeRemaining.Total > 0 {
			entry.Infof("Time remaining: %s", formatTimeRemaining(info.TimeRemaining))
			if info.TimeRemaining.Total < expiryWarningWindow {
				entry.Warn("License expires soon! Please renew your license")
			}
		}
	case licensetoken.ExpiredWithinGracePeriod:
		entry.Warnf("License expired, grace period of %d days in effect", graceDays(claims))
	case licensetoken.ExpiredOutsideGracePeriod:
		entry.Warn("License has expired")
	}
}

// LogProducers logs the trusted producers with their key fingerprints.
func LogProducers(logger *logrus.Entry, producers []licensetoken.Producer) {
	for _, p := range producers {
		key, err := licensetoken.LoadPublicKey(p.PublicKeyPEM)
		if err != nil {
			logger.WithError(err).Errorf("Product '%s' - public key unusable", p.ProductName)
			continue
		}
		logger.Infof("Product '%s' - key %s", p.ProductName, licensetoken.Fingerprint(key))
	}
}

func graceDays(claims *licensetoken.Claims) int64 {
	if claims.GracePeriodDays == nil {
		return 0
	}
	return *claims.GracePeriodDays
}

// formatTimeRemaining formats the remaining time in a human-readable way
func formatTimeRemaining(remaining TimeRemaining) string {
	if remaining.Total <= 0 {
		return "Expired"
	}

	var parts []string

	if remaining.Years > 0 {
		if remaining.Years == 1 {
			parts = append(parts, "1 year")
		} else {
			parts = append(parts, fmt.Sprintf("%d years", remaining.Years))
		}
	}

	if remaining.Days > 0 {
		if remaining.Days == 1 {
			parts = append(parts, "1 day")
		} else {
			parts = append(parts, fmt.Sprintf("%d days", remaining.Days))
		}
	}

	if len(parts) == 0 {
		// Less than a day
		hours := int(remaining.Total.Hours())
		if hours > 0 {
			if hours == 1 {
				return "1 hour"
			}
			return fmt.Sprintf("%d hours", hours)
		}
		return "Less than 1 hour"
	}

	return strings.Join(parts, ", ")
}

// calculateTimeRemaining calculates years and days remaining until expiration
func calculateTimeRemaining(now, expires time.Time) TimeRemaining {
	if expires.IsZero() {
		return TimeRemaining{}
	}

	duration := expires.Sub(now)
	if duration <= 0 {
		return TimeRemaining{}
	}

	days := int(duration.Hours() / 24)
	years := days / 365
	remainingDays := days % 365

	return TimeRemaining{
		Years: years,
		Days:  remainingDays,
		Total: duration,
	}
}

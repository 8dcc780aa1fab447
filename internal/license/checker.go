package license

import (
	"time"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// Checker binds a validator to the producers and license lookup of one host.
type Checker struct {
	validator *licensetoken.Validator
	source    licensetoken.CandidateSource
	resolver  licensetoken.LicenseResolver
}

// NewChecker creates a Checker. CheckedAt and time remaining follow the
// validator's clock, so a licensetoken.WithClock option governs both.
func NewChecker(validator *licensetoken.Validator, source licensetoken.CandidateSource, resolver licensetoken.LicenseResolver) *Checker {
	if validator == nil {
		validator = licensetoken.NewValidator()
	}
	return &Checker{
		validator: validator,
		source:    source,
		resolver:  resolver,
	}
}

// Validate returns the best result across all producers, stopping at the
// first valid license.
func (c *Checker) Validate() licensetoken.Result {
	return c.validator.ValidateSource(c.source, c.resolver)
}

// Inspect checks every producer and reports each license individually.
// Unlike Validate it does not stop early, so every product gets a status.
func (c *Checker) Inspect() Snapshot {
	now := c.validator.Now()
	snapshot := Snapshot{Result: licensetoken.Invalid, CheckedAt: now}
	if c.source == nil {
		return snapshot
	}

	for _, p := range c.source.ResolveCandidates() {
		info := c.inspectOne(p, now)
		snapshot.Result = licensetoken.Better(snapshot.Result, info.Result)
		snapshot.Licenses = append(snapshot.Licenses, info)
	}
	return snapshot
}

func (c *Checker) inspectOne(p licensetoken.Producer, now time.Time) LicenseInfo {
	info := LicenseInfo{Product: p.ProductName, Result: licensetoken.Invalid}
	if c.resolver == nil {
		return info
	}

	token, found := c.resolver.ResolveLicenseText(p.ProductName)
	if !found {
		return info
	}
	info.Found = true

	outcome := c.validator.Check(p.PublicKeyPEM, p.ProductName, token)
	info.Result = outcome.Result
	info.Err = outcome.Err
	info.Claims = outcome.Claims

	if outcome.Claims != nil {
		if expires, ok := outcome.Claims.ExpiresAtTime(); ok {
			info.ExpiresAt = expires
			info.TimeRemaining = calculateTimeRemaining(now, expires)
		}
	}
	return info
}

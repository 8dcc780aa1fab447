package licensetoken

import (
	"math"
	"strings"
	"time"
)

// DefaultClockSkew is the tolerance applied to every validity boundary.
const DefaultClockSkew = 5 * time.Minute

const secondsPerDay = 24 * 60 * 60

// EvaluateIdentity reports whether claims name the expected product,
// ignoring case. A missing product never matches.
func EvaluateIdentity(claims Claims, expectedProduct string) bool {
	if claims.Product == "" || expectedProduct == "" {
		return false
	}
	return strings.EqualFold(claims.Product, expectedProduct)
}

// EvaluateTemporal classifies the validity window of claims at now. All
// comparisons are inclusive and skew widens every boundary:
//
//	now < nbf-skew                  Invalid
//	now <= exp+skew                 Valid
//	now <= exp+grace+skew           ExpiredWithinGracePeriod
//	otherwise                       ExpiredOutsideGracePeriod
//
// Missing nbf or exp yields Invalid.
func EvaluateTemporal(claims Claims, now time.Time, skew time.Duration) Result {
	result, _ := evaluateTemporal(claims, now, skew)
	return result
}

func evaluateTemporal(claims Claims, now time.Time, skew time.Duration) (Result, error) {
	if claims.NotBefore == nil || claims.ExpiresAt == nil {
		return Invalid, ErrMissingTemporalClaims
	}

	if skew < 0 {
		skew = -skew
	}
	skewSeconds := int64(skew / time.Second)
	nowSeconds := now.Unix()

	if nowSeconds < saturatingAdd(*claims.NotBefore, -skewSeconds) {
		return Invalid, ErrNotYetValid
	}

	if nowSeconds <= saturatingAdd(*claims.ExpiresAt, skewSeconds) {
		return Valid, nil
	}

	var graceSeconds int64
	if claims.GracePeriodDays != nil && *claims.GracePeriodDays > 0 {
		graceSeconds = saturatingMul(*claims.GracePeriodDays, secondsPerDay)
	}
	graceDeadline := saturatingAdd(*claims.ExpiresAt, graceSeconds)

	if graceSeconds > 0 && nowSeconds <= saturatingAdd(graceDeadline, skewSeconds) {
		return ExpiredWithinGracePeriod, ErrExpired
	}

	return ExpiredOutsideGracePeriod, ErrExpired
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

func saturatingMul(a, b int64) int64 {
	if a != 0 && b != 0 && a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}

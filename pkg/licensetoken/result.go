package licensetoken

import "fmt"

// Result is the graded outcome of a validation. Lower values are better and
// the ordering is used to pick the best outcome across several candidates.
type Result int

const (
	// Valid means signature, identity and validity window all check out.
	Valid Result = 1
	// ExpiredWithinGracePeriod means the token expired but the declared grace
	// period has not yet run out.
	ExpiredWithinGracePeriod Result = 10
	// ExpiredOutsideGracePeriod means the token and its grace period (if any) expired.
	ExpiredOutsideGracePeriod Result = 20
	// Invalid covers every other failure: bad signature, malformed token,
	// wrong product, missing claims or a token that is not active yet.
	Invalid Result = 100
)

var resultNames = map[Result]string{
	Valid:                     "valid",
	ExpiredWithinGracePeriod:  "expired_within_grace_period",
	ExpiredOutsideGracePeriod: "expired_outside_grace_period",
	Invalid:                   "invalid",
}

// String returns the stable snake_case name used in logs and metric labels.
func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// IsValid reports whether r is Valid.
func (r Result) IsValid() bool {
	return r == Valid
}

// Better returns the better (lower) of a and b.
func Better(a, b Result) Result {
	if b < a {
		return b
	}
	return a
}

// ParseResult is the inverse of Result.String.
func ParseResult(name string) (Result, error) {
	for r, n := range resultNames {
		if n == name {
			return r, nil
		}
	}
	return Invalid, fmt.Errorf("unknown validation result %q", name)
}

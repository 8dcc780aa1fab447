package license

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// Mode decides how a failed license check is reported.
type Mode string

const (
	// ModeWarning reports failures as warnings and lets the caller proceed.
	ModeWarning Mode = "warning"
	// ModeError reports failures as errors and fails the check.
	ModeError Mode = "error"
)

// ParseMode parses a validation mode, ignoring case and surrounding space.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWarning:
		return ModeWarning, nil
	case ModeError:
		return ModeError, nil
	default:
		return "", fmt.Errorf("invalid validation mode %q, must be '%s' or '%s'", s, ModeWarning, ModeError)
	}
}

// Decision is what the host does with a validation result.
type Decision struct {
	Result  licensetoken.Result
	Level   logrus.Level
	Message string
	Pass    bool
}

// Decide maps the best result for component to a log level, message and
// pass/fail verdict. A license in its grace period always passes with a
// warning; other failures pass only in warning mode.
func Decide(result licensetoken.Result, component string, mode Mode) Decision {
	switch result {
	case licensetoken.Valid:
		return Decision{
			Result:  result,
			Level:   logrus.InfoLevel,
			Message: fmt.Sprintf("License for %s is valid.", component),
			Pass:    true,
		}
	case licensetoken.ExpiredWithinGracePeriod:
		return Decision{
			Result:  result,
			Level:   logrus.WarnLevel,
			Message: fmt.Sprintf("License for %s has expired but is within the grace period. Please renew your license soon.", component),
			Pass:    true,
		}
	}

	var message string
	if result == licensetoken.ExpiredOutsideGracePeriod {
		message = fmt.Sprintf("License for %s has expired. Please renew your license.", component)
	} else {
		message = fmt.Sprintf("No valid license found for %s.", component)
	}

	if mode == ModeWarning {
		return Decision{Result: result, Level: logrus.WarnLevel, Message: message, Pass: true}
	}
	return Decision{Result: result, Level: logrus.ErrorLevel, Message: message, Pass: false}
}

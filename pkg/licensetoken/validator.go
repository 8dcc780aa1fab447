package licensetoken

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Producer is a (product, public key) pair a protected component trusts.
type Producer struct {
	ProductName  string
	PublicKeyPEM string
}

// Candidate is a Producer together with the license text found for it.
type Candidate struct {
	Producer
	Token string
}

// LicenseResolver supplies the raw license text for a product. A false
// second return means no license exists for it; that is not an error.
type LicenseResolver interface {
	ResolveLicenseText(productName string) (string, bool)
}

// ResolverFunc adapts a function to LicenseResolver.
type ResolverFunc func(productName string) (string, bool)

// ResolveLicenseText calls f.
func (f ResolverFunc) ResolveLicenseText(productName string) (string, bool) {
	return f(productName)
}

// CandidateSource supplies the producers to validate against, e.g. from
// configuration or metadata embedded in a protected component.
type CandidateSource interface {
	ResolveCandidates() []Producer
}

// Observer is notified once per evaluated candidate.
type Observer interface {
	ObserveValidation(productName string, result Result, elapsed time.Duration)
}

// Outcome is the detailed form of a single validation. Err explains why the
// result is not Valid and is informational only; Claims is set once the
// token decoded.
type Outcome struct {
	Result Result
	Claims *Claims
	Err    error
}

// Validator runs the decode, algorithm, signature, identity and validity
// checks. It holds no mutable state of its own and is safe for concurrent use.
type Validator struct {
	keys     publicKeyLoader
	now      func() time.Time
	skew     time.Duration
	logger   *logrus.Entry
	observer Observer
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithClockSkew overrides DefaultClockSkew.
func WithClockSkew(skew time.Duration) Option {
	return func(v *Validator) {
		v.skew = skew
	}
}

// WithKeyCache makes the Validator reuse parsed public keys across calls.
func WithKeyCache(cache *KeyCache) Option {
	return func(v *Validator) {
		if cache != nil {
			v.keys = cache
		}
	}
}

// WithLogger sets the entry rejections are logged to.
func WithLogger(logger *logrus.Entry) Option {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithObserver registers an observer, typically a metrics recorder.
func WithObserver(observer Observer) Option {
	return func(v *Validator) {
		v.observer = observer
	}
}

// NewValidator creates a Validator with DefaultClockSkew, the wall clock and
// no key cache unless overridden.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		keys:   directLoader{},
		now:    time.Now,
		skew:   DefaultClockSkew,
		logger: logrus.WithField("component", "license-validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Now returns the current time according to the validator's clock.
func (v *Validator) Now() time.Time {
	return v.now()
}

// ClockSkew returns the tolerance applied at validity boundaries.
func (v *Validator) ClockSkew() time.Duration {
	return v.skew
}

// ValidateOne validates token for a single producer. It never panics and
// never returns an error: every failure is Invalid.
func (v *Validator) ValidateOne(publicKeyPEM, productName, token string) Result {
	return v.Check(publicKeyPEM, productName, token).Result
}

// Check is ValidateOne with the rejection reason and decoded claims attached.
func (v *Validator) Check(publicKeyPEM, productName, token string) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Result: Invalid, Err: fmt.Errorf("validation panicked: %v", r)}
		}
		v.report(productName, outcome, time.Since(start))
	}()

	return v.check(publicKeyPEM, productName, token)
}

func (v *Validator) check(publicKeyPEM, productName, token string) Outcome {
	key, err := v.keys.PublicKey(publicKeyPEM)
	if err != nil {
		return Outcome{Result: Invalid, Err: err}
	}

	decoded, err := Decode(token)
	if err != nil {
		return Outcome{Result: Invalid, Err: err}
	}

	if err := CheckAlgorithm(decoded.Header); err != nil {
		return Outcome{Result: Invalid, Err: err}
	}

	if !Verify(decoded.SigningInput, decoded.Signature, key) {
		return Outcome{Result: Invalid, Err: ErrSignatureInvalid}
	}

	claims := decoded.Claims
	if !EvaluateIdentity(claims, productName) {
		return Outcome{
			Result: Invalid,
			Claims: &claims,
			Err:    fmt.Errorf("token product %q, expected %q: %w", claims.Product, productName, ErrProductMismatch),
		}
	}

	result, err := evaluateTemporal(claims, v.now(), v.skew)
	return Outcome{Result: result, Claims: &claims, Err: err}
}

func (v *Validator) report(productName string, outcome Outcome, elapsed time.Duration) {
	if v.observer != nil {
		v.observer.ObserveValidation(productName, outcome.Result, elapsed)
	}
	if outcome.Result.IsValid() {
		return
	}
	entry := v.logger.WithFields(logrus.Fields{
		"product": productName,
		"result":  outcome.Result.String(),
	})
	if outcome.Err != nil {
		entry = entry.WithError(outcome.Err)
	}
	entry.Debug("License token not accepted")
}

// ValidateCandidates evaluates candidates in order and returns the best
// result. It stops at the first Valid candidate. An empty list is Invalid.
func (v *Validator) ValidateCandidates(candidates []Candidate) Result {
	i := 0
	return v.best(func() (Candidate, bool) {
		if i >= len(candidates) {
			return Candidate{}, false
		}
		c := candidates[i]
		i++
		return c, true
	})
}

// ValidateBest resolves a license for each producer in order and validates
// it, returning the best result. Producers without a license are skipped.
// Resolution and validation stop at the first Valid candidate, so later
// producers are never resolved.
func (v *Validator) ValidateBest(producers []Producer, resolver LicenseResolver) Result {
	if resolver == nil {
		return Invalid
	}
	i := 0
	return v.best(func() (Candidate, bool) {
		for i < len(producers) {
			p := producers[i]
			i++
			token, found := resolver.ResolveLicenseText(p.ProductName)
			if !found {
				v.logger.WithField("product", p.ProductName).Debug("No license found for product")
				continue
			}
			return Candidate{Producer: p, Token: token}, true
		}
		return Candidate{}, false
	})
}

// ValidateSource is ValidateBest over the producers supplied by source.
func (v *Validator) ValidateSource(source CandidateSource, resolver LicenseResolver) Result {
	if source == nil {
		return Invalid
	}
	return v.ValidateBest(source.ResolveCandidates(), resolver)
}

func (v *Validator) best(next func() (Candidate, bool)) Result {
	best := Invalid
	for {
		c, ok := next()
		if !ok {
			return best
		}
		result := v.ValidateOne(c.PublicKeyPEM, c.ProductName, c.Token)
		if result.IsValid() {
			return Valid
		}
		best = Better(best, result)
	}
}

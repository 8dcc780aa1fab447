package config

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/guided-traffic/license-seal/internal/license"
	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// ConfigureLogging applies log_level and log_format to the standard logger
func ConfigureLogging(cfg *Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	if cfg.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Mode returns the configured validation mode
func (c *Config) Mode() (license.Mode, error) {
	return license.ParseMode(c.ValidationMode)
}

// NewChecker wires the configured products, license lookup and clock skew
// into a license checker. Extra options are applied after the configured ones.
func (c *Config) NewChecker(opts ...licensetoken.Option) (*license.Checker, error) {
	producers, err := c.Producers()
	if err != nil {
		return nil, err
	}
	if len(producers) == 0 {
		return nil, fmt.Errorf("no products configured")
	}

	validatorOpts := append([]licensetoken.Option{
		licensetoken.WithClockSkew(c.ClockSkew),
		licensetoken.WithKeyCache(licensetoken.NewKeyCache()),
	}, opts...)

	resolver := license.NewResolver(c.License.SearchPath, c.License.Extension, c.License.EnvPrefix)
	return license.NewChecker(licensetoken.NewValidator(validatorOpts...), license.StaticSource(producers), resolver), nil
}

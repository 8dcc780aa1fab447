package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

// Validation modes decide whether a missing or expired license fails the check.
const (
	ValidationModeWarning = "warning"
	ValidationModeError   = "error"
)

// ProductConfig describes one trusted producer: a product name and the RSA
// public key its licenses are signed for.
type ProductConfig struct {
	Name          string `mapstructure:"name"`
	PublicKey     string `mapstructure:"public_key"`      // Inline PEM
	PublicKeyFile string `mapstructure:"public_key_file"` // Path to a PEM file
}

// LicenseConfig controls where license texts are looked up
type LicenseConfig struct {
	SearchPath string `mapstructure:"search_path"` // Directory the upward search starts from
	Extension  string `mapstructure:"extension"`   // File extension appended to the product name
	EnvPrefix  string `mapstructure:"env_prefix"`  // Env var prefix, e.g. LSEAL_LICENSE_<PRODUCT>
}

// IssuerConfig holds defaults for issuing new licenses
type IssuerConfig struct {
	PrivateKeyFile  string `mapstructure:"private_key_file"`
	Issuer          string `mapstructure:"issuer"`
	Audience        string `mapstructure:"audience"`
	GracePeriodDays int64  `mapstructure:"grace_period_days"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled       bool          `mapstructure:"enabled"`        // Enable/disable monitoring
	BindAddress   string        `mapstructure:"bind_address"`   // Address to bind monitoring server (default: :9090)
	MetricsPath   string        `mapstructure:"metrics_path"`   // Path for metrics endpoint (default: /metrics)
	CheckInterval time.Duration `mapstructure:"check_interval"` // Revalidation interval of the runtime monitor
}

// Config holds the application configuration
type Config struct {
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"` // "text" (default) or "json"
	ClockSkew      time.Duration `mapstructure:"clock_skew"`
	ValidationMode string        `mapstructure:"validation_mode"` // "warning" or "error" (default)

	License    LicenseConfig    `mapstructure:"license"`
	Products   []ProductConfig  `mapstructure:"products"`
	Issuer     IssuerConfig     `mapstructure:"issuer"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// InitConfig initializes the configuration system
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in home directory with name ".license-seal" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".license-seal")
	}

	// Environment variable configuration, e.g. LSEAL_MONITORING_ENABLED
	viper.SetEnvPrefix("LSEAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// Load loads the configuration from viper
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Products are read manually so both YAML lists and programmatic slices work
	if err := loadProductConfigs(&cfg); err != nil {
		return nil, fmt.Errorf("product config loading failed: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("clock_skew", licensetoken.DefaultClockSkew)
	viper.SetDefault("validation_mode", ValidationModeError)

	// License lookup defaults
	viper.SetDefault("license.search_path", ".")
	viper.SetDefault("license.extension", ".lic")
	viper.SetDefault("license.env_prefix", "LSEAL_LICENSE_")

	// Issuer defaults
	viper.SetDefault("issuer.issuer", licensetoken.DefaultIssuer)
	viper.SetDefault("issuer.audience", licensetoken.DefaultIssuer)
	viper.SetDefault("issuer.grace_period_days", 0)

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", false)
	viper.SetDefault("monitoring.bind_address", ":9090")
	viper.SetDefault("monitoring.metrics_path", "/metrics")
	viper.SetDefault("monitoring.check_interval", time.Hour)
}

// validate validates the configuration
func validate(cfg *Config) error {
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	switch cfg.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q, must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.ValidationMode {
	case ValidationModeWarning, ValidationModeError:
	default:
		return fmt.Errorf("invalid validation_mode %q, must be '%s' or '%s'", cfg.ValidationMode, ValidationModeWarning, ValidationModeError)
	}

	if cfg.ClockSkew < 0 {
		return fmt.Errorf("clock_skew must not be negative, got %s", cfg.ClockSkew)
	}

	if cfg.Issuer.GracePeriodDays < 0 {
		return fmt.Errorf("issuer.grace_period_days must not be negative, got %d", cfg.Issuer.GracePeriodDays)
	}

	if err := validateProducts(cfg.Products); err != nil {
		return err
	}

	if cfg.Monitoring.Enabled {
		if cfg.Monitoring.BindAddress == "" {
			return fmt.Errorf("monitoring.bind_address is required when monitoring is enabled")
		}
		if !strings.HasPrefix(cfg.Monitoring.MetricsPath, "/") {
			return fmt.Errorf("monitoring.metrics_path must start with '/', got %q", cfg.Monitoring.MetricsPath)
		}
		if cfg.Monitoring.CheckInterval < time.Second {
			return fmt.Errorf("monitoring.check_interval must be at least 1s, got %s", cfg.Monitoring.CheckInterval)
		}
	}

	return nil
}

// validateProducts checks product names are set and unique and that each
// product has exactly one key source.
func validateProducts(products []ProductConfig) error {
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("products[%d].name is required", i)
		}

		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("duplicate product name: %s", name)
		}
		seen[key] = true

		hasInline := strings.TrimSpace(p.PublicKey) != ""
		hasFile := strings.TrimSpace(p.PublicKeyFile) != ""
		if hasInline == hasFile {
			return fmt.Errorf("product '%s' must set exactly one of public_key or public_key_file", name)
		}
	}
	return nil
}

// loadProductConfigs loads product configurations directly from viper
func loadProductConfigs(cfg *Config) error {
	productsData := viper.Get("products")
	if productsData == nil {
		return nil
	}

	cfg.Products = nil

	switch products := productsData.(type) {
	case []interface{}:
		for i, item := range products {
			productMap, ok := item.(map[string]interface{})
			if !ok {
				return fmt.Errorf("product %d is not a map", i)
			}
			cfg.Products = append(cfg.Products, productFromMap(productMap))
		}
	case []map[string]interface{}:
		for _, productMap := range products {
			cfg.Products = append(cfg.Products, productFromMap(productMap))
		}
	case []ProductConfig:
		cfg.Products = append(cfg.Products, products...)
	default:
		return fmt.Errorf("products data is not a recognized format: %T", productsData)
	}

	return nil
}

func productFromMap(m map[string]interface{}) ProductConfig {
	str := func(key string) string {
		if v, ok := m[key].(string); ok {
			return v
		}
		return ""
	}
	return ProductConfig{
		Name:          str("name"),
		PublicKey:     str("public_key"),
		PublicKeyFile: str("public_key_file"),
	}
}

// Producers resolves the configured products into producers, reading key files as needed.
func (c *Config) Producers() ([]licensetoken.Producer, error) {
	producers := make([]licensetoken.Producer, 0, len(c.Products))
	for _, p := range c.Products {
		keyPEM := p.PublicKey
		if keyPEM == "" && p.PublicKeyFile != "" {
			// #nosec G304 - key file path comes from the operator's configuration
			data, err := os.ReadFile(p.PublicKeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read public key for product '%s': %w", p.Name, err)
			}
			keyPEM = string(data)
		}
		producers = append(producers, licensetoken.Producer{
			ProductName:  strings.TrimSpace(p.Name),
			PublicKeyPEM: strings.TrimSpace(keyPEM),
		})
	}
	return producers, nil
}

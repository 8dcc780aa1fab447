package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guided-traffic/license-seal/internal/config"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// errPolicyFailed is returned when validation fails in error mode; the
// decision itself has already been logged.
var errPolicyFailed = errors.New("license validation failed")

func newRootCmd() *cobra.Command {
	var (
		cfgFile  string
		logLevel string
	)

	root := &cobra.Command{
		Use:   "license-tool",
		Short: "Create, inspect and validate signed license tokens",
		Long: `license-tool manages RS256-signed license tokens.

A producer generates an RSA key pair once, keeps the private key secret and
ships the public key with the protected component. Licenses are issued per
product and validated offline against the public key, with a configurable
clock skew and an optional grace period after expiry.

Products, license lookup and issuer defaults are read from a YAML config file
(--config, or .license-seal.yaml in $HOME, . or ./config) and LSEAL_* environment
variables.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitConfig(cfgFile)
			if logLevel != "" {
				viper.Set("log_level", logLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newKeygenCmd(),
		newIssueCmd(),
		newInspectCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "license-tool %s (commit %s, built %s)\n", version, commit, buildTime)
		},
	}
}

// loadConfig loads and validates the configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.ConfigureLogging(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errPolicyFailed) {
			logrus.WithError(err).Error("Command failed")
		}
		os.Exit(1)
	}
}

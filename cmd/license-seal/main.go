package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/guided-traffic/license-seal/internal/config"
	"github.com/guided-traffic/license-seal/internal/license"
	"github.com/guided-traffic/license-seal/internal/monitoring"
	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

var (
	// Build information injected at build time
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "license-seal",
		Short: "license-seal validates product licenses and keeps watching them",
		Long: `license-seal checks the licenses of the configured products at startup and
then revalidates them on an interval, logging status changes and licenses that
are about to expire.

Startup fails when no acceptable license is found and validation_mode is
'error'. A license within its grace period is accepted with a warning.

When monitoring is enabled, Prometheus metrics, a health check and a JSON
license status are served on the monitoring bind address.

All configuration is done through YAML configuration files. Use --config to specify
a configuration file, or license-seal will look for configuration in standard locations.`,
		Run: runDaemon,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to configuration file (YAML format)")
}

func initConfig() {
	config.InitConfig(cfgFile)
}

// errPolicyFailed is returned by run when the startup check fails in error mode.
var errPolicyFailed = errors.New("license validation failed")

func runDaemon(cmd *cobra.Command, args []string) {
	// Display build information at startup
	logrus.WithFields(logrus.Fields{
		"version":   version,
		"commit":    commit,
		"buildTime": buildTime,
	}).Info("license-seal build information")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := config.ConfigureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logrus.Info("Received shutdown signal, gracefully shutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, cfg); err != nil {
		if !errors.Is(err, errPolicyFailed) {
			logrus.WithError(err).Error("license-seal failed")
		}
		cancel()
		os.Exit(1)
	}

	logrus.Info("license-seal stopped")
}

// run checks the licenses once, then monitors them and serves the monitoring
// endpoints until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	mode, err := cfg.Mode()
	if err != nil {
		return fmt.Errorf("invalid validation mode: %w", err)
	}

	producers, err := cfg.Producers()
	if err != nil {
		return fmt.Errorf("failed to load product keys: %w", err)
	}
	logger := logrus.WithField("component", "license-seal")
	license.LogProducers(logger, producers)

	recorder := monitoring.NewRecorder()
	monitoring.SetBuildInfo(version, commit, buildTime)

	checker, err := cfg.NewChecker(licensetoken.WithObserver(recorder))
	if err != nil {
		return fmt.Errorf("failed to set up license validation: %w", err)
	}

	component := make([]string, 0, len(producers))
	for _, p := range producers {
		component = append(component, p.ProductName)
	}
	decision := license.Decide(checker.Validate(), strings.Join(component, ", "), mode)
	license.LogDecision(logger, decision)
	if !decision.Pass {
		return errPolicyFailed
	}

	monitor := license.NewMonitor(checker, cfg.Monitoring.CheckInterval, recorder)

	// A failing monitoring server stops the monitor as well.
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		wg        sync.WaitGroup
		serverErr error
	)

	if cfg.Monitoring.Enabled {
		server := monitoring.NewServer(&monitoring.Config{
			BindAddress: cfg.Monitoring.BindAddress,
			MetricsPath: cfg.Monitoring.MetricsPath,
			Version:     version,
		}, monitor)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if serverErr = server.Start(runCtx); serverErr != nil {
				stop()
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(runCtx)
	}()

	wg.Wait()
	return serverErr
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

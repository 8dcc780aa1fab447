package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/guided-traffic/license-seal/internal/license"
)

func newValidateCmd() *cobra.Command {
	var (
		component string
		mode      string
		details   bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the installed licenses for the configured products",
		Long: `Look up a license for each configured product (environment variables first,
then '<product>.lic' in the search path and its parents) and validate it. The
best result across products decides: a valid license or one within its grace
period passes; anything else fails in error mode and warns in warning mode.

Exits with status 1 when the check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			validationMode, err := cfg.Mode()
			if mode != "" {
				validationMode, err = license.ParseMode(mode)
			}
			if err != nil {
				return err
			}

			checker, err := cfg.NewChecker()
			if err != nil {
				return err
			}

			if component == "" {
				names := make([]string, 0, len(cfg.Products))
				for _, p := range cfg.Products {
					names = append(names, strings.TrimSpace(p.Name))
				}
				component = strings.Join(names, ", ")
			}

			logger := logrus.WithField("component", "license-tool")
			if details {
				for _, info := range checker.Inspect().Licenses {
					license.LogLicenseInfo(logger, info)
				}
			}

			decision := license.Decide(checker.Validate(), component, validationMode)
			license.LogDecision(logger, decision)
			fmt.Fprintln(cmd.OutOrStdout(), decision.Result.String())

			if !decision.Pass {
				return errPolicyFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&component, "component", "", "name used in messages (default the configured product names)")
	cmd.Flags().StringVar(&mode, "mode", "", "override validation_mode: 'warning' or 'error'")
	cmd.Flags().BoolVar(&details, "details", false, "log the status of every product's license")
	return cmd
}

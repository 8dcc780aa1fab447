package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

var durationPattern = regexp.MustCompile(`^(?:(\d+)y)?(?:(\d+)d)?$`)

type issueOptions struct {
	privateKey string
	products   []string
	subject    string
	edition    string
	client     string
	issuer     string
	audience   string
	duration   string
	start      string
	expires    string
	graceDays  int64
	out        string
}

func newIssueCmd() *cobra.Command {
	opts := &issueOptions{}

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue signed licenses for one or more products",
		Long: `Issue a license token per product, signed with the producer's private key.

The validity window starts at --start (default now) and ends after --duration
(e.g. '2y100d', '1y', '365d', default 1y) or at --expires. Issuer, audience,
private key and grace period default to the 'issuer' section of the config.

Tokens are printed one per line. With several products, --out names a directory
and each token is written to '<product><extension>' in it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIssue(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.privateKey, "private-key", "", "path to the PEM private key (default issuer.private_key_file)")
	f.StringSliceVar(&opts.products, "product", nil, "product name the license is for, repeatable (required)")
	f.StringVar(&opts.subject, "subject", "", "subscription id (default nil UUID)")
	f.StringVar(&opts.edition, "edition", "", "product edition")
	f.StringVar(&opts.client, "client", "", "client id")
	f.StringVar(&opts.issuer, "issuer", "", "issuer claim (default issuer.issuer)")
	f.StringVar(&opts.audience, "audience", "", "audience claim (default issuer.audience)")
	f.StringVar(&opts.duration, "duration", "1y", "license duration, e.g. '2y100d', '1y', '365d'")
	f.StringVar(&opts.start, "start", "", "start of validity, RFC3339 or YYYY-MM-DD (default now)")
	f.StringVar(&opts.expires, "expires", "", "end of validity, RFC3339 or YYYY-MM-DD (overrides --duration)")
	f.Int64Var(&opts.graceDays, "grace-days", -1, "grace period in days after expiry (default issuer.grace_period_days)")
	f.StringVarP(&opts.out, "out", "o", "", "write the token to this file (or directory, for several products) instead of stdout")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func runIssue(cmd *cobra.Command, opts *issueOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	keyPath := opts.privateKey
	if keyPath == "" {
		keyPath = cfg.Issuer.PrivateKeyFile
	}
	if keyPath == "" {
		return fmt.Errorf("no private key given, use --private-key or issuer.private_key_file")
	}
	// #nosec G304 - key path is supplied by the operator
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key: %w", err)
	}

	now := time.Now()
	start := now
	if opts.start != "" {
		if start, err = parseDate(opts.start); err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
	}

	var expires time.Time
	if opts.expires != "" {
		if expires, err = parseDate(opts.expires); err != nil {
			return fmt.Errorf("invalid --expires: %w", err)
		}
	} else {
		duration, err := parseDuration(opts.duration)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		expires = start.Add(duration)
	}

	graceDays := opts.graceDays
	if graceDays < 0 {
		graceDays = cfg.Issuer.GracePeriodDays
	}

	keys := licensetoken.NewKeyCache()
	errOut := cmd.ErrOrStderr()
	tokens := make([]string, 0, len(opts.products))
	for _, product := range opts.products {
		params := licensetoken.Parameters{
			ProductName:    product,
			SubscriptionID: opts.subject,
			ClientID:       opts.client,
			Edition:        opts.edition,
			Issuer:         firstNonEmpty(opts.issuer, cfg.Issuer.Issuer),
			Audience:       firstNonEmpty(opts.audience, cfg.Issuer.Audience),
			StartDate:      start,
			ExpirationDate: expires,
		}
		if graceDays > 0 {
			params.GracePeriodDays = licensetoken.GraceDays(graceDays)
		}

		claims, err := params.Claims(now)
		if err != nil {
			return err
		}
		token, err := keys.CreateToken(claims, string(keyPEM))
		if err != nil {
			return err
		}

		fmt.Fprintf(errOut, "Product:     %s\n", claims.Product)
		fmt.Fprintf(errOut, "Subscription: %s\n", claims.Subject)
		fmt.Fprintf(errOut, "Valid from:  %s\n", start.UTC().Format(time.RFC3339))
		fmt.Fprintf(errOut, "Valid until: %s\n", expires.UTC().Format(time.RFC3339))
		if claims.GracePeriodDays != nil {
			fmt.Fprintf(errOut, "Grace period: %d days\n", *claims.GracePeriodDays)
		}
		fmt.Fprintf(errOut, "License ID:  %s\n", claims.ID)
		tokens = append(tokens, token)
	}

	switch {
	case opts.out == "":
		for _, token := range tokens {
			fmt.Fprintln(cmd.OutOrStdout(), token)
		}
		return nil
	case len(tokens) == 1:
		return writeLicense(errOut, opts.out, tokens[0])
	default:
		if err := os.MkdirAll(opts.out, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		for i, product := range opts.products {
			name := strings.TrimSpace(product) + cfg.License.Extension
			if filepath.Base(name) != name {
				return fmt.Errorf("product '%s' cannot be used as a file name", product)
			}
			path := filepath.Join(opts.out, name)
			if err := writeLicense(errOut, path, tokens[i]); err != nil {
				return err
			}
		}
		return nil
	}
}

func writeLicense(errOut io.Writer, path, token string) error {
	if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write license: %w", err)
	}
	fmt.Fprintf(errOut, "License written to %s\n", path)
	return nil
}

// parseDuration parses formats like "2y100d", "1y", "365d". A year is 365 days.
func parseDuration(durationStr string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(strings.TrimSpace(durationStr))
	if matches == nil {
		return 0, fmt.Errorf("invalid format, use formats like '2y100d', '1y', '365d'")
	}

	var totalDays int

	// Parse years
	if matches[1] != "" {
		years, err := strconv.Atoi(matches[1])
		if err != nil {
			return 0, err
		}
		totalDays += years * 365
	}

	// Parse days
	if matches[2] != "" {
		days, err := strconv.Atoi(matches[2])
		if err != nil {
			return 0, err
		}
		totalDays += days
	}

	if totalDays == 0 {
		return 0, fmt.Errorf("duration must be greater than 0")
	}

	return time.Duration(totalDays) * 24 * time.Hour, nil
}

// parseDate accepts RFC3339 timestamps and plain dates (midnight UTC).
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

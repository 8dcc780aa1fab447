package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

type inspectSummary struct {
	Algorithm       string `json:"algorithm"`
	SignatureBytes  int    `json:"signature_bytes"`
	NotBefore       string `json:"not_before,omitempty"`
	ExpiresAt       string `json:"expires_at,omitempty"`
	GracePeriodDays *int64 `json:"grace_period_days,omitempty"`
	Result          string `json:"result,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

type inspectOutput struct {
	Header  map[string]any `json:"header"`
	Claims  map[string]any `json:"claims"`
	Summary inspectSummary `json:"summary"`
}

func newInspectCmd() *cobra.Command {
	var (
		file      string
		publicKey string
		product   string
	)

	cmd := &cobra.Command{
		Use:   "inspect [token]",
		Short: "Decode a license token and print its contents",
		Long: `Decode a license token without trusting it and print header, claims and a
validity summary as JSON. The token is read from the argument, --file, or stdin
when neither is given or the argument is '-'.

With --public-key and --product the token is also validated and the result added
to the summary.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}

			decoded, err := licensetoken.Decode(token)
			if err != nil {
				return err
			}

			out := inspectOutput{
				Header: decoded.Header,
				Claims: decoded.RawClaims,
				Summary: inspectSummary{
					Algorithm:       decoded.Algorithm(),
					SignatureBytes:  len(decoded.Signature),
					GracePeriodDays: decoded.Claims.GracePeriodDays,
				},
			}
			if t, ok := decoded.Claims.NotBeforeTime(); ok {
				out.Summary.NotBefore = t.Format(time.RFC3339)
			}
			if t, ok := decoded.Claims.ExpiresAtTime(); ok {
				out.Summary.ExpiresAt = t.Format(time.RFC3339)
			}

			if publicKey != "" {
				if product == "" {
					return fmt.Errorf("--product is required with --public-key")
				}
				// #nosec G304 - key path is supplied by the operator
				keyPEM, err := os.ReadFile(publicKey)
				if err != nil {
					return fmt.Errorf("failed to read public key: %w", err)
				}
				outcome := licensetoken.NewValidator().Check(string(keyPEM), product, token)
				out.Summary.Result = outcome.Result.String()
				if outcome.Err != nil {
					out.Summary.Reason = outcome.Err.Error()
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "read the token from this file")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "PEM public key to validate the token against")
	cmd.Flags().StringVar(&product, "product", "", "expected product name when validating")
	return cmd
}

func readToken(stdin io.Reader, args []string, file string) (string, error) {
	var data []byte
	var err error

	switch {
	case len(args) == 1 && args[0] != "-":
		return strings.TrimSpace(args[0]), nil
	case file != "":
		// #nosec G304 - token path is supplied by the operator
		data, err = os.ReadFile(file)
	default:
		data, err = io.ReadAll(io.LimitReader(stdin, licensetoken.MaxTokenLength+1))
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

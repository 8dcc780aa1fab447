package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

func newKeygenCmd() *cobra.Command {
	var (
		outDir string
		name   string
		bits   int
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an RSA key pair for signing licenses",
		Long: `Generate an RSA key pair. The private key is written as PKCS#8 PEM with
mode 0600, the public key as SubjectPublicKeyInfo PEM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			privatePath := filepath.Join(outDir, name+"_private_key.pem")
			publicPath := filepath.Join(outDir, name+"_public_key.pem")

			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists, use --force to overwrite", p)
					}
				}
			}

			key, err := licensetoken.GenerateKeyPair(bits)
			if err != nil {
				return err
			}
			privatePEM, err := licensetoken.MarshalPrivateKeyPEM(key)
			if err != nil {
				return err
			}
			publicPEM, err := licensetoken.MarshalPublicKeyPEM(&key.PublicKey)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := os.WriteFile(privatePath, []byte(privatePEM), 0o600); err != nil {
				return fmt.Errorf("failed to write private key: %w", err)
			}
			if err := os.WriteFile(publicPath, []byte(publicPEM), 0o644); err != nil { // #nosec G306 - public key
				return fmt.Errorf("failed to write public key: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Private key: %s\n", privatePath)
			fmt.Fprintf(out, "Public key:  %s\n", publicPath)
			fmt.Fprintf(out, "Fingerprint: %s\n", licensetoken.Fingerprint(&key.PublicKey))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory to write the key files to")
	cmd.Flags().StringVar(&name, "name", "license", "file name prefix for the key files")
	cmd.Flags().IntVar(&bits, "bits", 2048, "RSA key size in bits (minimum 2048)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing key files")
	return cmd
}

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/guided-traffic/license-seal/pkg/licensetoken"
)

func main() {
	bits := flag.Int("bits", 2048, "RSA key size in bits (minimum 2048)")
	flag.Parse()

	// Generate a new RSA key pair
	key, err := licensetoken.GenerateKeyPair(*bits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
		os.Exit(1)
	}

	privatePEM, err := licensetoken.MarshalPrivateKeyPEM(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding private key: %v\n", err)
		os.Exit(1)
	}
	publicPEM, err := licensetoken.MarshalPublicKeyPEM(&key.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding public key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %d-bit RSA key pair (fingerprint %s)\n\n", key.N.BitLen(), licensetoken.Fingerprint(&key.PublicKey))
	fmt.Printf("Private key (keep secret, used to issue licenses):\n%s\n", privatePEM)
	fmt.Printf("Public key (ship with the protected component):\n%s\n", publicPEM)
	fmt.Printf("You can use the public key in your configuration:\n")
	fmt.Printf("products:\n  - name: <product>\n    public_key_file: <path to public key>\n")
}

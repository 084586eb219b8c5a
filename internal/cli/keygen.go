package cli

import (
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/information-sharing-networks/veogen/internal/credential"
)

// file naming convention - name.key.pem, name.private.jwk and name.cert.pem
const (
	pemKeyFileNameFormat  = "%s.key.pem"
	jwkKeyFileNameFormat  = "%s.private.jwk"
	certificateNameFormat = "%s.cert.pem"
)

// keygenCmd represents the keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a test signer",
	Long: `Generate a private key and a self-signed certificate that can sign VEOs.

The key is written as a PKCS#8 PEM file and as a JWK set; the certificate as a PEM file.
Either key file can be passed to build with --chain pointing at the certificate.
A self-signed certificate is only suitable for testing.

Example:
  veocreator keygen --type rsa --size 2048 --subject "Records Unit" -o ./keys`,
	RunE: runKeygen,
}

var (
	keyType     string
	keySize     int
	subject     string
	keyName     string
	keyOutput   string
	keyID       string
	validForDay int
)

func init() {
	keygenCmd.Flags().StringVar(&keyType, "type", "rsa", "Key type: rsa or ed25519")
	keygenCmd.Flags().IntVar(&keySize, "size", 2048, "RSA key size in bits")
	keygenCmd.Flags().StringVar(&subject, "subject", "VEO test signer", "Common name of the certificate subject")
	keygenCmd.Flags().StringVar(&keyName, "name", "signer", "File name prefix for the key and certificate files")
	keygenCmd.Flags().StringVarP(&keyOutput, "outputdir", "o", "", "Output directory for the generated files [required]")
	keygenCmd.Flags().StringVar(&keyID, "kid", "", "Key ID for the JWK (default: generated from the thumbprint)")
	keygenCmd.Flags().IntVar(&validForDay, "days", 365, "Certificate validity in days")
	keygenCmd.MarkFlagRequired("outputdir")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var (
		key crypto.Signer
		err error
	)
	switch keyType {
	case "rsa":
		fmt.Fprintf(out, "Generating %d-bit RSA key for: %s\n", keySize, subject)
		key, err = credential.GenerateRSAKey(keySize)
	case "ed25519":
		fmt.Fprintf(out, "Generating Ed25519 key for: %s\n", subject)
		key, err = credential.GenerateEd25519Key()
	default:
		return fmt.Errorf("invalid key type: %s (must be 'rsa' or 'ed25519')", keyType)
	}
	if err != nil {
		return err
	}
	if validForDay < 1 {
		return fmt.Errorf("invalid validity: %d days", validForDay)
	}

	// make the directory if it doesn't exist
	if err := os.MkdirAll(keyOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	kid := keyID
	if kid == "" {
		kid, err = credential.KeyID(key.Public())
		if err != nil {
			// the thumbprint is only a convenience
			kid = uuid.NewString()
		}
	}

	cert, err := credential.SelfSignedCertificate(key, pkix.Name{CommonName: subject}, time.Now(),
		time.Duration(validForDay)*24*time.Hour)
	if err != nil {
		return err
	}

	pemPath := fmt.Sprintf(pemKeyFileNameFormat, keyName)
	if err := credential.SavePrivateKeyToPEMFile(key, keyOutput, pemPath); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Fprintf(out, "✓ Private key: %s\n", pemPath)

	jwkPath := fmt.Sprintf(jwkKeyFileNameFormat, keyName)
	if err := credential.SavePrivateKeyToJWKFile(key, kid, keyOutput, jwkPath); err != nil {
		return fmt.Errorf("failed to save private JWK: %w", err)
	}
	fmt.Fprintf(out, "✓ Private JWK: %s (kid: %s)\n", jwkPath, kid)

	certPath := fmt.Sprintf(certificateNameFormat, keyName)
	if err := credential.SaveCertificatesToPEMFile([]*x509.Certificate{cert}, keyOutput, certPath); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	fmt.Fprintf(out, "✓ Certificate: %s (expires %s)\n", certPath, cert.NotAfter.Format(time.DateOnly))

	fmt.Fprintln(out, "Keep the private key files secret; they are not encrypted.")
	return nil
}

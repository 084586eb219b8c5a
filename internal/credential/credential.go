// Package credential provides the signers used to sign VEOs: a private key together
// with the X.509 certificate chain that identifies its owner.
//
// Keys can be loaded from a PKCS#12 keystore, from PEM files or from a JWK set, and
// keygen.go creates throwaway keys and self-signed certificates for testing.
package credential

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/information-sharing-networks/veogen/internal/generator"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

var _ generator.Credential = (*Credential)(nil)

// Credential is a private key and its certificate chain, leaf certificate first.
type Credential struct {
	signer crypto.Signer
	chain  []*x509.Certificate
}

// New creates a Credential. The chain may be empty; if not, the first certificate must
// hold the public half of signer.
func New(signer crypto.Signer, chain []*x509.Certificate) (*Credential, error) {
	const op = "credential.New"

	if signer == nil {
		return nil, veo.NewArgumentError(op, "signer is nil")
	}
	if len(chain) > 0 {
		if err := matchesKey(chain[0], signer.Public()); err != nil {
			return nil, veo.WrapCryptoError(err, op, "certificate does not belong to the private key")
		}
	}
	return &Credential{signer: signer, chain: chain}, nil
}

func (c *Credential) Signer() (crypto.Signer, error) {
	return c.signer, nil
}

// Algorithm names the key algorithm.
func (c *Credential) Algorithm() string {
	switch c.signer.Public().(type) {
	case *rsa.PublicKey:
		return generator.KeyAlgorithmRSA
	case ed25519.PublicKey:
		return generator.KeyAlgorithmEd25519
	case *ecdsa.PublicKey:
		return "ECDSA"
	}
	return fmt.Sprintf("%T", c.signer.Public())
}

func (c *Credential) ChainLength() int {
	return len(c.chain)
}

func (c *Credential) Certificate(i int) (*x509.Certificate, bool) {
	if i < 0 || i >= len(c.chain) {
		return nil, false
	}
	return c.chain[i], true
}

func (c *Credential) CertificateDER(i int) ([]byte, error) {
	cert, ok := c.Certificate(i)
	if !ok {
		return nil, veo.NewArgumentError("credential.CertificateDER",
			fmt.Sprintf("certificate %d requested but the chain has %d", i, len(c.chain)))
	}
	return cert.Raw, nil
}

// CertificateSubjectText returns the RFC 2253 form of the subject of certificate i.
func (c *Credential) CertificateSubjectText(i int) string {
	cert, ok := c.Certificate(i)
	if !ok {
		return ""
	}
	return cert.Subject.String()
}

// matchesKey checks that the certificate's public key is publicKey.
func matchesKey(cert *x509.Certificate, publicKey crypto.PublicKey) error {
	switch key := publicKey.(type) {
	case ed25519.PublicKey:
		certKey, ok := cert.PublicKey.(ed25519.PublicKey)
		if !ok {
			return fmt.Errorf("certificate contains %T key, but expected ed25519.PublicKey", cert.PublicKey)
		}
		if !key.Equal(certKey) {
			return fmt.Errorf("certificate public key does not match the Ed25519 key")
		}

	case *rsa.PublicKey:
		certKey, ok := cert.PublicKey.(*rsa.PublicKey)
		if !ok {
			return fmt.Errorf("certificate contains %T key, but expected *rsa.PublicKey", cert.PublicKey)
		}
		if certKey.N.Cmp(key.N) != 0 || certKey.E != key.E {
			return fmt.Errorf("certificate public key does not match the RSA key")
		}

	case *ecdsa.PublicKey:
		if !key.Equal(cert.PublicKey) {
			return fmt.Errorf("certificate public key does not match the ECDSA key")
		}

	default:
		return fmt.Errorf("unsupported public key type: %T", publicKey)
	}
	return nil
}

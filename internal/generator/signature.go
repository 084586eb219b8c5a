package generator

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"hash"

	"github.com/information-sharing-networks/veogen/internal/b64"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

// Credential is the signer of a signature block: a private key plus the certificate
// chain that identifies it. Certificate 0 is the signer's own certificate.
type Credential interface {
	Signer() (crypto.Signer, error)

	// Algorithm names the key algorithm, e.g. "RSA" or "Ed25519".
	Algorithm() string

	ChainLength() int
	CertificateDER(i int) ([]byte, error)

	// CertificateSubjectText returns the subject of certificate i, or "" if unknown.
	CertificateSubjectText(i int) string
}

// signatureContext accumulates the digest for one signature block and remembers
// where its value must be written.
type signatureContext struct {
	id     int
	alg    Algorithm
	signer crypto.Signer
	digest hash.Hash

	// offset and length locate the placeholder reserved in the output
	offset int64
	length int
}

func newSignatureContext(id int, alg Algorithm, signer crypto.Signer) *signatureContext {
	return &signatureContext{
		id:     id,
		alg:    alg,
		signer: signer,
		digest: alg.Hash.New(),
		length: b64.EncodedBufferLen(alg.SignatureSize),
	}
}

// sign finishes the digest and returns the Base64 text to be written into the placeholder.
func (c *signatureContext) sign(op string) ([]byte, error) {
	sig, err := c.signer.Sign(rand.Reader, c.digest.Sum(nil), c.alg.SignerOpts())
	if err != nil {
		return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to calculate signature %d", c.id))
	}
	encoded := b64.EncodeBuffer(sig)
	if len(encoded) != c.length {
		return nil, veo.NewCryptoError(op,
			fmt.Sprintf("signature %d is %d bytes encoded but %d bytes were reserved", c.id, len(encoded), c.length))
	}
	return encoded, nil
}

// placeholder returns n bytes shaped like an EncodeBuffer result: 72 spaces per line
// separated by CRLF.
func placeholder(n int) []byte {
	p := make([]byte, 0, n)
	for col := 0; len(p) < n; {
		if col == 72 && n-len(p) >= 2 {
			p = append(p, '\r', '\n')
			col = 0
			continue
		}
		p = append(p, ' ')
		col++
	}
	return p
}

package generator

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"
	"fmt"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// DefaultHash is used when no hash algorithm is configured.
const DefaultHash = crypto.SHA256

const (
	KeyAlgorithmRSA     = "RSA"
	KeyAlgorithmEd25519 = "Ed25519"
)

// Algorithm describes one supported signature algorithm.
// Only schemes with a fixed signature length are supported, because the space for
// each signature is reserved before the signature can be computed.
type Algorithm struct {
	// Name is the conventional identifier, e.g. "SHA256withRSA".
	Name string

	// OID is written to vers:SignatureAlgorithmIdentifier.
	OID string

	Hash         crypto.Hash
	KeyAlgorithm string

	// SignatureSize is the length in bytes of every signature produced.
	SignatureSize int
}

var oids = map[string]string{
	"SHA1withRSA":       "1.2.840.113549.1.1.5",
	"SHA256withRSA":     "1.2.840.113549.1.1.11",
	"SHA384withRSA":     "1.2.840.113549.1.1.12",
	"SHA512withRSA":     "1.2.840.113549.1.1.13",
	"SHA512withEd25519": "1.3.101.112",
}

var hashNames = map[crypto.Hash]string{
	crypto.SHA1:   "SHA-1",
	crypto.SHA256: "SHA-256",
	crypto.SHA384: "SHA-384",
	crypto.SHA512: "SHA-512",
}

// ParseHashAlgorithm accepts SHA-1, SHA-256, SHA-384 and SHA-512 in any case, with or
// without the dash. The empty string selects DefaultHash.
func ParseHashAlgorithm(name string) (crypto.Hash, error) {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "") {
	case "":
		return DefaultHash, nil
	case "SHA1":
		return crypto.SHA1, nil
	case "SHA256":
		return crypto.SHA256, nil
	case "SHA384":
		return crypto.SHA384, nil
	case "SHA512":
		return crypto.SHA512, nil
	}
	return 0, veo.NewArgumentError("generator.ParseHashAlgorithm",
		fmt.Sprintf("unsupported hash algorithm '%s' (must be SHA-1, SHA-256, SHA-384 or SHA-512)", name))
}

// HashName returns the display name of a supported hash, e.g. "SHA-256".
func HashName(h crypto.Hash) string {
	if name, ok := hashNames[h]; ok {
		return name
	}
	return h.String()
}

// AlgorithmFor selects the signature algorithm for a public key and hash.
func AlgorithmFor(pub crypto.PublicKey, h crypto.Hash) (Algorithm, error) {
	const op = "generator.AlgorithmFor"

	if _, ok := hashNames[h]; !ok {
		return Algorithm{}, veo.NewArgumentError(op, fmt.Sprintf("unsupported hash algorithm %v", h))
	}
	hashID := strings.ReplaceAll(HashName(h), "-", "")

	var alg Algorithm
	switch pub := pub.(type) {
	case *rsa.PublicKey:
		alg = Algorithm{KeyAlgorithm: KeyAlgorithmRSA, SignatureSize: pub.Size()}
	case ed25519.PublicKey:
		if h != crypto.SHA512 {
			return Algorithm{}, veo.NewArgumentError(op, fmt.Sprintf("Ed25519 signatures require SHA-512, not %s", HashName(h)))
		}
		alg = Algorithm{KeyAlgorithm: KeyAlgorithmEd25519, SignatureSize: ed25519.SignatureSize}
	default:
		return Algorithm{}, veo.NewCryptoError(op, fmt.Sprintf("unsupported key type %T (RSA and Ed25519 keys are supported)", pub))
	}

	alg.Hash = h
	alg.Name = hashID + "with" + alg.KeyAlgorithm
	alg.OID = oids[alg.Name]
	return alg, nil
}

// AlgorithmByOID returns the algorithm with the given identifier. The signature size of
// an RSA algorithm depends on the key and is left zero.
func AlgorithmByOID(oid string) (Algorithm, bool) {
	for name, o := range oids {
		if o != oid {
			continue
		}
		alg := Algorithm{Name: name, OID: oid}
		hashPart, keyPart, _ := strings.Cut(name, "with")
		alg.KeyAlgorithm = keyPart
		alg.Hash, _ = ParseHashAlgorithm(hashPart)
		if keyPart == KeyAlgorithmEd25519 {
			alg.SignatureSize = ed25519.SignatureSize
		}
		return alg, true
	}
	return Algorithm{}, false
}

// SignerOpts returns the options passed to crypto.Signer.Sign with a precomputed digest.
// Ed25519 keys sign the digest as Ed25519ph.
func (a Algorithm) SignerOpts() crypto.SignerOpts {
	if a.KeyAlgorithm == KeyAlgorithmEd25519 {
		return &ed25519.Options{Hash: crypto.SHA512}
	}
	return a.Hash
}

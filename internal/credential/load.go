package credential

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/veo"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/crypto/pkcs12"
)

// Key file formats accepted by Load.
const (
	FormatPFX = "pfx"
	FormatPEM = "pem"
	FormatJWK = "jwk"
)

// FormatOf guesses the key file format from its extension: .pfx and .p12 are PKCS#12,
// .jwk and .json are JWK sets and anything else is PEM.
func FormatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pfx", ".p12":
		return FormatPFX
	case ".jwk", ".json":
		return FormatJWK
	}
	return FormatPEM
}

// Load reads a credential in the given format. An empty format is guessed from the key
// file name. password is only used by PKCS#12 keystores and chainPath is ignored by them.
func Load(format, keyPath, password, chainPath string, logger *slog.Logger) (*Credential, error) {
	if format == "" {
		format = FormatOf(keyPath)
	}
	switch strings.ToLower(format) {
	case FormatPFX:
		return LoadPFX(keyPath, password, logger)
	case FormatPEM:
		return LoadPEM(keyPath, chainPath)
	case FormatJWK:
		return LoadJWK(keyPath, chainPath)
	}
	return nil, veo.NewArgumentError("credential.Load",
		fmt.Sprintf("unknown key format '%s' (must be pfx, pem or jwk)", format))
}

// LoadPFX reads the first private key in a PKCS#12 keystore and its certificate chain.
func LoadPFX(path, password string, logger *slog.Logger) (*Credential, error) {
	const op = "credential.LoadPFX"

	if logger == nil {
		logger = slog.Default()
	}
	data, err := readFile(op, "keystore", path)
	if err != nil {
		return nil, err
	}
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to open keystore '%s'", path))
	}
	return fromKeystore(op, path, blocks, logger)
}

// fromKeystore builds a credential from the PEM blocks of a decoded keystore. The
// certificate sharing the key's localKeyId is put first.
func fromKeystore(op, path string, blocks []*pem.Block, logger *slog.Logger) (*Credential, error) {
	var keys, certs []*pem.Block
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			keys = append(keys, b)
		case "CERTIFICATE":
			certs = append(certs, b)
		}
	}
	if len(keys) == 0 {
		return nil, veo.NewCryptoError(op, fmt.Sprintf("keystore '%s' does not contain a private key", path))
	}
	if len(keys) > 1 {
		logger.Warn("keystore contains more than one private key, using the first",
			slog.String("keystore", path),
			slog.Int("keys", len(keys)))
	}

	key, err := parsePrivateKey(keys[0].Bytes)
	if err != nil {
		return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to read private key from keystore '%s'", path))
	}

	localKeyID := keys[0].Headers["localKeyId"]
	isLeaf := func(b *pem.Block) bool {
		return localKeyID != "" && b.Headers["localKeyId"] == localKeyID
	}
	ordered := make([]*pem.Block, 0, len(certs))
	for _, b := range certs {
		if isLeaf(b) {
			ordered = append(ordered, b)
		}
	}
	for _, b := range certs {
		if !isLeaf(b) {
			ordered = append(ordered, b)
		}
	}

	chain := make([]*x509.Certificate, 0, len(ordered))
	for i, b := range ordered {
		cert, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to parse certificate %d in keystore '%s'", i, path))
		}
		chain = append(chain, cert)
	}
	return New(key, chain)
}

// LoadPEM reads a PEM private key (PKCS#8, PKCS#1 or SEC 1) and, from chainPath, the
// certificate chain, leaf first. When chainPath is empty, certificates that follow the
// key in the key file are used.
func LoadPEM(keyPath, chainPath string) (*Credential, error) {
	const op = "credential.LoadPEM"

	data, err := readFile(op, "private key file", keyPath)
	if err != nil {
		return nil, err
	}

	var key crypto.Signer
	var inline []*x509.Certificate
	for rest := data; ; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch block.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			if key != nil {
				continue
			}
			if key, err = parsePrivateKey(block.Bytes); err != nil {
				return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to parse private key in '%s'", keyPath))
			}
		case "ENCRYPTED PRIVATE KEY":
			return nil, veo.NewCryptoError(op, fmt.Sprintf("private key in '%s' is encrypted (use a PKCS#12 keystore instead)", keyPath))
		case "CERTIFICATE":
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to parse certificate in '%s'", keyPath))
			}
			inline = append(inline, cert)
		}
	}
	if key == nil {
		return nil, veo.NewCryptoError(op, fmt.Sprintf("no private key found in '%s'", keyPath))
	}

	if chainPath == "" {
		return New(key, inline)
	}
	chain, err := ReadCertificateChain(chainPath)
	if err != nil {
		return nil, err
	}
	return New(key, chain)
}

// LoadJWK reads the first key of a JWK set, which must be a private key.
func LoadJWK(keyPath, chainPath string) (*Credential, error) {
	const op = "credential.LoadJWK"

	data, err := readFile(op, "JWK file", keyPath)
	if err != nil {
		return nil, err
	}

	set, err := jwk.Parse(data)
	if err != nil {
		return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to parse JWK set in '%s'", keyPath))
	}
	if set.Len() == 0 {
		return nil, veo.NewCryptoError(op, fmt.Sprintf("JWK set in '%s' is empty", keyPath))
	}
	jwkKey, ok := set.Key(0)
	if !ok {
		return nil, veo.NewCryptoError(op, "failed to get key from JWK set")
	}

	var raw any
	if err := jwk.Export(jwkKey, &raw); err != nil {
		return nil, veo.WrapCryptoError(err, op, "failed to export key")
	}
	key, ok := raw.(crypto.Signer)
	if !ok {
		return nil, veo.NewCryptoError(op, fmt.Sprintf("key in '%s' is not a private key (got %T)", keyPath, raw))
	}

	var chain []*x509.Certificate
	if chainPath != "" {
		if chain, err = ReadCertificateChain(chainPath); err != nil {
			return nil, err
		}
	}
	return New(key, chain)
}

// ReadCertificateChain loads the certificates in a PEM file in the order they appear.
func ReadCertificateChain(path string) ([]*x509.Certificate, error) {
	const op = "credential.ReadCertificateChain"

	data, err := readFile(op, "certificate file", path)
	if err != nil {
		return nil, err
	}
	chain, err := ParseCertificateChain(data)
	if err != nil {
		return nil, veo.WrapCryptoError(err, op, fmt.Sprintf("failed to read certificates from '%s'", path))
	}
	return chain, nil
}

// ParseCertificateChain parses every CERTIFICATE block in pemData. Other blocks are
// skipped.
func ParseCertificateChain(pemData []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	var block *pem.Block
	remaining := pemData

	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, errors.New("no certificates found in PEM data")
	}
	return certs, nil
}

// parsePrivateKey accepts the key encodings produced by PKCS#12 decoding and by
// common tools.
func parsePrivateKey(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("key is not a PKCS#1, SEC 1 or PKCS#8 private key: %w", err)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", key)
	}
	return signer, nil
}

func readFile(op, what, path string) ([]byte, error) {
	if path == "" {
		return nil, veo.NewArgumentError(op, what+" not specified")
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("%s '%s' does not exist", what, path))
	}
	if err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to read %s '%s'", what, path))
	}
	return data, nil
}

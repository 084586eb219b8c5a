// Package verify checks the signatures of a finished VEO.
//
// Each vers:SignatureBlock must be a valid signature, by the public key of its first
// certificate, over the vers:SignedObject element with all whitespace removed. The
// vers:LockSignatureBlock must be a valid signature over the whitespace-stripped Base64
// text of the block it names. Certificates are not checked against any trust anchor.
package verify

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/information-sharing-networks/veogen/internal/b64"
	"github.com/information-sharing-networks/veogen/internal/generator"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

var (
	signedObjectStart = []byte("<vers:SignedObject")
	signedObjectEnd   = []byte("</vers:SignedObject>")
)

// Result is the outcome of checking one signature block.
type Result struct {
	ID string

	// Lock is set for the lock signature block, whose ID is that of the block it signs.
	Lock bool

	Algorithm string
	Date      string
	Signer    string

	// Err is nil when the signature verified.
	Err error
}

func (r Result) OK() bool { return r.Err == nil }

type Report struct {
	Name    string
	Results []Result
}

// Failures counts the signatures that did not verify.
func (r *Report) Failures() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

func (r *Report) OK() bool { return len(r.Results) > 0 && r.Failures() == 0 }

// signatureBlock holds the parts of a vers:SignatureBlock or vers:LockSignatureBlock
// needed for verification.
type signatureBlock struct {
	ID           string   `xml:"id,attr"`
	Signs        string   `xml:"signsSignatureBlock,attr"`
	AlgorithmID  string   `xml:"SignatureAlgorithm>SignatureAlgorithmIdentifier"`
	Date         string   `xml:"SignatureDate"`
	Signer       string   `xml:"Signer"`
	Signature    string   `xml:"Signature"`
	Certificates []string `xml:"CertificateBlock>Certificate"`
}

// File verifies the VEO at path. The report is returned with a crypto error when any
// signature fails to verify.
func File(path string) (*Report, error) {
	const op = "verify.File"

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("VEO '%s' does not exist", path))
	}
	if err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to read VEO '%s'", path))
	}
	return Bytes(path, data)
}

// Bytes verifies a VEO held in memory. name is only used in messages.
func Bytes(name string, data []byte) (*Report, error) {
	const op = "verify.Bytes"

	signatures, lock, err := parseBlocks(data)
	if err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("'%s' is not well formed XML", name))
	}
	if len(signatures) == 0 {
		return nil, veo.NewArgumentError(op, fmt.Sprintf("'%s' has no vers:SignatureBlock", name))
	}

	start := bytes.Index(data, signedObjectStart)
	end := bytes.LastIndex(data, signedObjectEnd)
	if start < 0 || end < start {
		return nil, veo.NewArgumentError(op, fmt.Sprintf("'%s' has no vers:SignedObject", name))
	}
	signed := veo.StripSignatureWhitespace(data[start : end+len(signedObjectEnd)])

	report := &Report{Name: name}
	for _, b := range signatures {
		report.Results = append(report.Results, check(b, b.ID, false, signed))
	}

	if lock != nil {
		var target *signatureBlock
		for i := range signatures {
			if signatures[i].ID == lock.Signs {
				target = &signatures[i]
			}
		}
		if target == nil {
			report.Results = append(report.Results, Result{
				ID:   lock.Signs,
				Lock: true,
				Err:  fmt.Errorf("lock signature signs '%s', which is not a signature block in this VEO", lock.Signs),
			})
		} else {
			report.Results = append(report.Results, check(*lock, lock.Signs, true, veo.StripSignatureWhitespace([]byte(target.Signature))))
		}
	}

	if n := report.Failures(); n > 0 {
		return report, veo.NewCryptoError(op, fmt.Sprintf("%d of %d signatures in '%s' failed to verify", n, len(report.Results), name))
	}
	return report, nil
}

// parseBlocks decodes the signature blocks, skipping the signed object.
func parseBlocks(data []byte) ([]signatureBlock, *signatureBlock, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	var signatures []signatureBlock
	var lock *signatureBlock

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return signatures, lock, nil
		}
		if err != nil {
			return nil, nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "SignatureBlock":
			var b signatureBlock
			if err := d.DecodeElement(&b, &start); err != nil {
				return nil, nil, err
			}
			signatures = append(signatures, b)
		case "LockSignatureBlock":
			var b signatureBlock
			if err := d.DecodeElement(&b, &start); err != nil {
				return nil, nil, err
			}
			lock = &b
		case "SignedObject":
			if err := d.Skip(); err != nil {
				return nil, nil, err
			}
		}
	}
}

func check(b signatureBlock, id string, lock bool, message []byte) Result {
	res := Result{
		ID:     id,
		Lock:   lock,
		Date:   strings.TrimSpace(b.Date),
		Signer: strings.TrimSpace(b.Signer),
	}

	oid := strings.TrimSpace(b.AlgorithmID)
	alg, ok := generator.AlgorithmByOID(oid)
	if !ok {
		res.Algorithm = oid
		res.Err = fmt.Errorf("unsupported signature algorithm '%s'", oid)
		return res
	}
	res.Algorithm = alg.Name

	if len(b.Certificates) == 0 {
		res.Err = errors.New("no certificate to verify the signature with")
		return res
	}
	cert, err := x509.ParseCertificate(b64.Decode([]byte(b.Certificates[0])))
	if err != nil {
		res.Err = fmt.Errorf("failed to parse signer's certificate: %w", err)
		return res
	}

	res.Err = verifySignature(cert.PublicKey, alg, message, b64.Decode([]byte(b.Signature)))
	return res
}

func verifySignature(pub crypto.PublicKey, alg generator.Algorithm, message, sig []byte) error {
	d := alg.Hash.New()
	d.Write(message)
	digest := d.Sum(nil)

	switch pub := pub.(type) {
	case *rsa.PublicKey:
		if alg.KeyAlgorithm != generator.KeyAlgorithmRSA {
			return fmt.Errorf("certificate holds an RSA key but the algorithm is %s", alg.Name)
		}
		if err := rsa.VerifyPKCS1v15(pub, alg.Hash, digest, sig); err != nil {
			return fmt.Errorf("signature does not verify: %w", err)
		}
		return nil
	case ed25519.PublicKey:
		if alg.KeyAlgorithm != generator.KeyAlgorithmEd25519 {
			return fmt.Errorf("certificate holds an Ed25519 key but the algorithm is %s", alg.Name)
		}
		if err := ed25519.VerifyWithOptions(pub, digest, sig, &ed25519.Options{Hash: crypto.SHA512}); err != nil {
			return fmt.Errorf("signature does not verify: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unsupported public key type %T", pub)
}

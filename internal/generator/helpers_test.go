package generator

import (
	"bytes"
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/information-sharing-networks/veogen/internal/b64"
	"github.com/information-sharing-networks/veogen/internal/template"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

var (
	testNow    = time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("AEST", 10*60*60))
	testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

	rsaKeyOnce sync.Once
	rsaKey     *rsa.PrivateKey
)

// memSink is an in-memory Sink.
type memSink struct {
	buf    []byte
	pos    int64
	closed bool
}

func (m *memSink) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		m.buf = append(m.buf, make([]byte, end-int64(len(m.buf)))...)
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memSink) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

// testCredential is a key with a self-signed certificate.
type testCredential struct {
	key  crypto.Signer
	cert *x509.Certificate
}

func (c *testCredential) Signer() (crypto.Signer, error) { return c.key, nil }
func (c *testCredential) Algorithm() string {
	if _, ok := c.key.(ed25519.PrivateKey); ok {
		return KeyAlgorithmEd25519
	}
	return KeyAlgorithmRSA
}
func (c *testCredential) ChainLength() int { return 1 }
func (c *testCredential) CertificateDER(i int) ([]byte, error) {
	return c.cert.Raw, nil
}
func (c *testCredential) CertificateSubjectText(i int) string { return c.cert.Subject.String() }

func newTestCredential(t *testing.T, key crypto.Signer, cn string) *testCredential {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn, Organization: []string{"Records & Archives"}},
		NotBefore:    testNow.Add(-time.Hour),
		NotAfter:     testNow.Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return &testCredential{key: key, cert: cert}
}

func rsaCredential(t *testing.T) *testCredential {
	t.Helper()
	rsaKeyOnce.Do(func() {
		var err error
		rsaKey, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
	})
	return newTestCredential(t, rsaKey, "Test Signer")
}

func ed25519Credential(t *testing.T) *testCredential {
	t.Helper()
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return newTestCredential(t, key, "Ed Signer")
}

func mustParse(t *testing.T, text string) *template.Template {
	t.Helper()
	tmpl, err := template.Parse("test.template", strings.NewReader(text), nil, testLogger)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(tmpl.SyntaxErrors) > 0 {
		t.Fatalf("syntax errors in test template: %v", tmpl.SyntaxErrors)
	}
	return tmpl
}

// testRegistry registers the given templates keyed by extension.
func testRegistry(t *testing.T, templates map[string]string) *template.Registry {
	t.Helper()
	parsed := make(map[string]*template.Template, len(templates))
	for ext, text := range templates {
		parsed[ext] = mustParse(t, text)
	}
	return template.NewRegistry(parsed)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestGenerator(registry *template.Registry) *Generator {
	return New(registry, WithClock(func() time.Time { return testNow }), WithLogger(testLogger))
}

// startSigned starts a VEO in memory with one signature block and its lock.
func startSigned(t *testing.T, g *Generator, cred Credential, h crypto.Hash) *memSink {
	t.Helper()
	sink := &memSink{}
	if err := g.StartVEOSink(sink, 1, 1); err != nil {
		t.Fatalf("StartVEOSink() error = %v", err)
	}
	if err := g.AddSignatureBlock(cred, h); err != nil {
		t.Fatalf("AddSignatureBlock() error = %v", err)
	}
	if err := g.AddLockSignatureBlock(1, cred, h); err != nil {
		t.Fatalf("AddLockSignatureBlock() error = %v", err)
	}
	return sink
}

// signedRegion returns the vers:SignedObject element with signature whitespace removed.
func signedRegion(t *testing.T, data []byte) []byte {
	t.Helper()
	start := bytes.Index(data, []byte("<vers:SignedObject"))
	end := bytes.LastIndex(data, []byte("</vers:SignedObject>"))
	if start < 0 || end < 0 {
		t.Fatalf("no vers:SignedObject in output")
	}
	return veo.StripSignatureWhitespace(data[start : end+len("</vers:SignedObject>")])
}

// signatureTexts returns the content of each vers:Signature element in document order.
func signatureTexts(t *testing.T, data []byte) [][]byte {
	t.Helper()
	const openTag, closeTag = "<vers:Signature>", "</vers:Signature>"
	var texts [][]byte
	rest := data
	for {
		i := bytes.Index(rest, []byte(openTag))
		if i < 0 {
			return texts
		}
		rest = rest[i+len(openTag):]
		j := bytes.Index(rest, []byte(closeTag))
		if j < 0 {
			t.Fatal("unterminated vers:Signature")
		}
		texts = append(texts, rest[:j])
		rest = rest[j:]
	}
}

func verifySignature(t *testing.T, pub crypto.PublicKey, h crypto.Hash, message, encoded []byte) bool {
	t.Helper()
	d := h.New()
	d.Write(message)
	digest := d.Sum(nil)
	sig := b64.Decode(encoded)

	switch pub := pub.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, h, digest, sig) == nil
	case ed25519.PublicKey:
		return ed25519.VerifyWithOptions(pub, digest, sig, &ed25519.Options{Hash: crypto.SHA512}) == nil
	}
	t.Fatalf("unexpected key type %T", pub)
	return false
}

// assertSigned checks the first signature over the signed object and the lock
// signature over the first signature's text.
func assertSigned(t *testing.T, data []byte, cred *testCredential, h crypto.Hash) {
	t.Helper()
	texts := signatureTexts(t, data)
	if len(texts) != 2 {
		t.Fatalf("got %d signatures, want 2", len(texts))
	}
	pub := cred.key.Public()
	if !verifySignature(t, pub, h, signedRegion(t, data), texts[0]) {
		t.Error("signature over vers:SignedObject does not verify")
	}
	if !verifySignature(t, pub, h, veo.StripSignatureWhitespace(texts[0]), texts[1]) {
		t.Error("lock signature does not verify")
	}
}

package verify

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/information-sharing-networks/veogen/internal/credential"
	"github.com/information-sharing-networks/veogen/internal/datasource"
	"github.com/information-sharing-networks/veogen/internal/generator"
	"github.com/information-sharing-networks/veogen/internal/template"
	"github.com/information-sharing-networks/veogen/internal/veo"
)

var (
	rsaOnce sync.Once
	rsaCred *credential.Credential
)

func newCredential(t *testing.T, key crypto.Signer, cn string) *credential.Credential {
	t.Helper()
	cert, err := credential.SelfSignedCertificate(key, pkix.Name{CommonName: cn}, time.Now(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cred, err := credential.New(key, []*x509.Certificate{cert})
	if err != nil {
		t.Fatal(err)
	}
	return cred
}

func rsaCredential(t *testing.T) *credential.Credential {
	t.Helper()
	rsaOnce.Do(func() {
		key, err := credential.GenerateRSAKey(2048)
		if err != nil {
			panic(err)
		}
		rsaCred = newCredential(t, key, "RSA Signer")
	})
	return rsaCred
}

func ed25519Credential(t *testing.T) *credential.Credential {
	t.Helper()
	key, err := credential.GenerateEd25519Key()
	if err != nil {
		t.Fatal(err)
	}
	return newCredential(t, key, "Ed Signer")
}

// buildVEO writes a file VEO signed by cred and returns its path.
func buildVEO(t *testing.T, cred *credential.Credential, h crypto.Hash, metadata string) string {
	t.Helper()
	tmpl, err := template.Parse("file.template", strings.NewReader("<m>$$ 1 $$</m>\r\n"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "test.veo")
	g := generator.New(nil)

	steps := []func() error{
		func() error { return g.StartVEO(path, 1, 1) },
		func() error { return g.AddSignatureBlock(cred, h) },
		func() error { return g.AddLockSignatureBlock(1, cred, h) },
		func() error { return g.AddFile(tmpl, datasource.NewArrayDataSource([]string{metadata})) },
		g.EndVEO,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	return path
}

func TestFile_Valid(t *testing.T) {
	tests := []struct {
		name    string
		cred    func(t *testing.T) *credential.Credential
		hash    crypto.Hash
		wantAlg string
	}{
		{"rsa sha-256", rsaCredential, crypto.SHA256, "SHA256withRSA"},
		{"rsa sha-1", rsaCredential, crypto.SHA1, "SHA1withRSA"},
		{"ed25519", ed25519Credential, crypto.SHA512, "SHA512withEd25519"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := buildVEO(t, tt.cred(t), tt.hash, "hello")

			report, err := File(path)
			if err != nil {
				t.Fatalf("File() error = %v", err)
			}
			if !report.OK() || len(report.Results) != 2 {
				t.Fatalf("report = %+v, want two verified signatures", report)
			}
			sig, lock := report.Results[0], report.Results[1]
			if sig.ID != "Revision-1-Signature-1" || sig.Lock {
				t.Errorf("first result = %+v, want signature 1", sig)
			}
			if !lock.Lock || lock.ID != "Revision-1-Signature-1" {
				t.Errorf("second result = %+v, want the lock over signature 1", lock)
			}
			if sig.Algorithm != tt.wantAlg {
				t.Errorf("Algorithm = %q, want %q", sig.Algorithm, tt.wantAlg)
			}
			if !strings.HasPrefix(sig.Signer, "CN=") {
				t.Errorf("Signer = %q", sig.Signer)
			}
		})
	}
}

func TestFile_Tampered(t *testing.T) {
	path := buildVEO(t, rsaCredential(t), crypto.SHA256, "hello")
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		change    func([]byte) []byte
		wantValid []bool
	}{
		{
			name:      "whitespace in signed object",
			change:    func(b []byte) []byte { return bytes.Replace(b, []byte("<m>hello</m>"), []byte("<m>\thel lo\n</m>"), 1) },
			wantValid: []bool{true, true},
		},
		{
			name:      "content changed",
			change:    func(b []byte) []byte { return bytes.Replace(b, []byte("<m>hello</m>"), []byte("<m>jello</m>"), 1) },
			wantValid: []bool{false, true},
		},
		{
			name: "signature changed",
			change: func(b []byte) []byte {
				i := bytes.Index(b, []byte("<vers:Signature>\r\n")) + len("<vers:Signature>\r\n")
				c := bytes.Clone(b)
				if c[i] == 'A' {
					c[i] = 'B'
				} else {
					c[i] = 'A'
				}
				return c
			},
			wantValid: []bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.change(original)
			if bytes.Equal(data, original) {
				t.Fatal("test did not change the VEO")
			}

			report, err := Bytes("tampered.veo", data)
			allValid := tt.wantValid[0] && tt.wantValid[1]
			if allValid && err != nil {
				t.Fatalf("Bytes() error = %v", err)
			}
			if !allValid && veo.CodeOf(err) != veo.ErrCodeCrypto {
				t.Fatalf("Bytes() error = %v, want crypto", err)
			}
			for i, want := range tt.wantValid {
				if got := report.Results[i].OK(); got != want {
					t.Errorf("result %d OK = %v, want %v (%v)", i, got, want, report.Results[i].Err)
				}
			}
		})
	}
}

func TestFile_MultipleSigners(t *testing.T) {
	rsa := rsaCredential(t)
	ed := ed25519Credential(t)
	tmpl, err := template.Parse("file.template", strings.NewReader("<m/>"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "multi.veo")
	g := generator.New(nil)

	steps := []func() error{
		func() error { return g.StartVEO(path, 1, 2) },
		func() error { return g.AddSignatureBlock(rsa, crypto.SHA384) },
		func() error { return g.AddSignatureBlock(ed, crypto.SHA512) },
		func() error { return g.AddLockSignatureBlock(2, rsa, crypto.SHA256) },
		func() error { return g.AddFile(tmpl, datasource.NewArrayDataSource(nil)) },
		g.EndVEO,
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	report, err := File(path)
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if len(report.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(report.Results))
	}
	if lock := report.Results[2]; !lock.Lock || lock.ID != "Revision-2-Signature-2" {
		t.Errorf("lock result = %+v", lock)
	}
}

func TestFile_Errors(t *testing.T) {
	dir := t.TempDir()
	notVEO := filepath.Join(dir, "plain.xml")
	if err := os.WriteFile(notVEO, []byte("<root><child/></root>"), 0600); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.xml")
	if err := os.WriteFile(broken, []byte("<root><child></root>"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		path     string
		wantCode veo.ErrorCode
	}{
		{"missing", filepath.Join(dir, "missing.veo"), veo.ErrCodeNotFound},
		{"no signature blocks", notVEO, veo.ErrCodeArgument},
		{"not well formed", broken, veo.ErrCodeIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := File(tt.path)
			if veo.CodeOf(err) != tt.wantCode {
				t.Errorf("File() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

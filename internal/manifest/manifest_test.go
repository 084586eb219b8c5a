package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

var runID = uuid.MustParse("0b6d7a3c-2f52-4b8e-9d3b-6e1c0f2a9a11")

func writeVEO(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCanonical(t *testing.T) {
	dir := t.TempDir()
	path := writeVEO(t, dir, "a.veo", "abc")

	m := New(runID, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), "SHA-256")
	if err := m.Add(path, 1, "record"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := m.Canonical()
	if err != nil {
		t.Fatalf("Canonical() error = %v", err)
	}

	sum := sha256.Sum256([]byte("abc"))
	want := `{"createdAt":"2024-03-01T09:30:00+00:00","hashAlgorithm":"SHA-256","runId":"` + runID.String() +
		`","veos":[{"bytes":3,"file":"` + path + `","kind":"record","seqNo":1,"sha256":"` + hex.EncodeToString(sum[:]) + `"}]}`
	if string(got) != want {
		t.Errorf("Canonical() =\n%s\nwant\n%s", got, want)
	}
}

func TestCanonical_Empty(t *testing.T) {
	got, err := New(runID, time.Now(), "SHA-512").Canonical()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(string(got), `"veos":[]}`) {
		t.Errorf("Canonical() = %s, want an empty veos array", got)
	}
}

func TestWriteReadVerify(t *testing.T) {
	dir := t.TempDir()
	a := writeVEO(t, dir, "a.veo", "first")
	b := writeVEO(t, dir, "b.veo", "second")
	manifestPath := filepath.Join(dir, "manifest.json")

	m := New(runID, time.Now(), "SHA-256")
	for i, p := range []string{a, b} {
		if err := m.Add(p, i+1, "file"); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.WriteFile(manifestPath); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	read, err := Read(manifestPath)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if read.RunID != runID.String() || len(read.VEOs) != 2 {
		t.Fatalf("Read() = %+v", read)
	}
	if err := read.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	tests := []struct {
		name     string
		change   func()
		wantCode veo.ErrorCode
	}{
		{"file changed", func() { writeVEO(t, dir, "b.veo", "SECOND") }, veo.ErrCodeCrypto},
		{"file removed", func() { os.Remove(b) }, veo.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.change()
			if err := read.Verify(); veo.CodeOf(err) != tt.wantCode {
				t.Errorf("Verify() error = %v, want %s", err, tt.wantCode)
			}
		})
	}
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Read(filepath.Join(dir, "missing.json")); veo.CodeOf(err) != veo.ErrCodeNotFound {
		t.Errorf("Read() error = %v, want not_found", err)
	}
	if err := New(runID, time.Now(), "SHA-256").Add(filepath.Join(dir, "missing.veo"), 1, "file"); veo.CodeOf(err) != veo.ErrCodeIO {
		t.Errorf("Add() error = %v, want io", err)
	}
}

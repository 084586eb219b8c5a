// Package manifest records the VEOs produced by a run, with their SHA-256 checksums, in
// a JSON document canonicalized per RFC 8785 so that the manifest itself can be hashed
// or signed consistently.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/information-sharing-networks/veogen/internal/veo"
)

// Entry describes one VEO file.
type Entry struct {
	File   string `json:"file"`
	SeqNo  int    `json:"seqNo"`
	Kind   string `json:"kind"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

type Manifest struct {
	RunID         string  `json:"runId"`
	CreatedAt     string  `json:"createdAt"`
	HashAlgorithm string  `json:"hashAlgorithm"`
	VEOs          []Entry `json:"veos"`
}

// New starts an empty manifest for a run. hashAlgorithm names the hash used in the VEO
// signatures; the checksums in the manifest are always SHA-256.
func New(runID uuid.UUID, createdAt time.Time, hashAlgorithm string) *Manifest {
	return &Manifest{
		RunID:         runID.String(),
		CreatedAt:     veo.FormatDateTime(createdAt),
		HashAlgorithm: hashAlgorithm,
		VEOs:          []Entry{},
	}
}

// Add records the file at path.
func (m *Manifest) Add(path string, seqNo int, kind string) error {
	sum, size, err := checksumFile(path)
	if err != nil {
		return veo.WrapIOError(err, "manifest.Add", fmt.Sprintf("failed to checksum '%s'", path))
	}
	m.VEOs = append(m.VEOs, Entry{File: path, SeqNo: seqNo, Kind: kind, SHA256: sum, Bytes: size})
	return nil
}

// Canonical returns the manifest as canonical JSON.
func (m *Manifest) Canonical() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return jcs.Transform(data)
}

func (m *Manifest) WriteFile(path string) error {
	const op = "manifest.WriteFile"

	data, err := m.Canonical()
	if err != nil {
		return veo.WrapIOError(err, op, "failed to encode manifest")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return veo.WrapIOError(err, op, fmt.Sprintf("failed to write manifest '%s'", path))
	}
	return nil
}

func Read(path string) (*Manifest, error) {
	const op = "manifest.Read"

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, veo.WrapNotFoundError(err, op, fmt.Sprintf("manifest '%s' does not exist", path))
	}
	if err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("failed to read manifest '%s'", path))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, veo.WrapIOError(err, op, fmt.Sprintf("manifest '%s' is not valid JSON", path))
	}
	return &m, nil
}

// Verify recomputes the checksum of every listed file and reports the first file that
// is missing or has changed.
func (m *Manifest) Verify() error {
	const op = "manifest.Verify"

	for _, e := range m.VEOs {
		sum, size, err := checksumFile(e.File)
		if errors.Is(err, fs.ErrNotExist) {
			return veo.WrapNotFoundError(err, op, fmt.Sprintf("'%s' listed in the manifest does not exist", e.File))
		}
		if err != nil {
			return veo.WrapIOError(err, op, fmt.Sprintf("failed to checksum '%s'", e.File))
		}
		if sum != e.SHA256 || size != e.Bytes {
			return veo.NewCryptoError(op, fmt.Sprintf("'%s' does not match its manifest checksum", e.File))
		}
	}
	return nil
}

// checksumFile returns the hex SHA-256 of a file and its length.
func checksumFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to copy file contents: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}

package pgstacdump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
)

// Manifest describes a dump file so it can be checked before loading.
type Manifest struct {
	Filename    string    `json:"filename"`
	Format      Format    `json:"format"`
	CreatedAt   time.Time `json:"created_at"`
	Size        int64     `json:"size"`
	Collections int       `json:"collections"`
	Items       int       `json:"items"`

	// Checksum for integrity
	SHA256 string `json:"sha256"`
}

// Validate validates the manifest fields for consistency and completeness
func (m *Manifest) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("manifest missing filename")
	}
	if err := m.Format.Validate(); err != nil {
		return err
	}
	if m.SHA256 == "" {
		return fmt.Errorf("manifest missing sha256")
	}
	if m.Size < 0 || m.Collections < 0 || m.Items < 0 {
		return fmt.Errorf("manifest has negative counts")
	}
	return nil
}

// ManifestPath returns where the manifest of the dump at dumpPath lives.
func ManifestPath(dumpPath string) string {
	return dumpPath + ".manifest.json"
}

// WriteManifest writes a manifest file alongside the dump
func WriteManifest(dumpPath string, manifest *Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(ManifestPath(dumpPath), data, 0o600)
}

// ReadManifest reads and validates the manifest of a dump.
func ReadManifest(dumpPath string) (*Manifest, error) {
	data, err := os.ReadFile(ManifestPath(dumpPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found for %s", dumpPath)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Verify checks that the dump at dumpPath matches the manifest's size and checksum.
func (m *Manifest) Verify(dumpPath string) error {
	f, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	if n != m.Size {
		return fmt.Errorf("dump size %d does not match manifest size %d", n, m.Size)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != m.SHA256 {
		return fmt.Errorf("dump checksum %s does not match manifest checksum %s", sum, m.SHA256)
	}
	return nil
}

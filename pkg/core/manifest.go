package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const manifestSuffix = ".manifest.yaml"

// Manifest is the sidecar pushed next to every dump artifact.
type Manifest struct {
	Database    string    `yaml:"database"`
	Artifact    string    `yaml:"artifact"`
	Compression string    `yaml:"compression"`
	StartedAt   time.Time `yaml:"started_at"`
	CompletedAt time.Time `yaml:"completed_at"`
	Size        int64     `yaml:"size"`
	SHA256      string    `yaml:"sha256"`
	Tables      []string  `yaml:"tables"`
	Warnings    []string  `yaml:"warnings,omitempty"`
}

// ManifestName returns the manifest file name for an artifact.
func ManifestName(artifact string) string {
	return artifact + manifestSuffix
}

func buildManifest(path string, started time.Time) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact metadata: %w", err)
	}
	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Size:        info.Size(),
		SHA256:      checksum,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func writeManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadManifest loads a manifest written by a dump.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}

// Verify checks that the file at path matches the manifest checksum.
func (m *Manifest) Verify(path string) error {
	sum, err := fileChecksum(path)
	if err != nil {
		return err
	}
	if sum != m.SHA256 {
		return fmt.Errorf("checksum mismatch for %s: got %s, manifest has %s", path, sum, m.SHA256)
	}
	return nil
}

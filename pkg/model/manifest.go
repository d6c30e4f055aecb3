// Package model provides the data structures shared between the downloader,
// the orchestrator and the CLI: product file manifests and library entries.
package model

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cperrin88/dlkeep/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ManifestEntry describes one remote file of a product.
// FileSize is kept as the decimal string the store reports.
type ManifestEntry struct {
	FileName string `yaml:"file_name" json:"file_name"`
	FileSize string `yaml:"file_size" json:"file_size"`
}

// Size parses FileSize as an unsigned 64-bit integer.
func (e ManifestEntry) Size() (uint64, error) {
	size, err := strconv.ParseUint(e.FileSize, 10, 64)
	if err != nil {
		return 0, errors.WrapKind(errors.ErrManifest, err, "file size %q of %q", e.FileSize, e.FileName)
	}
	return size, nil
}

// Manifest is the ordered list of files making up one product.
// Entry i is downloaded from the i-th resolved URL; the order must not change
// once the manifest is handed to the downloader.
type Manifest struct {
	ProductID string          `yaml:"workno,omitempty" json:"workno,omitempty"`
	Files     []ManifestEntry `yaml:"files" json:"files"`
}

// TotalSize returns the sum of all entry sizes.
func (m *Manifest) TotalSize() (uint64, error) {
	var total uint64
	for _, entry := range m.Files {
		size, err := entry.Size()
		if err != nil {
			return 0, err
		}
		if total+size < total {
			return 0, fmt.Errorf("total size overflows at %q: %w", entry.FileName, errors.ErrManifest)
		}
		total += size
	}
	return total, nil
}

// Validate checks that every entry has a plain file name and a parseable size.
func (m *Manifest) Validate() error {
	for i, entry := range m.Files {
		if entry.FileName == "" {
			return fmt.Errorf("entry %d has no file name: %w", i, errors.ErrManifest)
		}
		if entry.FileName == "." || entry.FileName == ".." || strings.ContainsAny(entry.FileName, `/\`) {
			return fmt.Errorf("entry %d: file name %q is not a plain name: %w", i, entry.FileName, errors.ErrManifest)
		}
		if _, err := entry.Size(); err != nil {
			return err
		}
	}
	return nil
}

// LoadManifest decodes a manifest document. Both the object form
// ({workno, files}) and the list form served by the store's product.json
// endpoint ([{workno, files}, ...], first element used) are accepted, in YAML
// or JSON syntax.
func LoadManifest(reader io.Reader) (*Manifest, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest data")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %w", errors.ErrManifest, errors.ErrEmptyManifest)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.WrapKind(errors.ErrManifest, err, "failed to parse manifest")
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	var manifest Manifest
	switch root.Kind {
	case yaml.SequenceNode:
		var list []Manifest
		if err := root.Decode(&list); err != nil {
			return nil, errors.WrapKind(errors.ErrManifest, err, "failed to decode manifest list")
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: %w", errors.ErrManifest, errors.ErrEmptyManifest)
		}
		manifest = list[0]
	case yaml.MappingNode:
		if err := root.Decode(&manifest); err != nil {
			return nil, errors.WrapKind(errors.ErrManifest, err, "failed to decode manifest")
		}
	default:
		return nil, fmt.Errorf("unexpected manifest document shape: %w", errors.ErrManifest)
	}

	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// LoadManifestFile reads and decodes the manifest stored at path.
func LoadManifestFile(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open manifest file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadManifest(file)
}

// DownloadedProduct summarises a product directory found in the library.
type DownloadedProduct struct {
	ID      string    `json:"id" yaml:"id"`
	Path    string    `json:"path" yaml:"path"`
	Files   int       `json:"files" yaml:"files"`
	Size    uint64    `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time" yaml:"mod_time"`
}

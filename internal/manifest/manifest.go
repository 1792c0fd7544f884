// Package manifest locates and decodes the manifest.json document embedded
// in a Home Assistant backup archive.
package manifest

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrNotFound indicates a readable archive that contains no manifest.json
// entry.
var ErrNotFound = errors.New("manifest.json not found in backup")

// ErrCorruptArchive indicates an archive that cannot be opened, or a
// manifest entry whose content is not valid JSON.
var ErrCorruptArchive = errors.New("corrupt backup archive")

// Addon is a single add-on record from the manifest. Some manifests list
// add-ons as bare slug strings instead of objects.
type Addon struct {
	Name    string `json:"name,omitempty"`
	Slug    string `json:"slug"`
	Version string `json:"version,omitempty"`
}

// UnmarshalJSON accepts either an add-on object or a bare slug string.
func (a *Addon) UnmarshalJSON(data []byte) error {
	var slug string
	if err := json.Unmarshal(data, &slug); err == nil {
		*a = Addon{Slug: slug}
		return nil
	}
	type addon Addon
	var full addon
	if err := json.Unmarshal(data, &full); err != nil {
		return err
	}
	*a = Addon(full)
	return nil
}

// CoreData carries the optional homeassistant_data section, which may list
// configured integrations under either key.
type CoreData struct {
	Integrations []string `json:"integrations,omitempty"`
	Components   []string `json:"components,omitempty"`
}

// Manifest is the backup metadata document.
type Manifest struct {
	HomeAssistant     string    `json:"homeassistant"`
	Supervisor        string    `json:"supervisor,omitempty"`
	Name              string    `json:"name"`
	Date              string    `json:"date"`
	Type              string    `json:"type"`
	Size              float64   `json:"size"`
	Addons            []Addon   `json:"addons,omitempty"`
	Folders           []string  `json:"folders,omitempty"`
	HomeAssistantData *CoreData `json:"homeassistant_data,omitempty"`
}

// Extract opens archiveData as a tape archive (plain, gzip or zstd
// compressed, detected by magic bytes) and decodes the first entry named
// manifest.json. Scanning stops at the first match. Everything happens on
// in-memory streams; nothing is written to disk.
func Extract(archiveData []byte) (*Manifest, error) {
	reader, err := decompress(bytes.NewReader(archiveData), archiveData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read tar entry: %v", ErrCorruptArchive, err)
		}
		if hdr.Name != "manifest.json" && !strings.HasSuffix(hdr.Name, "manifest.json") {
			continue
		}

		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptArchive, hdr.Name, err)
		}
		var m Manifest
		if err := json.Unmarshal(content, &m); err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrCorruptArchive, hdr.Name, err)
		}
		return &m, nil
	}

	return nil, ErrNotFound
}

// Magic bytes for the compression formats backups are stored in.
var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

func decompress(r io.Reader, head []byte) (io.Reader, error) {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gz, nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return r, nil
	}
}

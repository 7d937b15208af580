// Package manifest loads curated screenshot samples from YAML files or
// plain directories.
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"alliance-observatory/internal/domain"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("manifest not found")

type Sample struct {
	Path string                `json:"path"`
	Type domain.ScreenshotType `json:"type"`
	// RawType keeps the original string when it was not a known type.
	RawType string `json:"raw_type,omitempty"`
	Note    string `json:"note,omitempty"`
}

type file struct {
	Samples []entry `yaml:"samples"`
}

type entry struct {
	File string `yaml:"file"`
	Type string `yaml:"type"`
	Note string `yaml:"note"`
}

// Load reads a manifest. Sample paths are relative to the manifest's
// directory. Entries without a file are skipped.
func Load(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m file
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	samples := make([]Sample, 0, len(m.Samples))
	for _, e := range m.Samples {
		if strings.TrimSpace(e.File) == "" {
			continue
		}
		s := Sample{Path: filepath.Join(base, e.File), Note: e.Note}
		s.Type, s.RawType = parseType(e.Type)
		samples = append(samples, s)
	}
	return samples, nil
}

func parseType(raw string) (domain.ScreenshotType, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.ScreenshotUnknown, ""
	}
	t, ok := domain.ParseScreenshotType(raw)
	if !ok {
		return t, raw
	}
	return t, ""
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// IsImage reports whether the file name has a screenshot extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Discover lists the screenshots directly inside dir, sorted by name.
func Discover(dir string, t domain.ScreenshotType, note string) ([]Sample, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read sample directory %s: %w", dir, err)
	}
	var samples []Sample
	for _, e := range entries {
		if e.IsDir() || !IsImage(e.Name()) {
			continue
		}
		samples = append(samples, Sample{Path: filepath.Join(dir, e.Name()), Type: t, Note: note})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Path < samples[j].Path })
	return samples, nil
}

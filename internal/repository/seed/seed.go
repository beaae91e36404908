// Package seed reads adviser catalog files.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
)

// Load reads a JSON or YAML array of advisers from path. The format follows
// the extension (.json, .yaml, .yml).
func Load(path string, dimensions int) ([]domadv.Adviser, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return Decode(data, FormatJSON, dimensions)
	case ".yaml", ".yml":
		return Decode(data, FormatYAML, dimensions)
	default:
		return nil, fmt.Errorf("seed file %s: unsupported extension %q", path, filepath.Ext(path))
	}
}

// Format is a seed encoding.
type Format string

// Supported seed formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Decode parses and normalizes seed data. Fund totals are recomputed from
// funds whenever funds are listed; records without narrative text get a
// generated one so the lexical index has content. Embeddings are kept as given.
func Decode(data []byte, format Format, dimensions int) ([]domadv.Adviser, error) {
	var advisers []domadv.Adviser
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&advisers); err != nil {
			return nil, fmt.Errorf("decode json seed: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &advisers); err != nil {
			return nil, fmt.Errorf("decode yaml seed: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown seed format %q", format)
	}

	seen := make(map[domadv.ID]int, len(advisers))
	for i := range advisers {
		a := &advisers[i]
		if len(a.Funds) > 0 {
			a.RecomputeFundTotals()
		}
		a.Location.State = strings.ToUpper(strings.TrimSpace(a.Location.State))
		if a.NarrativeText() == "" {
			if a.Narrative == nil {
				a.Narrative = &domadv.Narrative{}
			}
			a.Narrative.Text = domadv.BuildNarrative(a)
		}
		if err := a.Validate(dimensions); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
		if prev, dup := seen[a.ID]; dup {
			return nil, fmt.Errorf("seed records %d and %d share entity_id %d", prev, i, a.ID)
		}
		seen[a.ID] = i
	}
	return advisers, nil
}

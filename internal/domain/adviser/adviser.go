// Package adviser holds the entity catalog model: registered investment advisers,
// the private funds they manage and their optional narrative embedding.
package adviser

import (
	"fmt"
	"math"
	"strings"
)

// ID is the canonical adviser key, stable across all filings for one adviser.
type ID int64

// Location is where the adviser's filing places it.
// City is stored as filed; compare spellings through CityKey.
type Location struct {
	City  string `json:"city" yaml:"city"`
	State string `json:"state" yaml:"state"`
}

// Fund is a private fund owned by exactly one adviser.
// Type is free text ("VC Growth Fund", "Buyout II", ...), not a closed enum.
type Fund struct {
	ID              string  `json:"fund_id" yaml:"fund_id"`
	Type            string  `json:"fund_type" yaml:"fund_type"`
	GrossAssetValue float64 `json:"gross_asset_value" yaml:"gross_asset_value"`
}

// Narrative is the optional human-readable summary and its embedding.
// Embedding may be empty: coverage is partial.
type Narrative struct {
	Text      string    `json:"text" yaml:"text"`
	Embedding []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
}

// Adviser is a catalog record. AUM of 0 means unknown.
// FundCount and FundAUM are denormalized from Funds.
type Adviser struct {
	ID          ID         `json:"entity_id" yaml:"entity_id"`
	DisplayName string     `json:"display_name" yaml:"display_name"`
	Location    Location   `json:"location" yaml:"location"`
	AUM         float64    `json:"aum" yaml:"aum"`
	FundCount   int        `json:"fund_count" yaml:"fund_count"`
	FundAUM     float64    `json:"fund_aum" yaml:"fund_aum"`
	Funds       []Fund     `json:"funds,omitempty" yaml:"funds,omitempty"`
	Narrative   *Narrative `json:"narrative,omitempty" yaml:"narrative,omitempty"`
}

// HasEmbedding reports whether the adviser can take part in semantic retrieval.
func (a *Adviser) HasEmbedding() bool {
	return a.Narrative != nil && len(a.Narrative.Embedding) > 0
}

// Embedding returns the narrative embedding or nil.
func (a *Adviser) Embedding() []float32 {
	if a.Narrative == nil {
		return nil
	}
	return a.Narrative.Embedding
}

// NarrativeText returns the narrative text or "".
func (a *Adviser) NarrativeText() string {
	if a.Narrative == nil {
		return ""
	}
	return a.Narrative.Text
}

// FundTypes returns the fund type strings in fund order.
func (a *Adviser) FundTypes() []string {
	if len(a.Funds) == 0 {
		return nil
	}
	out := make([]string, 0, len(a.Funds))
	for _, f := range a.Funds {
		if f.Type != "" {
			out = append(out, f.Type)
		}
	}
	return out
}

// RecomputeFundTotals refreshes FundCount and FundAUM from Funds.
// Callers own the decision of when funds changed; nothing triggers this automatically.
func (a *Adviser) RecomputeFundTotals() {
	a.FundCount = len(a.Funds)
	var total float64
	for _, f := range a.Funds {
		if f.GrossAssetValue > 0 {
			total += f.GrossAssetValue
		}
	}
	a.FundAUM = total
}

// Validate checks the record invariants. dimensions <= 0 skips the embedding width check.
func (a *Adviser) Validate(dimensions int) error {
	if a.ID <= 0 {
		return fmt.Errorf("entity_id must be positive, got %d", a.ID)
	}
	if a.AUM < 0 || math.IsNaN(a.AUM) || math.IsInf(a.AUM, 0) {
		return fmt.Errorf("adviser %d: aum must be a non-negative number", a.ID)
	}
	if a.FundCount < 0 {
		return fmt.Errorf("adviser %d: fund_count must be non-negative", a.ID)
	}
	if s := strings.TrimSpace(a.Location.State); s != "" && len(s) != 2 {
		return fmt.Errorf("adviser %d: state must be a 2-letter code, got %q", a.ID, a.Location.State)
	}
	if dimensions > 0 && a.HasEmbedding() && len(a.Narrative.Embedding) != dimensions {
		return fmt.Errorf("adviser %d: embedding has %d dimensions, want %d",
			a.ID, len(a.Narrative.Embedding), dimensions)
	}
	return nil
}

package adviser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/riahunter/internal/db"
	"github.com/kailas-cloud/riahunter/internal/domain"
	domadv "github.com/kailas-cloud/riahunter/internal/domain/adviser"
)

// Hash field names. The FT schema indexes state, aum, fund_count, entity_id,
// content and vector; the rest are stored only.
const (
	fieldID        = "entity_id"
	fieldName      = "name"
	fieldCity      = "city"
	fieldCityKey   = "city_key"
	fieldState     = "state"
	fieldAUM       = "aum"
	fieldFundCount = "fund_count"
	fieldFundAUM   = "fund_aum"
	fieldFunds     = "funds"
	fieldNarrative = "narrative"
	fieldContent   = "content"
	fieldVector    = "vector"
)

// catalogFields is everything Candidates and Get need; the vector blob stays server-side.
var catalogFields = []string{
	fieldID, fieldName, fieldCity, fieldState, fieldAUM,
	fieldFundCount, fieldFundAUM, fieldFunds, fieldNarrative,
}

func adviserKey(id domadv.ID) string {
	return domain.KeyPrefix + "adviser:" + strconv.FormatInt(int64(id), 10)
}

func keyPrefix() string {
	return domain.KeyPrefix + "adviser:"
}

// buildHashFields flattens an adviser for HSET. aum is always written so
// unknown AUM (0) falls outside any positive range filter.
func buildHashFields(a *domadv.Adviser) (map[string]string, error) {
	m := map[string]string{
		fieldID:        strconv.FormatInt(int64(a.ID), 10),
		fieldName:      a.DisplayName,
		fieldCity:      a.Location.City,
		fieldCityKey:   domadv.CityKey(a.Location.City),
		fieldState:     strings.ToUpper(strings.TrimSpace(a.Location.State)),
		fieldAUM:       strconv.FormatFloat(a.AUM, 'f', -1, 64),
		fieldFundCount: strconv.Itoa(a.FundCount),
		fieldFundAUM:   strconv.FormatFloat(a.FundAUM, 'f', -1, 64),
		fieldNarrative: a.NarrativeText(),
		fieldContent:   domadv.SearchableText(a),
	}
	if len(a.Funds) > 0 {
		funds, err := json.Marshal(a.Funds)
		if err != nil {
			return nil, fmt.Errorf("marshal funds: %w", err)
		}
		m[fieldFunds] = string(funds)
	}
	if a.HasEmbedding() {
		m[fieldVector] = db.EncodeVector(a.Embedding())
	}
	return m, nil
}

// parseHashFields rebuilds an adviser from hash fields. The embedding is
// not returned; Narrative is set when narrative text is present.
func parseHashFields(m map[string]string) (domadv.Adviser, error) {
	id, err := strconv.ParseInt(m[fieldID], 10, 64)
	if err != nil {
		return domadv.Adviser{}, fmt.Errorf("parse %s %q: %w", fieldID, m[fieldID], err)
	}

	a := domadv.Adviser{
		ID:          domadv.ID(id),
		DisplayName: m[fieldName],
		Location:    domadv.Location{City: m[fieldCity], State: m[fieldState]},
		AUM:         parseFloat(m[fieldAUM]),
		FundAUM:     parseFloat(m[fieldFundAUM]),
	}
	if n, err := strconv.Atoi(m[fieldFundCount]); err == nil {
		a.FundCount = n
	}
	if raw := m[fieldFunds]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &a.Funds); err != nil {
			return domadv.Adviser{}, fmt.Errorf("unmarshal funds for %d: %w", id, err)
		}
	}
	if text := m[fieldNarrative]; text != "" {
		a.Narrative = &domadv.Narrative{Text: text}
	}
	return a, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// entryID reads the adviser id from a search entry, falling back to the key suffix.
func entryID(e *db.SearchEntry) (domadv.ID, bool) {
	raw := e.Fields[fieldID]
	if raw == "" {
		raw = strings.TrimPrefix(e.Key, keyPrefix())
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return domadv.ID(id), true
}

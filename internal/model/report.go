package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
)

// SectionPlaceholder is the content of a visible section whose generation failed.
const SectionPlaceholder = "This section could not be generated at this time. Please try regenerating the report later."

// ReportStatus is the terminal status stored on a report row.
type ReportStatus string

const (
	ReportStatusCompleted ReportStatus = "completed"
)

// GeneratedSection is the output of applying one SectionTemplate.
type GeneratedSection struct {
	Name    string        `json:"-"`
	Title   string        `json:"title"`
	Content string        `json:"content"`
	Visible bool          `json:"visible"`
	Failed  bool          `json:"failed,omitempty"`
	Matches []MatchRecord `json:"matches"`
}

// SectionSet is an ordered mapping of section name to GeneratedSection. It
// encodes as a JSON object whose keys keep template order.
type SectionSet []GeneratedSection

// Get returns the section named name.
func (s SectionSet) Get(name string) (GeneratedSection, bool) {
	for _, sec := range s {
		if sec.Name == name {
			return sec, true
		}
	}
	return GeneratedSection{}, false
}

// Names returns the section names in order.
func (s SectionSet) Names() []string {
	names := make([]string, len(s))
	for i, sec := range s {
		names[i] = sec.Name
	}
	return names
}

// MarshalJSON implements json.Marshaler.
func (s SectionSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sec.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (s *SectionSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "sections: read opening token")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.New("sections: expected object")
	}

	out := SectionSet{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "sections: read key")
		}
		name, ok := tok.(string)
		if !ok {
			return eris.New("sections: expected string key")
		}
		var sec GeneratedSection
		if err := dec.Decode(&sec); err != nil {
			return eris.Wrapf(err, "sections: decode %s", name)
		}
		sec.Name = name
		out = append(out, sec)
	}
	*s = out
	return nil
}

// ReportMetadata describes how a report was generated.
type ReportMetadata struct {
	GenerationTimeMs   int64            `json:"generation_time_ms"`
	CategoriesSearched []MatchCategory  `json:"categories_searched"`
	TotalMatches       int              `json:"total_matches"`
	EnrichmentSource   EnrichmentSource `json:"enrichment_source,omitempty"`
	SectionsGenerated  int              `json:"sections_generated"`
	SectionsGated      int              `json:"sections_gated"`
	SectionsFailed     int              `json:"sections_failed"`
	Model              string           `json:"model,omitempty"`
	InputTokens        int64            `json:"input_tokens"`
	OutputTokens       int64            `json:"output_tokens"`
	EstimatedCostUSD   float64          `json:"estimated_cost_usd"`
}

// Report is the persisted, assembled output of one pipeline run.
type Report struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	IntakeFormID string           `json:"intake_form_id"`
	Tier         TierLevel        `json:"tier_at_generation"`
	Sections     SectionSet       `json:"sections"`
	Matches      MatchSet         `json:"matches"`
	Enrichment   *EnrichedSummary `json:"enrichment,omitempty"`
	Metadata     ReportMetadata   `json:"metadata"`
	Status       ReportStatus     `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

package model

import "time"

// EnrichmentSource records where an EnrichedSummary came from.
type EnrichmentSource string

const (
	EnrichmentSourceWebsite  EnrichmentSource = "website"
	EnrichmentSourceFallback EnrichmentSource = "fallback"
	EnrichmentSourceCached   EnrichmentSource = "cached"
)

// EnrichedSummary is the optional machine-generated annotation on an intake.
type EnrichedSummary struct {
	Summary            string           `json:"summary"`
	NormalizedIndustry string           `json:"normalized_industry,omitempty"`
	Maturity           string           `json:"maturity,omitempty"`
	Source             EnrichmentSource `json:"source"`
	SourceURL          string           `json:"source_url,omitempty"`
	FetchedAt          time.Time        `json:"fetched_at"`
}

// Usable reports whether the summary can be fed into section prompts.
func (e *EnrichedSummary) Usable() bool {
	return e != nil && e.Summary != ""
}

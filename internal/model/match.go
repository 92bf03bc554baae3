package model

import "strings"

// MatchCategory names one of the external collections searched for matches.
type MatchCategory string

const (
	MatchProviders MatchCategory = "providers"
	MatchMentors   MatchCategory = "mentors"
	MatchEvents    MatchCategory = "events"
	MatchContent   MatchCategory = "content"
	MatchLeads     MatchCategory = "leads"
	MatchEcosystem MatchCategory = "ecosystem"
	MatchAgencies  MatchCategory = "agencies"
)

// AllMatchCategories lists every category in report order.
var AllMatchCategories = []MatchCategory{
	MatchProviders,
	MatchMentors,
	MatchEvents,
	MatchContent,
	MatchLeads,
	MatchEcosystem,
	MatchAgencies,
}

// maxMatchTags caps the tag list carried by a MatchRecord.
const maxMatchTags = 3

// MatchRecord is the lightweight, display-ready form of a matched resource.
type MatchRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Subtitle  string   `json:"subtitle"`
	Tags      []string `json:"tags"`
	Link      string   `json:"link"`
	LinkLabel string   `json:"linkLabel"`
}

// NewMatchRecord builds a MatchRecord, dropping blank tags and keeping at
// most three.
func NewMatchRecord(id, name, subtitle string, tags []string, link, linkLabel string) MatchRecord {
	kept := make([]string, 0, maxMatchTags)
	for _, t := range tags {
		if len(kept) == maxMatchTags {
			break
		}
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	return MatchRecord{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Subtitle:  strings.TrimSpace(subtitle),
		Tags:      kept,
		Link:      link,
		LinkLabel: linkLabel,
	}
}

// MatchSet maps each category to its ordered matches.
type MatchSet map[MatchCategory][]MatchRecord

// NewMatchSet returns a MatchSet with an empty, non-nil list per category.
func NewMatchSet() MatchSet {
	ms := make(MatchSet, len(AllMatchCategories))
	for _, c := range AllMatchCategories {
		ms[c] = []MatchRecord{}
	}
	return ms
}

// Total sums the match counts across all categories.
func (ms MatchSet) Total() int {
	n := 0
	for _, recs := range ms {
		n += len(recs)
	}
	return n
}

// Collect concatenates the matches of the given categories in order.
func (ms MatchSet) Collect(cats ...MatchCategory) []MatchRecord {
	out := []MatchRecord{}
	for _, c := range cats {
		out = append(out, ms[c]...)
	}
	return out
}

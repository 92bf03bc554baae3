package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// IntakeStatus represents where an intake form is in the report lifecycle.
type IntakeStatus string

const (
	IntakeStatusPending    IntakeStatus = "pending"
	IntakeStatusProcessing IntakeStatus = "processing"
	IntakeStatusCompleted  IntakeStatus = "completed"
	IntakeStatusFailed     IntakeStatus = "failed"
)

// Valid reports whether s is one of the known intake statuses.
func (s IntakeStatus) Valid() bool {
	switch s {
	case IntakeStatusPending, IntakeStatusProcessing, IntakeStatusCompleted, IntakeStatusFailed:
		return true
	default:
		return false
	}
}

// IntakeRecord holds a user's answers to the market-entry intake form.
type IntakeRecord struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	CompanyName     string           `json:"company_name"`
	Website         string           `json:"website_url,omitempty"`
	CountryOfOrigin string           `json:"country_of_origin"`
	CompanyStage    string           `json:"company_stage"`
	Industry        string           `json:"industry"`
	EmployeeCount   string           `json:"employee_count"`
	TargetRegions   []string         `json:"target_regions"`
	ServicesNeeded  []string         `json:"services_needed"`
	Timeline        string           `json:"timeline"`
	Budget          string           `json:"budget_level"`
	PrimaryGoals    string           `json:"primary_goals"`
	KeyChallenges   string           `json:"key_challenges"`
	Status          IntakeStatus     `json:"status"`
	Enrichment      *EnrichedSummary `json:"enriched_data,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewIntakeRecord trims the free-text fields of rec, defaults an empty status
// to pending, and validates the result.
func NewIntakeRecord(rec IntakeRecord) (*IntakeRecord, error) {
	rec.ID = strings.TrimSpace(rec.ID)
	rec.CompanyName = strings.TrimSpace(rec.CompanyName)
	rec.Website = strings.TrimSpace(rec.Website)
	rec.TargetRegions = compact(rec.TargetRegions)
	rec.ServicesNeeded = compact(rec.ServicesNeeded)
	if rec.Status == "" {
		rec.Status = IntakeStatusPending
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks the fields every stage of the pipeline depends on.
func (r *IntakeRecord) Validate() error {
	if r.ID == "" {
		return eris.New("intake: id is required")
	}
	if r.CompanyName == "" {
		return eris.Errorf("intake %s: company name is required", r.ID)
	}
	if !r.Status.Valid() {
		return eris.Errorf("intake %s: unknown status %q", r.ID, r.Status)
	}
	return nil
}

// HasWebsite reports whether the intake carries a website URL worth fetching.
func (r *IntakeRecord) HasWebsite() bool {
	return strings.TrimSpace(r.Website) != ""
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

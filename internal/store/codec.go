package store

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/model"
)

const intakeSelect = `SELECT id, COALESCE(user_id, ''), company_name, COALESCE(website_url, ''),
	COALESCE(country_of_origin, ''), COALESCE(company_stage, ''), COALESCE(industry, ''),
	COALESCE(employee_count, ''), target_regions, services_needed, COALESCE(timeline, ''),
	COALESCE(budget_level, ''), COALESCE(primary_goals, ''), COALESCE(key_challenges, ''),
	status, enriched_data, created_at, updated_at
FROM user_intake_forms`

const templateSelect = `SELECT id, section_name, COALESCE(title, ''), prompt_template,
	COALESCE(visibility_tier, 'free'), sort_order
FROM report_templates WHERE is_active ORDER BY sort_order, section_name`

const reportSelect = `SELECT id, COALESCE(user_id, ''), intake_form_id, tier_at_generation,
	sections, matches, enrichment, metadata, status, created_at
FROM user_reports`

type scannable interface {
	Scan(dest ...any) error
}

func scanIntake(row scannable) (*model.IntakeRecord, error) {
	var (
		rec                 model.IntakeRecord
		status              string
		regions, services   []byte
		enriched            []byte
		createdAt, updateAt time.Time
	)
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.CompanyName, &rec.Website,
		&rec.CountryOfOrigin, &rec.CompanyStage, &rec.Industry,
		&rec.EmployeeCount, &regions, &services, &rec.Timeline,
		&rec.Budget, &rec.PrimaryGoals, &rec.KeyChallenges,
		&status, &enriched, &createdAt, &updateAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Status = model.IntakeStatus(status)
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updateAt

	if err := unmarshalList(regions, &rec.TargetRegions); err != nil {
		return nil, eris.Wrap(err, "decode target_regions")
	}
	if err := unmarshalList(services, &rec.ServicesNeeded); err != nil {
		return nil, eris.Wrap(err, "decode services_needed")
	}
	if len(enriched) > 0 && string(enriched) != "null" {
		var e model.EnrichedSummary
		if err := json.Unmarshal(enriched, &e); err != nil {
			return nil, eris.Wrap(err, "decode enriched_data")
		}
		rec.Enrichment = &e
	}
	return &rec, nil
}

func scanTemplate(row scannable) (model.SectionTemplate, error) {
	var (
		t    model.SectionTemplate
		tier string
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Title, &t.Prompt, &tier, &t.SortOrder); err != nil {
		return t, err
	}
	t.RequiredTier = model.TierLevel(tier)
	return t, nil
}

func scanReport(row scannable) (*model.Report, error) {
	var (
		r                                    model.Report
		tier, status                         string
		sections, matches, enrich, metadata []byte
	)
	err := row.Scan(&r.ID, &r.UserID, &r.IntakeFormID, &tier,
		&sections, &matches, &enrich, &metadata, &status, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.Tier = model.TierLevel(tier)
	r.Status = model.ReportStatus(status)

	if err := json.Unmarshal(sections, &r.Sections); err != nil {
		return nil, eris.Wrap(err, "decode sections")
	}
	if err := json.Unmarshal(matches, &r.Matches); err != nil {
		return nil, eris.Wrap(err, "decode matches")
	}
	if len(enrich) > 0 && string(enrich) != "null" {
		var e model.EnrichedSummary
		if err := json.Unmarshal(enrich, &e); err != nil {
			return nil, eris.Wrap(err, "decode enrichment")
		}
		r.Enrichment = &e
	}
	if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
		return nil, eris.Wrap(err, "decode metadata")
	}
	return &r, nil
}

// reportJSON holds the JSON-encoded columns of a report row.
type reportJSON struct {
	sections, matches, enrichment, metadata []byte
}

func encodeReport(r *model.Report) (reportJSON, error) {
	var (
		out reportJSON
		err error
	)
	sections := r.Sections
	if sections == nil {
		sections = model.SectionSet{}
	}
	if out.sections, err = json.Marshal(sections); err != nil {
		return out, eris.Wrap(err, "encode sections")
	}
	matches := r.Matches
	if matches == nil {
		matches = model.NewMatchSet()
	}
	if out.matches, err = json.Marshal(matches); err != nil {
		return out, eris.Wrap(err, "encode matches")
	}
	if r.Enrichment != nil {
		if out.enrichment, err = json.Marshal(r.Enrichment); err != nil {
			return out, eris.Wrap(err, "encode enrichment")
		}
	}
	if out.metadata, err = json.Marshal(r.Metadata); err != nil {
		return out, eris.Wrap(err, "encode metadata")
	}
	return out, nil
}

func unmarshalList(data []byte, dst *[]string) error {
	*dst = []string{}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, dst)
}

func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

// nullable returns nil for empty payloads so the column stores SQL NULL.
func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func jsonOrNil(v *model.EnrichedSummary) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

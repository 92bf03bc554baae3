package pipeline

import (
	"strings"
	"time"

	"github.com/sells-group/entry-report/internal/model"
)

// noMatches is the variable value for an empty match list.
const noMatches = "None found"

// matchVariables maps each category to the placeholder that lists it.
var matchVariables = map[model.MatchCategory]model.Variable{
	model.MatchProviders: model.VarServiceProviders,
	model.MatchMentors:   model.VarMentors,
	model.MatchEvents:    model.VarEvents,
	model.MatchContent:   model.VarContent,
	model.MatchLeads:     model.VarLeads,
	model.MatchEcosystem: model.VarEcosystem,
	model.MatchAgencies:  model.VarAgencies,
}

// BuildVariables assembles the placeholder values for every section prompt.
func BuildVariables(rec *model.IntakeRecord, enrichment *model.EnrichedSummary, matches model.MatchSet, tier model.TierLevel, now time.Time) model.VariableMap {
	vars := model.VariableMap{
		model.VarCompanyName:     rec.CompanyName,
		model.VarWebsite:         rec.Website,
		model.VarCountryOfOrigin: rec.CountryOfOrigin,
		model.VarCompanyStage:    rec.CompanyStage,
		model.VarIndustry:        rec.Industry,
		model.VarEmployeeCount:   rec.EmployeeCount,
		model.VarTargetRegions:   strings.Join(rec.TargetRegions, ", "),
		model.VarServicesNeeded:  strings.Join(rec.ServicesNeeded, ", "),
		model.VarTimeline:        rec.Timeline,
		model.VarBudget:          rec.Budget,
		model.VarPrimaryGoals:    rec.PrimaryGoals,
		model.VarKeyChallenges:   rec.KeyChallenges,
		model.VarTier:            string(tier),
		model.VarReportDate:      now.Format("January 2, 2006"),
	}
	if enrichment != nil {
		vars[model.VarEnrichedSummary] = enrichment.Summary
		vars[model.VarNormalizedIndustry] = enrichment.NormalizedIndustry
		vars[model.VarMaturity] = enrichment.Maturity
	}
	for cat, v := range matchVariables {
		vars[v] = FormatMatches(matches[cat])
	}
	return vars
}

// FormatMatches renders one "- name (subtitle)" line per record, or
// "None found" for an empty list.
func FormatMatches(recs []model.MatchRecord) string {
	if len(recs) == 0 {
		return noMatches
	}
	lines := make([]string, len(recs))
	for i, r := range recs {
		if r.Subtitle != "" {
			lines[i] = "- " + r.Name + " (" + r.Subtitle + ")"
		} else {
			lines[i] = "- " + r.Name
		}
	}
	return strings.Join(lines, "\n")
}

package model

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
)

// Variable is a placeholder name that section prompts may reference.
type Variable string

const (
	VarCompanyName        Variable = "company_name"
	VarWebsite            Variable = "website"
	VarCountryOfOrigin    Variable = "country_of_origin"
	VarCompanyStage       Variable = "company_stage"
	VarIndustry           Variable = "industry"
	VarEmployeeCount      Variable = "employee_count"
	VarTargetRegions      Variable = "target_regions"
	VarServicesNeeded     Variable = "services_needed"
	VarTimeline           Variable = "timeline"
	VarBudget             Variable = "budget"
	VarPrimaryGoals       Variable = "primary_goals"
	VarKeyChallenges      Variable = "key_challenges"
	VarEnrichedSummary    Variable = "enriched_summary"
	VarNormalizedIndustry Variable = "normalized_industry"
	VarMaturity           Variable = "maturity"
	VarServiceProviders   Variable = "service_providers"
	VarMentors            Variable = "mentors"
	VarEvents             Variable = "events"
	VarContent            Variable = "content"
	VarLeads              Variable = "leads"
	VarEcosystem          Variable = "ecosystem"
	VarAgencies           Variable = "agencies"
	VarTier               Variable = "tier"
	VarReportDate         Variable = "report_date"
)

// KnownVariables is the closed set of placeholder names.
var KnownVariables = []Variable{
	VarCompanyName, VarWebsite, VarCountryOfOrigin, VarCompanyStage,
	VarIndustry, VarEmployeeCount, VarTargetRegions, VarServicesNeeded,
	VarTimeline, VarBudget, VarPrimaryGoals, VarKeyChallenges,
	VarEnrichedSummary, VarNormalizedIndustry, VarMaturity,
	VarServiceProviders, VarMentors, VarEvents, VarContent, VarLeads,
	VarEcosystem, VarAgencies, VarTier, VarReportDate,
}

// Known reports whether v belongs to KnownVariables.
func (v Variable) Known() bool {
	return slices.Contains(KnownVariables, v)
}

// VariableMap holds the string value for each placeholder.
type VariableMap map[Variable]string

// placeholderRe matches anything between double braces. ParsePlaceholders
// rejects names outside KnownVariables, {{company-name}} and {{}} included.
var placeholderRe = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// SectionTemplate is a named, tier-gated prompt blueprint.
type SectionTemplate struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"section_name" yaml:"section_name"`
	Title        string     `json:"title" yaml:"title"`
	Prompt       string     `json:"prompt_template" yaml:"prompt_template"`
	RequiredTier TierLevel  `json:"visibility_tier" yaml:"visibility_tier"`
	SortOrder    int        `json:"sort_order" yaml:"sort_order"`
	Placeholders []Variable `json:"-" yaml:"-"`
}

// NewSectionTemplate validates t and records the placeholders its prompt
// references. Unknown placeholder names are an error.
func NewSectionTemplate(t SectionTemplate) (*SectionTemplate, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return nil, eris.New("template: section name is required")
	}
	if strings.TrimSpace(t.Prompt) == "" {
		return nil, eris.Errorf("template %s: prompt is empty", t.Name)
	}

	if t.RequiredTier == "" {
		t.RequiredTier = TierFree
	}
	tier, err := ParseTier(string(t.RequiredTier))
	if err != nil {
		return nil, eris.Wrapf(err, "template %s", t.Name)
	}
	t.RequiredTier = tier

	vars, err := ParsePlaceholders(t.Prompt)
	if err != nil {
		return nil, eris.Wrapf(err, "template %s", t.Name)
	}
	t.Placeholders = vars
	if t.Title == "" {
		t.Title = t.Name
	}
	return &t, nil
}

// ParsePlaceholders returns the distinct placeholders in prompt, in order of
// first appearance, or an error naming every unknown placeholder.
func ParsePlaceholders(prompt string) ([]Variable, error) {
	var (
		vars    []Variable
		unknown []string
	)
	for _, m := range placeholderRe.FindAllStringSubmatch(prompt, -1) {
		name := strings.TrimSpace(m[1])
		v := Variable(name)
		if !v.Known() {
			if name == "" {
				name = "{{}}"
			}
			if !slices.Contains(unknown, name) {
				unknown = append(unknown, name)
			}
			continue
		}
		if !slices.Contains(vars, v) {
			vars = append(vars, v)
		}
	}
	if len(unknown) > 0 {
		return nil, eris.Errorf("unknown placeholders: %s", strings.Join(unknown, ", "))
	}
	return vars, nil
}

// Render substitutes every placeholder in the prompt. Variables absent from
// vars, and names outside the known set, render as the empty string.
func (t *SectionTemplate) Render(vars VariableMap) string {
	return placeholderRe.ReplaceAllStringFunc(t.Prompt, func(match string) string {
		name := strings.TrimSpace(placeholderRe.FindStringSubmatch(match)[1])
		return vars[Variable(name)]
	})
}

// SortTemplates orders templates by SortOrder, then name.
func SortTemplates(ts []SectionTemplate) {
	slices.SortStableFunc(ts, func(a, b SectionTemplate) int {
		if a.SortOrder != b.SortOrder {
			return a.SortOrder - b.SortOrder
		}
		return strings.Compare(a.Name, b.Name)
	})
}

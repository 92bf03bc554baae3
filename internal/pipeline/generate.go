package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/resilience"
	"github.com/sells-group/entry-report/pkg/anthropic"
)

// sectionBatchSize is the number of sections generated concurrently. Each
// batch finishes before the next starts.
const sectionBatchSize = 3

const sectionSystemPrompt = `You are an expert market-entry advisor writing one section of a personalised report for a company expanding into a new market.
Write in clear, practical markdown. Be specific to the company and the data provided. Do not invent organisations that were not listed. Do not repeat the section title.`

// sectionCategories lists the match categories attached to each section.
var sectionCategories = map[string][]model.MatchCategory{
	"service_providers":      {model.MatchProviders},
	"mentor_recommendations": {model.MatchMentors},
	"events_resources":       {model.MatchEvents, model.MatchContent},
	"lead_generation":        {model.MatchLeads},
	"innovation_ecosystem":   {model.MatchEcosystem},
	"government_support":     {model.MatchAgencies},
}

// SectionMatches returns the matches attached to the named section.
func SectionMatches(section string, matches model.MatchSet) []model.MatchRecord {
	return matches.Collect(sectionCategories[section]...)
}

// generateSections renders every template in order, in batches of
// sectionBatchSize. Section failures are isolated to their own entry.
func (p *Pipeline) generateSections(
	ctx context.Context,
	templates []model.SectionTemplate,
	vars model.VariableMap,
	tier model.TierLevel,
	matches model.MatchSet,
) (model.SectionSet, anthropic.TokenUsage) {
	sections := make(model.SectionSet, len(templates))

	var (
		mu    sync.Mutex
		usage anthropic.TokenUsage
	)
	for start := 0; start < len(templates); start += sectionBatchSize {
		end := min(start+sectionBatchSize, len(templates))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				sec, u := p.generateSection(ctx, templates[i], vars, tier, matches)
				sections[i] = sec
				mu.Lock()
				usage.Add(u)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}
	return sections, usage
}

// generateSection applies one template. Gated templates never reach the API.
func (p *Pipeline) generateSection(
	ctx context.Context,
	t model.SectionTemplate,
	vars model.VariableMap,
	tier model.TierLevel,
	matches model.MatchSet,
) (model.GeneratedSection, anthropic.TokenUsage) {
	var usage anthropic.TokenUsage
	sec := model.GeneratedSection{
		Name:    t.Name,
		Title:   t.Title,
		Matches: []model.MatchRecord{},
	}
	if !model.Meets(tier, t.RequiredTier) {
		return sec, usage
	}

	sec.Visible = true
	sec.Matches = SectionMatches(t.Name, matches)

	text, u, err := p.complete(ctx, t.Render(vars))
	usage = u
	if err != nil {
		zap.L().Warn("generate: section failed",
			zap.String("section", t.Name),
			zap.Error(err),
		)
		sec.Content = model.SectionPlaceholder
		sec.Failed = true
		return sec, usage
	}
	sec.Content = text
	return sec, usage
}

// complete sends one prompt under the rate limit and retry policy.
func (p *Pipeline) complete(ctx context.Context, prompt string) (string, anthropic.TokenUsage, error) {
	var usage anthropic.TokenUsage
	resp, err := resilience.Retry(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.cfg.Anthropic.Model,
			MaxTokens: orDefault(p.cfg.Anthropic.MaxTokens, 2048),
			System:    anthropic.CachedSystem(sectionSystemPrompt),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", usage, eris.Wrap(err, "generate: create message")
	}
	usage.Add(resp.Usage)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", usage, eris.New("generate: empty response")
	}
	return text, usage, nil
}

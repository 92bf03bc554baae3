package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/resilience"
	"github.com/sells-group/entry-report/pkg/anthropic"
)

const summaryPrompt = `You are analysing a company's website to support a market-entry report.

Company: %s
Stated industry: %s

Website content:
%s

Respond with JSON only, no prose:
{"summary": "2-3 sentence description of what the company does and who it serves",
 "normalized_industry": "a standard industry label",
 "maturity": "one of: early, growth, established"}`

// summaryReply is the JSON shape expected from the summary call.
type summaryReply struct {
	Summary            string `json:"summary"`
	NormalizedIndustry string `json:"normalized_industry"`
	Maturity           string `json:"maturity"`
}

// enrich produces the EnrichedSummary for rec. It never fails: any problem
// with the website or the summary call yields FallbackSummary.
func (p *Pipeline) enrich(ctx context.Context, rec *model.IntakeRecord) (*model.EnrichedSummary, anthropic.TokenUsage) {
	var usage anthropic.TokenUsage
	log := zap.L().With(zap.String("intake_id", rec.ID))

	if rec.Enrichment.Usable() && rec.Enrichment.Source != model.EnrichmentSourceFallback {
		cached := *rec.Enrichment
		cached.Source = model.EnrichmentSourceCached
		return &cached, usage
	}

	fallback := func(reason string) (*model.EnrichedSummary, anthropic.TokenUsage) {
		log.Info("enrich: using fallback summary", zap.String("reason", reason))
		return FallbackSummary(rec, p.now()), usage
	}

	if !rec.HasWebsite() {
		return fallback("no website")
	}
	if p.fetcher == nil {
		return fallback("no extraction client")
	}

	res, err := p.fetcher.Scrape(ctx, rec.Website)
	if err != nil {
		log.Warn("enrich: website fetch failed", zap.String("url", rec.Website), zap.Error(err))
		return fallback("fetch failed")
	}

	content := strings.TrimSpace(res.Page.Markdown)
	if utf8.RuneCountInString(content) < p.minContentChars() {
		return fallback("content too short")
	}
	content = truncateRunes(content, p.cfg.Pipeline.MaxContentChars)

	resp, err := resilience.Retry(ctx, p.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return p.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     p.summaryModel(),
			MaxTokens: orDefault(p.cfg.Anthropic.SummaryMaxTokens, 1024),
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(summaryPrompt, rec.CompanyName, rec.Industry, content)},
			},
		})
	})
	if err != nil {
		log.Warn("enrich: summary call failed", zap.Error(err))
		return fallback("summary failed")
	}
	usage.Add(resp.Usage)

	var reply summaryReply
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &reply); err != nil {
		log.Warn("enrich: unparseable summary reply", zap.Error(err))
		return fallback("unparseable summary")
	}
	if strings.TrimSpace(reply.Summary) == "" {
		return fallback("empty summary")
	}

	industry := reply.NormalizedIndustry
	if strings.TrimSpace(industry) == "" {
		industry = rec.Industry
	}
	summary := &model.EnrichedSummary{
		Summary:            strings.TrimSpace(reply.Summary),
		NormalizedIndustry: titleCase(industry),
		Maturity:           strings.ToLower(strings.TrimSpace(reply.Maturity)),
		Source:             model.EnrichmentSourceWebsite,
		SourceURL:          res.Page.URL,
		FetchedAt:          p.now().UTC(),
	}

	if err := p.store.SaveEnrichment(ctx, rec.ID, summary); err != nil {
		log.Warn("enrich: could not persist enrichment", zap.Error(err))
	}
	return summary, usage
}

// FallbackSummary builds the deterministic summary used when the website
// cannot be fetched or summarized.
func FallbackSummary(rec *model.IntakeRecord, now time.Time) *model.EnrichedSummary {
	text := fmt.Sprintf("%s is a %s company in the %s industry, based in %s, with %s employees.",
		orUnspecified(rec.CompanyName),
		orUnspecified(rec.CompanyStage),
		orUnspecified(rec.Industry),
		orUnspecified(rec.CountryOfOrigin),
		orUnspecified(rec.EmployeeCount),
	)
	return &model.EnrichedSummary{
		Summary:            text,
		NormalizedIndustry: titleCase(rec.Industry),
		Maturity:           strings.ToLower(strings.TrimSpace(rec.CompanyStage)),
		Source:             model.EnrichmentSourceFallback,
		FetchedAt:          now.UTC(),
	}
}

func orUnspecified(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unspecified"
	}
	return s
}

// titleCase normalizes an industry label, e.g. "FINTECH services" -> "Fintech Services".
func titleCase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ToLower(s))
}

func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}

func (p *Pipeline) minContentChars() int {
	if p.cfg.Pipeline.MinContentChars > 0 {
		return p.cfg.Pipeline.MinContentChars
	}
	return 200
}

func orDefault(v, def int64) int64 {
	if v > 0 {
		return v
	}
	return def
}

func (p *Pipeline) summaryModel() string {
	if p.cfg.Anthropic.SummaryModel != "" {
		return p.cfg.Anthropic.SummaryModel
	}
	return p.cfg.Anthropic.Model
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

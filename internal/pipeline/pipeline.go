// Package pipeline turns an intake form into a persisted market-entry report.
//
// A run moves through six stages: load the intake, enrich it from the
// company website, look up directory matches, resolve the caller's tier,
// generate tier-gated sections, and assemble the report. Only intake loading
// and final persistence are fatal; every other stage degrades to a safe
// default.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/entry-report/internal/config"
	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/registry"
	"github.com/sells-group/entry-report/internal/resilience"
	"github.com/sells-group/entry-report/internal/scrape"
	"github.com/sells-group/entry-report/internal/store"
	"github.com/sells-group/entry-report/pkg/anthropic"
)

// Fetcher retrieves a website as markdown. *scrape.Chain implements it.
type Fetcher interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// Pipeline generates reports for intake forms.
type Pipeline struct {
	cfg     *config.Config
	store   store.Store
	ai      anthropic.Client
	fetcher Fetcher
	limiter *rate.Limiter
	retry   resilience.Policy
	now     func() time.Time
}

// New creates a Pipeline. fetcher may be nil, in which case every intake gets
// the fallback summary.
func New(cfg *config.Config, st store.Store, ai anthropic.Client, fetcher Fetcher) *Pipeline {
	limit := rate.Inf
	if cfg.Anthropic.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.Anthropic.RequestsPerSecond)
	}

	retry := resilience.NewPolicy(
		cfg.Resilience.MaxAttempts,
		cfg.Resilience.InitialBackoffMs,
		cfg.Resilience.MaxBackoffMs,
	).WithLogging("anthropic", "create_message")
	retry.ShouldRetry = retryableAIError

	return &Pipeline{
		cfg:     cfg,
		store:   st,
		ai:      ai,
		fetcher: fetcher,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
		now:     time.Now,
	}
}

// retryableAIError classifies generation API errors. SDK errors carry an
// HTTP status; anything else falls back to the generic classifier.
func retryableAIError(err error) bool {
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientHTTPStatus(code)
	}
	return resilience.IsTransient(err)
}

// Run generates and persists a report for the intake form intakeID.
//
// Once the intake has been moved to processing, any fatal error triggers a
// best-effort transition to failed.
func (p *Pipeline) Run(ctx context.Context, intakeID string) (_ *model.Report, err error) {
	start := p.now()
	log := zap.L().With(zap.String("intake_id", intakeID))
	log.Info("pipeline: starting report")

	var rec *model.IntakeRecord
	p.stage(log, "intake", func() {
		rec, err = p.loadIntake(ctx, intakeID)
	})
	if err != nil {
		log.Error("pipeline: intake load failed", zap.Error(err))
		return nil, err
	}

	defer func() {
		if err != nil {
			p.markFailed(ctx, log, intakeID)
		}
	}()

	var (
		enrichment   *model.EnrichedSummary
		summaryUsage anthropic.TokenUsage
		matches      model.MatchSet
		g            errgroup.Group
	)
	g.Go(func() error {
		p.stage(log, "enrich", func() {
			enrichment, summaryUsage = p.enrich(ctx, rec)
		})
		return nil
	})
	g.Go(func() error {
		p.stage(log, "match", func() {
			matches = p.match(ctx, rec)
		})
		return nil
	})
	_ = g.Wait()

	var tier model.TierLevel
	p.stage(log, "tier", func() {
		tier = p.resolveTier(ctx, rec.UserID)
	})

	var (
		sections  model.SectionSet
		sectUsage anthropic.TokenUsage
	)
	p.stage(log, "generate", func() {
		templates := p.loadTemplates(ctx)
		vars := BuildVariables(rec, enrichment, matches, tier, p.now())
		sections, sectUsage = p.generateSections(ctx, templates, vars, tier, matches)
	})

	meta := p.buildMetadata(sections, matches, enrichment, summaryUsage, sectUsage)
	meta.GenerationTimeMs = p.now().Sub(start).Milliseconds()

	var report *model.Report
	p.stage(log, "assemble", func() {
		report, err = p.assemble(ctx, rec, tier, sections, matches, enrichment, meta)
	})
	if err != nil {
		log.Error("pipeline: report assembly failed", zap.Error(err))
		return nil, err
	}

	log.Info("pipeline: report complete",
		zap.String("report_id", report.ID),
		zap.String("tier", string(tier)),
		zap.Int("total_matches", meta.TotalMatches),
		zap.Int("sections_failed", meta.SectionsFailed),
		zap.Int64("duration_ms", meta.GenerationTimeMs),
	)
	return report, nil
}

// stage runs fn and logs its duration under the given stage name.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func()) {
	start := time.Now()
	fn()
	log.Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
}

// markFailed moves the intake to failed. It runs after the caller's context
// may already be done, so it uses a short detached deadline.
func (p *Pipeline) markFailed(ctx context.Context, log *zap.Logger, intakeID string) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.store.UpdateIntakeStatus(fctx, intakeID, model.IntakeStatusFailed); err != nil {
		log.Warn("pipeline: could not mark intake failed", zap.Error(err))
	}
}

// loadTemplates reads the active templates. A store error yields no sections
// rather than failing the run.
func (p *Pipeline) loadTemplates(ctx context.Context) []model.SectionTemplate {
	raw, err := p.store.ListTemplates(ctx)
	if err != nil {
		zap.L().Warn("pipeline: template load failed, generating no sections", zap.Error(err))
		return nil
	}
	return registry.Prepare(raw)
}

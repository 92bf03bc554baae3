package pipeline

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/pkg/anthropic"
)

// buildMetadata summarizes a run. GenerationTimeMs is set by the caller.
func (p *Pipeline) buildMetadata(
	sections model.SectionSet,
	matches model.MatchSet,
	enrichment *model.EnrichedSummary,
	summaryUsage, sectionUsage anthropic.TokenUsage,
) model.ReportMetadata {
	meta := model.ReportMetadata{
		CategoriesSearched: slices.Clone(model.AllMatchCategories),
		TotalMatches:       matches.Total(),
		Model:              p.cfg.Anthropic.Model,
		InputTokens:        summaryUsage.InputTokens + sectionUsage.InputTokens,
		OutputTokens:       summaryUsage.OutputTokens + sectionUsage.OutputTokens,
		EstimatedCostUSD:   summaryUsage.EstimateCost(p.summaryModel()) + sectionUsage.EstimateCost(p.cfg.Anthropic.Model),
	}
	if enrichment != nil {
		meta.EnrichmentSource = enrichment.Source
	}
	for _, s := range sections {
		switch {
		case !s.Visible:
			meta.SectionsGated++
		case s.Failed:
			meta.SectionsFailed++
		default:
			meta.SectionsGenerated++
		}
	}
	return meta
}

// assemble inserts the report and marks the intake completed. Both writes are
// fatal on error; a report row is never updated after insert.
func (p *Pipeline) assemble(
	ctx context.Context,
	rec *model.IntakeRecord,
	tier model.TierLevel,
	sections model.SectionSet,
	matches model.MatchSet,
	enrichment *model.EnrichedSummary,
	meta model.ReportMetadata,
) (*model.Report, error) {
	report := &model.Report{
		ID:           uuid.New().String(),
		UserID:       rec.UserID,
		IntakeFormID: rec.ID,
		Tier:         tier,
		Sections:     sections,
		Matches:      matches,
		Enrichment:   enrichment,
		Metadata:     meta,
		Status:       model.ReportStatusCompleted,
		CreatedAt:    p.now().UTC(),
	}

	if err := p.store.CreateReport(ctx, report); err != nil {
		return nil, eris.Wrap(err, "pipeline: insert report")
	}
	if err := p.store.UpdateIntakeStatus(ctx, rec.ID, model.IntakeStatusCompleted); err != nil {
		return nil, eris.Wrapf(err, "pipeline: mark intake %s completed", rec.ID)
	}
	return report, nil
}

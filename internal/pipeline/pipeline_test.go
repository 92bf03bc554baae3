package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/store"
	storemocks "github.com/sells-group/entry-report/internal/store/mocks"
)

func TestRun_FallbackSummaryWithoutWebsite(t *testing.T) {
	st := storemocks.NewMockStore(t)
	ai := &fakeAI{}
	rec := testIntake()

	expectRun(st, rec, "growth", []model.SectionTemplate{tmpl("executive_summary", model.TierFree, 1)})
	expectNoMatches(st)

	report, err := newTestPipeline(st, ai, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)

	require.NotNil(t, report.Enrichment)
	assert.Equal(t, model.EnrichmentSourceFallback, report.Enrichment.Source)
	assert.Equal(t,
		"Acme is a Growth company in the fintech industry, based in Germany, with 11-50 employees.",
		report.Enrichment.Summary,
	)
	assert.Equal(t, model.EnrichmentSourceFallback, report.Metadata.EnrichmentSource)
	assert.Equal(t, 1, ai.callCount())
	st.AssertNotCalled(t, "SaveEnrichment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_TierGating(t *testing.T) {
	templates := []model.SectionTemplate{
		tmpl("executive_summary", model.TierFree, 1),
		tmpl("service_providers", model.TierGrowth, 2),
		tmpl("lead_generation", model.TierScale, 3),
	}
	provider := model.NewMatchRecord("p1", "Harbour Legal", "Sydney", []string{"legal"}, "/service-providers/p1", "View Provider")

	tests := []struct {
		tier          string
		wantVisible   []bool
		wantCalls     int
		wantGated     int
		wantProviders int
	}{
		{tier: "free", wantVisible: []bool{true, false, false}, wantCalls: 1, wantGated: 2, wantProviders: 0},
		{tier: "growth", wantVisible: []bool{true, true, false}, wantCalls: 2, wantGated: 1, wantProviders: 1},
		{tier: "enterprise", wantVisible: []bool{true, true, true}, wantCalls: 3, wantGated: 0, wantProviders: 1},
	}
	for _, tt := range tests {
		t.Run(tt.tier, func(t *testing.T) {
			st := storemocks.NewMockStore(t)
			ai := &fakeAI{}
			rec := testIntake()

			expectRun(st, rec, tt.tier, templates)
			st.On("FindMatches", mock.Anything, model.MatchProviders, mock.Anything).Return([]model.MatchRecord{provider}, nil)
			expectNoMatches(st)

			report, err := newTestPipeline(st, ai, nil).Run(context.Background(), rec.ID)
			require.NoError(t, err)

			require.Len(t, report.Sections, 3)
			for i, sec := range report.Sections {
				assert.Equal(t, tt.wantVisible[i], sec.Visible, sec.Name)
				if !sec.Visible {
					assert.Empty(t, sec.Content, sec.Name)
					assert.Empty(t, sec.Matches, sec.Name)
					assert.NotNil(t, sec.Matches, sec.Name)
				}
			}
			providers, ok := report.Sections.Get("service_providers")
			require.True(t, ok)
			assert.Len(t, providers.Matches, tt.wantProviders)

			assert.Equal(t, model.TierLevel(tt.tier), report.Tier)
			assert.Equal(t, tt.wantCalls, ai.callCount())
			assert.Equal(t, tt.wantGated, report.Metadata.SectionsGated)
			assert.Equal(t, tt.wantCalls, report.Metadata.SectionsGenerated)
			assert.Len(t, report.Matches[model.MatchProviders], 1)
		})
	}
}

func TestRun_NoMatchesAnywhere(t *testing.T) {
	st := storemocks.NewMockStore(t)
	ai := &fakeAI{}
	rec := testIntake()

	providers := model.SectionTemplate{
		Name:         "service_providers",
		Prompt:       "Providers for {{company_name}}:\n{{service_providers}}",
		RequiredTier: model.TierFree,
	}
	expectRun(st, rec, "free", []model.SectionTemplate{providers})
	expectNoMatches(st)

	report, err := newTestPipeline(st, ai, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Metadata.TotalMatches)
	assert.Equal(t, model.AllMatchCategories, report.Metadata.CategoriesSearched)
	for _, cat := range model.AllMatchCategories {
		recs, ok := report.Matches[cat]
		assert.True(t, ok, cat)
		assert.Empty(t, recs, cat)
	}
	require.Len(t, ai.prompts, 1)
	assert.Equal(t, "Providers for Acme:\nNone found", ai.prompts[0])
}

func TestRun_CategoryFailureIsIsolated(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := testIntake()

	expectRun(st, rec, "free", nil)
	st.On("FindMatches", mock.Anything, model.MatchEvents, mock.Anything).Return(nil, eris.New("relation \"events\" does not exist"))
	st.On("FindMatches", mock.Anything, mock.Anything, mock.Anything).Return([]model.MatchRecord{{ID: "x", Name: "X"}}, nil)

	report, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Empty(t, report.Matches[model.MatchEvents])
	for _, cat := range model.AllMatchCategories {
		if cat == model.MatchEvents {
			continue
		}
		assert.Len(t, report.Matches[cat], 1, cat)
	}
	assert.Equal(t, len(model.AllMatchCategories)-1, report.Metadata.TotalMatches)
}

func TestRun_FailedSectionMidBatch(t *testing.T) {
	st := storemocks.NewMockStore(t)
	ai := &fakeAI{fail: map[string]error{"s3": errors.New("overloaded")}}
	rec := testIntake()

	var templates []model.SectionTemplate
	for i := 1; i <= 5; i++ {
		templates = append(templates, tmpl(fmt.Sprintf("s%d", i), model.TierFree, i))
	}
	expectRun(st, rec, "free", templates)
	expectNoMatches(st)

	report, err := newTestPipeline(st, ai, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"s1", "s2", "s3", "s4", "s5"}, report.Sections.Names())
	for _, sec := range report.Sections {
		assert.True(t, sec.Visible, sec.Name)
		if sec.Name == "s3" {
			assert.True(t, sec.Failed)
			assert.Equal(t, model.SectionPlaceholder, sec.Content)
			continue
		}
		assert.False(t, sec.Failed, sec.Name)
		assert.Equal(t, "Generated: Write "+sec.Name+" for Acme.", sec.Content)
	}
	assert.Equal(t, 1, report.Metadata.SectionsFailed)
	assert.Equal(t, 4, report.Metadata.SectionsGenerated)
	assert.Equal(t, 5, ai.callCount())
}

func TestRun_DistinctReportIDs(t *testing.T) {
	st := storemocks.NewMockStore(t)
	expectRun(st, testIntake(), "free", nil)
	expectRun(st, testIntake(), "free", nil)
	expectNoMatches(st)

	p := newTestPipeline(st, &fakeAI{}, nil)
	first, err := p.Run(context.Background(), "intake-1")
	require.NoError(t, err)
	second, err := p.Run(context.Background(), "intake-1")
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "intake-1", second.IntakeFormID)
}

func TestRun_MetadataAndPersistedReport(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := testIntake()

	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusProcessing).Return(nil).Once()
	st.On("GetActiveTier", mock.Anything, rec.UserID).Return("scale", nil).Once()
	st.On("ListTemplates", mock.Anything).Return([]model.SectionTemplate{tmpl("executive_summary", model.TierFree, 1)}, nil).Once()
	expectNoMatches(st)

	var saved *model.Report
	st.On("CreateReport", mock.Anything, mock.AnythingOfType("*model.Report")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.Report) }).
		Return(nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusCompleted).Return(nil).Once()

	report, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)

	require.Same(t, report, saved)
	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, model.ReportStatusCompleted, report.Status)
	assert.Equal(t, fixedNow, report.CreatedAt)
	assert.Equal(t, "claude-sonnet-4-5-20250929", report.Metadata.Model)
	assert.Equal(t, int64(100), report.Metadata.InputTokens)
	assert.Equal(t, int64(50), report.Metadata.OutputTokens)
	assert.Greater(t, report.Metadata.EstimatedCostUSD, 0.0)
	assert.GreaterOrEqual(t, report.Metadata.GenerationTimeMs, int64(0))
}

func TestRun_TemplateLoadFailureYieldsNoSections(t *testing.T) {
	st := storemocks.NewMockStore(t)
	ai := &fakeAI{}
	rec := testIntake()

	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusProcessing).Return(nil).Once()
	st.On("GetActiveTier", mock.Anything, rec.UserID).Return("free", nil).Once()
	st.On("ListTemplates", mock.Anything).Return(nil, eris.New("connection reset")).Once()
	st.On("CreateReport", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusCompleted).Return(nil).Once()
	expectNoMatches(st)

	report, err := newTestPipeline(st, ai, nil).Run(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Empty(t, report.Sections)
	assert.Equal(t, 0, ai.callCount())
}

func TestRun_IntakeNotFound(t *testing.T) {
	st := storemocks.NewMockStore(t)
	st.On("GetIntake", mock.Anything, "missing").Return(nil, eris.Wrap(store.ErrNotFound, "intake missing")).Once()

	_, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	st.AssertNotCalled(t, "UpdateIntakeStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_EmptyIntakeID(t *testing.T) {
	st := storemocks.NewMockStore(t)

	_, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "intake id is required")
}

func TestRun_InvalidIntake(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := testIntake()
	rec.CompanyName = ""
	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()

	_, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), rec.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid intake")
}

func TestRun_InsertFailureMarksIntakeFailed(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := testIntake()

	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusProcessing).Return(nil).Once()
	st.On("GetActiveTier", mock.Anything, rec.UserID).Return("free", nil).Once()
	st.On("ListTemplates", mock.Anything).Return(nil, nil).Once()
	st.On("CreateReport", mock.Anything, mock.Anything).Return(eris.New("disk full")).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusFailed).Return(nil).Once()
	expectNoMatches(st)

	report, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), rec.ID)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.Contains(t, err.Error(), "insert report")
	st.AssertNotCalled(t, "UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusCompleted)
}

func TestRun_CompletedStatusFailureIsFatal(t *testing.T) {
	st := storemocks.NewMockStore(t)
	rec := testIntake()

	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusProcessing).Return(nil).Once()
	st.On("GetActiveTier", mock.Anything, rec.UserID).Return("free", nil).Once()
	st.On("ListTemplates", mock.Anything).Return(nil, nil).Once()
	st.On("CreateReport", mock.Anything, mock.Anything).Return(nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusCompleted).Return(eris.New("timeout")).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusFailed).Return(nil).Once()
	expectNoMatches(st)

	_, err := newTestPipeline(st, &fakeAI{}, nil).Run(context.Background(), rec.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed")
}

func TestGenerateSections_BatchesOfThree(t *testing.T) {
	ai := &fakeAI{delay: 25 * time.Millisecond}
	p := newTestPipeline(nil, ai, nil)

	var templates []model.SectionTemplate
	for i := range 7 {
		templates = append(templates, tmpl(fmt.Sprintf("section_%d", i), model.TierFree, i))
	}
	vars := model.VariableMap{model.VarCompanyName: "Acme"}

	sections, usage := p.generateSections(context.Background(), templates, vars, model.TierFree, model.NewMatchSet())

	require.Len(t, sections, 7)
	for i, sec := range sections {
		assert.Equal(t, templates[i].Name, sec.Name)
		assert.False(t, sec.Failed)
	}
	assert.Equal(t, int64(700), usage.InputTokens)
	assert.Equal(t, 3, ai.maxInFlight)

	// Every call of batch b ends before any call of batch b+1 starts.
	batchOf := func(event string) int {
		_, prompt, _ := strings.Cut(event, ":")
		for i, tt := range templates {
			if prompt == "Write "+tt.Name+" for Acme." {
				return i / sectionBatchSize
			}
		}
		t.Fatalf("unknown prompt %q", prompt)
		return -1
	}
	lastEnd := map[int]int{}
	firstStart := map[int]int{}
	for i, ev := range ai.events {
		b := batchOf(ev)
		if strings.HasPrefix(ev, "end:") {
			lastEnd[b] = i
		} else if _, ok := firstStart[b]; !ok {
			firstStart[b] = i
		}
	}
	require.Len(t, firstStart, 3)
	for b := range 2 {
		assert.Less(t, lastEnd[b], firstStart[b+1], "batch %d overlaps batch %d", b, b+1)
	}
}

func TestGenerateSections_Empty(t *testing.T) {
	ai := &fakeAI{}
	p := newTestPipeline(nil, ai, nil)

	sections, usage := p.generateSections(context.Background(), nil, model.VariableMap{}, model.TierFree, model.NewMatchSet())
	assert.Empty(t, sections)
	assert.Zero(t, usage.InputTokens)
	assert.Equal(t, 0, ai.callCount())
}

func TestGenerateSection_EmptyReplyFails(t *testing.T) {
	ai := &emptyAI{}
	p := newTestPipeline(nil, ai, nil)

	matches := model.NewMatchSet()
	matches[model.MatchEvents] = []model.MatchRecord{{ID: "e1"}}
	matches[model.MatchContent] = []model.MatchRecord{{ID: "c1"}}

	sec, _ := p.generateSection(context.Background(), tmpl("events_resources", model.TierFree, 1), model.VariableMap{}, model.TierFree, matches)
	assert.True(t, sec.Visible)
	assert.True(t, sec.Failed)
	assert.Equal(t, model.SectionPlaceholder, sec.Content)
	require.Len(t, sec.Matches, 2)
	assert.Equal(t, "e1", sec.Matches[0].ID)
	assert.Equal(t, "c1", sec.Matches[1].ID)
}

func TestSectionMatches(t *testing.T) {
	matches := model.NewMatchSet()
	matches[model.MatchAgencies] = []model.MatchRecord{{ID: "a1"}}

	assert.Len(t, SectionMatches("government_support", matches), 1)
	assert.Empty(t, SectionMatches("executive_summary", matches))
	assert.NotNil(t, SectionMatches("executive_summary", matches))
}

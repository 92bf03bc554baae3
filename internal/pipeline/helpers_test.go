package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/config"
	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/scrape"
	"github.com/sells-group/entry-report/internal/store"
	storemocks "github.com/sells-group/entry-report/internal/store/mocks"
	"github.com/sells-group/entry-report/pkg/anthropic"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:            "claude-sonnet-4-5-20250929",
			SummaryModel:     "claude-haiku-4-5-20251001",
			MaxTokens:        2048,
			SummaryMaxTokens: 1024,
		},
		Pipeline: config.PipelineConfig{
			MinContentChars: 200,
			MaxContentChars: 12000,
			ProviderLimit:   10,
			MatchLimit:      5,
		},
		Resilience: config.ResilienceConfig{MaxAttempts: 1},
	}
}

func newTestPipeline(st store.Store, ai anthropic.Client, f Fetcher) *Pipeline {
	p := New(testConfig(), st, ai, f)
	p.now = func() time.Time { return fixedNow }
	return p
}

func testIntake() *model.IntakeRecord {
	return &model.IntakeRecord{
		ID:              "intake-1",
		UserID:          "user-1",
		CompanyName:     "Acme",
		CountryOfOrigin: "Germany",
		CompanyStage:    "Growth",
		Industry:        "fintech",
		EmployeeCount:   "11-50",
		TargetRegions:   []string{"Sydney/NSW", "Melbourne"},
		ServicesNeeded:  []string{"legal"},
		Status:          model.IntakeStatusPending,
	}
}

func tmpl(name string, tier model.TierLevel, order int) model.SectionTemplate {
	return model.SectionTemplate{
		Name:         name,
		Title:        strings.ReplaceAll(name, "_", " "),
		Prompt:       "Write " + name + " for {{company_name}}.",
		RequiredTier: tier,
		SortOrder:    order,
	}
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// expectRun registers the store calls of a successful run.
func expectRun(st *storemocks.MockStore, rec *model.IntakeRecord, tier string, templates []model.SectionTemplate) {
	st.On("GetIntake", mock.Anything, rec.ID).Return(rec, nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusProcessing).Return(nil).Once()
	st.On("GetActiveTier", mock.Anything, rec.UserID).Return(tier, nil).Once()
	st.On("ListTemplates", mock.Anything).Return(templates, nil).Once()
	st.On("CreateReport", mock.Anything, mock.AnythingOfType("*model.Report")).Return(nil).Once()
	st.On("UpdateIntakeStatus", mock.Anything, rec.ID, model.IntakeStatusCompleted).Return(nil).Once()
}

func expectNoMatches(st *storemocks.MockStore) {
	st.On("FindMatches", mock.Anything, mock.Anything, mock.Anything).Return([]model.MatchRecord{}, nil)
}

// fakeFetcher returns a fixed result or error.
type fakeFetcher struct {
	res   *scrape.Result
	err   error
	calls int
}

func (f *fakeFetcher) Scrape(_ context.Context, url string) (*scrape.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	res := *f.res
	res.Page.URL = url
	return &res, nil
}

// fakeAI records call timing for section generation. A prompt containing a
// key of fail gets that error.
type fakeAI struct {
	delay time.Duration
	fail  map[string]error

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	events      []string
	prompts     []string
}

func (f *fakeAI) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	prompt := req.Messages[0].Content

	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.events = append(f.events, "start:"+prompt)
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.events = append(f.events, "end:"+prompt)
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	for key, err := range f.fail {
		if strings.Contains(prompt, key) {
			return nil, err
		}
	}
	return textResponse("Generated: " + prompt), nil
}

func (f *fakeAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// emptyAI replies with whitespace only.
type emptyAI struct{}

func (emptyAI) CreateMessage(context.Context, anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	return textResponse("  \n"), nil
}

package registry

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
	notionmocks "github.com/sells-group/entry-report/pkg/notion/mocks"
)

func init() {
	// Replace global logger with no-op for tests (suppress warning output).
	zap.ReplaceGlobals(zap.NewNop())
}

func TestLoadTemplateRegistry_Success(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "tmpl-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{
				makeTemplatePage("p2", "service_providers", "Service Providers", "Recommend from {{service_providers}}", "Growth", 2),
				makeTemplatePage("p1", "executive_summary", "Executive Summary", "Summarize {{company_name}}", "free", 1),
			},
			HasMore: false,
		}, nil).Once()

	ts, err := LoadTemplateRegistry(ctx, mc, "tmpl-db")
	assert.NoError(t, err)
	assert.Len(t, ts, 2)

	assert.Equal(t, "executive_summary", ts[0].Name)
	assert.Equal(t, "p1", ts[0].ID)
	assert.Equal(t, model.TierFree, ts[0].RequiredTier)
	assert.Equal(t, []model.Variable{model.VarCompanyName}, ts[0].Placeholders)

	assert.Equal(t, "service_providers", ts[1].Name)
	assert.Equal(t, model.TierGrowth, ts[1].RequiredTier)
	assert.Equal(t, 2, ts[1].SortOrder)
}

func TestLoadTemplateRegistry_Pagination(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "tmpl-db", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{makeTemplatePage("p1", "a", "A", "one", "free", 1)},
		HasMore:    true,
		NextCursor: "cursor-2",
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "tmpl-db", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == "cursor-2"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{makeTemplatePage("p2", "b", "B", "two", "scale", 2)},
		HasMore: false,
	}, nil).Once()

	ts, err := LoadTemplateRegistry(ctx, mc, "tmpl-db")
	assert.NoError(t, err)
	assert.Len(t, ts, 2)
	assert.Equal(t, "a", ts[0].Name)
	assert.Equal(t, "b", ts[1].Name)
}

func TestLoadTemplateRegistry_SkipsInvalidPages(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "tmpl-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{
				makeTemplatePage("p1", "valid", "Valid", "Hello {{company_name}}", "free", 1),
				makeTemplatePage("p2", "", "No Name", "Hello", "free", 2),
				makeTemplatePage("p3", "typo", "Typo", "Hello {{compnay_name}}", "free", 3),
				makeTemplatePage("p4", "gold", "Gold", "Hello", "gold", 4),
			},
			HasMore: false,
		}, nil).Once()

	ts, err := LoadTemplateRegistry(ctx, mc, "tmpl-db")
	assert.NoError(t, err) // malformed pages are warnings, not errors
	assert.Len(t, ts, 1)
	assert.Equal(t, "valid", ts[0].Name)
}

func TestLoadTemplateRegistry_QueryError(t *testing.T) {
	mc := notionmocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "tmpl-db", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	ts, err := LoadTemplateRegistry(ctx, mc, "tmpl-db")
	assert.Error(t, err)
	assert.Nil(t, ts)
}

// makeTemplatePage builds a fake notionapi.Page with template database properties.
func makeTemplatePage(id, section, title, prompt, tier string, order float64) notionapi.Page {
	props := make(notionapi.Properties)

	props["Section"] = &notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{PlainText: section}},
	}

	props["Title"] = &notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{PlainText: title}},
	}

	// Long prompts arrive split across several rich text runs.
	half := len(prompt) / 2
	props["Prompt"] = &notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{PlainText: prompt[:half]},
			{PlainText: prompt[half:]},
		},
	}

	props["Tier"] = &notionapi.SelectProperty{
		Type:   notionapi.PropertyTypeSelect,
		Select: notionapi.Option{Name: tier},
	}

	props["Order"] = &notionapi.NumberProperty{
		Type:   notionapi.PropertyTypeNumber,
		Number: order,
	}

	props["Status"] = &notionapi.StatusProperty{
		Type:   notionapi.PropertyTypeStatus,
		Status: notionapi.Status{Name: "Active"},
	}

	return notionapi.Page{
		ID:         notionapi.ObjectID(id),
		Properties: props,
	}
}

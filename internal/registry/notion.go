package registry

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/pkg/notion"
)

// LoadTemplateRegistry queries the Notion template database for all active
// sections and returns them as validated templates in render order.
func LoadTemplateRegistry(ctx context.Context, client notion.Client, dbID string) ([]model.SectionTemplate, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Active",
			},
		},
	}

	pages, err := notion.QueryAll(ctx, client, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "registry: load template registry")
	}

	var raw []model.SectionTemplate
	for _, p := range pages {
		t, err := parseTemplatePage(p)
		if err != nil {
			zap.L().Warn("registry: skipping malformed template page",
				zap.String("page_id", string(p.ID)),
				zap.Error(err),
			)
			continue
		}
		raw = append(raw, t)
	}

	return Prepare(raw), nil
}

func parseTemplatePage(p notionapi.Page) (model.SectionTemplate, error) {
	t := model.SectionTemplate{
		ID: string(p.ID),
	}

	// Section (title)
	if prop, ok := p.Properties["Section"]; ok {
		if tp, ok := prop.(*notionapi.TitleProperty); ok {
			t.Name = plainText(tp.Title)
		}
	}

	if prop, ok := p.Properties["Title"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			t.Title = plainText(rtp.RichText)
		}
	}

	if prop, ok := p.Properties["Prompt"]; ok {
		if rtp, ok := prop.(*notionapi.RichTextProperty); ok {
			t.Prompt = plainText(rtp.RichText)
		}
	}

	// Tier (select)
	if prop, ok := p.Properties["Tier"]; ok {
		if sp, ok := prop.(*notionapi.SelectProperty); ok {
			t.RequiredTier = model.TierLevel(sp.Select.Name)
		}
	}

	if prop, ok := p.Properties["Order"]; ok {
		if np, ok := prop.(*notionapi.NumberProperty); ok {
			t.SortOrder = int(np.Number)
		}
	}

	if t.Name == "" {
		return t, eris.New("missing Section property")
	}

	return t, nil
}

// plainText concatenates the plain_text values from a slice of RichText.
func plainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

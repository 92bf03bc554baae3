// Package registry loads section templates from a YAML fixture or a Notion
// database and validates them before they reach the store or the pipeline.
package registry

import (
	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
)

// Prepare validates raw templates, drops the invalid ones with a warning, and
// returns the rest in render order.
func Prepare(raw []model.SectionTemplate) []model.SectionTemplate {
	out := make([]model.SectionTemplate, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		t, err := model.NewSectionTemplate(r)
		if err != nil {
			zap.L().Warn("registry: skipping invalid template",
				zap.String("section", r.Name),
				zap.Error(err),
			)
			continue
		}
		if seen[t.Name] {
			zap.L().Warn("registry: skipping duplicate template", zap.String("section", t.Name))
			continue
		}
		seen[t.Name] = true
		out = append(out, *t)
	}
	model.SortTemplates(out)
	return out
}

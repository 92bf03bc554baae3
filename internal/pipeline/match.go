package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/store"
)

// RegionTokens reduces target regions to search tokens: the part before the
// first "/" of each region, trimmed, with empties and duplicates dropped.
// "Sydney/NSW" becomes "Sydney".
func RegionTokens(regions []string) []string {
	out := make([]string, 0, len(regions))
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		tok, _, _ := strings.Cut(r, "/")
		tok = strings.TrimSpace(tok)
		key := strings.ToLower(tok)
		if tok == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tok)
	}
	return out
}

// match queries every category concurrently. A failing category is logged
// and left empty; it never affects the others.
func (p *Pipeline) match(ctx context.Context, rec *model.IntakeRecord) model.MatchSet {
	base := store.MatchQuery{
		Regions:  RegionTokens(rec.TargetRegions),
		Services: rec.ServicesNeeded,
		Industry: rec.Industry,
		Today:    p.now().UTC(),
	}

	results := make([][]model.MatchRecord, len(model.AllMatchCategories))
	var g errgroup.Group
	for i, cat := range model.AllMatchCategories {
		q := base
		q.Limit = p.matchLimit(cat)
		g.Go(func() error {
			recs, err := p.store.FindMatches(ctx, cat, q)
			if err != nil {
				zap.L().Warn("match: category query failed",
					zap.String("intake_id", rec.ID),
					zap.String("category", string(cat)),
					zap.Error(err),
				)
				return nil
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	ms := model.NewMatchSet()
	for i, cat := range model.AllMatchCategories {
		if results[i] != nil {
			ms[cat] = results[i]
		}
	}
	return ms
}

func (p *Pipeline) matchLimit(cat model.MatchCategory) int {
	if cat == model.MatchProviders {
		if p.cfg.Pipeline.ProviderLimit > 0 {
			return p.cfg.Pipeline.ProviderLimit
		}
		return store.DefaultProviderLimit
	}
	if p.cfg.Pipeline.MatchLimit > 0 {
		return p.cfg.Pipeline.MatchLimit
	}
	return store.DefaultMatchLimit
}

package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/entry-report/internal/model"
	"github.com/sells-group/entry-report/internal/store"
)

// resolveTier returns the caller's subscription tier, defaulting to free
// when there is no user, no active subscription, the lookup fails, or the
// stored plan name is unknown.
func (p *Pipeline) resolveTier(ctx context.Context, userID string) model.TierLevel {
	if userID == "" {
		return model.TierFree
	}

	raw, err := p.store.GetActiveTier(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.TierFree
	}
	if err != nil {
		zap.L().Warn("tier: subscription lookup failed, defaulting to free",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return model.TierFree
	}

	tier, err := model.ParseTier(raw)
	if err != nil {
		zap.L().Warn("tier: unknown plan, defaulting to free",
			zap.String("user_id", userID),
			zap.String("plan", raw),
		)
	}
	return tier
}

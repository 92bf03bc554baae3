package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/model"
)

// loadIntake fetches the intake and moves it to processing. Both steps are
// fatal on error.
func (p *Pipeline) loadIntake(ctx context.Context, intakeID string) (*model.IntakeRecord, error) {
	intakeID = strings.TrimSpace(intakeID)
	if intakeID == "" {
		return nil, eris.New("pipeline: intake id is required")
	}

	rec, err := p.store.GetIntake(ctx, intakeID)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load intake %s", intakeID)
	}
	if err := rec.Validate(); err != nil {
		return nil, eris.Wrap(err, "pipeline: invalid intake")
	}

	if err := p.store.UpdateIntakeStatus(ctx, rec.ID, model.IntakeStatusProcessing); err != nil {
		return nil, eris.Wrapf(err, "pipeline: mark intake %s processing", rec.ID)
	}
	rec.Status = model.IntakeStatusProcessing
	return rec, nil
}

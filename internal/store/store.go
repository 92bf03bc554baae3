package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// MatchQuery carries the intake-derived filters for one match category.
type MatchQuery struct {
	Regions  []string  // region tokens, OR-matched against location columns
	Services []string  // OR-matched against provider services
	Industry string    // partial match against lead list industry
	Today    time.Time // lower bound for upcoming events; zero means now
	Limit    int       // row cap; zero means the category default
}

// Store defines the persistence interface for report generation.
type Store interface {
	// Intake forms
	GetIntake(ctx context.Context, id string) (*model.IntakeRecord, error)
	CreateIntake(ctx context.Context, rec *model.IntakeRecord) error
	UpdateIntakeStatus(ctx context.Context, id string, status model.IntakeStatus) error
	SaveEnrichment(ctx context.Context, id string, summary *model.EnrichedSummary) error

	// Subscriptions
	GetActiveTier(ctx context.Context, userID string) (string, error)

	// Templates
	ListTemplates(ctx context.Context) ([]model.SectionTemplate, error)
	UpsertTemplates(ctx context.Context, templates []model.SectionTemplate) (int, error)

	// Reports
	CreateReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, id string) (*model.Report, error)

	// Directory lookups
	FindMatches(ctx context.Context, cat model.MatchCategory, q MatchQuery) ([]model.MatchRecord, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, dsn string, maxConns int32) (Store, error) {
	switch driver {
	case "postgres":
		st, err := NewPostgres(ctx, dsn, &PoolConfig{MaxConns: maxConns})
		if err != nil {
			return nil, err
		}
		return st, nil
	case "sqlite":
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
}

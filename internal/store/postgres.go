package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/db"
	"github.com/sells-group/entry-report/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS user_intake_forms (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id           TEXT,
	company_name      TEXT NOT NULL,
	website_url       TEXT,
	country_of_origin TEXT,
	company_stage     TEXT,
	industry          TEXT,
	employee_count    TEXT,
	target_regions    JSONB NOT NULL DEFAULT '[]',
	services_needed   JSONB NOT NULL DEFAULT '[]',
	timeline          TEXT,
	budget_level      TEXT,
	primary_goals     TEXT,
	key_challenges    TEXT,
	status            TEXT NOT NULL DEFAULT 'pending',
	enriched_data     JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_reports (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT,
	intake_form_id     TEXT NOT NULL REFERENCES user_intake_forms(id),
	tier_at_generation TEXT NOT NULL,
	sections           JSONB NOT NULL,
	matches            JSONB NOT NULL,
	enrichment         JSONB,
	metadata           JSONB NOT NULL,
	status             TEXT NOT NULL DEFAULT 'completed',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS user_subscriptions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id    TEXT NOT NULL,
	tier       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_templates (
	id              TEXT PRIMARY KEY,
	section_name    TEXT NOT NULL UNIQUE,
	title           TEXT,
	prompt_template TEXT NOT NULL,
	visibility_tier TEXT NOT NULL DEFAULT 'free',
	sort_order      INTEGER NOT NULL DEFAULT 0,
	is_active       BOOLEAN NOT NULL DEFAULT TRUE,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS service_providers (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	description TEXT,
	location    TEXT,
	services    JSONB NOT NULL DEFAULT '[]',
	website     TEXT
);

CREATE TABLE IF NOT EXISTS community_members (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	full_name TEXT NOT NULL,
	headline  TEXT,
	location  TEXT,
	expertise JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title      TEXT NOT NULL,
	location   TEXT,
	event_date DATE NOT NULL,
	event_type TEXT,
	url        TEXT,
	tags       JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS content_items (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title        TEXT NOT NULL,
	slug         TEXT NOT NULL UNIQUE,
	category     TEXT,
	status       TEXT NOT NULL DEFAULT 'draft',
	published_at TIMESTAMPTZ,
	tags         JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS lead_lists (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name         TEXT NOT NULL,
	industry     TEXT,
	location     TEXT,
	record_count INTEGER NOT NULL DEFAULT 0,
	tags         JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS innovation_ecosystem (
	id       TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name     TEXT NOT NULL,
	org_type TEXT,
	location TEXT,
	website  TEXT,
	tags     JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS trade_investment_agencies (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	agency_type TEXT,
	location    TEXT,
	website     TEXT,
	services    JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_intake_user ON user_intake_forms(user_id);
CREATE INDEX IF NOT EXISTS idx_reports_intake ON user_reports(intake_form_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON user_subscriptions(user_id, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);
CREATE INDEX IF NOT EXISTS idx_content_status_published ON content_items(status, published_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetIntake(ctx context.Context, id string) (*model.IntakeRecord, error) {
	rec, err := scanIntake(s.pool.QueryRow(ctx, intakeSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get intake %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get intake %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) CreateIntake(ctx context.Context, rec *model.IntakeRecord) error {
	regions, err := marshalList(rec.TargetRegions)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal target_regions")
	}
	services, err := marshalList(rec.ServicesNeeded)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal services_needed")
	}
	enriched, err := jsonOrNil(rec.Enrichment)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_intake_forms (id, user_id, company_name, website_url, country_of_origin,
			company_stage, industry, employee_count, target_regions, services_needed, timeline,
			budget_level, primary_goals, key_challenges, status, enriched_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		rec.ID, rec.UserID, rec.CompanyName, rec.Website, rec.CountryOfOrigin,
		rec.CompanyStage, rec.Industry, rec.EmployeeCount, regions, services, rec.Timeline,
		rec.Budget, rec.PrimaryGoals, rec.KeyChallenges, string(rec.Status), nullable(enriched),
		rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert intake %s", rec.ID)
}

func (s *PostgresStore) UpdateIntakeStatus(ctx context.Context, id string, status model.IntakeStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_intake_forms SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update intake status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: update intake status %s", id)
	}
	return nil
}

func (s *PostgresStore) SaveEnrichment(ctx context.Context, id string, summary *model.EnrichedSummary) error {
	data, err := jsonOrNil(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_intake_forms SET enriched_data = $1, updated_at = $2 WHERE id = $3`,
		nullable(data), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: save enrichment %s", id)
	}
	return nil
}

func (s *PostgresStore) GetActiveTier(ctx context.Context, userID string) (string, error) {
	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT tier FROM user_subscriptions WHERE user_id = $1 AND status = 'active' ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&tier)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "postgres: active subscription for %s", userID)
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: active subscription for %s", userID)
	}
	return tier, nil
}

func (s *PostgresStore) ListTemplates(ctx context.Context) ([]model.SectionTemplate, error) {
	rows, err := s.pool.Query(ctx, templateSelect)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list templates")
	}
	defer rows.Close()

	var out []model.SectionTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan template")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list templates")
}

// templateUpsert merges templates on section_name via the db bulk upsert.
var templateUpsert = db.UpsertConfig{
	Table:        "report_templates",
	Columns:      []string{"id", "section_name", "title", "prompt_template", "visibility_tier", "sort_order", "is_active", "updated_at"},
	ConflictKeys: []string{"section_name"},
	UpdateCols:   []string{"title", "prompt_template", "visibility_tier", "sort_order", "is_active", "updated_at"},
}

func (s *PostgresStore) UpsertTemplates(ctx context.Context, templates []model.SectionTemplate) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(templates))
	for _, t := range templates {
		id := t.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, t.Name, t.Title, t.Prompt, string(t.RequiredTier), t.SortOrder, true, now})
	}
	n, err := db.BulkUpsert(ctx, s.pool, templateUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert templates")
	}
	return int(n), nil
}

func (s *PostgresStore) CreateReport(ctx context.Context, report *model.Report) error {
	enc, err := encodeReport(report)
	if err != nil {
		return eris.Wrap(err, "postgres: encode report")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_reports (id, user_id, intake_form_id, tier_at_generation, sections, matches,
			enrichment, metadata, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		report.ID, report.UserID, report.IntakeFormID, string(report.Tier), enc.sections, enc.matches,
		nullable(enc.enrichment), enc.metadata, string(report.Status), report.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert report %s", report.ID)
}

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	r, err := scanReport(s.pool.QueryRow(ctx, reportSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}
	return r, nil
}

func (s *PostgresStore) FindMatches(ctx context.Context, cat model.MatchCategory, q MatchQuery) ([]model.MatchRecord, error) {
	query, args, err := buildMatchQuery(postgresDialect, cat, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: find %s", cat)
	}
	defer rows.Close()

	out := []model.MatchRecord{}
	for rows.Next() {
		rec, err := scanMatch(rows, cat)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan %s", cat)
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "postgres: find %s", cat)
}

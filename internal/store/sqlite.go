package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/entry-report/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database handle.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS user_intake_forms (
	id                TEXT PRIMARY KEY,
	user_id           TEXT,
	company_name      TEXT NOT NULL,
	website_url       TEXT,
	country_of_origin TEXT,
	company_stage     TEXT,
	industry          TEXT,
	employee_count    TEXT,
	target_regions    TEXT NOT NULL DEFAULT '[]',
	services_needed   TEXT NOT NULL DEFAULT '[]',
	timeline          TEXT,
	budget_level      TEXT,
	primary_goals     TEXT,
	key_challenges    TEXT,
	status            TEXT NOT NULL DEFAULT 'pending',
	enriched_data     TEXT,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS user_reports (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT,
	intake_form_id     TEXT NOT NULL REFERENCES user_intake_forms(id),
	tier_at_generation TEXT NOT NULL,
	sections           TEXT NOT NULL,
	matches            TEXT NOT NULL,
	enrichment         TEXT,
	metadata           TEXT NOT NULL,
	status             TEXT NOT NULL DEFAULT 'completed',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS user_subscriptions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	tier       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS report_templates (
	id              TEXT PRIMARY KEY,
	section_name    TEXT NOT NULL UNIQUE,
	title           TEXT,
	prompt_template TEXT NOT NULL,
	visibility_tier TEXT NOT NULL DEFAULT 'free',
	sort_order      INTEGER NOT NULL DEFAULT 0,
	is_active       INTEGER NOT NULL DEFAULT 1,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS service_providers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT,
	location    TEXT,
	services    TEXT NOT NULL DEFAULT '[]',
	website     TEXT
);

CREATE TABLE IF NOT EXISTS community_members (
	id        TEXT PRIMARY KEY,
	full_name TEXT NOT NULL,
	headline  TEXT,
	location  TEXT,
	expertise TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	location   TEXT,
	event_date TEXT NOT NULL,
	event_type TEXT,
	url        TEXT,
	tags       TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS content_items (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	slug         TEXT NOT NULL UNIQUE,
	category     TEXT,
	status       TEXT NOT NULL DEFAULT 'draft',
	published_at TEXT,
	tags         TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS lead_lists (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	industry     TEXT,
	location     TEXT,
	record_count INTEGER NOT NULL DEFAULT 0,
	tags         TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS innovation_ecosystem (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	org_type TEXT,
	location TEXT,
	website  TEXT,
	tags     TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS trade_investment_agencies (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	agency_type TEXT,
	location    TEXT,
	website     TEXT,
	services    TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_intake_user ON user_intake_forms(user_id);
CREATE INDEX IF NOT EXISTS idx_reports_intake ON user_reports(intake_form_id);
CREATE INDEX IF NOT EXISTS idx_subscriptions_user_status ON user_subscriptions(user_id, status, created_at);
CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date);
CREATE INDEX IF NOT EXISTS idx_content_status_published ON content_items(status, published_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetIntake(ctx context.Context, id string) (*model.IntakeRecord, error) {
	rec, err := scanIntake(s.db.QueryRowContext(ctx, intakeSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get intake %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get intake %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) CreateIntake(ctx context.Context, rec *model.IntakeRecord) error {
	regions, err := marshalList(rec.TargetRegions)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal target_regions")
	}
	services, err := marshalList(rec.ServicesNeeded)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal services_needed")
	}
	enriched, err := jsonOrNil(rec.Enrichment)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_intake_forms (id, user_id, company_name, website_url, country_of_origin,
			company_stage, industry, employee_count, target_regions, services_needed, timeline,
			budget_level, primary_goals, key_challenges, status, enriched_data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.CompanyName, rec.Website, rec.CountryOfOrigin,
		rec.CompanyStage, rec.Industry, rec.EmployeeCount, string(regions), string(services), rec.Timeline,
		rec.Budget, rec.PrimaryGoals, rec.KeyChallenges, string(rec.Status), nullableText(enriched),
		rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert intake %s", rec.ID)
}

func (s *SQLiteStore) UpdateIntakeStatus(ctx context.Context, id string, status model.IntakeStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_intake_forms SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update intake status %s", id)
	}
	return checkRowsAffected(res, "intake", id)
}

func (s *SQLiteStore) SaveEnrichment(ctx context.Context, id string, summary *model.EnrichedSummary) error {
	data, err := jsonOrNil(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_intake_forms SET enriched_data = ?, updated_at = ? WHERE id = ?`,
		nullableText(data), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save enrichment %s", id)
	}
	return checkRowsAffected(res, "intake", id)
}

func (s *SQLiteStore) GetActiveTier(ctx context.Context, userID string) (string, error) {
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT tier FROM user_subscriptions WHERE user_id = ? AND status = 'active' ORDER BY created_at DESC LIMIT 1`,
		userID,
	).Scan(&tier)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "sqlite: active subscription for %s", userID)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: active subscription for %s", userID)
	}
	return tier, nil
}

func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]model.SectionTemplate, error) {
	rows, err := s.db.QueryContext(ctx, templateSelect)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list templates")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SectionTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan template")
		}
		out = append(out, t)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list templates")
}

func (s *SQLiteStore) UpsertTemplates(ctx context.Context, templates []model.SectionTemplate) (int, error) {
	if len(templates) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO report_templates (id, section_name, title, prompt_template, visibility_tier, sort_order, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(section_name) DO UPDATE SET
			title = excluded.title,
			prompt_template = excluded.prompt_template,
			visibility_tier = excluded.visibility_tier,
			sort_order = excluded.sort_order,
			is_active = 1,
			updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare template upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, t := range templates {
		id := t.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, t.Name, t.Title, t.Prompt, string(t.RequiredTier), t.SortOrder, now); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert template %s", t.Name)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit templates")
	}
	return len(templates), nil
}

func (s *SQLiteStore) CreateReport(ctx context.Context, report *model.Report) error {
	enc, err := encodeReport(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode report")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO user_reports (id, user_id, intake_form_id, tier_at_generation, sections, matches,
			enrichment, metadata, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.UserID, report.IntakeFormID, string(report.Tier), string(enc.sections),
		string(enc.matches), nullableText(enc.enrichment), string(enc.metadata), string(report.Status),
		report.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert report %s", report.ID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*model.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, reportSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}
	return r, nil
}

func (s *SQLiteStore) FindMatches(ctx context.Context, cat model.MatchCategory, q MatchQuery) ([]model.MatchRecord, error) {
	query, args, err := buildMatchQuery(sqliteDialect, cat, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: find %s", cat)
	}
	defer rows.Close() //nolint:errcheck

	out := []model.MatchRecord{}
	for rows.Next() {
		rec, err := scanMatch(rows, cat)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", cat)
		}
		out = append(out, rec)
	}
	return out, eris.Wrapf(rows.Err(), "sqlite: find %s", cat)
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: %s %s", entity, id)
	}
	return nil
}

func nullableText(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

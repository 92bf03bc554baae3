package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/entry-report/internal/model"
)

func TestBuildMatchQuery_Providers(t *testing.T) {
	q, args, err := buildMatchQuery(postgresDialect, model.MatchProviders, MatchQuery{
		Regions:  []string{"Sydney", " "},
		Services: []string{"legal", "tax"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT id, name, COALESCE(location, ''), '', COALESCE(services::text, '[]'), '' FROM service_providers`+
			` WHERE (location ILIKE $1 ESCAPE '\')`+
			` AND (services::text ILIKE $2 ESCAPE '\' OR services::text ILIKE $3 ESCAPE '\')`+
			` ORDER BY name LIMIT $4`,
		q)
	assert.Equal(t, []any{"%Sydney%", "%legal%", "%tax%", DefaultProviderLimit}, args)
}

func TestBuildMatchQuery_NoFilters(t *testing.T) {
	q, args, err := buildMatchQuery(sqliteDialect, model.MatchMentors, MatchQuery{Limit: 3})
	require.NoError(t, err)
	assert.Contains(t, q, "FROM community_members WHERE 1 ORDER BY full_name LIMIT ?")
	assert.Equal(t, []any{3}, args)
}

func TestBuildMatchQuery_EventsDateBound(t *testing.T) {
	today := time.Date(2026, 10, 17, 15, 30, 0, 0, time.UTC)

	_, pgArgs, err := buildMatchQuery(postgresDialect, model.MatchEvents, MatchQuery{Today: today})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), pgArgs[0])

	q, liteArgs, err := buildMatchQuery(sqliteDialect, model.MatchEvents, MatchQuery{Today: today})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-17", liteArgs[0])
	assert.True(t, strings.HasSuffix(q, "ORDER BY event_date ASC, title LIMIT ?"))
}

func TestBuildMatchQuery_ContentIgnoresRegions(t *testing.T) {
	q, args, err := buildMatchQuery(postgresDialect, model.MatchContent, MatchQuery{Regions: []string{"Sydney"}})
	require.NoError(t, err)
	assert.Contains(t, q, "WHERE status = 'published' ORDER BY published_at DESC")
	assert.NotContains(t, q, "location")
	assert.Equal(t, []any{DefaultMatchLimit}, args)
}

func TestBuildMatchQuery_LeadsIndustry(t *testing.T) {
	q, args, err := buildMatchQuery(postgresDialect, model.MatchLeads, MatchQuery{Regions: []string{"Sydney"}, Industry: "Fintech"})
	require.NoError(t, err)
	assert.Contains(t, q, "(industry ILIKE $1 ESCAPE '\\')")
	assert.Equal(t, []any{"%Fintech%", DefaultMatchLimit}, args)

	q, _, err = buildMatchQuery(postgresDialect, model.MatchLeads, MatchQuery{})
	require.NoError(t, err)
	assert.Contains(t, q, "WHERE TRUE")
}

func TestBuildMatchQuery_UnknownCategory(t *testing.T) {
	_, _, err := buildMatchQuery(postgresDialect, model.MatchCategory("jobs"), MatchQuery{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match category")
}

func TestBuildMatchQuery_EveryCategory(t *testing.T) {
	for _, cat := range model.AllMatchCategories {
		_, _, err := buildMatchQuery(postgresDialect, cat, MatchQuery{})
		assert.NoError(t, err, cat)
	}
}

func TestLikePattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sydney", "%Sydney%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`back\slash`, `%back\\slash%`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, likePattern(tt.in))
		})
	}
}

func TestJoinSubtitle(t *testing.T) {
	assert.Equal(t, "2026-11-02 · Sydney", joinSubtitle("2026-11-02", "Sydney"))
	assert.Equal(t, "Sydney", joinSubtitle("", " Sydney "))
	assert.Equal(t, "", joinSubtitle("", ""))
}

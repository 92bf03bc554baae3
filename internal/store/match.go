package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/entry-report/internal/model"
)

// Default row caps per category.
const (
	DefaultProviderLimit = 10
	DefaultMatchLimit    = 5
)

// dialect captures the SQL differences between Postgres and SQLite.
type dialect struct {
	bind     func(n int) string
	like     string
	text     func(col string) string
	day      func(col string) string
	dateArg  func(t time.Time) any
	trueExpr string
}

var postgresDialect = dialect{
	bind:     func(n int) string { return fmt.Sprintf("$%d", n) },
	like:     "ILIKE",
	text:     func(col string) string { return col + "::text" },
	day:      func(col string) string { return "to_char(" + col + ", 'YYYY-MM-DD')" },
	dateArg:  func(t time.Time) any { return t },
	trueExpr: "TRUE",
}

var sqliteDialect = dialect{
	bind:     func(int) string { return "?" },
	like:     "LIKE",
	text:     func(col string) string { return col },
	day:      func(col string) string { return "substr(" + col + ", 1, 10)" },
	dateArg:  func(t time.Time) any { return t.Format(time.DateOnly) },
	trueExpr: "1",
}

// matchRow is the uniform projection every category query selects:
// id, name, subtitle, secondary subtitle, tags (JSON text) and link key.
type matchRow struct {
	ID, Name, Subtitle, Detail, Tags, LinkKey string
}

// matchSpec describes how one category is queried and normalized.
type matchSpec struct {
	table       string
	columns     func(d dialect) string
	regionCol   string
	servicesCol string
	industryCol string
	dateCol     string
	where       string
	orderBy     string
	limit       int
	record      func(r matchRow, tags []string) model.MatchRecord
}

var matchSpecs = map[model.MatchCategory]matchSpec{
	model.MatchProviders: {
		table: "service_providers",
		columns: func(d dialect) string {
			return "id, name, COALESCE(location, ''), '', COALESCE(" + d.text("services") + ", '[]'), ''"
		},
		regionCol:   "location",
		servicesCol: "services",
		orderBy:     "name",
		limit:       DefaultProviderLimit,
		record: func(r matchRow, tags []string) model.MatchRecord {
			return model.NewMatchRecord(r.ID, r.Name, r.Subtitle, tags, "/service-providers/"+r.ID, "View Provider")
		},
	},
	model.MatchMentors: {
		table: "community_members",
		columns: func(d dialect) string {
			return "id, full_name, COALESCE(headline, ''), '', COALESCE(" + d.text("expertise") + ", '[]'), ''"
		},
		regionCol: "location",
		orderBy:   "full_name",
		limit:     DefaultMatchLimit,
		record: func(r matchRow, tags []string) model.MatchRecord {
			return model.NewMatchRecord(r.ID, r.Name, r.Subtitle, tags, "/mentors/"+r.ID, "View Profile")
		},
	},
	model.MatchEvents: {
		table: "events",
		columns: func(d dialect) string {
			return "id, title, " + d.day("event_date") + ", COALESCE(location, ''), COALESCE(" + d.text("tags") + ", '[]'), COALESCE(url, '')"
		},
		regionCol: "location",
		dateCol:   "event_date",
		orderBy:   "event_date ASC, title",
		limit:     DefaultMatchLimit,
		record: func(r matchRow, tags []string) model.MatchRecord {
			link := r.LinkKey
			if link == "" {
				link = "/events/" + r.ID
			}
			return model.NewMatchRecord(r.ID, r.Name, joinSubtitle(r.Subtitle, r.Detail), tags, link, "View Event")
		},
	},
	model.MatchContent: {
		table: "content_items",
		columns: func(d dialect) string {
			return "id, title, COALESCE(category, ''), '', COALESCE(" + d.text("tags") + ", '[]'), slug"
		},
		where:   "status = 'published'",
		orderBy: "published_at DESC, title",
		limit:   DefaultMatchLimit,
		record: func(r matchRow, tags []string) model.MatchRecord {
			return model.NewMatchRecord(r.ID, r.Name, r.Subtitle, tags, "/content/"+r.LinkKey, "Read Article")
		},
	},
	model.MatchLeads: {
		table: "lead_lists",
		columns: func(d dialect) string {
			return "id, name, COALESCE(industry, ''), '', COALESCE(" + d.text("tags") + ", '[]'), ''"
		},
		industryCol: "industry",
		orderBy:     "name",
		limit:       DefaultMatchLimit,
		record: func(r matchRow, tags []string) model.MatchRecord {
			return model.NewMatchRecord(r.ID, r.Name, r.Subtitle, tags, "/leads/"+r.ID, "View Leads")
		},
	},
	model.MatchEcosystem: {
		table: "innovation_ecosystem",
		columns: func(d dialect) string {
			return "id, name, COALESCE(org_type, ''), '', COALESCE(" + d.text("tags") + ", '[]'), COALESCE(website, '')"
		},
		regionCol: "location",
		orderBy:   "name",
		limit:     DefaultMatchLimit,
		record:    websiteRecord,
	},
	model.MatchAgencies: {
		table: "trade_investment_agencies",
		columns: func(d dialect) string {
			return "id, name, COALESCE(agency_type, ''), '', COALESCE(" + d.text("services") + ", '[]'), COALESCE(website, '')"
		},
		regionCol: "location",
		orderBy:   "name",
		limit:     DefaultMatchLimit,
		record:    websiteRecord,
	},
}

func websiteRecord(r matchRow, tags []string) model.MatchRecord {
	label := ""
	if r.LinkKey != "" {
		label = "Visit Website"
	}
	return model.NewMatchRecord(r.ID, r.Name, r.Subtitle, tags, r.LinkKey, label)
}

func joinSubtitle(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " · ")
}

// buildMatchQuery renders the SELECT for cat in dialect d.
func buildMatchQuery(d dialect, cat model.MatchCategory, q MatchQuery) (string, []any, error) {
	spec, ok := matchSpecs[cat]
	if !ok {
		return "", nil, eris.Errorf("store: unknown match category %q", cat)
	}

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return d.bind(len(args))
	}
	anyLike := func(col string, terms []string) {
		var ors []string
		for _, t := range terms {
			if t = strings.TrimSpace(t); t == "" {
				continue
			}
			ors = append(ors, fmt.Sprintf("%s %s %s ESCAPE '\\'", col, d.like, arg(likePattern(t))))
		}
		if len(ors) > 0 {
			conds = append(conds, "("+strings.Join(ors, " OR ")+")")
		}
	}

	if spec.where != "" {
		conds = append(conds, spec.where)
	}
	if spec.dateCol != "" {
		today := q.Today
		if today.IsZero() {
			today = time.Now().UTC()
		}
		conds = append(conds, spec.dateCol+" >= "+arg(d.dateArg(today.Truncate(24*time.Hour))))
	}
	if spec.regionCol != "" {
		anyLike(spec.regionCol, q.Regions)
	}
	if spec.servicesCol != "" {
		anyLike(d.text(spec.servicesCol), q.Services)
	}
	if spec.industryCol != "" && strings.TrimSpace(q.Industry) != "" {
		anyLike(spec.industryCol, []string{q.Industry})
	}

	limit := q.Limit
	if limit <= 0 {
		limit = spec.limit
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(spec.columns(d))
	b.WriteString(" FROM ")
	b.WriteString(spec.table)
	b.WriteString(" WHERE ")
	if len(conds) == 0 {
		b.WriteString(d.trueExpr)
	} else {
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(spec.orderBy)
	b.WriteString(" LIMIT ")
	b.WriteString(arg(limit))
	return b.String(), args, nil
}

// likePattern wraps term in % wildcards, escaping LIKE metacharacters.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func scanMatch(row scannable, cat model.MatchCategory) (model.MatchRecord, error) {
	var r matchRow
	if err := row.Scan(&r.ID, &r.Name, &r.Subtitle, &r.Detail, &r.Tags, &r.LinkKey); err != nil {
		return model.MatchRecord{}, err
	}
	var tags []string
	_ = unmarshalList([]byte(r.Tags), &tags) // malformed tag payloads are dropped
	return matchSpecs[cat].record(r, tags), nil
}

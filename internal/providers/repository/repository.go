// Package repository loads provider candidates for the matcher.
package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"arrume_backend/internal/providers/ranking"
	"arrume_backend/platform/phone"
	"arrume_backend/platform/sanitize"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	providersTable = "providers"

	// A search hands at most max(limit*poolFactor, minPoolSize) rows to the ranker.
	poolFactor  = 20
	minPoolSize = 50
)

var dialect = goqu.Dialect("postgres")

// Prefilter narrows the candidate pool before ranking. It only excludes rows
// that cannot possibly rank. Limit is the result size the ranker will cut to
// and sets the row cap.
type Prefilter struct {
	Mode         ranking.Mode
	PostalCode   string
	City         string
	Region       string
	Neighborhood string
	Categories   []string
	Limit        int
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads providers from PostgreSQL.
type Repository struct {
	db querier
}

// New creates a new providers repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// ListCandidates returns providers that share the category and at least one
// location attribute with the filter.
func (r *Repository) ListCandidates(ctx context.Context, filter Prefilter) ([]ranking.Candidate, error) {
	query, args, err := buildCandidateQuery(filter)
	if err != nil {
		return nil, fmt.Errorf("build provider query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	defer rows.Close()

	candidates := make([]ranking.Candidate, 0)
	for rows.Next() {
		var (
			c        ranking.Candidate
			mobile   string
			landline string
		)
		if err := rows.Scan(&c.ID, &c.Name, &mobile, &landline, &c.City, &c.Neighborhood, &c.PostalCode, &c.Region, &c.Category); err != nil {
			return nil, fmt.Errorf("scan provider: %w", err)
		}
		c.Phone = pickPhone(mobile, landline)
		c.PostalCode = sanitize.PostalCode(c.PostalCode)
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate providers: %w", err)
	}

	return candidates, nil
}

// pickPhone prefers the mobile number, which can receive WhatsApp.
func pickPhone(mobile, landline string) string {
	if strings.TrimSpace(mobile) != "" {
		return phone.Normalize(mobile)
	}
	return phone.Normalize(landline)
}

func buildCandidateQuery(filter Prefilter) (string, []any, error) {
	where := []exp.Expression{hasPhone}

	if tokens := ranking.NormalizeCategories(filter.Categories); len(tokens) > 0 {
		ors := make([]exp.Expression, 0, len(tokens))
		for _, tok := range tokens {
			ors = append(ors, goqu.L(`upper(replace(replace(unaccent("category"), ' ', ''), '-', '')) LIKE ?`, "%"+tok+"%"))
		}
		where = append(where, goqu.Or(ors...))
	}

	if geo := geographicFilter(filter); geo != nil {
		where = append(where, geo)
	}

	return dialect.From(providersTable).
		Select("id", "name", "mobile_phone", "landline_phone", "city", "neighborhood", "postal_code", "region", "category").
		Where(where...).
		Order(truncationOrder(filter)...).
		Limit(uint(PoolSize(filter.Limit))).
		Prepared(true).
		ToSQL()
}

// PoolSize is the number of rows handed to the ranker for a result limit.
func PoolSize(limit int) int {
	return max(limit*poolFactor, minPoolSize)
}

// Folded column expressions mirror ranking.Fold: no diacritics, upper case,
// single inner spaces.
const (
	postalDigitsSQL = `left(regexp_replace("postal_code", '[^0-9]', '', 'g'), 8)`
	cityFoldSQL     = `upper(btrim(regexp_replace(unaccent("city"), '\s+', ' ', 'g')))`
	hoodFoldSQL     = `upper(btrim(regexp_replace(unaccent("neighborhood"), '\s+', ' ', 'g')))`
	argFoldSQL      = `upper(btrim(regexp_replace(unaccent(?), '\s+', ' ', 'g')))`
)

var hasPhone = goqu.L(`(btrim("mobile_phone") <> '' OR btrim("landline_phone") <> '')`)

func geographicFilter(filter Prefilter) exp.Expression {
	city := strings.TrimSpace(filter.City)
	sameCity := goqu.L(cityFoldSQL+` = `+argFoldSQL, city)

	if filter.Mode == ranking.ModeCity {
		return sameCity
	}

	ors := make([]exp.Expression, 0, 3)
	if cep := sanitize.PostalCode(filter.PostalCode); len(cep) >= 4 {
		ors = append(ors, goqu.L(postalDigitsSQL+` LIKE ?`, cep[:4]+"%"))
	}
	if city != "" {
		ors = append(ors, sameCity)
	}
	if region := sanitize.Region(filter.Region); region != "" {
		ors = append(ors, goqu.L(`upper("region") = ?`, region))
	}
	if len(ors) == 0 {
		return nil
	}
	return goqu.Or(ors...)
}

// truncationOrder sorts rows by a coarse version of the ranking tiers so the
// row cap only cuts candidates that cannot outrank the kept ones. Phonetic
// neighborhood matches share the same-city band.
func truncationOrder(filter Prefilter) []exp.OrderedExpression {
	city := strings.TrimSpace(filter.City)
	hood := strings.TrimSpace(filter.Neighborhood)
	region := sanitize.Region(filter.Region)

	band := &caseBand{}
	if filter.Mode == ranking.ModeCity {
		if hood != "" {
			band.when(hoodFoldSQL+` = `+argFoldSQL, hood)
		}
		order := band.order()
		if region != "" {
			order = append(order, goqu.L(`CASE WHEN upper("region") = ? THEN 0 ELSE 1 END`, region).Asc())
		}
		return append(order, goqu.I("id").Asc())
	}

	cep := sanitize.PostalCode(filter.PostalCode)
	if cep != "" {
		band.when(postalDigitsSQL+` = ?`, cep)
	}
	if len(cep) >= 5 {
		band.when(`left(`+postalDigitsSQL+`, 5) = ?`, cep[:5])
	}
	if len(cep) >= 4 {
		band.when(`left(`+postalDigitsSQL+`, 4) = ?`, cep[:4])
	}
	if city != "" {
		if hood != "" {
			band.when(cityFoldSQL+` = `+argFoldSQL+` AND `+hoodFoldSQL+` = `+argFoldSQL, city, hood)
		}
		band.when(cityFoldSQL+` = `+argFoldSQL, city)
	}
	if region != "" {
		band.when(`upper("region") = ?`, region)
	}

	order := band.order()
	if len(cep) >= 5 {
		if prefix, err := strconv.Atoi(cep[:5]); err == nil {
			order = append(order, goqu.L(
				`CASE WHEN length(`+postalDigitsSQL+`) >= 5 THEN abs(left(`+postalDigitsSQL+`, 5)::int - ?) END`, prefix,
			).Asc().NullsLast())
		}
	}
	return append(order, goqu.I("id").Asc())
}

// caseBand builds CASE WHEN c0 THEN 0 WHEN c1 THEN 1 ... ELSE n END.
type caseBand struct {
	conds []string
	args  []any
}

func (b *caseBand) when(cond string, args ...any) {
	b.conds = append(b.conds, cond)
	b.args = append(b.args, args...)
}

// order returns the band as a sort key, or nothing when no condition applies.
func (b *caseBand) order() []exp.OrderedExpression {
	if len(b.conds) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString("CASE")
	for i, c := range b.conds {
		fmt.Fprintf(&sb, " WHEN %s THEN %d", c, i)
	}
	fmt.Fprintf(&sb, " ELSE %d END", len(b.conds))
	return []exp.OrderedExpression{goqu.L(sb.String(), b.args...).Asc()}
}

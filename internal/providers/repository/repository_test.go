package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"arrume_backend/internal/providers/ranking"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestBuildCandidateQuery_PostalCodeSearch(t *testing.T) {
	query, args, err := buildCandidateQuery(Prefilter{
		Mode:         ranking.ModePostalCode,
		PostalCode:   "01310-100",
		City:         "São Paulo",
		Region:       "sp",
		Neighborhood: "Bela Vista",
		Categories:   []string{"upholstery"},
		Limit:        3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, fragment := range []string{
		`FROM "providers"`,
		`(btrim("mobile_phone") <> '' OR btrim("landline_phone") <> '')`,
		`left(regexp_replace("postal_code", '[^0-9]', '', 'g'), 8) LIKE $`,
		`upper(btrim(regexp_replace(unaccent("city"), '\s+', ' ', 'g'))) = upper(btrim(regexp_replace(unaccent($`,
		`upper("region") = $`,
		`"id" ASC LIMIT $`,
	} {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected %q in query:\n%s", fragment, query)
		}
	}

	want := map[any]bool{"%UPHOLSTERY%": false, "0131%": false, "São Paulo": false, "SP": false, "01310100": false, "01310": false, "Bela Vista": false}
	for _, a := range args {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for arg, found := range want {
		if !found {
			t.Fatalf("expected argument %v in %v", arg, args)
		}
	}
}

func TestBuildCandidateQuery_CapsAfterTierOrder(t *testing.T) {
	query, args, err := buildCandidateQuery(Prefilter{
		Mode:       ranking.ModePostalCode,
		PostalCode: "13015000",
		City:       "Campinas",
		Region:     "SP",
		Limit:      3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	orderAt := strings.Index(query, "ORDER BY ")
	if orderAt < 0 {
		t.Fatalf("expected ORDER BY in query:\n%s", query)
	}
	order := query[orderAt:]

	exact := strings.Index(order, `left(regexp_replace("postal_code", '[^0-9]', '', 'g'), 8) = $`)
	prefix5 := strings.Index(order, `left(left(regexp_replace("postal_code", '[^0-9]', '', 'g'), 8), 5) = $`)
	region := strings.Index(order, `upper("region") = $`)
	distance := strings.Index(order, `ASC NULLS LAST`)
	byID := strings.Index(order, `"id" ASC`)
	if !strings.HasPrefix(order, "ORDER BY CASE WHEN ") || exact < 0 || prefix5 < 0 || region < 0 || distance < 0 || byID < 0 {
		t.Fatalf("expected tier band, distance and id in ORDER BY:\n%s", order)
	}
	if !(exact < prefix5 && prefix5 < region && region < distance && distance < byID) {
		t.Fatalf("exact postal code must sort before region and id:\n%s", order)
	}
	if !strings.Contains(order, "THEN 0") || !strings.Contains(order, "ELSE 5 END") {
		t.Fatalf("unexpected band numbering:\n%s", order)
	}

	if got := fmt.Sprint(args[len(args)-1]); got != "60" {
		t.Fatalf("expected row cap 60 for limit 3, got %s (args %v)", got, args)
	}
}

func TestBuildCandidateQuery_CitySearchOnlyFiltersCity(t *testing.T) {
	query, args, err := buildCandidateQuery(Prefilter{Mode: ranking.ModeCity, City: "Recife", PostalCode: "50000000", Region: "PE", Neighborhood: "Boa  Viagem"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(query, "8) LIKE") {
		t.Fatalf("city search must not filter by postal code:\n%s", query)
	}
	if !strings.Contains(query, `unaccent("city")`) {
		t.Fatalf("expected city predicate:\n%s", query)
	}
	if !strings.Contains(query, `ORDER BY CASE WHEN upper(btrim(regexp_replace(unaccent("neighborhood")`) ||
		!strings.Contains(query, `CASE WHEN upper("region") = $`) {
		t.Fatalf("expected neighborhood and region ordering:\n%s", query)
	}
	if got := fmt.Sprint(args[len(args)-1]); got != "50" {
		t.Fatalf("expected minimum row cap 50, got %s", got)
	}
}

func TestPoolSize(t *testing.T) {
	for limit, want := range map[int]int{0: 50, 1: 50, 2: 50, 3: 60, 10: 200} {
		if got := PoolSize(limit); got != want {
			t.Fatalf("PoolSize(%d) = %d, want %d", limit, got, want)
		}
	}
}

type capturedQuery struct {
	sql  string
	args []any
	rows [][]any
}

func (q *capturedQuery) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql, q.args = sql, args
	return &sliceRows{rows: q.rows, at: -1}, nil
}

type sliceRows struct {
	rows [][]any
	at   int
}

func (r *sliceRows) Close()                                       {}
func (r *sliceRows) Err() error                                   { return nil }
func (r *sliceRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *sliceRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *sliceRows) Values() ([]any, error)                       { return r.rows[r.at], nil }
func (r *sliceRows) RawValues() [][]byte                          { return nil }
func (r *sliceRows) Conn() *pgx.Conn                              { return nil }

func (r *sliceRows) Next() bool {
	r.at++
	return r.at < len(r.rows)
}

func (r *sliceRows) Scan(dest ...any) error {
	row := r.rows[r.at]
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = row[i].(int64)
		case *string:
			*p = row[i].(string)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

func TestListCandidates_SendsCappedQueryAndMapsRows(t *testing.T) {
	q := &capturedQuery{rows: [][]any{
		{int64(601), "Exato", "(19) 98888-0601", "", "Campinas", "Centro", "13015-000", "SP", "upholstery"},
		{int64(1), "Regional", "", "1932320001", "Campinas", "Cambuí", "13025000", "sp", "upholstery"},
	}}
	repo := &Repository{db: q}

	got, err := repo.ListCandidates(context.Background(), Prefilter{
		Mode:       ranking.ModePostalCode,
		PostalCode: "13015000",
		City:       "Campinas",
		Region:     "SP",
		Limit:      1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(q.sql, "ORDER BY CASE WHEN ") || fmt.Sprint(q.args[len(q.args)-1]) != "50" {
		t.Fatalf("expected tier ordered query capped at 50, got %s %v", q.sql, q.args)
	}
	if len(got) != 2 || got[0].ID != 601 || got[0].Phone != "5519988880601" || got[0].PostalCode != "13015000" {
		t.Fatalf("unexpected candidates %+v", got)
	}
	if got[1].Phone != "551932320001" {
		t.Fatalf("expected landline fallback, got %+v", got[1])
	}

	ranked := ranking.Rank(ranking.Query{Mode: ranking.ModePostalCode, PostalCode: "13015000", City: "Campinas", Region: "SP"}, got, 1)
	if len(ranked) != 1 || ranked[0].ID != 601 || ranked[0].Tier != ranking.TierExactPostalCode {
		t.Fatalf("expected exact postal code first, got %+v", ranked)
	}
}

func TestPickPhone_PrefersMobile(t *testing.T) {
	if got := pickPhone("(11) 98765-4321", "1134567890"); got != "5511987654321" {
		t.Fatalf("expected mobile, got %q", got)
	}
	if got := pickPhone(" ", "1134567890"); got != "551134567890" {
		t.Fatalf("expected landline fallback, got %q", got)
	}
}

func TestParseFixture_AssignsIDsAndNormalizes(t *testing.T) {
	repo, err := ParseFixture([]byte(`
providers:
  - name: Ana
    phone: "(11) 98765-4321"
    city: São Paulo
    postal_code: 01310-100
    region: sp
  - id: 42
    name: Bruno
    phone: "21999998888"
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := repo.ListCandidates(context.Background(), Prefilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ID != 9000 || got[0].Phone != "5511987654321" || got[0].PostalCode != "01310100" || got[0].Region != "SP" {
		t.Fatalf("unexpected first candidate %+v", got[0])
	}
	if got[1].ID != 42 || got[1].Phone != "5521999998888" {
		t.Fatalf("unexpected second candidate %+v", got[1])
	}
}

func TestParseFixture_RejectsInvalidYAML(t *testing.T) {
	if _, err := ParseFixture([]byte("providers: [")); err == nil {
		t.Fatalf("expected decode error")
	}
}

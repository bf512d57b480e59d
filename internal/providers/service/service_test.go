package service

import (
	"context"
	"errors"
	"testing"

	"arrume_backend/internal/providers/ranking"
	"arrume_backend/internal/providers/repository"
	"arrume_backend/platform/logger"
)

type fakeReader struct {
	calls   []repository.Prefilter
	results map[ranking.Mode][]ranking.Candidate
	errs    []error
}

func (f *fakeReader) ListCandidates(_ context.Context, filter repository.Prefilter) ([]ranking.Candidate, error) {
	f.calls = append(f.calls, filter)
	if len(f.errs) >= len(f.calls) && f.errs[len(f.calls)-1] != nil {
		return nil, f.errs[len(f.calls)-1]
	}
	return f.results[filter.Mode], nil
}

func newService(reader CandidateReader) *Service {
	return New(reader, 3, nil, nil, logger.Discard())
}

func TestSearch_PostalTokenSelectsPostalMode(t *testing.T) {
	reader := &fakeReader{results: map[ranking.Mode][]ranking.Candidate{
		ranking.ModePostalCode: {
			{ID: 1, Phone: "5511900000001", PostalCode: "01310100"},
			{ID: 2, Phone: "5511900000002", PostalCode: "01310200"},
		},
	}}

	got, err := newService(reader).Search(context.Background(), SearchParams{City: "São Paulo", LocationToken: "01310100", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the exact match, got %+v", got)
	}
	if reader.calls[0].Mode != ranking.ModePostalCode || reader.calls[0].PostalCode != "01310100" {
		t.Fatalf("unexpected prefilter %+v", reader.calls[0])
	}
}

func TestSearch_NeighborhoodTokenSelectsCityMode(t *testing.T) {
	reader := &fakeReader{}
	_, _ = newService(reader).Search(context.Background(), SearchParams{City: "Recife", LocationToken: "Boa Viagem"})
	if reader.calls[0].Mode != ranking.ModeCity {
		t.Fatalf("expected city mode, got %v", reader.calls[0].Mode)
	}
	if reader.calls[0].Neighborhood != "Boa Viagem" || reader.calls[0].Limit != 3 {
		t.Fatalf("expected neighborhood and default limit in prefilter, got %+v", reader.calls[0])
	}
}

func TestSearch_DefaultLimitApplies(t *testing.T) {
	pool := make([]ranking.Candidate, 0, 10)
	for i := 1; i <= 10; i++ {
		pool = append(pool, ranking.Candidate{ID: int64(i), Phone: "5581900000000", City: "Recife"})
	}
	reader := &fakeReader{results: map[ranking.Mode][]ranking.Candidate{ranking.ModeCity: pool}}

	got, err := newService(reader).Search(context.Background(), SearchParams{City: "Recife"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected default limit 3, got %d", len(got))
	}
}

func TestFindForLead_RepositoryErrorFallsThrough(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("connection reset")},
		results: map[ranking.Mode][]ranking.Candidate{
			ranking.ModeCity: {{ID: 7, Phone: "5511900000007", City: "São Paulo", Neighborhood: "Bela Vista"}},
		},
	}

	match := newService(reader).FindForLead(context.Background(), LeadLocation{
		PostalCode:   "01310100",
		City:         "São Paulo",
		Region:       "SP",
		Neighborhood: "Bela Vista",
	})

	if match.Strategy != StrategyNeighborhood {
		t.Fatalf("expected neighborhood strategy, got %q", match.Strategy)
	}
	if len(match.Providers) != 1 || match.Providers[0].ID != 7 {
		t.Fatalf("unexpected providers %+v", match.Providers)
	}
	if len(reader.calls) != 2 {
		t.Fatalf("expected 2 repository calls, got %d", len(reader.calls))
	}
}

func TestFindForLead_SkipsPostalAttemptWithoutValidCEP(t *testing.T) {
	reader := &fakeReader{}
	match := newService(reader).FindForLead(context.Background(), LeadLocation{PostalCode: "0131", City: "São Paulo"})

	if match.Strategy != "" || len(match.Providers) != 0 {
		t.Fatalf("expected no match, got %+v", match)
	}
	if len(reader.calls) != 2 {
		t.Fatalf("expected neighborhood and city attempts only, got %d calls", len(reader.calls))
	}
	for _, call := range reader.calls {
		if call.Mode != ranking.ModeCity {
			t.Fatalf("expected only city-mode searches, got %+v", call)
		}
	}
}

func TestFindForLead_CityOnlyLastResort(t *testing.T) {
	reader := &fakeReader{results: map[ranking.Mode][]ranking.Candidate{
		ranking.ModeCity: {{ID: 3, Phone: "5511900000003", City: "São Paulo", Neighborhood: "Mooca"}},
	}}
	reader.errs = []error{nil, errors.New("timeout")}

	match := newService(reader).FindForLead(context.Background(), LeadLocation{
		PostalCode:   "99999999",
		City:         "São Paulo",
		Neighborhood: "Bela Vista",
	})

	if match.Strategy != StrategyCity || len(match.Providers) != 1 {
		t.Fatalf("expected city-only fallback, got %+v", match)
	}
}

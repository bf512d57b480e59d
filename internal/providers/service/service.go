// Package service implements provider search and the per-lead fallback policy.
package service

import (
	"context"
	"strings"

	"arrume_backend/internal/providers/ranking"
	"arrume_backend/internal/providers/repository"
	"arrume_backend/platform/fallback"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/sanitize"
)

// Strategy names reported for a lead match.
const (
	StrategyPostalCode   = "postal_code"
	StrategyNeighborhood = "neighborhood"
	StrategyCity         = "city"
)

// CandidateReader loads the raw candidate pool for a search.
type CandidateReader interface {
	ListCandidates(ctx context.Context, filter repository.Prefilter) ([]ranking.Candidate, error)
}

// SearchParams describes one search. LocationToken is either an 8 digit
// postal code or a neighborhood name; the shape picks the search mode.
type SearchParams struct {
	City             string
	LocationToken    string
	Region           string
	NeighborhoodHint string
	Limit            int
	Categories       []string
}

// LeadLocation is the normalized location of a submitted lead.
type LeadLocation struct {
	PostalCode   string
	City         string
	Region       string
	Neighborhood string
}

// Match is the result of the fallback policy. Strategy is "" when nothing
// matched.
type Match struct {
	Providers []ranking.Ranked
	Strategy  string
}

// Service ranks providers for a location.
type Service struct {
	repo       CandidateReader
	limit      int
	categories []string
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// New creates a provider search service. defaultLimit and categories apply
// when a search does not set its own.
func New(repo CandidateReader, defaultLimit int, categories []string, m *metrics.Metrics, log *logger.Logger) *Service {
	if defaultLimit < 1 {
		defaultLimit = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:       repo,
		limit:      defaultLimit,
		categories: categories,
		metrics:    m,
		log:        log,
	}
}

// Search loads candidates and ranks them. Repository failures are returned
// to the caller.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]ranking.Ranked, error) {
	q := s.queryFor(p)
	limit := p.Limit
	if limit < 1 {
		limit = s.limit
	}

	pool, err := s.repo.ListCandidates(ctx, repository.Prefilter{
		Mode:         q.Mode,
		PostalCode:   q.PostalCode,
		City:         q.City,
		Region:       q.Region,
		Neighborhood: q.Neighborhood,
		Categories:   q.Categories,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	ranked := ranking.Rank(q, pool, limit)
	s.log.WithContext(ctx).Debug("provider search ranked",
		"mode", q.Mode.String(),
		"pool", len(pool),
		"returned", len(ranked),
	)
	return ranked, nil
}

func (s *Service) queryFor(p SearchParams) ranking.Query {
	categories := p.Categories
	if categories == nil {
		categories = s.categories
	}

	q := ranking.Query{
		City:       strings.TrimSpace(p.City),
		Region:     sanitize.Region(p.Region),
		Categories: categories,
	}

	token := strings.TrimSpace(p.LocationToken)
	if sanitize.IsPostalCode(token) {
		q.Mode = ranking.ModePostalCode
		q.PostalCode = token
		q.Neighborhood = strings.TrimSpace(p.NeighborhoodHint)
		return q
	}

	q.Mode = ranking.ModeCity
	q.Neighborhood = token
	if q.Neighborhood == "" {
		q.Neighborhood = strings.TrimSpace(p.NeighborhoodHint)
	}
	return q
}

// FindForLead tries postal code, then neighborhood, then city-only searches
// and returns the first non-empty ranking. A failing attempt counts as empty.
func (s *Service) FindForLead(ctx context.Context, loc LeadLocation) Match {
	chain := fallback.New[[]ranking.Ranked]("provider_match", func(r []ranking.Ranked) bool {
		return len(r) == 0
	}, s.log)

	if sanitize.IsPostalCode(loc.PostalCode) {
		chain.Then(StrategyPostalCode, s.attempt(StrategyPostalCode, SearchParams{
			City:             loc.City,
			LocationToken:    loc.PostalCode,
			Region:           loc.Region,
			NeighborhoodHint: loc.Neighborhood,
		}))
	}
	chain.Then(StrategyNeighborhood, s.attempt(StrategyNeighborhood, SearchParams{
		City:             loc.City,
		LocationToken:    loc.Neighborhood,
		Region:           loc.Region,
		NeighborhoodHint: loc.Neighborhood,
	}))
	chain.Then(StrategyCity, s.attempt(StrategyCity, SearchParams{
		City:   loc.City,
		Region: loc.Region,
	}))

	res := chain.Run(ctx, nil)
	s.metrics.MatchedProviders(len(res.Value))
	return Match{Providers: res.Value, Strategy: res.Step}
}

func (s *Service) attempt(strategy string, p SearchParams) fallback.Attempt[[]ranking.Ranked] {
	return func(ctx context.Context) ([]ranking.Ranked, error) {
		ranked, err := s.Search(ctx, p)
		s.metrics.MatchAttempt(strategy, err == nil && len(ranked) > 0)
		return ranked, err
	}
}

package repository

import (
	"context"
	"fmt"
	"os"

	"arrume_backend/internal/providers/ranking"
	"arrume_backend/platform/phone"
	"arrume_backend/platform/sanitize"

	"gopkg.in/yaml.v3"
)

// fixtureBaseID numbers fixture providers that do not declare an id.
const fixtureBaseID = 9000

type fixtureFile struct {
	Providers []fixtureProvider `yaml:"providers"`
}

type fixtureProvider struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	Phone        string `yaml:"phone"`
	City         string `yaml:"city"`
	Neighborhood string `yaml:"neighborhood"`
	PostalCode   string `yaml:"postal_code"`
	Region       string `yaml:"region"`
	Category     string `yaml:"category"`
}

// FixtureRepository serves a fixed provider list, typically teammates' own
// numbers in development. It applies no location pre-filter.
type FixtureRepository struct {
	candidates []ranking.Candidate
}

// LoadFixture reads a YAML provider list from path.
func LoadFixture(path string) (*FixtureRepository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a YAML provider list.
func ParseFixture(data []byte) (*FixtureRepository, error) {
	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode provider fixture: %w", err)
	}

	candidates := make([]ranking.Candidate, 0, len(file.Providers))
	for i, p := range file.Providers {
		id := p.ID
		if id == 0 {
			id = int64(fixtureBaseID + i)
		}
		candidates = append(candidates, ranking.Candidate{
			ID:           id,
			Name:         sanitize.Field(p.Name, sanitize.MaxName),
			Phone:        phone.Normalize(p.Phone),
			City:         p.City,
			Neighborhood: p.Neighborhood,
			PostalCode:   sanitize.PostalCode(p.PostalCode),
			Region:       sanitize.Region(p.Region),
			Category:     p.Category,
		})
	}
	return &FixtureRepository{candidates: candidates}, nil
}

// ListCandidates returns a copy of every fixture provider.
func (r *FixtureRepository) ListCandidates(ctx context.Context, _ Prefilter) ([]ranking.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]ranking.Candidate, len(r.candidates))
	copy(out, r.candidates)
	return out, nil
}

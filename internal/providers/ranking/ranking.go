// Package ranking orders provider candidates for a location query.
//
// Ranking is a pure function of the query and the candidate list: every
// candidate gets a key (tier, distance, phone flag, id) and the list is sorted
// ascending by that key. Repositories may pre-filter and cap the pool, but
// the final order is decided here.
package ranking

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"arrume_backend/platform/sanitize"
)

// Mode selects the shape of the search.
type Mode int

const (
	// ModePostalCode ranks by postal code proximity, then city, then region.
	ModePostalCode Mode = iota
	// ModeCity ranks same-city candidates by neighborhood.
	ModeCity
)

// String returns the mode label used in logs and the preview API.
func (m Mode) String() string {
	if m == ModeCity {
		return "city"
	}
	return "postal_code"
}

// Tier is the primary ranking key. Lower is better.
type Tier int

// Postal code search tiers.
const (
	TierExactPostalCode      Tier = 0
	TierPostalCodePrefix5    Tier = 1
	TierPostalCodePrefix4    Tier = 2
	TierNeighborhoodExact    Tier = 3
	TierNeighborhoodPhonetic Tier = 4
	TierSameCity             Tier = 5
	TierSameRegion           Tier = 6
	TierNoMatch              Tier = 9
)

// City search tiers.
const (
	TierCityNeighborhoodExact    Tier = 0
	TierCityNeighborhoodPhonetic Tier = 1
	TierCityOther                Tier = 2
)

// Candidate is a provider as seen by the ranker. Phone is already normalized.
type Candidate struct {
	ID           int64
	Name         string
	Phone        string
	City         string
	Neighborhood string
	PostalCode   string
	Region       string
	Category     string
}

// Query describes where the lead is.
type Query struct {
	Mode         Mode
	PostalCode   string
	City         string
	Region       string
	Neighborhood string
	Categories   []string
}

// Ranked pairs a candidate with the key it was sorted by.
type Ranked struct {
	Candidate
	Tier     Tier
	Distance int
}

// Key is the sort tuple for one candidate.
type Key struct {
	Tier      Tier
	Distance  int
	PhoneFlag int
	ID        int64
}

// Less orders keys lexicographically.
func (k Key) Less(o Key) bool {
	return k.Compare(o) < 0
}

// Compare returns -1, 0 or 1.
func (k Key) Compare(o Key) int {
	switch {
	case k.Tier != o.Tier:
		return cmpInt(int(k.Tier), int(o.Tier))
	case k.Distance != o.Distance:
		return cmpInt(k.Distance, o.Distance)
	case k.PhoneFlag != o.PhoneFlag:
		return cmpInt(k.PhoneFlag, o.PhoneFlag)
	case k.ID < o.ID:
		return -1
	case k.ID > o.ID:
		return 1
	default:
		return 0
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// KeyFor computes the ranking key of c for q, and whether c is eligible at
// all (category filter, and same city for city searches).
func KeyFor(q Query, c Candidate) (Key, bool) {
	return keyFor(prepare(q), c)
}

type preparedQuery struct {
	Query
	tokens     []string
	prefix5Num int
	hasPrefix5 bool
}

func prepare(q Query) preparedQuery {
	p := preparedQuery{Query: q, tokens: NormalizeCategories(q.Categories)}
	p.PostalCode = sanitize.PostalCode(q.PostalCode)
	p.prefix5Num, p.hasPrefix5 = prefixNumber(p.PostalCode)
	return p
}

func keyFor(q preparedQuery, c Candidate) (Key, bool) {
	if !CategoryMatches(c.Category, q.tokens) {
		return Key{}, false
	}

	sameCity := SameText(q.City, c.City)
	key := Key{ID: c.ID, PhoneFlag: 1}
	if strings.TrimSpace(c.Phone) != "" {
		key.PhoneFlag = 0
	}

	if q.Mode == ModeCity {
		if !sameCity {
			return Key{}, false
		}
		key.Tier = cityTier(q, c)
		key.Distance = 1
		if q.Region != "" && strings.EqualFold(q.Region, c.Region) {
			key.Distance = 0
		}
		return key, true
	}

	key.Tier = postalTier(q, c, sameCity)
	key.Distance = q.distance(c.PostalCode)
	return key, true
}

func postalTier(q preparedQuery, c Candidate, sameCity bool) Tier {
	cep := sanitize.PostalCode(c.PostalCode)
	switch {
	case q.PostalCode != "" && cep == q.PostalCode:
		return TierExactPostalCode
	case len(q.PostalCode) >= 5 && len(cep) >= 5 && cep[:5] == q.PostalCode[:5]:
		return TierPostalCodePrefix5
	case len(q.PostalCode) >= 4 && len(cep) >= 4 && cep[:4] == q.PostalCode[:4]:
		return TierPostalCodePrefix4
	case sameCity && SameText(q.Neighborhood, c.Neighborhood):
		return TierNeighborhoodExact
	case sameCity && SameSound(q.Neighborhood, c.Neighborhood):
		return TierNeighborhoodPhonetic
	case sameCity:
		return TierSameCity
	case q.Region != "" && strings.EqualFold(q.Region, c.Region):
		return TierSameRegion
	default:
		return TierNoMatch
	}
}

func cityTier(q preparedQuery, c Candidate) Tier {
	switch {
	case SameText(q.Neighborhood, c.Neighborhood):
		return TierCityNeighborhoodExact
	case SameSound(q.Neighborhood, c.Neighborhood):
		return TierCityNeighborhoodPhonetic
	default:
		return TierCityOther
	}
}

// distance is |candidate prefix5 - query prefix5|; unknown prefixes sort last.
func (q preparedQuery) distance(candidateCEP string) int {
	if !q.hasPrefix5 {
		return math.MaxInt
	}
	n, ok := prefixNumber(sanitize.PostalCode(candidateCEP))
	if !ok {
		return math.MaxInt
	}
	d := n - q.prefix5Num
	if d < 0 {
		d = -d
	}
	return d
}

func prefixNumber(cep string) (int, bool) {
	if len(cep) < 5 {
		return 0, false
	}
	n, err := strconv.Atoi(cep[:5])
	if err != nil {
		return 0, false
	}
	return n, true
}

// Rank filters, orders, de-duplicates and caps candidates for q.
// Candidates without a phone are dropped before capping; the first occurrence
// of an id after sorting wins. limit below one is treated as one.
func Rank(q Query, candidates []Candidate, limit int) []Ranked {
	if limit < 1 {
		limit = 1
	}
	pq := prepare(q)

	type keyed struct {
		Ranked
		key Key
	}
	pool := make([]keyed, 0, len(candidates))
	for _, c := range candidates {
		key, ok := keyFor(pq, c)
		if !ok {
			continue
		}
		pool = append(pool, keyed{
			Ranked: Ranked{Candidate: c, Tier: key.Tier, Distance: key.Distance},
			key:    key,
		})
	}

	slices.SortStableFunc(pool, func(a, b keyed) int {
		return a.key.Compare(b.key)
	})

	out := make([]Ranked, 0, min(limit, len(pool)))
	seen := make(map[int64]struct{}, len(pool))
	for _, k := range pool {
		if len(out) == limit {
			break
		}
		if strings.TrimSpace(k.Phone) == "" {
			continue
		}
		if _, dup := seen[k.ID]; dup {
			continue
		}
		seen[k.ID] = struct{}{}
		out = append(out, k.Ranked)
	}
	return out
}

// Candidates strips ranking metadata.
func Candidates(ranked []Ranked) []Candidate {
	out := make([]Candidate, len(ranked))
	for i, r := range ranked {
		out[i] = r.Candidate
	}
	return out
}

package transport

// SearchRequest is the query string of the search preview endpoint.
type SearchRequest struct {
	City         string `form:"city" validate:"required,max=200"`
	Token        string `form:"token" validate:"omitempty,max=200"`
	Region       string `form:"region" validate:"omitempty,max=2"`
	Neighborhood string `form:"neighborhood" validate:"omitempty,max=200"`
	Limit        int    `form:"limit" validate:"omitempty,min=1,max=50"`
	Categories   string `form:"categories" validate:"omitempty,max=500"`
}

// CandidateResponse is one ranked provider.
type CandidateResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	Neighborhood string `json:"neighborhood"`
	PostalCode   string `json:"postalCode"`
	Region       string `json:"region"`
	Category     string `json:"category"`
	Tier         int    `json:"tier"`
	Distance     *int   `json:"distance,omitempty"`
}

// SearchResponse lists ranked providers in order.
type SearchResponse struct {
	Mode      string              `json:"mode"`
	Providers []CandidateResponse `json:"providers"`
}

package handler

import (
	"math"
	"strings"

	"arrume_backend/internal/providers/ranking"
	"arrume_backend/internal/providers/service"
	"arrume_backend/internal/providers/transport"
	"arrume_backend/platform/apperr"
	"arrume_backend/platform/httpkit"
	"arrume_backend/platform/sanitize"
	"arrume_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler exposes the provider search preview used by operators.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new providers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers provider routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.Search)
}

// Search handles GET /api/v1/ops/providers/search.
func (h *Handler) Search(c *gin.Context) {
	var req transport.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, apperr.Validation(msgValidationFailed).WithDetails(validator.FieldErrors(err)))
		return
	}

	params := service.SearchParams{
		City:             req.City,
		LocationToken:    req.Token,
		Region:           req.Region,
		NeighborhoodHint: req.Neighborhood,
		Limit:            req.Limit,
	}
	if req.Categories != "" {
		params.Categories = strings.Split(req.Categories, ",")
	}

	ranked, err := h.svc.Search(c.Request.Context(), params)
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindUnavailable, "provider repository unavailable", err).WithOp("providers.Search"))
		return
	}

	mode := ranking.ModeCity
	if sanitize.IsPostalCode(strings.TrimSpace(req.Token)) {
		mode = ranking.ModePostalCode
	}

	resp := transport.SearchResponse{Mode: mode.String(), Providers: make([]transport.CandidateResponse, 0, len(ranked))}
	for _, r := range ranked {
		resp.Providers = append(resp.Providers, toResponse(r))
	}
	httpkit.OK(c, resp)
}

func toResponse(r ranking.Ranked) transport.CandidateResponse {
	out := transport.CandidateResponse{
		ID:           r.ID,
		Name:         r.Name,
		Phone:        r.Phone,
		City:         r.City,
		Neighborhood: r.Neighborhood,
		PostalCode:   r.PostalCode,
		Region:       r.Region,
		Category:     r.Category,
		Tier:         int(r.Tier),
	}
	if r.Distance != math.MaxInt {
		d := r.Distance
		out.Distance = &d
	}
	return out
}

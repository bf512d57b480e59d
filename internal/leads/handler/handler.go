package handler

import (
	"net/http"

	"arrume_backend/internal/leads/service"
	"arrume_backend/internal/leads/transport"
	"arrume_backend/platform/apperr"
	"arrume_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	msgInvalidLeadID  = "invalid lead id"
)

// Handler serves the public lead intake endpoint.
type Handler struct {
	svc *service.Service
}

// New creates a new leads handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers lead routes. limit may be nil.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	handlers := []gin.HandlerFunc{h.Submit}
	if limit != nil {
		handlers = append([]gin.HandlerFunc{limit}, handlers...)
	}
	rg.POST("", handlers...)
}

// RegisterOperatorRoutes registers the stored lead lookup.
func (h *Handler) RegisterOperatorRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
}

// Submit handles POST /api/v1/leads with a JSON or form body.
func (h *Handler) Submit(c *gin.Context) {
	req, err := bindRequest(c)
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidRequest))
		return
	}

	res, err := h.svc.Submit(c.Request.Context(), service.SubmitInput{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		PostalCode:      req.PostalCode,
		Street:          req.Street,
		Neighborhood:    req.Neighborhood,
		City:            req.City,
		Region:          req.Region,
		ServiceKind:     req.ServiceKind,
		ConsentWhatsApp: bool(req.ConsentWhatsApp),
		ConsentSharing:  bool(req.ConsentSharing),
		ConsentUsage:    bool(req.ConsentUsage),
		ClientIP:        httpkit.ClientIP(c),
		UserAgent:       c.Request.UserAgent(),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.SubmitLeadResponse{
		LeadID:           res.LeadID.String(),
		MatchedProviders: res.MatchedProviders,
		MatchedBy:        res.MatchedBy,
		Notifications:    make([]transport.NotificationResponse, 0, len(res.Notifications)),
	}
	for _, o := range res.Notifications {
		resp.Notifications = append(resp.Notifications, transport.NotificationResponse{
			Audience:  string(o.Audience),
			Name:      o.Name,
			Phone:     o.Phone,
			Status:    string(o.Status),
			MessageID: o.MessageID,
		})
	}
	httpkit.JSON(c, http.StatusCreated, resp)
}

func bindRequest(c *gin.Context) (transport.SubmitLeadRequest, error) {
	if c.ContentType() == binding.MIMEJSON {
		var req transport.SubmitLeadRequest
		err := c.ShouldBindJSON(&req)
		return req, err
	}
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if err := c.Request.ParseMultipartForm(1 << 20); err != nil {
			return transport.SubmitLeadRequest{}, err
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return transport.SubmitLeadRequest{}, err
	}
	return transport.FormValues(c.Request.PostFormValue), nil
}

// Get handles GET /api/v1/ops/leads/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.HandleError(c, apperr.BadRequest(msgInvalidLeadID))
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.LeadResponse{
		ID:           lead.ID.String(),
		Name:         lead.Name,
		Phone:        lead.Phone,
		Email:        lead.Email,
		PostalCode:   lead.PostalCode,
		Street:       lead.Street,
		Neighborhood: lead.Neighborhood,
		City:         lead.City,
		Region:       lead.Region,
		ServiceKind:  lead.ServiceKind,
		Consent: transport.ConsentResponse{
			WhatsApp:  lead.ConsentWhatsApp,
			Sharing:   lead.ConsentSharing,
			Usage:     lead.ConsentUsage,
			At:        lead.ConsentAt,
			IP:        lead.ConsentIP,
			UserAgent: lead.ConsentUserAgent,
			Version:   lead.ConsentVersion,
		},
		CreatedAt: lead.CreatedAt,
	})
}

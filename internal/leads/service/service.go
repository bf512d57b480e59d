// Package service runs the lead intake pipeline: normalize, fill the
// address from the postal code, validate, persist, match and notify.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"arrume_backend/internal/leads/repository"
	"arrume_backend/internal/notification"
	"arrume_backend/internal/postalcode"
	providerservice "arrume_backend/internal/providers/service"
	"arrume_backend/platform/apperr"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/phone"
	"arrume_backend/platform/sanitize"
	"arrume_backend/platform/validator"

	"github.com/google/uuid"
)

const (
	resultAccepted = "accepted"
	resultInvalid  = "invalid"
	resultFailed   = "failed"
)

// Matcher finds providers for a lead location.
type Matcher interface {
	FindForLead(ctx context.Context, loc providerservice.LeadLocation) providerservice.Match
}

// Dispatcher delivers the requester and provider messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, requester notification.Target, providers []notification.Target) notification.Report
}

// AddressResolver fills a location from a postal code.
type AddressResolver interface {
	Resolve(ctx context.Context, cep string) (postalcode.Address, bool)
}

// SubmitInput is the raw form data plus request metadata.
type SubmitInput struct {
	Name            string
	Phone           string
	Email           string
	PostalCode      string
	Street          string
	Neighborhood    string
	City            string
	Region          string
	ServiceKind     string
	ConsentWhatsApp bool
	ConsentSharing  bool
	ConsentUsage    bool
	ClientIP        string
	UserAgent       string
}

// Result summarizes a processed lead.
type Result struct {
	LeadID           uuid.UUID
	MatchedProviders int
	MatchedBy        string
	Notifications    []notification.Outcome
}

// normalizedLead carries the validation rules for a lead after cleanup.
type normalizedLead struct {
	Name            string `json:"name" validate:"required,min=2,max=200,person_name"`
	Phone           string `json:"phone" validate:"required,br_phone"`
	Email           string `json:"email" validate:"required,email,max=200"`
	PostalCode      string `json:"postalCode" validate:"required,cep"`
	Street          string `json:"street" validate:"max=300"`
	Neighborhood    string `json:"neighborhood" validate:"max=200"`
	City            string `json:"city" validate:"required,max=200"`
	Region          string `json:"region" validate:"omitempty,len=2"`
	ServiceKind     string `json:"serviceKind" validate:"required,oneof=reforma novo ambos"`
	ConsentWhatsApp bool   `json:"consentWhatsapp" validate:"required"`
	ConsentSharing  bool   `json:"consentSharing" validate:"required"`
	ConsentUsage    bool   `json:"consentUsage" validate:"required"`
}

// Service orchestrates lead submission.
type Service struct {
	store      repository.Store
	resolver   AddressResolver
	matcher    Matcher
	dispatcher Dispatcher
	composer   notification.Composer
	val        *validator.Validator
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

// New creates the lead service. resolver may be nil, which disables address
// completion.
func New(store repository.Store, resolver AddressResolver, matcher Matcher, dispatcher Dispatcher, composer notification.Composer, val *validator.Validator, m *metrics.Metrics, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		store:      store,
		resolver:   resolver,
		matcher:    matcher,
		dispatcher: dispatcher,
		composer:   composer,
		val:        val,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

// Submit processes one lead. Only validation (KindValidation) and
// persistence (KindInternal) failures are returned; matching and delivery
// problems end up in the result.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Result, error) {
	lead := normalize(in)
	s.completeAddress(ctx, &lead)

	if err := s.val.Struct(lead); err != nil {
		s.metrics.LeadSubmitted(resultInvalid)
		return Result{}, apperr.Validation("invalid lead").WithDetails(validator.FieldErrors(err))
	}

	record := &repository.Lead{
		ID:               uuid.New(),
		Name:             lead.Name,
		Phone:            lead.Phone,
		Email:            lead.Email,
		PostalCode:       lead.PostalCode,
		Street:           lead.Street,
		Neighborhood:     lead.Neighborhood,
		City:             lead.City,
		Region:           lead.Region,
		ServiceKind:      lead.ServiceKind,
		ConsentWhatsApp:  lead.ConsentWhatsApp,
		ConsentSharing:   lead.ConsentSharing,
		ConsentUsage:     lead.ConsentUsage,
		ConsentAt:        s.now().UTC(),
		ConsentIP:        sanitize.Truncate(strings.TrimSpace(in.ClientIP), 64),
		ConsentUserAgent: sanitize.Truncate(strings.TrimSpace(in.UserAgent), 500),
		ConsentVersion:   repository.ConsentVersion,
	}

	ctx = context.WithValue(ctx, logger.LeadIDKey, record.ID.String())
	log := s.log.WithContext(ctx)

	if err := s.store.Save(ctx, record); err != nil {
		s.metrics.LeadSubmitted(resultFailed)
		log.DatabaseError("save lead", err)
		return Result{}, apperr.Wrap(apperr.KindInternal, "could not save lead", err).WithOp("leads.Submit")
	}
	s.metrics.LeadSubmitted(resultAccepted)

	match := s.matcher.FindForLead(ctx, providerservice.LeadLocation{
		PostalCode:   record.PostalCode,
		City:         record.City,
		Region:       record.Region,
		Neighborhood: record.Neighborhood,
	})

	report := s.notify(ctx, record, match)
	log.Info("lead processed",
		"matchedProviders", len(match.Providers),
		"matchedBy", match.Strategy,
		"notificationsSent", report.Sent(),
	)

	return Result{
		LeadID:           record.ID,
		MatchedProviders: len(match.Providers),
		MatchedBy:        match.Strategy,
		Notifications:    report.All(),
	}, nil
}

// Get returns a stored lead with its consent record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("load lead", err)
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "could not load lead", err).WithOp("leads.Get")
	}
	return lead, nil
}

func (s *Service) notify(ctx context.Context, record *repository.Lead, match providerservice.Match) notification.Report {
	lead := notification.Lead{
		Name:         record.Name,
		Phone:        record.Phone,
		Email:        record.Email,
		City:         record.City,
		Region:       record.Region,
		Neighborhood: record.Neighborhood,
		PostalCode:   record.PostalCode,
		ServiceKind:  record.ServiceKind,
	}

	contacts := make([]notification.Contact, 0, len(match.Providers))
	providers := make([]notification.Target, 0, len(match.Providers))
	for _, p := range match.Providers {
		contact := notification.Contact{Name: p.Name, Phone: p.Phone}
		contacts = append(contacts, contact)
		providers = append(providers, s.composer.ForProvider(lead, contact))
	}

	return s.dispatcher.Dispatch(ctx, s.composer.ForRequester(lead, contacts), providers)
}

// completeAddress fills missing city, region and neighborhood from the
// postal code. When nothing resolves and city is still empty the CEP
// placeholder stands in for it.
func (s *Service) completeAddress(ctx context.Context, lead *normalizedLead) {
	if !sanitize.IsPostalCode(lead.PostalCode) {
		return
	}
	if lead.City != "" && lead.Region != "" {
		return
	}

	var (
		addr  postalcode.Address
		found bool
	)
	if s.resolver != nil {
		addr, found = s.resolver.Resolve(ctx, lead.PostalCode)
	}

	if found {
		if lead.City == "" {
			lead.City = sanitize.Field(addr.City, sanitize.MaxCity)
		}
		if lead.Region == "" {
			lead.Region = sanitize.Region(addr.Region)
		}
		if lead.Neighborhood == "" {
			lead.Neighborhood = sanitize.Field(addr.Neighborhood, sanitize.MaxNeighborhood)
		}
		if lead.Street == "" {
			lead.Street = sanitize.Field(addr.Street, sanitize.MaxStreet)
		}
		return
	}

	if lead.City == "" {
		s.log.WithContext(ctx).Warn("postal code not resolved, using placeholder city", "cep", lead.PostalCode)
		lead.City = postalcode.Placeholder(lead.PostalCode)
	}
}

func normalize(in SubmitInput) normalizedLead {
	return normalizedLead{
		Name:            sanitize.Field(in.Name, sanitize.MaxName),
		Phone:           phone.Normalize(in.Phone),
		Email:           sanitize.Email(in.Email),
		PostalCode:      sanitize.PostalCode(in.PostalCode),
		Street:          sanitize.Field(in.Street, sanitize.MaxStreet),
		Neighborhood:    sanitize.Field(in.Neighborhood, sanitize.MaxNeighborhood),
		City:            sanitize.Field(in.City, sanitize.MaxCity),
		Region:          sanitize.Region(in.Region),
		ServiceKind:     sanitize.ServiceKind(in.ServiceKind),
		ConsentWhatsApp: in.ConsentWhatsApp,
		ConsentSharing:  in.ConsentSharing,
		ConsentUsage:    in.ConsentUsage,
	}
}

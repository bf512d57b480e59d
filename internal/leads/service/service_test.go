package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"arrume_backend/internal/leads/repository"
	"arrume_backend/internal/notification"
	"arrume_backend/internal/postalcode"
	"arrume_backend/internal/providers/ranking"
	providerservice "arrume_backend/internal/providers/service"
	"arrume_backend/internal/whatsapp"
	"arrume_backend/platform/apperr"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/validator"

	"github.com/google/uuid"
)

type memoryStore struct {
	saved []repository.Lead
	err   error
}

func (m *memoryStore) Save(_ context.Context, lead *repository.Lead) error {
	if m.err != nil {
		return m.err
	}
	lead.CreatedAt = time.Now()
	m.saved = append(m.saved, *lead)
	return nil
}

func (m *memoryStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	for _, l := range m.saved {
		if l.ID == id {
			return l, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

type fakeResolver struct {
	addr  postalcode.Address
	found bool
	calls int
}

func (f *fakeResolver) Resolve(context.Context, string) (postalcode.Address, bool) {
	f.calls++
	return f.addr, f.found
}

type fakeMatcher struct {
	match providerservice.Match
	got   []providerservice.LeadLocation
}

func (f *fakeMatcher) FindForLead(_ context.Context, loc providerservice.LeadLocation) providerservice.Match {
	f.got = append(f.got, loc)
	return f.match
}

type failingTransport struct {
	fail map[string]bool
}

func (f failingTransport) Send(_ context.Context, phone, _ string) (whatsapp.Receipt, error) {
	if f.fail[phone] {
		return whatsapp.Receipt{}, errors.New("send failed")
	}
	return whatsapp.Receipt{MessageID: "m-" + phone}, nil
}

func validInput() SubmitInput {
	return SubmitInput{
		Name:            "  Maria   Souza ",
		Phone:           "(11) 99999-0000",
		Email:           "Maria@Example.com",
		PostalCode:      "01310-100",
		City:            "São Paulo",
		Region:          "sp",
		ServiceKind:     "reforma",
		ConsentWhatsApp: true,
		ConsentSharing:  true,
		ConsentUsage:    true,
		ClientIP:        "203.0.113.7",
		UserAgent:       "test-agent",
	}
}

func threeProviders() providerservice.Match {
	return providerservice.Match{
		Strategy: providerservice.StrategyPostalCode,
		Providers: []ranking.Ranked{
			{Candidate: ranking.Candidate{ID: 1, Name: "Um", Phone: "5511911110001"}},
			{Candidate: ranking.Candidate{ID: 2, Name: "Dois", Phone: "5511911110002"}},
			{Candidate: ranking.Candidate{ID: 3, Name: "Três", Phone: "5511911110003"}},
		},
	}
}

func newService(store repository.Store, resolver AddressResolver, matcher Matcher, transport notification.Transport) *Service {
	dispatcher := notification.NewDispatcher(transport, nil, "", nil, logger.Discard())
	return New(store, resolver, matcher, dispatcher, notification.NewComposer("JC Decor", "ARRUME"), validator.New(), nil, logger.Discard())
}

func TestSubmit_PersistsMatchesAndNotifies(t *testing.T) {
	store := &memoryStore{}
	matcher := &fakeMatcher{match: threeProviders()}
	svc := newService(store, nil, matcher, failingTransport{fail: map[string]bool{"5511911110002": true}})
	svc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600)) }

	res, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected one saved lead, got %d", len(store.saved))
	}
	saved := store.saved[0]
	if saved.ID != res.LeadID || saved.Name != "Maria   Souza" || saved.Phone != "5511999990000" || saved.Email != "maria@example.com" {
		t.Fatalf("lead not normalized: %+v", saved)
	}
	if saved.ConsentAt.Location() != time.UTC || saved.ConsentAt.Hour() != 12 {
		t.Fatalf("consent time not stamped in UTC: %v", saved.ConsentAt)
	}
	if saved.ConsentIP != "203.0.113.7" || saved.ConsentUserAgent != "test-agent" || saved.ConsentVersion != "1.0" {
		t.Fatalf("consent metadata missing: %+v", saved)
	}

	if res.MatchedProviders != 3 || res.MatchedBy != providerservice.StrategyPostalCode {
		t.Fatalf("unexpected match summary %+v", res)
	}
	if len(res.Notifications) != 4 {
		t.Fatalf("expected 4 outcomes, got %d", len(res.Notifications))
	}
	want := []notification.Status{notification.StatusSent, notification.StatusSent, notification.StatusFailed, notification.StatusSent}
	for i, status := range want {
		if res.Notifications[i].Status != status {
			t.Fatalf("outcome %d: expected %s, got %s", i, status, res.Notifications[i].Status)
		}
	}

	loc := matcher.got[0]
	if loc.PostalCode != "01310100" || loc.City != "São Paulo" || loc.Region != "SP" {
		t.Fatalf("unexpected match location %+v", loc)
	}
}

func TestSubmit_ValidationFailure(t *testing.T) {
	store := &memoryStore{}
	svc := newService(store, nil, &fakeMatcher{}, failingTransport{})

	in := validInput()
	in.Phone = "123"
	in.ConsentSharing = false
	_, err := svc.Submit(context.Background(), in)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error")
	}
	fields := map[string]string{}
	for _, f := range appErr.Details.([]apperr.FieldError) {
		fields[f.Field] = f.Rule
	}
	if fields["phone"] != "br_phone" || fields["consentSharing"] != "required" {
		t.Fatalf("unexpected field errors %v", fields)
	}
	if len(store.saved) != 0 {
		t.Fatalf("invalid lead must not be saved")
	}
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	matcher := &fakeMatcher{match: threeProviders()}
	svc := newService(&memoryStore{err: errors.New("disk full")}, nil, matcher, failingTransport{})

	_, err := svc.Submit(context.Background(), validInput())
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(matcher.got) != 0 {
		t.Fatalf("matching must not run after a failed save")
	}
}

func TestSubmit_ResolvesMissingAddress(t *testing.T) {
	store := &memoryStore{}
	resolver := &fakeResolver{found: true, addr: postalcode.Address{City: "São Paulo", Region: "SP", Neighborhood: "Bela Vista", Street: "Avenida Paulista"}}
	svc := newService(store, resolver, &fakeMatcher{}, failingTransport{})

	in := validInput()
	in.City = ""
	in.Region = ""
	in.Neighborhood = "Jardins"
	if _, err := svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := store.saved[0]
	if saved.City != "São Paulo" || saved.Region != "SP" || saved.Street != "Avenida Paulista" {
		t.Fatalf("address not completed: %+v", saved)
	}
	if saved.Neighborhood != "Jardins" {
		t.Fatalf("submitted neighborhood must be kept, got %q", saved.Neighborhood)
	}
}

func TestSubmit_SkipsLookupWhenAddressComplete(t *testing.T) {
	resolver := &fakeResolver{}
	svc := newService(&memoryStore{}, resolver, &fakeMatcher{}, failingTransport{})

	if _, err := svc.Submit(context.Background(), validInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("lookup should be skipped, got %d calls", resolver.calls)
	}
}

func TestSubmit_UnresolvedPostalCodeUsesPlaceholder(t *testing.T) {
	store := &memoryStore{}
	svc := newService(store, &fakeResolver{}, &fakeMatcher{}, failingTransport{})

	in := validInput()
	in.City = ""
	res, err := svc.Submit(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.saved[0].City != "CEP-01310100" {
		t.Fatalf("expected placeholder city, got %q", store.saved[0].City)
	}
	if res.MatchedProviders != 0 || res.MatchedBy != "" || len(res.Notifications) != 1 {
		t.Fatalf("unexpected result for unmatched lead %+v", res)
	}
}

// Package notification composes and fans out the WhatsApp messages sent
// after a lead is matched: one to the requester and one per provider.
package notification

import (
	"context"
	"errors"
	"fmt"

	"arrume_backend/internal/whatsapp"
	"arrume_backend/platform/logger"
	"arrume_backend/platform/metrics"
	"arrume_backend/platform/phone"

	"golang.org/x/sync/errgroup"
)

// Audience identifies who a message is for.
type Audience string

const (
	AudienceRequester Audience = "requester"
	AudienceProvider  Audience = "provider"
)

// Status is the result of one delivery attempt.
type Status string

const (
	StatusSent                Status = "sent"
	StatusFailed              Status = "failed"
	StatusSkippedSelfSend     Status = "skipped_self_send"
	StatusSkippedInvalidPhone Status = "skipped_invalid_phone"
)

var errSelfSend = errors.New("recipient is the sender number")

// Transport delivers one text message.
type Transport interface {
	Send(ctx context.Context, phone, message string) (whatsapp.Receipt, error)
}

// Shortener shortens a URL, returning the input when it cannot.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) string
}

// Target is one message to deliver. Links are shortened before Compose is
// called and passed to it in the same order.
type Target struct {
	Audience Audience
	Name     string
	Phone    string
	Links    []string
	Compose  func(shortLinks []string) (string, error)
}

// Outcome records what happened to one Target.
type Outcome struct {
	Audience  Audience
	Name      string
	Phone     string
	Status    Status
	MessageID string
	Err       error
}

// Report holds the requester outcome and one outcome per provider, in the
// order the providers were given.
type Report struct {
	Requester Outcome
	Providers []Outcome
}

// All returns the requester outcome followed by the provider outcomes.
func (r Report) All() []Outcome {
	all := make([]Outcome, 0, len(r.Providers)+1)
	all = append(all, r.Requester)
	return append(all, r.Providers...)
}

// Sent counts delivered messages.
func (r Report) Sent() int {
	n := 0
	for _, o := range r.All() {
		if o.Status == StatusSent {
			n++
		}
	}
	return n
}

// Dispatcher fans a set of targets out concurrently.
type Dispatcher struct {
	transport   Transport
	shortener   Shortener
	senderPhone string
	metrics     *metrics.Metrics
	log         *logger.Logger
}

// NewDispatcher creates a dispatcher. senderPhone is the number messages are
// sent from; targets with the same number are skipped. A nil shortener keeps
// links as they are.
func NewDispatcher(transport Transport, shortener Shortener, senderPhone string, m *metrics.Metrics, log *logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{
		transport:   transport,
		shortener:   shortener,
		senderPhone: phone.Normalize(senderPhone),
		metrics:     m,
		log:         log,
	}
}

// Dispatch delivers every target concurrently and waits for all of them.
// One failing delivery never affects the others.
func (d *Dispatcher) Dispatch(ctx context.Context, requester Target, providers []Target) Report {
	report := Report{Providers: make([]Outcome, len(providers))}

	var g errgroup.Group
	g.Go(func() error {
		report.Requester = d.deliver(ctx, requester)
		return nil
	})
	for i, target := range providers {
		i, target := i, target
		g.Go(func() error {
			report.Providers[i] = d.deliver(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (d *Dispatcher) deliver(ctx context.Context, t Target) (out Outcome) {
	normalized := phone.Normalize(t.Phone)
	out = Outcome{Audience: t.Audience, Name: t.Name, Phone: normalized}

	defer func() {
		if r := recover(); r != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("dispatch panic: %v", r)
		}
		d.metrics.DispatchOutcome(string(out.Audience), string(out.Status))
		d.log.WithContext(ctx).DispatchOutcome(string(out.Audience), out.Phone, string(out.Status), out.Err)
	}()

	if !phone.IsDeliverable(normalized) {
		out.Status = StatusSkippedInvalidPhone
		return out
	}
	if d.senderPhone != "" && normalized == d.senderPhone {
		out.Status = StatusSkippedSelfSend
		out.Err = errSelfSend
		return out
	}

	message, err := t.Compose(d.shortenAll(ctx, t.Links))
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	receipt, err := d.transport.Send(ctx, normalized, message)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	out.Status = StatusSent
	out.MessageID = receipt.MessageID
	return out
}

func (d *Dispatcher) shortenAll(ctx context.Context, links []string) []string {
	short := make([]string, len(links))
	copy(short, links)
	if d.shortener == nil {
		return short
	}

	var g errgroup.Group
	for i, link := range links {
		if link == "" {
			continue
		}
		i, link := i, link
		g.Go(func() error {
			short[i] = d.shortener.Shorten(ctx, link)
			return nil
		})
	}
	_ = g.Wait()
	return short
}

// Package repository persists submitted leads.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConsentVersion is the consent text revision stamped on new leads.
const ConsentVersion = "1.0"

// Lead is a persisted service request with its consent record.
type Lead struct {
	ID           uuid.UUID
	Name         string
	Phone        string
	Email        string
	PostalCode   string
	Street       string
	Neighborhood string
	City         string
	Region       string
	ServiceKind  string

	ConsentWhatsApp  bool
	ConsentSharing   bool
	ConsentUsage     bool
	ConsentAt        time.Time
	ConsentIP        string
	ConsentUserAgent string
	ConsentVersion   string

	CreatedAt time.Time
}

// Store persists leads. Save assigns CreatedAt.
type Store interface {
	Save(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
}

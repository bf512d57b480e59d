package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Repository stores leads in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Save(ctx context.Context, lead *Lead) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, name, phone, email, postal_code, street, neighborhood, city, region, service_kind,
			consent_whatsapp, consent_sharing, consent_usage, consent_at, consent_ip, consent_user_agent, consent_version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at
	`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.PostalCode, lead.Street, lead.Neighborhood, lead.City, lead.Region, lead.ServiceKind,
		lead.ConsentWhatsApp, lead.ConsentSharing, lead.ConsentUsage, lead.ConsentAt, lead.ConsentIP, lead.ConsentUserAgent, lead.ConsentVersion,
	).Scan(&lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, phone, email, postal_code, street, neighborhood, city, region, service_kind,
			consent_whatsapp, consent_sharing, consent_usage, consent_at, consent_ip, consent_user_agent, consent_version,
			created_at
		FROM leads WHERE id = $1
	`, id).Scan(
		&lead.ID, &lead.Name, &lead.Phone, &lead.Email, &lead.PostalCode, &lead.Street, &lead.Neighborhood, &lead.City, &lead.Region, &lead.ServiceKind,
		&lead.ConsentWhatsApp, &lead.ConsentSharing, &lead.ConsentUsage, &lead.ConsentAt, &lead.ConsentIP, &lead.ConsentUserAgent, &lead.ConsentVersion,
		&lead.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

var _ Store = (*Repository)(nil)

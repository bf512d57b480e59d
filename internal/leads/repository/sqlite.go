package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"arrume_backend/platform/db"

	"github.com/google/uuid"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteStore keeps leads in a local SQLite file for development.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens the store at path, creating the schema if needed.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	sqlDB, err := db.OpenSQLite(ctx, path, sqliteSchema)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: sqlDB, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, lead *Lead) error {
	createdAt := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (
			id, name, phone, email, postal_code, street, neighborhood, city, region, service_kind,
			consent_whatsapp, consent_sharing, consent_usage, consent_at, consent_ip, consent_user_agent, consent_version,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		lead.ID.String(), lead.Name, lead.Phone, lead.Email, lead.PostalCode, lead.Street, lead.Neighborhood, lead.City, lead.Region, lead.ServiceKind,
		lead.ConsentWhatsApp, lead.ConsentSharing, lead.ConsentUsage, lead.ConsentAt.UTC().Format(time.RFC3339Nano), lead.ConsentIP, lead.ConsentUserAgent, lead.ConsentVersion,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	lead.CreatedAt = createdAt
	return nil
}

func (s *SQLiteStore) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	var (
		lead      Lead
		rawID     string
		consentAt string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, postal_code, street, neighborhood, city, region, service_kind,
			consent_whatsapp, consent_sharing, consent_usage, consent_at, consent_ip, consent_user_agent, consent_version,
			created_at
		FROM leads WHERE id = ?
	`, id.String()).Scan(
		&rawID, &lead.Name, &lead.Phone, &lead.Email, &lead.PostalCode, &lead.Street, &lead.Neighborhood, &lead.City, &lead.Region, &lead.ServiceKind,
		&lead.ConsentWhatsApp, &lead.ConsentSharing, &lead.ConsentUsage, &consentAt, &lead.ConsentIP, &lead.ConsentUserAgent, &lead.ConsentVersion,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	if lead.ID, err = uuid.Parse(rawID); err != nil {
		return Lead{}, fmt.Errorf("parse lead id: %w", err)
	}
	if lead.ConsentAt, err = time.Parse(time.RFC3339Nano, consentAt); err != nil {
		return Lead{}, fmt.Errorf("parse consent time: %w", err)
	}
	if lead.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Lead{}, fmt.Errorf("parse created time: %w", err)
	}
	return lead, nil
}

var _ Store = (*SQLiteStore)(nil)

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onward/internal/organization/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
)

const organizationColumns = "id, name, domain, status, secret_hash, setup_code_ttl_seconds, created_at, updated_at"

// Postgres persists organizations in the organizations table.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) Create(ctx context.Context, org *models.Organization) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, domain, status, secret_hash, setup_code_ttl_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(org.ID), org.Name, nullableString(org.Domain), string(org.Status),
		nullableString(org.SecretHash), int64(org.SetupCodeTTL/time.Second),
		org.CreatedAt, org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("organization exists: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (s *Postgres) GetByID(ctx context.Context, id domain.OrganizationID) (*models.Organization, error) {
	query := fmt.Sprintf("SELECT %s FROM organizations WHERE id = $1", organizationColumns)
	return scanOrganization(s.pool.QueryRow(ctx, query, uuid.UUID(id)))
}

func (s *Postgres) GetByDomain(ctx context.Context, domainName string) (*models.Organization, error) {
	query := fmt.Sprintf("SELECT %s FROM organizations WHERE domain = $1", organizationColumns)
	return scanOrganization(s.pool.QueryRow(ctx, query, domainName))
}

func (s *Postgres) Update(ctx context.Context, org *models.Organization) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE organizations
		SET name = $2, domain = $3, status = $4, secret_hash = $5,
		    setup_code_ttl_seconds = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(org.ID), org.Name, nullableString(org.Domain), string(org.Status),
		nullableString(org.SecretHash), int64(org.SetupCodeTTL/time.Second), org.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("organization domain taken: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("organization not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) List(ctx context.Context) ([]*models.Organization, error) {
	query := fmt.Sprintf("SELECT %s FROM organizations ORDER BY created_at", organizationColumns)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return out, nil
}

func scanOrganization(row pgx.Row) (*models.Organization, error) {
	var (
		org        models.Organization
		id         uuid.UUID
		domainName *string
		status     string
		secretHash *string
		ttlSeconds int64
	)
	err := row.Scan(&id, &org.Name, &domainName, &status, &secretHash, &ttlSeconds,
		&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("organization not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	org.ID = domain.OrganizationID(id)
	if domainName != nil {
		org.Domain = *domainName
	}
	if secretHash != nil {
		org.SecretHash = *secretHash
	}
	org.SetupCodeTTL = time.Duration(ttlSeconds) * time.Second
	org.Status = models.OrganizationStatus(status)
	return &org, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	// 23505 = unique_violation
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onward/internal/credential/models"
	"onward/internal/platform/postgres"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
)

const credentialColumns = "id, organization_id, user_id, secret, expires_at, used, used_at, created_by, metadata, created_at"

// Postgres persists one credential kind in its own table. The table name
// comes from the kind's Policy, never from caller input.
type Postgres struct {
	pool   *pgxpool.Pool
	policy models.Policy
}

// NewPostgres constructs a Postgres-backed store for the given policy.
func NewPostgres(pool *pgxpool.Pool, policy models.Policy) *Postgres {
	return &Postgres{pool: pool, policy: policy}
}

func (s *Postgres) Create(ctx context.Context, rec *models.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal credential metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, organization_id, user_id, secret, expires_at, used, used_at, created_by, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, s.policy.Table)

	err = postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query,
			uuid.UUID(rec.ID),
			nullableUUID(uuid.UUID(rec.OrganizationID)),
			nullableUUID(uuid.UUID(rec.UserID)),
			rec.Secret,
			nullableTime(rec.ExpiresAt),
			rec.Used,
			rec.UsedAt,
			rec.CreatedBy,
			metadata,
			rec.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("credential secret collision: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create %s: %w", s.policy.Kind, err)
	}
	return nil
}

func (s *Postgres) FindBySecret(ctx context.Context, secret string) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE secret = $1", credentialColumns, s.policy.Table)
	rec, err := s.scanRecord(s.pool.QueryRow(ctx, query, secret))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Postgres) FindByID(ctx context.Context, id domain.CredentialID) (*models.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", credentialColumns, s.policy.Table)
	rec, err := s.scanRecord(s.pool.QueryRow(ctx, query, uuid.UUID(id)))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Consume re-validates under a row lock and marks the credential used in the
// same transaction. The row lock serializes concurrent redeemers; whoever
// commits second observes used=true and fails with ErrAlreadyUsed.
func (s *Postgres) Consume(ctx context.Context, secret string, now time.Time) (*models.Record, error) {
	selectQuery := fmt.Sprintf("SELECT %s FROM %s WHERE secret = $1 FOR UPDATE", credentialColumns, s.policy.Table)
	updateQuery := fmt.Sprintf("UPDATE %s SET used = TRUE, used_at = $2 WHERE id = $1", s.policy.Table)

	var snapshot *models.Record
	err := postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		rec, err := s.scanRecord(tx.QueryRow(ctx, selectQuery, secret))
		if err != nil {
			return err
		}
		if err := rec.ValidateForUse(now); err != nil {
			return fmt.Errorf("consume credential: %w", err)
		}
		if _, err := tx.Exec(ctx, updateQuery, uuid.UUID(rec.ID), now); err != nil {
			return fmt.Errorf("mark credential used: %w", err)
		}
		snapshot = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Postgres) Revoke(ctx context.Context, id domain.CredentialID, now time.Time) error {
	// used_at is written at most once; revoking an already-used credential
	// leaves the record untouched.
	query := fmt.Sprintf("UPDATE %s SET used = TRUE, used_at = COALESCE(used_at, $2) WHERE id = $1", s.policy.Table)
	tag, err := s.pool.Exec(ctx, query, uuid.UUID(id), now)
	if err != nil {
		return fmt.Errorf("revoke %s: %w", s.policy.Kind, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *Postgres) ListByOwner(ctx context.Context, owner models.OwnerRef, includeUsed bool, now time.Time) ([]*models.Record, error) {
	conditions := "TRUE"
	args := []any{}
	arg := 1

	if !owner.OrganizationID.IsNil() {
		conditions += fmt.Sprintf(" AND organization_id = $%d", arg)
		args = append(args, uuid.UUID(owner.OrganizationID))
		arg++
	}
	if !owner.UserID.IsNil() {
		conditions += fmt.Sprintf(" AND user_id = $%d", arg)
		args = append(args, uuid.UUID(owner.UserID))
		arg++
	}
	if !includeUsed {
		conditions += fmt.Sprintf(" AND used = FALSE AND (expires_at IS NULL OR expires_at > $%d)", arg)
		args = append(args, now)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC",
		credentialColumns, s.policy.Table, conditions)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.policy.Kind, err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		rec, err := s.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", s.policy.Kind, err)
	}
	return out, nil
}

func (s *Postgres) scanRecord(row pgx.Row) (*models.Record, error) {
	var (
		rec       models.Record
		id        uuid.UUID
		orgID     *uuid.UUID
		userID    *uuid.UUID
		expiresAt *time.Time
	)
	err := row.Scan(&id, &orgID, &userID, &rec.Secret, &expiresAt, &rec.Used, &rec.UsedAt, &rec.CreatedBy, &rec.Metadata, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("credential not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("scan %s: %w", s.policy.Kind, err)
	}
	rec.ID = domain.CredentialID(id)
	rec.Kind = s.policy.Kind
	if orgID != nil {
		rec.OrganizationID = domain.OrganizationID(*orgID)
	}
	if userID != nil {
		rec.UserID = domain.UserID(*userID)
	}
	if expiresAt != nil {
		rec.ExpiresAt = *expiresAt
	}
	return &rec, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func isUniqueViolation(err error) bool {
	// 23505 = unique_violation
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}

// Package store persists issued credentials, one logical table per kind.
//
// Error contract: all methods return sentinel.ErrNotFound when no record
// matches, sentinel.ErrExpired / sentinel.ErrAlreadyUsed (wrapped) from
// Consume, and wrapped infrastructure errors otherwise.
package store

import (
	"context"
	"time"

	"onward/internal/credential/models"
	"onward/pkg/domain"
)

// Store is the persistence boundary for one credential kind.
type Store interface {
	Create(ctx context.Context, rec *models.Record) error
	FindBySecret(ctx context.Context, secret string) (*models.Record, error)
	FindByID(ctx context.Context, id domain.CredentialID) (*models.Record, error)

	// Consume atomically re-validates and marks the credential used. Under
	// concurrent calls for the same secret exactly one succeeds; the rest
	// observe ErrAlreadyUsed. On success the returned record is the
	// pre-redemption snapshot.
	Consume(ctx context.Context, secret string, now time.Time) (*models.Record, error)

	// Revoke forces used=true without requiring prior validity. Revoking an
	// already-used credential is a no-op; UsedAt is set at most once.
	Revoke(ctx context.Context, id domain.CredentialID, now time.Time) error

	// ListByOwner returns credentials for the owner, newest first. With
	// includeUsed=false only records redeemable at now are returned.
	ListByOwner(ctx context.Context, owner models.OwnerRef, includeUsed bool, now time.Time) ([]*models.Record, error)
}

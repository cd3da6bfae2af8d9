package models

import (
	"time"

	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
)

// Kind discriminates the credential families the engine manages. Each kind
// persists to its own table and carries its own Policy.
type Kind string

const (
	KindSetupCode    Kind = "setup_code"
	KindMagicLink    Kind = "magic_link"
	KindRefreshToken Kind = "refresh_token"
	KindAPIKey       Kind = "api_key"
)

// OwnerRef names the principal a credential is issued to. At least one side
// must be set; setup codes are typically organization-owned while magic
// links and refresh tokens are user-owned.
type OwnerRef struct {
	OrganizationID domain.OrganizationID
	UserID         domain.UserID
}

// IsZero reports whether neither owner side is set.
func (o OwnerRef) IsZero() bool {
	return o.OrganizationID.IsNil() && o.UserID.IsNil()
}

// Record is an issued credential of any kind.
//
// Invariants:
//   - Used=true implies UsedAt is set.
//   - Once Used=true the record is immutable except for audit metadata.
//   - A record past ExpiresAt is permanently invalid regardless of use state.
type Record struct {
	ID             domain.CredentialID
	Kind           Kind
	OrganizationID domain.OrganizationID
	UserID         domain.UserID

	// Secret is the token/code itself. It is stored once at issuance and is
	// never re-derivable; whether it may be surfaced again after issuance is
	// kind policy, not engine behavior.
	Secret string

	// ExpiresAt is zero for credentials that never expire (API keys).
	ExpiresAt time.Time

	Used   bool
	UsedAt *time.Time

	CreatedBy string
	Metadata  map[string]string
	CreatedAt time.Time
}

// ValidateForUse checks the record against the clock without mutating it.
// Expiry is checked before use state: an expired credential is invalid no
// matter what happened to it since.
func (r *Record) ValidateForUse(now time.Time) error {
	if !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt) {
		return sentinel.ErrExpired
	}
	if r.Used {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// MarkUsed consumes the credential. Callers must hold whatever lock or
// transaction guards the record.
func (r *Record) MarkUsed(now time.Time) {
	r.Used = true
	r.UsedAt = &now
}

// Clone returns a deep copy so store implementations never hand out aliased
// metadata maps.
func (r *Record) Clone() *Record {
	cp := *r
	if r.UsedAt != nil {
		usedAt := *r.UsedAt
		cp.UsedAt = &usedAt
	}
	if r.Metadata != nil {
		cp.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// Package service implements the credential issuance and redemption engine.
//
// One Service instance manages one credential kind; everything kind-specific
// lives in the models.Policy it is constructed with. The validate/redeem
// split is deliberate: Validate never mutates, Redeem consumes atomically.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"onward/internal/audit"
	"onward/internal/credential/metrics"
	"onward/internal/credential/models"
	"onward/internal/credential/store"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/platform/sentinel"
	"onward/pkg/platform/token"
	"onward/pkg/requestcontext"
)

// secretAttempts bounds retries on the (astronomically unlikely) secret
// uniqueness collision. Anything past that means the randomness source is
// broken and the error should surface.
const secretAttempts = 3

// RevocationList mirrors revocable credentials into a fast lookup structure
// so request-path checks can skip the database. Optional.
type RevocationList interface {
	Revoke(ctx context.Context, credentialID string, ttl time.Duration) error
}

// Service is the issuance and redemption engine for one credential kind.
type Service struct {
	store       store.Store
	policy      models.Policy
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       audit.Emitter
	revocations RevocationList
	tracer      trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit attaches an audit emitter.
func WithAudit(emitter audit.Emitter) Option {
	return func(s *Service) { s.audit = emitter }
}

// WithRevocationList attaches a revocation list that Revoke writes through.
func WithRevocationList(list RevocationList) Option {
	return func(s *Service) { s.revocations = list }
}

// New constructs a Service for the given kind policy.
func New(st store.Store, policy models.Policy, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  st,
		policy: policy,
		logger: logger,
		tracer: otel.Tracer("onward/credential"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a secret, computes expiry from ttl (falling back to the
// policy default when ttl == 0; no expiry when both are zero), and persists
// the record unused. The plaintext secret is returned exactly once here;
// delivering it out-of-band is the caller's responsibility.
func (s *Service) Issue(ctx context.Context, owner models.OwnerRef, ttl time.Duration, metadata map[string]string) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "credential.issue",
		trace.WithAttributes(attribute.String("credential.kind", string(s.policy.Kind))))
	defer span.End()

	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "credential owner is required")
	}

	now := requestcontext.Now(ctx)
	if ttl == 0 {
		ttl = s.policy.DefaultTTL
	}
	var expiresAt time.Time
	if ttl != 0 {
		expiresAt = now.Add(ttl)
	}

	rec := &models.Record{
		Kind:           s.policy.Kind,
		OrganizationID: owner.OrganizationID,
		UserID:         owner.UserID,
		ExpiresAt:      expiresAt,
		CreatedBy:      requestcontext.Actor(ctx),
		Metadata:       cloneMetadata(metadata),
		CreatedAt:      now,
	}

	var err error
	for attempt := 0; attempt < secretAttempts; attempt++ {
		rec.ID = domain.NewCredentialID()
		rec.Secret = s.newSecret()
		err = s.store.Create(ctx, rec)
		if err == nil || !errors.Is(err, sentinel.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue credential")
	}

	if s.metrics != nil {
		s.metrics.Issued.WithLabelValues(string(s.policy.Kind)).Inc()
	}
	s.emit(ctx, audit.ActionCredentialIssued, rec)
	s.logger.DebugContext(ctx, "credential issued",
		"kind", s.policy.Kind, "credential_id", rec.ID.String())

	return rec, nil
}

// Validate looks the credential up and checks it against the clock without
// consuming it, so callers can implement check-then-confirm flows. Failure
// modes: sentinel.ErrNotFound, sentinel.ErrExpired, sentinel.ErrAlreadyUsed.
func (s *Service) Validate(ctx context.Context, secret string) (*models.Record, error) {
	rec, err := s.store.FindBySecret(ctx, secret)
	if err != nil {
		return nil, err
	}
	if err := rec.ValidateForUse(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	return rec, nil
}

// Redeem atomically re-validates and consumes the credential. Concurrent
// redeems of the same secret yield exactly one success; the loser observes
// sentinel.ErrAlreadyUsed. Only single-use kinds may be redeemed.
func (s *Service) Redeem(ctx context.Context, secret string) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "credential.redeem",
		trace.WithAttributes(attribute.String("credential.kind", string(s.policy.Kind))))
	defer span.End()

	if !s.policy.SingleUse {
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"%s credentials are revocable, not redeemable", s.policy.Kind)
	}

	start := time.Now()
	rec, err := s.store.Consume(ctx, secret, requestcontext.Now(ctx))
	if s.metrics != nil {
		s.metrics.ObserveRedeem(start)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RedeemFailures.WithLabelValues(string(s.policy.Kind), failureReason(err)).Inc()
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Redeemed.WithLabelValues(string(s.policy.Kind)).Inc()
	}
	s.emit(ctx, audit.ActionCredentialRedeemed, rec)
	return rec, nil
}

// Revoke administratively forces used=true without requiring prior
// validity. Idempotent: revoking an already-revoked credential succeeds and
// changes nothing.
func (s *Service) Revoke(ctx context.Context, id domain.CredentialID) error {
	now := requestcontext.Now(ctx)

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Revoke(ctx, id, now); err != nil {
		return err
	}

	if s.revocations != nil {
		// Bound the cache entry by the credential's remaining lifetime; a
		// revoked-but-expired entry serves no lookup.
		var ttl time.Duration
		if !rec.ExpiresAt.IsZero() {
			ttl = rec.ExpiresAt.Sub(now)
			if ttl <= 0 {
				return nil
			}
		}
		if err := s.revocations.Revoke(ctx, id.String(), ttl); err != nil {
			s.logger.WarnContext(ctx, "revocation list update failed",
				"credential_id", id.String(), "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.Revoked.WithLabelValues(string(s.policy.Kind)).Inc()
	}
	s.emit(ctx, audit.ActionCredentialRevoked, rec)
	return nil
}

// ListActive returns the owner's credentials newest first. With
// includeUsed=false only records that are redeemable right now are
// returned; pagination, if needed, is the caller's concern.
func (s *Service) ListActive(ctx context.Context, owner models.OwnerRef, includeUsed bool) ([]*models.Record, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "credential owner is required")
	}
	return s.store.ListByOwner(ctx, owner, includeUsed, requestcontext.Now(ctx))
}

// Policy exposes the kind configuration, e.g. for handlers rendering TTLs.
func (s *Service) Policy() models.Policy {
	return s.policy
}

func (s *Service) newSecret() string {
	switch s.policy.Format {
	case models.FormatSetupCode:
		return token.FormattedSetupCode()
	default:
		return s.policy.SecretPrefix + token.RandomURLSafe(32)
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, rec *models.Record) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:         action,
		CredentialID:   rec.ID.String(),
		CredentialKind: string(rec.Kind),
	}
	if !rec.OrganizationID.IsNil() {
		event.OrganizationID = rec.OrganizationID.String()
	}
	if !rec.UserID.IsNil() {
		event.UserID = rec.UserID.String()
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return "not_found"
	case errors.Is(err, sentinel.ErrExpired):
		return "expired"
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return "already_used"
	default:
		return "storage"
	}
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if metadata == nil {
		return nil
	}
	out := make(map[string]string, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}

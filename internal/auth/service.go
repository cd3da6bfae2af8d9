// Package auth composes the credential engine into login flows: magic-link
// sign-in, refresh token rotation and API-key verification. It owns no
// storage of its own; every credential lives in the engine and every token
// decision consults the organization's active gate.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"onward/internal/credential/device"
	credmodels "onward/internal/credential/models"
	credsvc "onward/internal/credential/service"
	"onward/internal/employee/models"
	orgsvc "onward/internal/organization/service"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

// EmployeeResolver resolves the employee behind a user link; sign-in embeds
// the employee id into the access token when a link exists.
type EmployeeResolver interface {
	GetByUserID(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*models.Employee, error)
}

// RevocationChecker answers whether a credential id has been pushed to the
// fast revocation list.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, credentialID string) (bool, error)
}

// TokenPair is what a successful sign-in or refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Service wires the credential kinds into authentication flows.
type Service struct {
	magicLinks    *credsvc.Service
	refreshTokens *credsvc.Service
	apiKeys       *credsvc.Service
	organizations *orgsvc.Service
	employees     EmployeeResolver
	jwt           *JWTService
	revocations   RevocationChecker
	accessTTL     time.Duration
	logger        *slog.Logger
}

// Config collects the service's collaborators.
type Config struct {
	MagicLinks    *credsvc.Service
	RefreshTokens *credsvc.Service
	APIKeys       *credsvc.Service
	Organizations *orgsvc.Service
	Employees     EmployeeResolver
	JWT           *JWTService
	Revocations   RevocationChecker
	AccessTTL     time.Duration
}

func New(cfg Config, logger *slog.Logger) *Service {
	return &Service{
		magicLinks:    cfg.MagicLinks,
		refreshTokens: cfg.RefreshTokens,
		apiKeys:       cfg.APIKeys,
		organizations: cfg.Organizations,
		employees:     cfg.Employees,
		jwt:           cfg.JWT,
		revocations:   cfg.Revocations,
		accessTTL:     cfg.AccessTTL,
		logger:        logger,
	}
}

// RequestMagicLink issues a single-use magic link for the user. The secret
// is returned for out-of-band delivery; it is never logged.
func (s *Service) RequestMagicLink(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*credmodels.Record, error) {
	if _, err := s.organizations.RequireActive(ctx, orgID); err != nil {
		return nil, err
	}
	owner := credmodels.OwnerRef{OrganizationID: orgID, UserID: userID}
	rec, err := s.magicLinks.Issue(ctx, owner, 0, nil)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "magic link issued",
		"user_id", userID.String(), "organization_id", orgID.String())
	return rec, nil
}

// RedeemMagicLink consumes the link and signs the user in, minting an
// access token and a refresh token. The refresh token records the device it
// was minted for.
func (s *Service) RedeemMagicLink(ctx context.Context, secret string) (*TokenPair, error) {
	rec, err := s.magicLinks.Redeem(ctx, secret)
	if err != nil {
		return nil, err
	}
	if _, err := s.organizations.RequireActive(ctx, rec.OrganizationID); err != nil {
		return nil, err
	}
	return s.mint(ctx, rec.UserID, rec.OrganizationID)
}

// Refresh rotates a refresh token: the presented token is validated,
// revoked and replaced, so each secret crosses the wire a bounded number of
// times. A stolen-then-reused token fails validation here once the
// legitimate holder has rotated.
func (s *Service) Refresh(ctx context.Context, refreshSecret string) (*TokenPair, error) {
	rec, err := s.refreshTokens.Validate(ctx, refreshSecret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid refresh token")
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, rec.ID.String())
		if err != nil {
			s.logger.WarnContext(ctx, "revocation check failed", "error", err)
		} else if revoked {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "refresh token revoked")
		}
	}
	if _, err := s.organizations.RequireActive(ctx, rec.OrganizationID); err != nil {
		return nil, err
	}
	if err := s.refreshTokens.Revoke(ctx, rec.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "rotate refresh token")
	}
	return s.mint(ctx, rec.UserID, rec.OrganizationID)
}

// RevokeRefresh force-expires a refresh token, e.g. on logout.
func (s *Service) RevokeRefresh(ctx context.Context, id domain.CredentialID) error {
	return s.refreshTokens.Revoke(ctx, id)
}

// VerifyAPIKey authenticates a machine caller. The revocation list is
// consulted after the store so a freshly revoked key fails even if a stale
// read slipped through.
func (s *Service) VerifyAPIKey(ctx context.Context, secret string) (*credmodels.Record, error) {
	rec, err := s.apiKeys.Validate(ctx, secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid api key")
	}
	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, rec.ID.String())
		if err != nil {
			s.logger.WarnContext(ctx, "revocation check failed", "error", err)
		} else if revoked {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "api key revoked")
		}
	}
	if _, err := s.organizations.RequireActive(ctx, rec.OrganizationID); err != nil {
		return nil, err
	}
	return rec, nil
}

// ValidateAccess verifies an access token signature and expiry.
func (s *Service) ValidateAccess(ctx context.Context, tokenString string) (*Claims, error) {
	return s.jwt.ValidateToken(tokenString)
}

func (s *Service) mint(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (*TokenPair, error) {
	var employeeID domain.EmployeeID
	if s.employees != nil {
		emp, err := s.employees.GetByUserID(ctx, userID, orgID)
		switch {
		case err == nil:
			employeeID = emp.ID
		case errorsIsNotFound(err):
			// Users without an employee record can still sign in.
		default:
			return nil, err
		}
	}

	now := requestcontext.Now(ctx)
	access, err := s.jwt.GenerateAccessToken(userID, orgID, employeeID, now, s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign access token")
	}

	metadata := map[string]string{
		"device": device.ParseUserAgent(requestcontext.UserAgent(ctx)),
	}
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		metadata["ip"] = ip
	}
	owner := credmodels.OwnerRef{OrganizationID: orgID, UserID: userID}
	refresh, err := s.refreshTokens.Issue(ctx, owner, 0, metadata)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Secret,
		ExpiresIn:    s.accessTTL,
	}, nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"onward/internal/audit"
	auditmocks "onward/internal/audit/mocks"
	"onward/internal/credential/models"
	"onward/internal/credential/store"
	"onward/internal/platform/logger"
	"onward/pkg/domain"
	dErrors "onward/pkg/domain-errors"
	"onward/pkg/platform/sentinel"
	"onward/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	owner models.OwnerRef
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.owner = models.OwnerRef{OrganizationID: domain.NewOrganizationID()}
}

func (s *ServiceSuite) newService(kind models.Kind, opts ...Option) *Service {
	policy, err := models.PolicyFor(kind)
	s.Require().NoError(err)
	return New(store.NewInMemory(), policy, logger.New(), opts...)
}

func (s *ServiceSuite) TestIssue() {
	s.Run("applies the policy default TTL when ttl is zero", func() {
		svc := s.newService(models.KindSetupCode)
		rec, err := svc.Issue(s.ctx, s.owner, 0, nil)
		s.Require().NoError(err)
		s.Equal(s.now.Add(72*time.Hour), rec.ExpiresAt)
		s.False(rec.Used)
		s.Equal(s.now, rec.CreatedAt)
	})

	s.Run("setup codes are human readable", func() {
		svc := s.newService(models.KindSetupCode)
		rec, err := svc.Issue(s.ctx, s.owner, time.Hour, nil)
		s.Require().NoError(err)
		s.Regexp(`^ONW-[A-Z2-9]{3}-[A-Z2-9]{4}$`, rec.Secret)
	})

	s.Run("api keys never expire by default", func() {
		svc := s.newService(models.KindAPIKey)
		rec, err := svc.Issue(s.ctx, s.owner, 0, nil)
		s.Require().NoError(err)
		s.True(rec.ExpiresAt.IsZero())
		s.Regexp(`^oak_`, rec.Secret)
	})

	s.Run("rejects a zero owner", func() {
		svc := s.newService(models.KindSetupCode)
		_, err := svc.Issue(s.ctx, models.OwnerRef{}, 0, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("emits an audit event", func() {
		ctrl := gomock.NewController(s.T())
		emitter := auditmocks.NewMockEmitter(ctrl)
		emitter.EXPECT().
			Emit(gomock.Any(), gomock.AssignableToTypeOf(audit.Event{})).
			DoAndReturn(func(_ context.Context, event audit.Event) error {
				s.Equal(audit.ActionCredentialIssued, event.Action)
				s.Equal(string(models.KindSetupCode), event.CredentialKind)
				s.Equal(s.owner.OrganizationID.String(), event.OrganizationID)
				return nil
			})

		svc := s.newService(models.KindSetupCode, WithAudit(emitter))
		_, err := svc.Issue(s.ctx, s.owner, time.Hour, nil)
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestValidate() {
	svc := s.newService(models.KindSetupCode)

	s.Run("repeated validation never mutates the record", func() {
		rec, err := svc.Issue(s.ctx, s.owner, time.Hour, nil)
		s.Require().NoError(err)

		for i := 0; i < 5; i++ {
			got, err := svc.Validate(s.ctx, rec.Secret)
			s.Require().NoError(err)
			s.False(got.Used)
			s.Nil(got.UsedAt)
		}
	})

	s.Run("unknown secret is not found", func() {
		_, err := svc.Validate(s.ctx, "ONW-ZZZ-ZZZZ")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("negative ttl issues an already-expired credential", func() {
		rec, err := svc.Issue(s.ctx, s.owner, -time.Second, nil)
		s.Require().NoError(err)

		_, err = svc.Validate(s.ctx, rec.Secret)
		s.Require().ErrorIs(err, sentinel.ErrExpired)
	})
}

// TestRedeemScenario walks the setup-code lifecycle end to end: issue with a
// one hour TTL, redeem once, observe the second redeem fail.
func (s *ServiceSuite) TestRedeemScenario() {
	svc := s.newService(models.KindSetupCode)

	rec, err := svc.Issue(s.ctx, s.owner, time.Hour, nil)
	s.Require().NoError(err)

	redeemed, err := svc.Redeem(s.ctx, rec.Secret)
	s.Require().NoError(err)
	s.Equal(rec.ID, redeemed.ID)

	_, err = svc.Redeem(s.ctx, rec.Secret)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	_, err = svc.Validate(s.ctx, rec.Secret)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *ServiceSuite) TestRedeemPolicy() {
	s.Run("revocable-only kinds cannot be redeemed", func() {
		for _, kind := range []models.Kind{models.KindRefreshToken, models.KindAPIKey} {
			svc := s.newService(kind)
			rec, err := svc.Issue(s.ctx, s.owner, 0, nil)
			s.Require().NoError(err)

			_, err = svc.Redeem(s.ctx, rec.Secret)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "kind %s", kind)
		}
	})
}

func (s *ServiceSuite) TestRevoke() {
	svc := s.newService(models.KindAPIKey)

	rec, err := svc.Issue(s.ctx, s.owner, 0, nil)
	s.Require().NoError(err)

	s.Require().NoError(svc.Revoke(s.ctx, rec.ID))

	_, err = svc.Validate(s.ctx, rec.Secret)
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	// Idempotent.
	s.Require().NoError(svc.Revoke(s.ctx, rec.ID))

	s.Run("unknown id is not found", func() {
		s.Require().ErrorIs(svc.Revoke(s.ctx, domain.NewCredentialID()), sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestListActive() {
	svc := s.newService(models.KindMagicLink)
	user := models.OwnerRef{UserID: domain.NewUserID()}

	first, err := svc.Issue(s.ctx, user, time.Hour, nil)
	s.Require().NoError(err)

	// Later issuance; the injected clock makes ordering deterministic.
	laterCtx := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
	second, err := svc.Issue(laterCtx, user, time.Hour, nil)
	s.Require().NoError(err)

	_, err = svc.Redeem(s.ctx, first.Secret)
	s.Require().NoError(err)

	active, err := svc.ListActive(s.ctx, user, false)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(second.ID, active[0].ID)

	all, err := svc.ListActive(s.ctx, user, true)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.ID, all[0].ID, "newest first")
}

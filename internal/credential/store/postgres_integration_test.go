//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"onward/internal/credential/models"
	"onward/pkg/domain"
	"onward/pkg/platform/sentinel"
	"onward/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	ctx   context.Context
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	policy, err := models.PolicyFor(models.KindSetupCode)
	s.Require().NoError(err)
	s.store = NewPostgres(s.pg.Pool, policy)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.pg.TruncateAll(s.ctx))
}

func (s *PostgresStoreSuite) newRecord(secret string, expiresAt time.Time) *models.Record {
	return &models.Record{
		ID:             domain.NewCredentialID(),
		Kind:           models.KindSetupCode,
		OrganizationID: domain.NewOrganizationID(),
		Secret:         secret,
		ExpiresAt:      expiresAt,
		CreatedBy:      "integration-test",
		Metadata:       map[string]string{"seat": "dock-7"},
		CreatedAt:      s.now,
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	rec := s.newRecord("ONW-AAA-BBBB", s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, rec))

	got, err := s.store.FindBySecret(s.ctx, rec.Secret)
	s.Require().NoError(err)
	s.Equal(rec.ID, got.ID)
	s.Equal(rec.OrganizationID, got.OrganizationID)
	s.Equal("dock-7", got.Metadata["seat"])
	s.False(got.Used)

	s.Run("duplicate secret", func() {
		dup := s.newRecord("ONW-AAA-BBBB", s.now.Add(time.Hour))
		s.Require().ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrConflict)
	})
}

// TestConcurrentConsume drives many redeemers at one secret against a real
// database; the row lock must admit exactly one.
func (s *PostgresStoreSuite) TestConcurrentConsume() {
	rec := s.newRecord("ONW-CCC-DDDD", s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, rec))

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.store.Consume(s.ctx, rec.Secret, s.now)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
		}
	}
	s.Equal(1, successes)

	got, err := s.store.FindBySecret(s.ctx, rec.Secret)
	s.Require().NoError(err)
	s.True(got.Used)
	s.Require().NotNil(got.UsedAt)
	s.WithinDuration(s.now, *got.UsedAt, time.Second)
}

func (s *PostgresStoreSuite) TestConsumeExpired() {
	rec := s.newRecord("ONW-EEE-FFFF", s.now.Add(-time.Minute))
	s.Require().NoError(s.store.Create(s.ctx, rec))

	_, err := s.store.Consume(s.ctx, rec.Secret, s.now)
	s.Require().ErrorIs(err, sentinel.ErrExpired)

	// The failed consume must not have burned the record.
	got, err := s.store.FindBySecret(s.ctx, rec.Secret)
	s.Require().NoError(err)
	s.False(got.Used)
}

func (s *PostgresStoreSuite) TestRevoke() {
	rec := s.newRecord("ONW-GGG-HHHH", s.now.Add(time.Hour))
	s.Require().NoError(s.store.Create(s.ctx, rec))

	s.Require().NoError(s.store.Revoke(s.ctx, rec.ID, s.now))
	got, err := s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.True(got.Used)
	first := *got.UsedAt

	// Idempotent: used_at is written once.
	s.Require().NoError(s.store.Revoke(s.ctx, rec.ID, s.now.Add(time.Hour)))
	got, err = s.store.FindByID(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(first, *got.UsedAt)

	s.Require().ErrorIs(s.store.Revoke(s.ctx, domain.NewCredentialID(), s.now), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByOwner() {
	owner := models.OwnerRef{OrganizationID: domain.NewOrganizationID()}

	mk := func(secret string, expiresAt time.Time, createdAt time.Time) *models.Record {
		rec := s.newRecord(secret, expiresAt)
		rec.OrganizationID = owner.OrganizationID
		rec.CreatedAt = createdAt
		s.Require().NoError(s.store.Create(s.ctx, rec))
		return rec
	}
	live := mk("ONW-JJJ-KKKK", s.now.Add(time.Hour), s.now)
	expired := mk("ONW-LLL-MMMM", s.now.Add(-time.Hour), s.now.Add(time.Second))
	consumed := mk("ONW-NNN-PPPP", s.now.Add(time.Hour), s.now.Add(2*time.Second))
	_, err := s.store.Consume(s.ctx, consumed.Secret, s.now)
	s.Require().NoError(err)

	active, err := s.store.ListByOwner(s.ctx, owner, false, s.now)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(live.ID, active[0].ID)

	all, err := s.store.ListByOwner(s.ctx, owner, true, s.now)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	// Newest first.
	s.Equal(consumed.ID, all[0].ID)
	s.Equal(expired.ID, all[1].ID)
	s.Equal(live.ID, all[2].ID)
}

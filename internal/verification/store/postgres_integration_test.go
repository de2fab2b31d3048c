//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docverify/internal/verification/models"
	"docverify/internal/verification/store"
	"docverify/pkg/platform/sentinel"
	"docverify/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgresStore(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background(), "verification_trails"))
}

func trail(id string, started time.Time, steps ...models.ProcessingStep) *models.AuditTrail {
	return &models.AuditTrail{
		VerificationID: id,
		InitiatedBy:    "sub-1",
		DocumentClass:  models.ClassBankStatement,
		StartedAt:      started,
		Steps:          steps,
		Decisions: []models.DecisionLog{{
			Type: models.DecisionCertification, Outcome: "MEDIUM", Confidence: 0.914, Automated: true,
		}},
		CompletedAt: started.Add(2 * time.Second),
	}
}

func (s *PostgresStoreSuite) TestAppendAndGet() {
	ctx := context.Background()
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	in := trail("v-1", started, models.ProcessingStep{Name: "verification_started", Status: models.StepCompleted})

	s.Require().NoError(s.store.Append(ctx, in))

	out, err := s.store.Get(ctx, "v-1")
	s.Require().NoError(err)
	s.Equal(in.InitiatedBy, out.InitiatedBy)
	s.True(in.StartedAt.Equal(out.StartedAt))
	s.Require().Len(out.Decisions, 1)
	s.InDelta(0.914, out.Decisions[0].Confidence, 1e-9)
}

func (s *PostgresStoreSuite) TestWriteOnce() {
	ctx := context.Background()
	in := trail("v-1", time.Now().UTC())
	s.Require().NoError(s.store.Append(ctx, in))
	s.ErrorIs(s.store.Append(ctx, in), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestMissing() {
	_, err := s.store.Get(context.Background(), "nope")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestQueries() {
	ctx := context.Background()
	started := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(ctx, trail("v-2", started.Add(time.Minute),
		models.ProcessingStep{Name: "verification_started", Status: models.StepFailed})))
	s.Require().NoError(s.store.Append(ctx, trail("v-1", started,
		models.ProcessingStep{Name: "verification_started", Status: models.StepCompleted})))

	trails, err := s.store.ListBySubmitter(ctx, "sub-1")
	s.Require().NoError(err)
	s.Require().Len(trails, 2)
	s.Equal("v-1", trails[0].VerificationID)

	ids, err := s.store.ListFailedAt(ctx, "verification_started")
	s.Require().NoError(err)
	s.Equal([]string{"v-2"}, ids)
}

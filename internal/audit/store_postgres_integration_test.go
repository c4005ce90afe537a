//go:build integration

package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"biorempp/internal/audit"
	"biorempp/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *audit.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = audit.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "audit_records")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestAppendAndListBySession() {
	ctx := context.Background()
	sessionID := uuid.NewString()

	err := s.store.Append(ctx, audit.Record{
		Timestamp: time.Now().Add(-time.Minute),
		SessionID: sessionID,
		Action:    audit.ActionSubmissionAccepted,
		Outcome:   audit.OutcomeAccepted,
		Samples:   3,
		KOs:       42,
		RequestID: "req-1",
		ClientIP:  "203.0.113.9",
		Device:    "Firefox on Linux",
	})
	s.Require().NoError(err)

	err = s.store.Append(ctx, audit.Record{
		SessionID:  sessionID,
		Action:     audit.ActionAnalysisCompleted,
		Outcome:    audit.OutcomeOK,
		Matches:    120,
		DurationMS: 850,
	})
	s.Require().NoError(err)

	records, err := s.store.ListBySession(ctx, sessionID)
	s.Require().NoError(err)
	s.Require().Len(records, 2)

	s.Equal(audit.ActionSubmissionAccepted, records[0].Action)
	s.Equal(3, records[0].Samples)
	s.Equal(42, records[0].KOs)
	s.Equal("203.0.113.9", records[0].ClientIP)
	s.Equal("Firefox on Linux", records[0].Device)

	s.Equal(audit.ActionAnalysisCompleted, records[1].Action)
	s.Equal(120, records[1].Matches)
	s.Equal(int64(850), records[1].DurationMS)
	s.False(records[1].Timestamp.IsZero(), "zero timestamp should be stamped")
}

func (s *PostgresStoreSuite) TestListRecentOrdersNewestFirst() {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		err := s.store.Append(ctx, audit.Record{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			SessionID: uuid.NewString(),
			Action:    audit.ActionSubmissionAccepted,
			Reason:    string(rune('a' + i)),
		})
		s.Require().NoError(err)
	}

	records, err := s.store.ListRecent(ctx, 3)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal("e", records[0].Reason)
	s.Equal("c", records[2].Reason)
}

func (s *PostgresStoreSuite) TestListBySessionEmpty() {
	records, err := s.store.ListBySession(context.Background(), uuid.NewString())
	s.Require().NoError(err)
	s.Empty(records)
}

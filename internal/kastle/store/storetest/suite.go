// Package storetest holds the behavioural contract every RunStore must meet.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jvanhook93/Kastle-script/internal/kastle/store"
	"github.com/jvanhook93/Kastle-script/internal/kastle/types"
)

// RunStoreSuite runs against whatever New returns, fresh for each test.
type RunStoreSuite struct {
	suite.Suite
	New   func() store.RunStore
	store store.RunStore
	ctx   context.Context
}

func (s *RunStoreSuite) SetupTest() {
	s.store = s.New()
	s.ctx = context.Background()
}

func run(id string, created time.Time, skipped ...types.SkippedFile) store.RunRecord {
	return store.RunRecord{
		ID:               id,
		CreatedAt:        created,
		OutputName:       "report.xlsx",
		FilesTotal:       2 + len(skipped),
		FilesSkipped:     len(skipped),
		SessionCount:     7,
		DiscrepancyCount: 3,
		Skipped:          skipped,
	}
}

var base = time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)

func (s *RunStoreSuite) TestRecordAndGet() {
	s.Run("round-trips every field", func() {
		rec := run("run-1", base,
			types.SkippedFile{Filename: "a.csv", Reason: "not enough data"},
			types.SkippedFile{Filename: "b.xlsx", Reason: "missing required column(s): reader"},
		)
		s.Require().NoError(s.store.RecordRun(s.ctx, rec))

		got, err := s.store.GetRun(s.ctx, "run-1")
		s.Require().NoError(err)
		s.Equal(rec.ID, got.ID)
		s.True(rec.CreatedAt.Equal(got.CreatedAt))
		s.Equal(rec.OutputName, got.OutputName)
		s.Equal(rec.FilesTotal, got.FilesTotal)
		s.Equal(rec.FilesSkipped, got.FilesSkipped)
		s.Equal(rec.SessionCount, got.SessionCount)
		s.Equal(rec.DiscrepancyCount, got.DiscrepancyCount)
		s.Equal(rec.Skipped, got.Skipped)
	})

	s.Run("unknown id", func() {
		_, err := s.store.GetRun(s.ctx, "nope")
		s.ErrorIs(err, store.ErrNotFound)
	})
}

func (s *RunStoreSuite) TestListNewestFirst() {
	s.Require().NoError(s.store.RecordRun(s.ctx, run("old", base.Add(-2*time.Hour))))
	s.Require().NoError(s.store.RecordRun(s.ctx, run("new", base)))
	s.Require().NoError(s.store.RecordRun(s.ctx, run("mid", base.Add(-time.Hour),
		types.SkippedFile{Filename: "x.csv", Reason: "empty"})))

	all, err := s.store.ListRuns(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal("new", all[0].ID)
	s.Equal("mid", all[1].ID)
	s.Equal("old", all[2].ID)
	s.Len(all[1].Skipped, 1)

	limited, err := s.store.ListRuns(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal("new", limited[0].ID)
}

func (s *RunStoreSuite) TestPrune() {
	s.Require().NoError(s.store.RecordRun(s.ctx, run("ancient", base.AddDate(0, 0, -100),
		types.SkippedFile{Filename: "gone.csv", Reason: "empty"})))
	s.Require().NoError(s.store.RecordRun(s.ctx, run("recent", base.AddDate(0, 0, -1))))

	deleted, err := s.store.PruneOlderThan(s.ctx, base.AddDate(0, 0, -90))
	s.Require().NoError(err)
	s.EqualValues(1, deleted)

	_, err = s.store.GetRun(s.ctx, "ancient")
	s.ErrorIs(err, store.ErrNotFound)
	_, err = s.store.GetRun(s.ctx, "recent")
	s.NoError(err)

	deleted, err = s.store.PruneOlderThan(s.ctx, base.AddDate(0, 0, -90))
	s.Require().NoError(err)
	s.EqualValues(0, deleted)
}

func (s *RunStoreSuite) TestReturnedRecordsAreCopies() {
	rec := run("r", base, types.SkippedFile{Filename: "a.csv", Reason: "bad"})
	s.Require().NoError(s.store.RecordRun(s.ctx, rec))
	rec.Skipped[0].Reason = "mutated"

	got, err := s.store.GetRun(s.ctx, "r")
	s.Require().NoError(err)
	s.Equal("bad", got.Skipped[0].Reason)

	got.Skipped[0].Reason = "mutated again"
	again, err := s.store.GetRun(s.ctx, "r")
	s.Require().NoError(err)
	s.Equal("bad", again.Skipped[0].Reason)
}

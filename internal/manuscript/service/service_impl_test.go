package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/cloudmetrics"
	"github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/openpress/peerflow/internal/manuscript/repository"
	"github.com/openpress/peerflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type countingRecorder struct {
	cloudmetrics.NoopRecorder

	submitted []string
}

func (r *countingRecorder) RecordManuscriptSubmitted(journalID string) {
	r.submitted = append(r.submitted, journalID)
}

func newTestService(t *testing.T) (*Service, *snowflake.Node, *clock.FakeClock, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Manuscript{}))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC))

	svc := &Service{
		log:     zaptest.NewLogger(t),
		db:      db,
		clock:   fc,
		genID:   node,
		repo:    repository.New(),
		metrics: cloudmetrics.NoopRecorder{},
	}
	return svc, node, fc, db
}

func TestSubmit(t *testing.T) {
	svc, node, fc, _ := newTestService(t)
	recorder := &countingRecorder{}
	svc.metrics = recorder
	ctx := context.Background()
	authorID := node.Generate()

	t.Run("stores a trimmed submission", func(t *testing.T) {
		manuscript, err := svc.Submit(ctx, domain.SubmitRequest{
			JournalID: node.Generate(),
			AuthorID:  authorID,
			Title:     "  Consensus Without Clocks  ",
			Abstract:  " We revisit leaderless consensus. ",
			Keywords:  []string{" consensus ", "", "clocks"},
		})
		require.NoError(t, err)

		assert.Equal(t, "Consensus Without Clocks", manuscript.Title)
		assert.Equal(t, "consensus-without-clocks", manuscript.Slug)
		assert.Equal(t, "We revisit leaderless consensus.", manuscript.Abstract)
		assert.Equal(t, []string{"consensus", "clocks"}, []string(manuscript.Keywords))
		assert.Equal(t, domain.StatusSubmitted, manuscript.Status)
		assert.Equal(t, fc.Now(), manuscript.CreatedAt)

		stored, err := svc.GetByID(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, manuscript.Title, stored.Title)

		assert.Equal(t, []string{manuscript.JournalID.String()}, recorder.submitted)
	})

	t.Run("rejects a blank title", func(t *testing.T) {
		_, err := svc.Submit(ctx, domain.SubmitRequest{
			JournalID: node.Generate(),
			AuthorID:  authorID,
			Title:     "   ",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidTitle)
		assert.Len(t, recorder.submitted, 1)
	})

	t.Run("rejects a missing journal", func(t *testing.T) {
		_, err := svc.Submit(ctx, domain.SubmitRequest{
			AuthorID: authorID,
			Title:    "No Journal",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidJournal)
	})

	t.Run("unknown manuscripts are not found", func(t *testing.T) {
		_, err := svc.GetByID(ctx, node.Generate())
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestListByAuthor(t *testing.T) {
	svc, node, _, _ := newTestService(t)
	ctx := context.Background()
	authorID := node.Generate()
	journalID := node.Generate()

	ids := make([]snowflake.ID, 0, 5)
	for i := 1; i <= 5; i++ {
		manuscript, err := svc.Submit(ctx, domain.SubmitRequest{
			JournalID: journalID,
			AuthorID:  authorID,
			Title:     fmt.Sprintf("Paper %d", i),
		})
		require.NoError(t, err)
		ids = append(ids, manuscript.ID)
	}

	t.Run("pages newest first", func(t *testing.T) {
		page1, info, err := svc.ListByAuthor(ctx, authorID, pagination.Pagination{PageSize: 2})
		require.NoError(t, err)
		require.Len(t, page1, 2)
		assert.Equal(t, ids[4], page1[0].ID)
		assert.Equal(t, ids[3], page1[1].ID)
		require.True(t, info.HasMore)

		page2, info, err := svc.ListByAuthor(ctx, authorID, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
		require.NoError(t, err)
		require.Len(t, page2, 2)
		assert.Equal(t, ids[2], page2[0].ID)
		assert.Equal(t, ids[1], page2[1].ID)
		require.True(t, info.HasMore)

		page3, info, err := svc.ListByAuthor(ctx, authorID, pagination.Pagination{PageSize: 2, PageToken: info.NextPageToken})
		require.NoError(t, err)
		require.Len(t, page3, 1)
		assert.Equal(t, ids[0], page3[0].ID)
		assert.False(t, info.HasMore)
	})

	t.Run("rejects a garbage token", func(t *testing.T) {
		_, _, err := svc.ListByAuthor(ctx, authorID, pagination.Pagination{PageToken: "%%%not-base64%%%"})
		assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
	})

	t.Run("other authors see nothing", func(t *testing.T) {
		list, info, err := svc.ListByAuthor(ctx, node.Generate(), pagination.Pagination{})
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.False(t, info.HasMore)
	})
}

func TestWithdraw(t *testing.T) {
	svc, node, _, db := newTestService(t)
	ctx := context.Background()
	authorID := node.Generate()

	submit := func(t *testing.T) domain.Manuscript {
		t.Helper()
		manuscript, err := svc.Submit(ctx, domain.SubmitRequest{
			JournalID: node.Generate(),
			AuthorID:  authorID,
			Title:     "Withdrawable",
		})
		require.NoError(t, err)
		return manuscript
	}

	t.Run("withdraws a submitted manuscript", func(t *testing.T) {
		manuscript := submit(t)
		require.NoError(t, svc.Withdraw(ctx, manuscript.ID, authorID))

		stored, err := svc.GetByID(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusWithdrawn, stored.Status)
	})

	t.Run("withdraws a manuscript under review", func(t *testing.T) {
		manuscript := submit(t)
		require.NoError(t, db.Model(&domain.Manuscript{}).
			Where("id = ?", manuscript.ID).
			Update("status", domain.StatusUnderReview).Error)

		require.NoError(t, svc.Withdraw(ctx, manuscript.ID, authorID))
	})

	t.Run("published manuscripts cannot be withdrawn", func(t *testing.T) {
		manuscript := submit(t)
		require.NoError(t, db.Model(&domain.Manuscript{}).
			Where("id = ?", manuscript.ID).
			Update("status", domain.StatusPublished).Error)

		err := svc.Withdraw(ctx, manuscript.ID, authorID)
		assert.ErrorIs(t, err, domain.ErrNotWithdrawable)
	})

	t.Run("only the author may withdraw", func(t *testing.T) {
		manuscript := submit(t)
		err := svc.Withdraw(ctx, manuscript.ID, node.Generate())
		assert.ErrorIs(t, err, domain.ErrNotFound)

		stored, err := svc.GetByID(ctx, manuscript.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusSubmitted, stored.Status)
	})
}

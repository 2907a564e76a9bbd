package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/cloudmetrics"
	"github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/openpress/peerflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	DB      *gorm.DB
	Clock   clock.Clock
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics cloudmetrics.Recorder
}

type Service struct {
	log     *zap.Logger
	db      *gorm.DB
	clock   clock.Clock
	genID   *snowflake.Node
	repo    domain.Repository
	metrics cloudmetrics.Recorder
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("manuscript.service"),
		db:      p.DB,
		clock:   p.Clock,
		genID:   p.GenID,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Submit(ctx context.Context, req domain.SubmitRequest) (domain.Manuscript, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Manuscript{}, domain.ErrInvalidTitle
	}
	if req.JournalID == 0 {
		return domain.Manuscript{}, domain.ErrInvalidJournal
	}

	keywords := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}

	now := s.now()
	manuscript := domain.Manuscript{
		ID:        s.genID.Generate(),
		JournalID: req.JournalID,
		AuthorID:  req.AuthorID,
		Title:     title,
		Slug:      slug.Make(title),
		Abstract:  strings.TrimSpace(req.Abstract),
		Keywords:  datatypes.NewJSONSlice(keywords),
		Status:    domain.StatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &manuscript); err != nil {
		return domain.Manuscript{}, err
	}

	s.metrics.RecordManuscriptSubmitted(manuscript.JournalID.String())
	s.log.Info("manuscript submitted",
		zap.String("manuscript_id", manuscript.ID.String()),
		zap.String("author_id", manuscript.AuthorID.String()),
	)
	return manuscript, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Manuscript, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) ListByAuthor(ctx context.Context, authorID snowflake.ID, page pagination.Pagination) ([]*domain.Manuscript, *pagination.PageInfo, error) {
	limit := page.PageSize
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var cursor *pagination.Cursor
	if page.PageToken != "" {
		decoded, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, domain.ErrInvalidPageToken
		}
		cursor = decoded
	}

	manuscripts, err := s.repo.ListByAuthor(ctx, s.db, authorID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	pageInfo := pagination.BuildCursorPageInfo(manuscripts, limit, func(m *domain.Manuscript) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: m.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(manuscripts) > limit {
		manuscripts = manuscripts[:limit]
	}
	return manuscripts, pageInfo, nil
}

func (s *Service) Withdraw(ctx context.Context, id, authorID snowflake.ID) error {
	manuscript, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}
	if manuscript.AuthorID != authorID {
		return domain.ErrNotFound
	}

	applied, err := s.repo.TransitionStatus(ctx, s.db, id, domain.StatusUpdate{
		From: []domain.Status{domain.StatusSubmitted, domain.StatusUnderReview},
		To:   domain.StatusWithdrawn,
	}, s.now())
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrNotWithdrawable
	}

	s.log.Info("manuscript withdrawn", zap.String("manuscript_id", id.String()))
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

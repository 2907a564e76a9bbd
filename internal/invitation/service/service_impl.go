package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/config"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	"github.com/openpress/peerflow/internal/invitation/domain"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Cfg        config.Config
	DB         *gorm.DB
	Clock      clock.Clock
	GenID      *snowflake.Node
	Policy     *config.ReviewPolicyHolder
	Repo       domain.Repository
	Identity   identitydomain.Service
	Dispatcher notifdomain.Dispatcher
}

type Service struct {
	log        *zap.Logger
	cfg        config.Config
	db         *gorm.DB
	clock      clock.Clock
	genID      *snowflake.Node
	policy     *config.ReviewPolicyHolder
	repo       domain.Repository
	identity   identitydomain.Service
	dispatcher notifdomain.Dispatcher
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("invitation.service"),
		cfg:        p.Cfg,
		db:         p.DB,
		clock:      p.Clock,
		genID:      p.GenID,
		policy:     p.Policy,
		repo:       p.Repo,
		identity:   p.Identity,
		dispatcher: p.Dispatcher,
	}
}

func (s *Service) Resolve(ctx context.Context, manuscriptID snowflake.ID, email, name string) (domain.Resolution, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Resolution{}, domain.ErrInvalidEmail
	}

	user, err := s.identity.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, identitydomain.ErrUserNotFound) {
		return domain.Resolution{}, err
	}
	if user != nil {
		if err := s.identity.UpgradeRole(ctx, user.ID, identitydomain.RoleReviewer); err != nil {
			return domain.Resolution{}, err
		}
		return domain.Resolution{Mode: domain.ModeAssignExisting, UserID: user.ID}, nil
	}

	if _, err := s.repo.FindPending(ctx, s.db, manuscriptID, email); err == nil {
		return domain.Resolution{}, domain.ErrDuplicate
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Resolution{}, err
	}

	token, err := newToken()
	if err != nil {
		return domain.Resolution{}, err
	}

	now := s.now()
	policy := s.policy.Get()
	invitation := domain.Invitation{
		ID:           s.genID.Generate(),
		ManuscriptID: manuscriptID,
		Email:        email,
		Name:         strings.TrimSpace(name),
		Token:        token,
		Status:       domain.StatusPending,
		ExpiresAt:    now.Add(time.Duration(policy.InvitationExpiryDays) * 24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &invitation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Resolution{}, domain.ErrDuplicate
		}
		return domain.Resolution{}, err
	}

	s.dispatcher.Dispatch(ctx, notifdomain.Event{
		Kind:    notifdomain.KindReviewerInvitation,
		Email:   email,
		Title:   "Invitation to review a manuscript",
		Message: "You have been invited to join the review panel of a manuscript.",
		Link:    fmt.Sprintf("%s/review/invitations/%s", s.cfg.Email.PortalURL, token),
		Data: map[string]any{
			"manuscript_id": invitation.ManuscriptID.String(),
			"expires_at":    invitation.ExpiresAt.Format(time.RFC3339),
		},
	})

	s.log.Info("reviewer invited",
		zap.String("manuscript_id", manuscriptID.String()),
		zap.String("invitation_id", invitation.ID.String()),
	)
	return domain.Resolution{Mode: domain.ModeInvited, Token: token}, nil
}

func (s *Service) Consume(ctx context.Context, token string) (*domain.Invitation, error) {
	invitation, err := s.repo.FindByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(invitation.ExpiresAt) {
		if _, err := s.repo.MarkStatus(ctx, s.db, invitation.ID, domain.StatusPending, domain.StatusExpired, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrExpired
	}

	applied, err := s.repo.MarkStatus(ctx, s.db, invitation.ID, domain.StatusPending, domain.StatusAccepted, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, domain.ErrNotFound
	}

	invitation.Status = domain.StatusAccepted
	invitation.UpdatedAt = now
	return invitation, nil
}

func (s *Service) FindByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	return s.repo.FindByToken(ctx, s.db, token)
}

func (s *Service) ListByManuscript(ctx context.Context, manuscriptID snowflake.ID) ([]*domain.Invitation, error) {
	return s.repo.ListByManuscript(ctx, s.db, manuscriptID)
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

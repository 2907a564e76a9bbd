package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/identity/domain"
	"github.com/openpress/peerflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		log:   p.Log.Named("identity.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.User{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.ErrInvalidEmail
	}

	var passwordHash *string
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, err
		}
		hashed := string(hash)
		passwordHash = &hashed
	}

	now := s.now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		University:   strings.TrimSpace(req.University),
		Role:         domain.RoleAuthor,
		IsActive:     true,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrUserExists
		}
		return domain.User{}, err
	}

	return user, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]*domain.User, error) {
	return s.repo.FindByIDs(ctx, ids)
}

func (s *Service) ListReviewers(ctx context.Context) ([]*domain.User, error) {
	return s.repo.FindByRole(ctx, domain.RoleReviewer, true)
}

func (s *Service) UpgradeRole(ctx context.Context, id snowflake.ID, role domain.Role) error {
	if role != domain.RoleReviewer {
		return domain.ErrInvalidRole
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.Role.IsDefault() {
		return nil
	}

	err = s.repo.UpdateFields(ctx, id, map[string]any{
		"role":       role,
		"updated_at": s.now(),
	})
	if err != nil {
		return err
	}

	s.log.Info("role upgraded",
		zap.String("user_id", id.String()),
		zap.String("role", string(role)),
	)
	return nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

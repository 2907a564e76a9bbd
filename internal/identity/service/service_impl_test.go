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
	"github.com/openpress/peerflow/internal/identity/domain"
	"github.com/openpress/peerflow/internal/identity/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	svc := New(Params{
		Log:   zaptest.NewLogger(t),
		Clock: clock.NewFakeClock(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)),
		GenID: node,
		Repo:  repository.New(db),
	})
	return svc, db
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("creates an author account", func(t *testing.T) {
		user, err := svc.Register(ctx, domain.RegisterRequest{
			Name:       "  Ada Lovelace  ",
			Email:      "Ada@Journal.Test",
			Password:   "correct horse",
			University: "Analytical Engine Institute",
		})
		require.NoError(t, err)

		assert.Equal(t, "Ada Lovelace", user.Name)
		assert.Equal(t, "ada@journal.test", user.Email)
		assert.Equal(t, domain.RoleAuthor, user.Role)
		assert.True(t, user.IsActive)
		require.NotNil(t, user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("correct horse")))
	})

	t.Run("a duplicate email conflicts", func(t *testing.T) {
		_, err := svc.Register(ctx, domain.RegisterRequest{
			Name:  "Ada Again",
			Email: "ada@journal.test",
		})
		assert.ErrorIs(t, err, domain.ErrUserExists)
	})

	t.Run("a passwordless account stores no hash", func(t *testing.T) {
		user, err := svc.Register(ctx, domain.RegisterRequest{
			Name:  "Invited Account",
			Email: "invited@journal.test",
		})
		require.NoError(t, err)
		assert.Nil(t, user.PasswordHash)
	})

	t.Run("rejects a blank name", func(t *testing.T) {
		_, err := svc.Register(ctx, domain.RegisterRequest{Email: "blank@journal.test"})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
	})

	t.Run("rejects a malformed email", func(t *testing.T) {
		_, err := svc.Register(ctx, domain.RegisterRequest{Name: "No Email", Email: "nope"})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})
}

func TestUpgradeRole(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	register := func(t *testing.T, name, email string) domain.User {
		t.Helper()
		user, err := svc.Register(ctx, domain.RegisterRequest{Name: name, Email: email})
		require.NoError(t, err)
		return user
	}
	roleOf := func(t *testing.T, id snowflake.ID) domain.Role {
		t.Helper()
		var user domain.User
		require.NoError(t, db.First(&user, "id = ?", id).Error)
		return user.Role
	}

	t.Run("promotes an author to reviewer", func(t *testing.T) {
		user := register(t, "Promotee", "promotee@journal.test")
		require.NoError(t, svc.UpgradeRole(ctx, user.ID, domain.RoleReviewer))
		assert.Equal(t, domain.RoleReviewer, roleOf(t, user.ID))
	})

	t.Run("promotion is idempotent", func(t *testing.T) {
		user := register(t, "Steady", "steady@journal.test")
		require.NoError(t, svc.UpgradeRole(ctx, user.ID, domain.RoleReviewer))
		require.NoError(t, svc.UpgradeRole(ctx, user.ID, domain.RoleReviewer))
		assert.Equal(t, domain.RoleReviewer, roleOf(t, user.ID))
	})

	t.Run("never demotes a privileged role", func(t *testing.T) {
		user := register(t, "Chief", "chief@journal.test")
		require.NoError(t, db.Model(&domain.User{}).
			Where("id = ?", user.ID).
			Update("role", domain.RoleEditor).Error)

		require.NoError(t, svc.UpgradeRole(ctx, user.ID, domain.RoleReviewer))
		assert.Equal(t, domain.RoleEditor, roleOf(t, user.ID))
	})

	t.Run("only the reviewer role can be granted", func(t *testing.T) {
		user := register(t, "Ambitious", "ambitious@journal.test")
		assert.ErrorIs(t, svc.UpgradeRole(ctx, user.ID, domain.RoleAdmin), domain.ErrInvalidRole)
	})

	t.Run("unknown accounts are not found", func(t *testing.T) {
		node, err := snowflake.NewNode(6)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.UpgradeRole(ctx, node.Generate(), domain.RoleReviewer), domain.ErrUserNotFound)
	})
}

func TestListReviewers(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterRequest{Name: "Just Author", Email: "author@journal.test"})
	require.NoError(t, err)

	active, err := svc.Register(ctx, domain.RegisterRequest{Name: "Active Reviewer", Email: "active@journal.test"})
	require.NoError(t, err)
	require.NoError(t, svc.UpgradeRole(ctx, active.ID, domain.RoleReviewer))

	retired, err := svc.Register(ctx, domain.RegisterRequest{Name: "Retired Reviewer", Email: "retired@journal.test"})
	require.NoError(t, err)
	require.NoError(t, svc.UpgradeRole(ctx, retired.ID, domain.RoleReviewer))
	require.NoError(t, db.Model(&domain.User{}).
		Where("id = ?", retired.ID).
		Update("is_active", false).Error)

	reviewers, err := svc.ListReviewers(ctx)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, active.ID, reviewers[0].ID)
}

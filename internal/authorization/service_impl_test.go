package authorization

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	return NewService(Params{
		Log:      zaptest.NewLogger(t),
		Enforcer: enforcer,
	})
}

func TestAuthorize(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	t.Run("author grants", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectManuscript, ActionManuscriptSubmit))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectManuscript, ActionManuscriptWithdraw))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectNotification, ActionNotificationView))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectInvitation, ActionInvitationAccept))
	})

	t.Run("authors cannot run reviews", func(t *testing.T) {
		assert.ErrorIs(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectReview, ActionReviewSubmit), ErrForbidden)
		assert.ErrorIs(t, svc.Authorize(ctx, identitydomain.RoleAuthor, ObjectReview, ActionReviewAssign), ErrForbidden)
	})

	t.Run("reviewers inherit author grants", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleReviewer, ObjectReview, ActionReviewSubmit))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleReviewer, ObjectReview, ActionReviewCertificate))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleReviewer, ObjectManuscript, ActionManuscriptSubmit))
		assert.ErrorIs(t, svc.Authorize(ctx, identitydomain.RoleReviewer, ObjectReview, ActionReviewAssign), ErrForbidden)
	})

	t.Run("editors run the panel", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleEditor, ObjectReview, ActionReviewAssign))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleEditor, ObjectReview, ActionReviewInvite))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleEditor, ObjectReview, ActionReviewStatus))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleEditor, ObjectReview, ActionReviewSubmit))
	})

	t.Run("admins inherit everything", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAdmin, ObjectReview, ActionReviewAssign))
		assert.NoError(t, svc.Authorize(ctx, identitydomain.RoleAdmin, ObjectManuscript, ActionManuscriptSubmit))
	})

	t.Run("an empty role falls back to author", func(t *testing.T) {
		assert.NoError(t, svc.Authorize(ctx, identitydomain.Role(""), ObjectManuscript, ActionManuscriptSubmit))
		assert.ErrorIs(t, svc.Authorize(ctx, identitydomain.Role(""), ObjectReview, ActionReviewAssign), ErrForbidden)
	})

	t.Run("an unknown role is invalid", func(t *testing.T) {
		assert.ErrorIs(t, svc.Authorize(ctx, identitydomain.Role("superuser"), ObjectManuscript, ActionManuscriptView), ErrInvalidActor)
	})
}

func TestSeedPoliciesIdempotent(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	first, err := NewEnforcer(db)
	require.NoError(t, err)
	policies, err := first.GetPolicy()
	require.NoError(t, err)

	// A second startup against the same store must not duplicate grants.
	second, err := NewEnforcer(db)
	require.NoError(t, err)
	again, err := second.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, again, len(policies))
}

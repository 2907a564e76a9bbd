package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/openpress/peerflow/internal/clock"
	"github.com/openpress/peerflow/internal/config"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	identityrepository "github.com/openpress/peerflow/internal/identity/repository"
	identityservice "github.com/openpress/peerflow/internal/identity/service"
	"github.com/openpress/peerflow/internal/invitation/domain"
	"github.com/openpress/peerflow/internal/invitation/repository"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notifdomain.Event
}

func (r *recordingDispatcher) Dispatch(_ context.Context, event notifdomain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingDispatcher) last(t *testing.T) notifdomain.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

type testEnv struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	node     *snowflake.Node
	events   *recordingDispatcher
	identity identitydomain.Service
	svc      domain.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&identitydomain.User{}, &domain.Invitation{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	policy := &config.ReviewPolicyHolder{}
	policy.Store(config.DefaultReviewPolicy())

	fc := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	events := &recordingDispatcher{}
	log := zaptest.NewLogger(t)

	identitySvc := identityservice.New(identityservice.Params{
		Log:   log,
		Clock: fc,
		GenID: node,
		Repo:  identityrepository.New(db),
	})

	svc := New(Params{
		Log:        log,
		Cfg:        config.Config{Email: config.EmailConfig{PortalURL: "http://portal.test"}},
		DB:         db,
		Clock:      fc,
		GenID:      node,
		Policy:     policy,
		Repo:       repository.New(),
		Identity:   identitySvc,
		Dispatcher: events,
	})

	return &testEnv{db: db, clock: fc, node: node, events: events, identity: identitySvc, svc: svc}
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	manuscriptID := env.node.Generate()

	t.Run("rejects a malformed email", func(t *testing.T) {
		_, err := env.svc.Resolve(ctx, manuscriptID, "not-an-email", "Dr. Nobody")
		assert.ErrorIs(t, err, domain.ErrInvalidEmail)
	})

	t.Run("promotes an existing account", func(t *testing.T) {
		user, err := env.identity.Register(ctx, identitydomain.RegisterRequest{
			Name:  "Registered Author",
			Email: "registered@journal.test",
		})
		require.NoError(t, err)
		require.Equal(t, identitydomain.RoleAuthor, user.Role)

		resolution, err := env.svc.Resolve(ctx, manuscriptID, "Registered@Journal.test", "Registered Author")
		require.NoError(t, err)
		assert.Equal(t, domain.ModeAssignExisting, resolution.Mode)
		assert.Equal(t, user.ID, resolution.UserID)
		assert.Empty(t, resolution.Token)

		var stored identitydomain.User
		require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
		assert.Equal(t, identitydomain.RoleReviewer, stored.Role)
	})

	t.Run("promotion leaves privileged roles alone", func(t *testing.T) {
		editor := &identitydomain.User{
			ID:       env.node.Generate(),
			Name:     "Editor",
			Email:    "editor@journal.test",
			Role:     identitydomain.RoleEditor,
			IsActive: true,
		}
		require.NoError(t, env.db.Create(editor).Error)

		resolution, err := env.svc.Resolve(ctx, manuscriptID, editor.Email, editor.Name)
		require.NoError(t, err)
		assert.Equal(t, domain.ModeAssignExisting, resolution.Mode)

		var stored identitydomain.User
		require.NoError(t, env.db.First(&stored, "id = ?", editor.ID).Error)
		assert.Equal(t, identitydomain.RoleEditor, stored.Role)
	})

	t.Run("mints a token for an unknown email", func(t *testing.T) {
		resolution, err := env.svc.Resolve(ctx, manuscriptID, "Outsider@Elsewhere.test", "Dr. Outsider")
		require.NoError(t, err)

		assert.Equal(t, domain.ModeInvited, resolution.Mode)
		assert.Len(t, resolution.Token, 64)

		invitation, err := env.svc.FindByToken(ctx, resolution.Token)
		require.NoError(t, err)
		assert.Equal(t, "outsider@elsewhere.test", invitation.Email)
		assert.Equal(t, domain.StatusPending, invitation.Status)
		assert.True(t, invitation.ExpiresAt.Equal(env.clock.Now().Add(7*24*time.Hour)))

		event := env.events.last(t)
		assert.Equal(t, notifdomain.KindReviewerInvitation, event.Kind)
		assert.Equal(t, "outsider@elsewhere.test", event.Email)
		assert.Equal(t, "http://portal.test/review/invitations/"+resolution.Token, event.Link)
	})

	t.Run("a pending invitation blocks a second one", func(t *testing.T) {
		_, err := env.svc.Resolve(ctx, manuscriptID, "outsider@elsewhere.test", "Dr. Outsider")
		assert.ErrorIs(t, err, domain.ErrDuplicate)

		invitations, err := env.svc.ListByManuscript(ctx, manuscriptID)
		require.NoError(t, err)
		require.Len(t, invitations, 1)
		assert.Equal(t, domain.StatusPending, invitations[0].Status)
	})

	t.Run("another manuscript may invite the same email", func(t *testing.T) {
		resolution, err := env.svc.Resolve(ctx, env.node.Generate(), "outsider@elsewhere.test", "Dr. Outsider")
		require.NoError(t, err)
		assert.Equal(t, domain.ModeInvited, resolution.Mode)
	})
}

func TestConsume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("redeems a pending token once", func(t *testing.T) {
		resolution, err := env.svc.Resolve(ctx, env.node.Generate(), "once@elsewhere.test", "Dr. Once")
		require.NoError(t, err)

		invitation, err := env.svc.Consume(ctx, resolution.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, invitation.Status)

		_, err = env.svc.Consume(ctx, resolution.Token)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("unknown tokens are not found", func(t *testing.T) {
		_, err := env.svc.Consume(ctx, "deadbeef")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("expired tokens are refused and marked", func(t *testing.T) {
		resolution, err := env.svc.Resolve(ctx, env.node.Generate(), "slow@elsewhere.test", "Dr. Slow")
		require.NoError(t, err)

		env.clock.Advance(8 * 24 * time.Hour)
		_, err = env.svc.Consume(ctx, resolution.Token)
		assert.ErrorIs(t, err, domain.ErrExpired)

		invitation, err := env.svc.FindByToken(ctx, resolution.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusExpired, invitation.Status)

		_, err = env.svc.Consume(ctx, resolution.Token)
		assert.ErrorIs(t, err, domain.ErrExpired)
	})

	t.Run("redemption works up to the deadline", func(t *testing.T) {
		resolution, err := env.svc.Resolve(ctx, env.node.Generate(), "prompt@elsewhere.test", "Dr. Prompt")
		require.NoError(t, err)

		env.clock.Advance(7 * 24 * time.Hour)
		invitation, err := env.svc.Consume(ctx, resolution.Token)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, invitation.Status)
	})
}

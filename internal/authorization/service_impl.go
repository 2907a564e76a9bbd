// Package authorization enforces role-based access to editorial operations.
// Policies live in the database through the gorm adapter so self-hosted
// journals can extend them without a rebuild; the defaults are seeded at
// startup.
package authorization

import (
	"context"
	_ "embed"
	"errors"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectManuscript   = "manuscript"
	ObjectReview       = "review"
	ObjectInvitation   = "invitation"
	ObjectNotification = "notification"
)

const (
	ActionManuscriptSubmit   = "manuscript.submit"
	ActionManuscriptView     = "manuscript.view"
	ActionManuscriptWithdraw = "manuscript.withdraw"

	ActionReviewAssign      = "review.assign"
	ActionReviewInvite      = "review.invite"
	ActionReviewStart       = "review.start"
	ActionReviewSubmit      = "review.submit_decision"
	ActionReviewView        = "review.view"
	ActionReviewStatus      = "review.status"
	ActionReviewCertificate = "review.certificate"

	ActionInvitationAccept = "invitation.accept"

	ActionNotificationView = "notification.view"
)

var (
	ErrInvalidActor = errors.New("invalid_actor")
	ErrForbidden    = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, role identitydomain.Role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role identitydomain.Role, object, action string) error {
	subject := subjectForRole(role)
	if subject == "" {
		return ErrInvalidActor
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("role", string(role)),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subjectForRole(role identitydomain.Role) string {
	role = identitydomain.Role(strings.TrimSpace(string(role)))
	if role == "" {
		role = identitydomain.RoleAuthor
	}
	switch role {
	case identitydomain.RoleAuthor, identitydomain.RoleReviewer, identitydomain.RoleEditor, identitydomain.RoleAdmin:
		return "role:" + string(role)
	default:
		return ""
	}
}

// seedPolicies installs the default editorial grants. Roles stack: reviewer
// inherits author, editor inherits reviewer, admin inherits editor.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:author", ObjectManuscript, ActionManuscriptSubmit},
		{"role:author", ObjectManuscript, ActionManuscriptView},
		{"role:author", ObjectManuscript, ActionManuscriptWithdraw},
		{"role:author", ObjectNotification, ActionNotificationView},
		{"role:author", ObjectInvitation, ActionInvitationAccept},

		{"role:reviewer", ObjectReview, ActionReviewStart},
		{"role:reviewer", ObjectReview, ActionReviewSubmit},
		{"role:reviewer", ObjectReview, ActionReviewView},
		{"role:reviewer", ObjectReview, ActionReviewCertificate},

		{"role:editor", ObjectReview, ActionReviewAssign},
		{"role:editor", ObjectReview, ActionReviewInvite},
		{"role:editor", ObjectReview, ActionReviewStatus},
	}

	for _, p := range policies {
		if _, err := enforcer.AddPolicy(p[0], p[1], p[2]); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{"role:reviewer", "role:author"},
		{"role:editor", "role:reviewer"},
		{"role:admin", "role:editor"},
	}
	for _, g := range groupings {
		if _, err := enforcer.AddGroupingPolicy(g[0], g[1]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

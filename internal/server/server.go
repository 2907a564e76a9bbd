package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/openpress/peerflow/internal/authorization"
	"github.com/openpress/peerflow/internal/cloudmetrics"
	"github.com/openpress/peerflow/internal/config"
	"github.com/openpress/peerflow/internal/identity"
	identitydomain "github.com/openpress/peerflow/internal/identity/domain"
	"github.com/openpress/peerflow/internal/invitation"
	invitationdomain "github.com/openpress/peerflow/internal/invitation/domain"
	"github.com/openpress/peerflow/internal/manuscript"
	manuscriptdomain "github.com/openpress/peerflow/internal/manuscript/domain"
	"github.com/openpress/peerflow/internal/notification"
	notifdomain "github.com/openpress/peerflow/internal/notification/domain"
	"github.com/openpress/peerflow/internal/observability"
	obsmiddleware "github.com/openpress/peerflow/internal/observability/logger"
	obsmetrics "github.com/openpress/peerflow/internal/observability/metrics"
	obstracing "github.com/openpress/peerflow/internal/observability/tracing"
	"github.com/openpress/peerflow/internal/providers/email"
	"github.com/openpress/peerflow/internal/providers/pdf"
	"github.com/openpress/peerflow/internal/ratelimit"
	"github.com/openpress/peerflow/internal/review"
	reviewdomain "github.com/openpress/peerflow/internal/review/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cloudmetrics.Module,
	authorization.Module,
	email.Module,
	pdf.Module,
	ratelimit.Module,
	identity.Module,
	manuscript.Module,
	invitation.Module,
	notification.Module,
	review.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(log, obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	cfg           config.Config
	genID         *snowflake.Node
	identitySvc   identitydomain.Service
	manuscriptSvc manuscriptdomain.Service
	invitationSvc invitationdomain.Service
	reviewSvc     reviewdomain.Service
	notifSvc      notifdomain.Service
	authzSvc      authorization.Service
	inviteLimiter *ratelimit.InviteLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Log           *zap.Logger
	Cfg           config.Config
	GenID         *snowflake.Node
	IdentitySvc   identitydomain.Service
	ManuscriptSvc manuscriptdomain.Service
	InvitationSvc invitationdomain.Service
	ReviewSvc     reviewdomain.Service
	NotifSvc      notifdomain.Service
	AuthzSvc      authorization.Service
	InviteLimiter *ratelimit.InviteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		log:           p.Log.Named("http.server"),
		cfg:           p.Cfg,
		genID:         p.GenID,
		identitySvc:   p.IdentitySvc,
		manuscriptSvc: p.ManuscriptSvc,
		invitationSvc: p.InvitationSvc,
		reviewSvc:     p.ReviewSvc,
		notifSvc:      p.NotifSvc,
		authzSvc:      p.AuthzSvc,
		inviteLimiter: p.InviteLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.POST("/users", s.Register)

	authed := api.Group("")
	authed.Use(s.CallerIdentity())

	authed.POST("/manuscripts",
		s.requirePermission(authorization.ObjectManuscript, authorization.ActionManuscriptSubmit),
		s.SubmitManuscript)
	authed.GET("/manuscripts",
		s.requirePermission(authorization.ObjectManuscript, authorization.ActionManuscriptView),
		s.ListManuscripts)
	authed.GET("/manuscripts/:id",
		s.requirePermission(authorization.ObjectManuscript, authorization.ActionManuscriptView),
		s.GetManuscript)
	authed.POST("/manuscripts/:id/withdraw",
		s.requirePermission(authorization.ObjectManuscript, authorization.ActionManuscriptWithdraw),
		s.WithdrawManuscript)
	authed.GET("/manuscripts/:id/status",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewStatus),
		s.ManuscriptReviewStatus)

	authed.POST("/manuscripts/:id/reviewers",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewAssign),
		s.AssignReviewers)
	authed.POST("/manuscripts/:id/reviewers/auto",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewAssign),
		s.AutoAssignReviewers)
	authed.POST("/manuscripts/:id/invitations",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewInvite),
		s.inviteRateLimit(),
		s.InviteReviewer)

	authed.POST("/invitations/:token/accept",
		s.requirePermission(authorization.ObjectInvitation, authorization.ActionInvitationAccept),
		s.AcceptInvitation)

	authed.GET("/reviews",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewView),
		s.ListReviews)
	authed.GET("/reviews/:id",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewView),
		s.GetReview)
	authed.POST("/reviews/:id/start",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewStart),
		s.StartReview)
	authed.POST("/reviews/:id/decision",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewSubmit),
		s.SubmitDecision)
	authed.GET("/reviews/:id/certificate",
		s.requirePermission(authorization.ObjectReview, authorization.ActionReviewCertificate),
		s.ReviewCertificate)

	authed.GET("/notifications",
		s.requirePermission(authorization.ObjectNotification, authorization.ActionNotificationView),
		s.ListNotifications)
	authed.POST("/notifications/:id/read",
		s.requirePermission(authorization.ObjectNotification, authorization.ActionNotificationView),
		s.MarkNotificationRead)
}

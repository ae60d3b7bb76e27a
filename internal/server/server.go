package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/kado/internal/apikey"
	apikeydomain "github.com/smallbiznis/kado/internal/apikey/domain"
	"github.com/smallbiznis/kado/internal/clock"
	"github.com/smallbiznis/kado/internal/config"
	"github.com/smallbiznis/kado/internal/contribution"
	contributiondomain "github.com/smallbiznis/kado/internal/contribution/domain"
	"github.com/smallbiznis/kado/internal/event"
	eventdomain "github.com/smallbiznis/kado/internal/event/domain"
	"github.com/smallbiznis/kado/internal/member"
	memberdomain "github.com/smallbiznis/kado/internal/member/domain"
	"github.com/smallbiznis/kado/internal/notification"
	"github.com/smallbiznis/kado/internal/observability"
	obslogger "github.com/smallbiznis/kado/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/kado/internal/observability/metrics"
	obstracing "github.com/smallbiznis/kado/internal/observability/tracing"
	"github.com/smallbiznis/kado/internal/providers"
	"github.com/smallbiznis/kado/internal/ratelimit"
	"github.com/smallbiznis/kado/internal/scheduler"
	"github.com/smallbiznis/kado/internal/team"
	teamdomain "github.com/smallbiznis/kado/internal/team/domain"
	"github.com/smallbiznis/kado/internal/vote"
	votedomain "github.com/smallbiznis/kado/internal/vote/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	providers.Module,
	notification.Module,
	member.Module,
	team.Module,
	event.Module,
	contribution.Module,
	vote.Module,
	apikey.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	if !cfg.RunsHTTP() {
		return
	}

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
	engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	genID  *snowflake.Node
	clock  clock.Clock

	memberSvc       memberdomain.Service
	teamSvc         teamdomain.Service
	eventSvc        eventdomain.Service
	contributionSvc contributiondomain.Service
	voteSvc         votedomain.Service
	apiKeySvc       apikeydomain.Service

	triggerLimiter *ratelimit.TriggerLimiter
	scheduler      *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin   *gin.Engine
	Cfg   config.Config
	DB    *gorm.DB
	GenID *snowflake.Node
	Clock clock.Clock

	MemberSvc       memberdomain.Service
	TeamSvc         teamdomain.Service
	EventSvc        eventdomain.Service
	ContributionSvc contributiondomain.Service
	VoteSvc         votedomain.Service
	APIKeySvc       apikeydomain.Service

	TriggerLimiter *ratelimit.TriggerLimiter `optional:"true"`
	Scheduler      *scheduler.Scheduler      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		db:     p.DB,
		genID:  p.GenID,
		clock:  p.Clock,

		memberSvc:       p.MemberSvc,
		teamSvc:         p.TeamSvc,
		eventSvc:        p.EventSvc,
		contributionSvc: p.ContributionSvc,
		voteSvc:         p.VoteSvc,
		apiKeySvc:       p.APIKeySvc,

		triggerLimiter: p.TriggerLimiter,
		scheduler:      p.Scheduler,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired(apikeydomain.ScopeGateway))

	// -------- Members --------
	api.POST("/members", s.UpsertMember)
	api.GET("/members/:externalId", s.GetMember)
	api.PUT("/members/:externalId/birthday", s.SetBirthday)
	api.GET("/members/:externalId/wishlist", s.ListWishlist)
	api.POST("/members/:externalId/wishlist", s.AddWishlistItem)

	// -------- Teams --------
	api.POST("/teams", s.RegisterTeam)
	api.GET("/teams/:externalId", s.GetTeam)
	api.PUT("/teams/:externalId/members", s.SyncTeamMembers)

	// -------- Events --------
	api.GET("/events", s.ListEvents)
	api.GET("/events/:id", s.GetEvent)
	api.POST("/events/:id/claim", s.ClaimEvent)
	api.POST("/events/:id/release", s.ReleaseEvent)
	api.POST("/events/:id/finalize", s.FinalizeEvent)
	api.POST("/events/:id/cancel", s.CancelEvent)

	// -------- Contributions --------
	api.POST("/events/:id/join", s.JoinEvent)
	api.POST("/events/:id/decline", s.DeclineEvent)
	api.PUT("/events/:id/contribution", s.ReportContributionStatus)
	api.GET("/events/:id/contributions", s.GetContributionAggregate)
	api.GET("/events/:id/contributions/detail", s.GetContributionDetail)

	// -------- Votes --------
	api.POST("/events/:id/votes", s.CastVote)
	api.GET("/events/:id/votes", s.GetVoteTally)

	api.GET("/stats", s.GetStats)

	api.POST("/trigger/check-birthdays",
		s.RequireScope(apikeydomain.ScopeAdmin),
		s.TriggerRateLimit(),
		s.TriggerCheckBirthdays,
	)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", s.APIKeyRequired(apikeydomain.ScopeAdmin))

	admin.GET("/api-keys", s.ListAPIKeys)
	admin.POST("/api-keys", s.CreateAPIKey)
	admin.POST("/api-keys/:keyId/rotate", s.RotateAPIKey)
	admin.DELETE("/api-keys/:keyId", s.RevokeAPIKey)
}

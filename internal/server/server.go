package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/marketlane/settlo/internal/achievement"
	achievementdomain "github.com/marketlane/settlo/internal/achievement/domain"
	"github.com/marketlane/settlo/internal/config"
	"github.com/marketlane/settlo/internal/notify"
	notifydomain "github.com/marketlane/settlo/internal/notify/domain"
	"github.com/marketlane/settlo/internal/observability"
	obsmiddleware "github.com/marketlane/settlo/internal/observability/logger"
	obsmetrics "github.com/marketlane/settlo/internal/observability/metrics"
	obstracing "github.com/marketlane/settlo/internal/observability/tracing"
	"github.com/marketlane/settlo/internal/points"
	"github.com/marketlane/settlo/internal/ratelimit"
	"github.com/marketlane/settlo/internal/settlement"
	settlementdomain "github.com/marketlane/settlo/internal/settlement/domain"
	"github.com/marketlane/settlo/internal/vendors"
	vendordomain "github.com/marketlane/settlo/internal/vendors/domain"
	"github.com/marketlane/settlo/internal/webhook"
	webhookdomain "github.com/marketlane/settlo/internal/webhook/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	notify.Module,
	points.Module,
	achievement.Module,
	vendors.Module,
	settlement.Module,
	webhook.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	webhookSvc    webhookdomain.Service
	vendorSvc     vendordomain.Service
	settlementSvc settlementdomain.Service
	achievements  achievementdomain.Engine
	notifySvc     notifydomain.Service
	replayLimiter *ratelimit.ReplayLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	WebhookSvc    webhookdomain.Service
	VendorSvc     vendordomain.Service
	SettlementSvc settlementdomain.Service
	Achievements  achievementdomain.Engine
	NotifySvc     notifydomain.Service
	ReplayLimiter *ratelimit.ReplayLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		webhookSvc:    p.WebhookSvc,
		vendorSvc:     p.VendorSvc,
		settlementSvc: p.SettlementSvc,
		achievements:  p.Achievements,
		notifySvc:     p.NotifySvc,
		replayLimiter: p.ReplayLimiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	api.POST("/webhooks/:provider", s.HandleWebhook)
	api.GET("/leaderboard", s.HandleLeaderboard)

	admin := s.engine.Group("/admin", s.AdminAuthMiddleware())
	admin.GET("/webhooks/logs", s.HandleListWebhookLogs)
	admin.GET("/webhooks/health", s.HandleWebhookHealth)
	admin.POST("/webhooks/:id/replay", s.ReplayRateLimitMiddleware(), s.HandleReplayWebhook)

	admin.POST("/vendors", s.HandleCreateVendor)
	admin.GET("/vendors/:id", s.HandleVendorStats)
	admin.GET("/vendors/:id/achievements", s.HandleVendorAchievements)
	admin.GET("/vendors/:id/notifications", s.HandleVendorNotifications)
	admin.GET("/vendors/:id/settlements", s.HandleVendorSettlements)
}

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/config"
	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	"github.com/boxlane/boxlane/internal/observability"
	"github.com/boxlane/boxlane/internal/observability/logger"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	"github.com/boxlane/boxlane/internal/observability/tracing"
	"github.com/boxlane/boxlane/internal/ratelimit"
	resolverdomain "github.com/boxlane/boxlane/internal/resolver/domain"
	routingdomain "github.com/boxlane/boxlane/internal/routing/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg      observability.Config
	HTTPMetrics *metrics.HTTPMetrics
}

// NewEngine builds the gin engine with the shared middleware chain. Order
// matters: recovery first, then logging, tracing and metrics, then the error
// envelope last so it sees every error a handler recorded.
func NewEngine(p EngineParams) *gin.Engine {
	if !p.ObsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logger.GinMiddleware(logger.MiddlewareConfig{
			Debug:           p.ObsCfg.Debug(),
			ErrorClassifier: classifyError,
		}),
		tracing.GinMiddleware(),
		metrics.GinMiddleware(p.HTTPMetrics),
		ErrorHandlingMiddleware(),
	)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

type ServerParams struct {
	fx.In

	Engine   *gin.Engine
	Cfg      config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     scheduledomain.Repository
	Ingest   ingestdomain.Service
	Resolver resolverdomain.Service
	Routing  routingdomain.Service
	Sources  *metrics.SourceRecorder
	Limiter  *ratelimit.IngestLimiter `optional:"true"`
}

// Server wires the HTTP surface onto the engine.
type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     scheduledomain.Repository
	ingest   ingestdomain.Service
	resolver resolverdomain.Service
	routing  routingdomain.Service
	sources  *metrics.SourceRecorder
	limiter  *ratelimit.IngestLimiter
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:   p.Engine,
		cfg:      p.Cfg,
		db:       p.DB,
		log:      p.Log.Named("server"),
		clock:    p.Clock,
		repo:     p.Repo,
		ingest:   p.Ingest,
		resolver: p.Resolver,
		routing:  p.Routing,
		sources:  p.Sources,
		limiter:  p.Limiter,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// The webhook carries its own shared-secret auth; everything else on the
	// query surface takes the API key.
	s.engine.POST("/api/webhooks/schedules",
		WebhookSecretRequired(s.cfg.WebhookSecret),
		WebhookRateLimited(s.limiter),
		s.handleScheduleWebhook,
	)

	api := s.engine.Group("/api", APIKeyRequired(s.cfg.APIKey))
	{
		api.POST("/carriers/:carrier/sync", s.handleCarrierSync)
		api.POST("/carriers/:carrier/sync-services", s.handleCarrierServiceSync)
		api.GET("/departures", s.handleEarliestDeparture)
		api.GET("/next-sailings", s.handleNextSailings)
		api.GET("/routes", s.handleRoutes)
		api.GET("/schedule-sources", s.handleScheduleSources)
	}
}

func run(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
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

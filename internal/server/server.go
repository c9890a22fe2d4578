// Package server exposes the HTTP surface of the refund engine.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fieldview/arbiter/internal/config"
	"github.com/fieldview/arbiter/internal/observability/logger"
	"github.com/fieldview/arbiter/internal/observability/metrics"
	"github.com/fieldview/arbiter/internal/observability/tracing"
	refunddomain "github.com/fieldview/arbiter/internal/refund/domain"
	telemetrydomain "github.com/fieldview/arbiter/internal/telemetry/domain"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	TelemetrySvc telemetrydomain.Service
	RefundSvc    refunddomain.Service
	HTTPMetrics  *metrics.HTTPMetrics `optional:"true"`
}

type Server struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          config.Config
	telemetrySvc telemetrydomain.Service
	refundSvc    refunddomain.Service
	httpMetrics  *metrics.HTTPMetrics
}

func NewServer(p Params) *Server {
	return &Server{
		db:           p.DB,
		log:          p.Log.Named("server"),
		cfg:          p.Cfg,
		telemetrySvc: p.TelemetrySvc,
		refundSvc:    p.RefundSvc,
		httpMetrics:  p.HTTPMetrics,
	}
}

// NewEngine builds the gin engine with logging and metrics middleware.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	if s.httpMetrics != nil {
		engine.Use(metrics.GinMiddleware(s.httpMetrics))
	}

	s.RegisterRoutes(engine)
	return engine
}

// RegisterRoutes attaches all API routes to the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Healthz)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/sessions/:session_id/events", s.IngestPlaybackEvent)
	engine.POST("/sessions/:session_id/end", s.EndPlaybackSession)

	engine.POST("/purchases/:purchase_id/refund/evaluate", s.EvaluateRefund)
	engine.POST("/purchases/:purchase_id/refund", s.IssueRefund)

	engine.POST("/refunds/:refund_id/settle", s.SettleRefund)
	engine.GET("/refunds/:refund_id", s.GetRefund)
}

// Healthz reports process liveness and database reachability.
func (s *Server) Healthz(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package server

import (
	"context"
	"net/http"

	"github.com/fieldops/penaltyd/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appealdomain "github.com/fieldops/penaltyd/internal/appeal/domain"
	evaluationdomain "github.com/fieldops/penaltyd/internal/evaluation/domain"
	eventdomain "github.com/fieldops/penaltyd/internal/event/domain"
	ledgerdomain "github.com/fieldops/penaltyd/internal/ledger/domain"
	policydomain "github.com/fieldops/penaltyd/internal/policy/domain"
	"github.com/fieldops/penaltyd/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log           *zap.Logger
	Config        config.Config
	EventSvc      eventdomain.Service
	EvaluationSvc evaluationdomain.Service
	LedgerSvc     ledgerdomain.Service
	AppealSvc     appealdomain.Service
	PolicySvc     policydomain.Service
	Scheduler     *scheduler.Scheduler
}

type Server struct {
	log           *zap.Logger
	cfg           config.Config
	eventSvc      eventdomain.Service
	evaluationSvc evaluationdomain.Service
	ledgerSvc     ledgerdomain.Service
	appealSvc     appealdomain.Service
	policySvc     policydomain.Service
	scheduler     *scheduler.Scheduler
}

func NewServer(p Params) *Server {
	return &Server{
		log:           p.Log.Named("http.server"),
		cfg:           p.Config,
		eventSvc:      p.EventSvc,
		evaluationSvc: p.EvaluationSvc,
		ledgerSvc:     p.LedgerSvc,
		appealSvc:     p.AppealSvc,
		policySvc:     p.PolicySvc,
		scheduler:     p.Scheduler,
	}
}

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/v1")
	v1.POST("/events", s.IngestEvent)
	v1.GET("/users/:id/ledger", s.ListLedger)
	v1.POST("/appeals", s.CreateAppeal)
	v1.POST("/appeals/:id/decision", s.ResolveAppeal)
	v1.GET("/policies", s.ListPolicies)
	v1.POST("/jobs/decay", s.RunDecay)
}

func run(lc fx.Lifecycle, r *gin.Engine, s *Server, log *zap.Logger) {
	s.RegisterRoutes(r)

	srv := &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", s.cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

// Module wires the HTTP surface.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

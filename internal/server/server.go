package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/mesaops/comanda/internal/config"
	"github.com/mesaops/comanda/internal/costreport"
	costreportdomain "github.com/mesaops/comanda/internal/costreport/domain"
	"github.com/mesaops/comanda/internal/effect"
	"github.com/mesaops/comanda/internal/ledger"
	ledgerdomain "github.com/mesaops/comanda/internal/ledger/domain"
	"github.com/mesaops/comanda/internal/observability"
	obsmiddleware "github.com/mesaops/comanda/internal/observability/logger"
	obsmetrics "github.com/mesaops/comanda/internal/observability/metrics"
	obstracing "github.com/mesaops/comanda/internal/observability/tracing"
	"github.com/mesaops/comanda/internal/opmode"
	opmodedomain "github.com/mesaops/comanda/internal/opmode/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	opmode.Module,
	effect.Module,
	ledger.Module,
	costreport.Module,
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
	engine    *gin.Engine
	cfg       config.Config
	genID     *snowflake.Node
	modeSvc   opmodedomain.Service
	resolver  *effect.Resolver
	ledgerSvc ledgerdomain.Service
	reportSvc costreportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	GenID     *snowflake.Node
	ModeSvc   opmodedomain.Service
	Resolver  *effect.Resolver
	LedgerSvc ledgerdomain.Service
	ReportSvc costreportdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		genID:     p.GenID,
		modeSvc:   p.ModeSvc,
		resolver:  p.Resolver,
		ledgerSvc: p.LedgerSvc,
		reportSvc: p.ReportSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.TenantRequired())

	// -------- Operational modes --------
	v1.GET("/modes", s.ListModes)
	v1.POST("/modes/:kind/activate", s.ActivateMode)
	v1.PATCH("/modes/:kind", s.UpdateMode)
	v1.DELETE("/modes/:kind", s.DeactivateMode)
	v1.GET("/modes/:kind", s.GetMode)

	// -------- Effective mode snapshot --------
	v1.GET("/effects", s.ResolveEffects)

	// -------- Ledgers --------
	v1.POST("/ledgers/orders", s.RecordOrder)
	v1.POST("/ledgers/consumption", s.RecordConsumption)
	v1.POST("/ledgers/labor", s.RecordLabor)
	v1.POST("/ledgers/expenses", s.RecordExpense)

	// -------- Daily cost reports --------
	v1.POST("/reports/daily/:date/generate", s.GenerateDailyReport)
	v1.GET("/reports/daily/:date", s.GetDailyReport)
	v1.GET("/reports/daily", s.ListDailyReports)
}

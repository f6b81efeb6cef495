package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mertlendinyurt-source/epinnew-sub000/internal/audit"
	auditdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/audit/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog"
	catalogdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/catalog/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/config"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment"
	fulfillmentdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/fulfillment/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory"
	inventorydomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/inventory/domain"
	obslogger "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/logger"
	obsmetrics "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/metrics"
	obstracing "github.com/mertlendinyurt-source/epinnew-sub000/internal/observability/tracing"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/order"
	orderdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/order/domain"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/providers/email"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/ratelimit"
	"github.com/mertlendinyurt-source/epinnew-sub000/internal/risk"
	riskdomain "github.com/mertlendinyurt-source/epinnew-sub000/internal/risk/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	catalog.Module,
	inventory.Module,
	order.Module,
	risk.Module,
	fulfillment.Module,
	email.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(AuditContextMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
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
	engine         *gin.Engine
	cfg            config.Config
	db             *gorm.DB
	genID          *snowflake.Node
	auditSvc       auditdomain.Service
	catalogSvc     catalogdomain.Service
	inventorySvc   inventorydomain.Service
	orderSvc       orderdomain.Service
	riskSvc        riskdomain.Service
	fulfillmentSvc fulfillmentdomain.Service
	limiter        *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	GenID          *snowflake.Node
	AuditSvc       auditdomain.Service
	CatalogSvc     catalogdomain.Service
	InventorySvc   inventorydomain.Service
	OrderSvc       orderdomain.Service
	RiskSvc        riskdomain.Service
	FulfillmentSvc fulfillmentdomain.Service
	Limiter        *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		db:             p.DB,
		genID:          p.GenID,
		auditSvc:       p.AuditSvc,
		catalogSvc:     p.CatalogSvc,
		inventorySvc:   p.InventorySvc,
		orderSvc:       p.OrderSvc,
		riskSvc:        p.RiskSvc,
		fulfillmentSvc: p.FulfillmentSvc,
		limiter:        p.Limiter,
	}

	svc.registerPublicRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	api := s.engine.Group("/api")

	api.GET("/items", s.ListItems)
	api.POST("/orders", s.CheckoutRateLimit(), s.CreateOrder)
	api.GET("/orders/:id", s.GetOrder)
	api.POST("/payments/callback", s.CheckoutRateLimit(), s.PaymentCallback)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AdminActor())

	admin.GET("/items", s.AdminListItems)
	admin.POST("/items", s.CreateItem)
	admin.GET("/items/:id", s.GetItem)
	admin.PATCH("/items/:id", s.UpdateItem)
	admin.GET("/items/:id/stock", s.GetStock)
	admin.POST("/items/:id/stock", s.AddStock)
	admin.DELETE("/items/:id/stock/:unit_id", s.DeleteStockUnit)

	admin.GET("/orders", s.ListOrders)
	admin.GET("/orders/:id", s.GetOrder)
	admin.POST("/orders/:id/approve", s.ApproveOrder)
	admin.POST("/orders/:id/assign-stock", s.AssignStock)
	admin.POST("/orders/:id/refund", s.RefundOrder)
	admin.POST("/orders/:id/verify", s.VerifyOrder)

	admin.GET("/risk/settings", s.GetRiskSettings)
	admin.PUT("/risk/settings", s.UpdateRiskSettings)
	admin.GET("/risk/denylist", s.ListDenylist)
	admin.POST("/risk/denylist", s.AddDenylistEntry)
	admin.DELETE("/risk/denylist/:id", s.RemoveDenylistEntry)

	admin.GET("/audit-logs", s.ListAuditLogs)
}

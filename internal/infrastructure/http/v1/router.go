package v1

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"coffeetrace/internal/domain/activity"
	"coffeetrace/internal/domain/documents/blend"
	"coffeetrace/internal/domain/documents/contract"
	"coffeetrace/internal/domain/documents/dispatch"
	"coffeetrace/internal/domain/documents/receipt"
	"coffeetrace/internal/domain/documents/threshing"
	"coffeetrace/internal/domain/documents/yield"
	"coffeetrace/internal/domain/reports"
	"coffeetrace/internal/infrastructure/http/v1/handlers"
	"coffeetrace/internal/infrastructure/http/v1/middleware"
	"coffeetrace/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// StoreDriver and Ping back the health endpoints
	StoreDriver string
	Ping        func(ctx context.Context) error

	// AllowedOrigins for CORS; "*" allows any origin
	AllowedOrigins []string

	// RateLimit is applied per client IP to the API group
	RateLimit middleware.RateLimitConfig

	Receipts   *receipt.Service
	Runs       *yield.Service
	Lots       *contract.Service
	Threshing  *threshing.Service
	Blends     *blend.Service
	Dispatches *dispatch.Service
	Activity   *activity.Log
	Reports    *reports.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!). ErrorHandler wraps Recovery so
	// recovered panics are still rendered.
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	healthHandler := handlers.NewHealthHandler(cfg.StoreDriver, cfg.Ping)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	if cfg.RateLimit.RPS > 0 && cfg.RateLimit.Burst > 0 {
		v1.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit)))
	}
	v1.Use(middleware.UserContext())
	{
		registerDocumentRoutes(v1, cfg)
		registerRunRoutes(v1, cfg)
		registerReportRoutes(v1, cfg)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders,
		"Authorization",
		middleware.HeaderRequestID,
		middleware.HeaderTraceID,
		middleware.HeaderUserID,
		middleware.HeaderUserRoles,
	)
	c.ExposeHeaders = []string{middleware.HeaderRequestID, middleware.HeaderTraceID}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}

// registerDocumentRoutes registers document endpoints.
func registerDocumentRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	history := handlers.NewActivityHandler(baseHandler, cfg.Activity)

	RegisterDocumentRoutes(rg.Group("/receipts"),
		handlers.NewReceiptHandler(baseHandler, cfg.Receipts), history.For(receipt.EntityName))

	RegisterDocumentRoutes(rg.Group("/contract-lots"),
		handlers.NewLotHandler(baseHandler, cfg.Lots), nil)

	threshingHandler := handlers.NewThreshingHandler(baseHandler, cfg.Threshing)
	threshingGroup := rg.Group("/threshing-orders")
	RegisterDocumentRoutes(threshingGroup, threshingHandler, history.For(threshing.EntityName))
	threshingGroup.GET("/:id/settlement", threshingHandler.Settlement)

	RegisterDocumentRoutes(rg.Group("/blends"),
		handlers.NewBlendHandler(baseHandler, cfg.Blends), history.For(blend.EntityName))

	RegisterDocumentRoutes(rg.Group("/dispatches"),
		handlers.NewDispatchHandler(baseHandler, cfg.Dispatches), history.For(dispatch.EntityName))
}

// registerRunRoutes registers yield/reprocess run and vignette endpoints.
func registerRunRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	runHandler := handlers.NewRunHandler(baseHandler, cfg.Runs)
	history := handlers.NewActivityHandler(baseHandler, cfg.Activity)

	runs := rg.Group("/runs/:kind")
	{
		runs.GET("", runHandler.List)
		runs.POST("", runHandler.Create)
		runs.GET("/:id", runHandler.Get)
		runs.GET("/:id/history", history.ForParam("kind"))
	}

	vignettes := rg.Group("/vignettes")
	{
		vignettes.GET("/available", runHandler.AvailableVignettes)
		vignettes.GET("/:id", runHandler.GetVignette)
	}
}

// registerReportRoutes registers report endpoints.
func registerReportRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	baseHandler := handlers.NewBaseHandler()
	reportHandler := handlers.NewReportsHandler(baseHandler, cfg.Reports)

	reportsGroup := rg.Group("/reports")
	reportsGroup.GET("/integrity", reportHandler.GetIntegrity)
	reportsGroup.GET("/stock", reportHandler.GetStock)
}

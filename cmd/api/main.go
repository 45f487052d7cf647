// main.go - The entry point and router setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosocmputer/product_label_matcher/configs"
	"github.com/bosocmputer/product_label_matcher/internal/api"
	"github.com/bosocmputer/product_label_matcher/internal/bootstrap"
	"github.com/bosocmputer/product_label_matcher/internal/common"
	"github.com/bosocmputer/product_label_matcher/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Step 0: Load configuration from environment variables
	if err := configs.LoadConfig(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := common.NewLogger(configs.LOG_LEVEL, configs.GIN_MODE != "release")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if configs.GIN_MODE == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 1: Create the UPLOAD_DIR folder if it doesn't exist
	if err := os.MkdirAll(configs.UPLOAD_DIR, 0755); err != nil {
		logger.Fatal("failed to create upload directory", zap.Error(err))
	}

	// Step 2: Catalog and providers
	services, err := bootstrap.NewServices(context.Background(), logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	// Load the catalog up front so a bad source fails at startup
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), time.Minute)
	if _, err := services.Catalog.Get(loadCtx); err != nil {
		cancelLoad()
		logger.Fatal("failed to load product catalog", zap.Error(err))
	}
	cancelLoad()

	// Step 3: Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.LoggerMiddleware(logger))
	router.Use(metrics.GinMiddleware())
	router.Use(api.CORSMiddleware(configs.ALLOWED_ORIGINS))

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := api.NewHandler(services.Catalog, services.Deps, services.Options, configs.UPLOAD_DIR, logger)
	handler.Register(router)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + configs.PORT,
		Handler:        router,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   6 * time.Minute, // verification runs several model calls per product
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("generation_provider", configs.GENERATION_PROVIDER),
			zap.String("ocr_provider", configs.OCR_PROVIDER),
			zap.String("catalog", configs.CATALOG_SOURCE),
		)
		logger.Info("API endpoints",
			zap.Strings("routes", []string{
				"POST /api/v1/resolve",
				"POST /api/v1/resolve/verify",
				"POST /api/v1/resolve/text",
				"GET /health",
				"GET /metrics",
			}),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

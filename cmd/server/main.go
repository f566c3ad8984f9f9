package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"fraudscope/internal/charts"
	"fraudscope/internal/config"
	"fraudscope/internal/handler"
	"fraudscope/internal/monitoring"
	"fraudscope/internal/repository"
	"fraudscope/internal/storage"
	"fraudscope/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *zap.Logger
	if cfg.Logging.Development {
		log = logger.NewDevelopmentLogger("fraudscope")
	} else {
		log = logger.NewLogger("fraudscope", cfg.Logging.Level)
	}
	defer log.Sync()

	store, err := storage.New(cfg.Storage.UploadDir, cfg.Storage.OutputDir)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}

	runRepo, err := repository.NewRunRepository(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatal("failed to open run database", zap.Error(err))
	}

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	renderer := charts.NewRenderer(store)
	analysisHandler := handler.NewAnalysisHandler(cfg.Engine, store, renderer, runRepo, metrics, log)

	router := setupRouter(analysisHandler, cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("starting fraudscope server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

func setupRouter(h *handler.AnalysisHandler, maxUploadBytes int64) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.MaxMultipartMemory = maxUploadBytes

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", h.Analyze)
		v1.GET("/runs", h.ListRuns)
		v1.GET("/runs/:id", h.GetRun)
	}

	router.GET("/outputs/:filename", h.ServeOutput)

	return router
}

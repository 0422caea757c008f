package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/let-the-dreamers-rise/approval-rationale-tracker/config"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/handler"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/middleware"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/id"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/kvstore"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/pkg/logger"
	"github.com/let-the-dreamers-rise/approval-rationale-tracker/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server exited gracefully")
}

func run() error {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	slog.Info("configuration loaded successfully", "store", cfg.Store.Driver, "documents", cfg.Mineru.Enabled())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cockpit := service.NewCockpitStore()
	kv := openStore(ctx, cfg, cockpit)
	defer func() {
		if err := kv.Close(); err != nil {
			slog.Error("failed to close store", "error", err)
		}
	}()

	persister := service.NewPersister(kv, cfg.Store.Key, cockpit)
	if err := persister.Restore(ctx); err != nil {
		slog.Warn("continuing without the saved cockpit", "error", err)
	}

	ids, err := id.NewGenerator(cfg.NodeID)
	if err != nil {
		return err
	}

	var (
		extractor service.DocumentTextExtractor
		mineruSvc *service.MineruService
	)
	if cfg.Mineru.Enabled() {
		minioSvc, err := service.NewMinioService(&cfg.Minio)
		if err != nil {
			return fmt.Errorf("initialize MINIO service: %w", err)
		}
		if err := minioSvc.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure MINIO bucket: %w", err)
		}
		mineruSvc = service.NewMineruService(&cfg.Mineru)
		extractor = service.NewMineruExtractor(minioSvc, mineruSvc, cfg.Extraction)
	} else {
		slog.Info("document import disabled, MinerU is not configured")
	}

	importer := service.NewImporter(cockpit, extractor, ids)
	defer importer.Close()

	router := newRouter(cfg, cockpit, importer, mineruSvc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore opens the configured snapshot store. When it is unreachable the cockpit
// runs on an in-memory store and says so.
func openStore(ctx context.Context, cfg *config.Config, cockpit *service.CockpitStore) kvstore.Store {
	kv, err := kvstore.Open(ctx, kvstore.Config{
		Driver:   cfg.Store.Driver,
		Path:     cfg.Store.Path,
		RedisURL: cfg.Store.RedisURL,
	})
	if err != nil {
		slog.Error("failed to open store, falling back to memory", "driver", cfg.Store.Driver, "error", err)
		service.MarkUnavailable(cockpit)
		return kvstore.NewMemory()
	}
	return kv
}

func newRouter(cfg *config.Config, cockpit *service.CockpitStore, importer *service.Importer, mineruSvc *service.MineruService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	router.Use(middleware.RequestID())     // Request ID for tracing
	router.Use(middleware.Recovery())      // Panic recovery
	router.Use(middleware.RequestLogger()) // Access logging
	router.Use(corsMiddleware())
	router.Use(cacheMiddleware())
	router.Use(middleware.RateLimit(cfg.Server.RateLimitPerMinute, time.Minute))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	handler.NewCockpitHandler(cockpit, importer, cfg.Extraction.MaxUploadBytes).Register(api)
	if mineruSvc != nil {
		api.POST("/mineru/callback", handler.NewCallbackHandler(mineruSvc).HandleCallback)
	}

	if dir := cfg.Server.StaticDir; dir != "" {
		if _, err := os.Stat(filepath.Join(dir, "index.html")); err == nil {
			slog.Info("serving static files", "directory", dir)
			router.StaticFile("/", filepath.Join(dir, "index.html"))
			router.Static("/static", dir)
		} else {
			slog.Warn("static directory has no index.html, not serving it", "directory", dir)
		}
	}

	return router
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheMiddleware keeps API responses out of caches
func cacheMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/api") {
			c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
			return
		}

		if strings.HasSuffix(path, ".js") ||
			strings.HasSuffix(path, ".css") ||
			strings.HasSuffix(path, ".html") ||
			path == "/" {
			c.Header("Cache-Control", "public, max-age=3600, must-revalidate")
		}

		c.Next()
	}
}

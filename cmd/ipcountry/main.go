package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TomasB/ipcountry/internal/config"
	"github.com/TomasB/ipcountry/internal/countries"
	"github.com/TomasB/ipcountry/internal/data"
	"github.com/TomasB/ipcountry/internal/geo"
	grpchandler "github.com/TomasB/ipcountry/internal/handler/grpc"
	"github.com/TomasB/ipcountry/internal/handler/health"
	"github.com/TomasB/ipcountry/internal/handler/lookup"
	"github.com/TomasB/ipcountry/internal/metrics"
	"github.com/gin-gonic/gin"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("service starting", "log_level", cfg.LogLevel.String())

	// Set Gin mode based on log level
	if cfg.LogLevel == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Load MaxMind MMDB
	reader, err := data.NewMmdbReader(cfg.MMDBPath)
	if err != nil {
		slog.Error("failed to open MMDB", "path", cfg.MMDBPath, "error", err)
		os.Exit(1)
	}
	defer reader.Close()

	slog.Info("MMDB loaded", "path", cfg.MMDBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MMDBWatch {
		watcher, err := data.NewWatcher(reader, cfg.MMDBPath)
		if err != nil {
			slog.Warn("MMDB hot reload disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	svc := geo.NewService(reader, countries.NewTable())
	m := metrics.New()

	// Create Gin router
	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	health.NewHandler(map[string]health.Checker{"mmdb": reader.Ready}).Register(router)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	lookup.NewHandler(svc, lookup.WithMetrics(m)).Register(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("service started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	var stopGRPC func()
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			slog.Error("failed to listen for gRPC", "port", cfg.GRPCPort, "error", err)
			os.Exit(1)
		}

		grpcSrv, healthSrv := grpchandler.NewServer(grpchandler.NewHandler(svc, m), logger)
		stopGRPC = func() {
			healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			grpcSrv.GracefulStop()
		}

		go func() {
			slog.Info("gRPC service started", "port", cfg.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server failed", "error", err)
				os.Exit(1)
			}
		}()
	}

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("service shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if stopGRPC != nil {
		stopGRPC()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("service stopped")
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		attrs := []any{
			"method", method,
			"path", path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		} else if statusCode >= 500 {
			logger.Error("request completed", attrs...)
		} else if statusCode >= 400 {
			logger.Warn("request completed", attrs...)
		} else {
			logger.Info("request completed", attrs...)
		}
	}
}

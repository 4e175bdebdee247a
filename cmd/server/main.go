package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	otelapi "go.opentelemetry.io/otel"

	"accountability.app/coachflow/common/id"
	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/common/otel"
	"accountability.app/coachflow/core/config"
	"accountability.app/coachflow/core/db"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/http/middleware"
	httprouter "accountability.app/coachflow/internal/http/router"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/service"
	"accountability.app/coachflow/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "coachflow starting",
		"env", cfg.Env,
		"service", cfg.OTel.ServiceName,
		"store", cfg.Store.Backend)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	deps := service.Deps{}
	var readiness []func(context.Context) error

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		deps.Sessions = store.NewMemorySessionStore()
		slog.WarnContext(ctx, "using in-memory session store; data is lost on restart")
	default:
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer database.Close()
		slog.InfoContext(ctx, "database connected")
		readiness = append(readiness, database.Ping)
		deps.Sessions = store.NewStores(database.Queries()).Sessions()
	}

	var feed changefeed.Reader
	if cfg.Redis.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		readiness = append(readiness, func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
		slog.InfoContext(ctx, "redis connected",
			"change_stream", cfg.Redis.ChangeStream,
			"analysis_stream", cfg.Redis.AnalysisStream)

		redisFeed := changefeed.NewRedisFeed(redisClient, cfg.Redis.ChangeStream, cfg.Redis.ChangeMaxLen)
		deps.Publisher = redisFeed
		deps.Producer = queue.NewRedisProducer(redisClient, cfg.Redis.AnalysisStream, slog.Default())
		feed = redisFeed
	} else {
		slog.WarnContext(ctx, "redis disabled; change feed and analysis queue unavailable")
	}

	metrics, err := service.NewMetrics(otelapi.Meter("coachflow"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create metrics", "error", err)
		os.Exit(1)
	}
	deps.Metrics = metrics

	services := service.NewServices(deps)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, httprouter.RouterConfig{
		Feed:            feed,
		AnalysisEnabled: deps.Producer != nil,
		Ready: func(ctx context.Context) error {
			for _, check := range readiness {
				if err := check(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No WriteTimeout: the change stream holds responses open.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, routes httprouter.RouterConfig) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.TraceID(cfg.TraceHeaderName))
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, routes)

	return router
}

const banner = `
  ___  ___   _    ___ _  _ ___ _    _____      __
 / __|/ _ \ /_\  / __| || | __| |  / _ \ \    / /
| (__| (_) / _ \| (__| __ | _|| |_| (_) \ \/\/ /
 \___|\___/_/ \_\\___|_||_|_| |____\___/ \_/\_/
`

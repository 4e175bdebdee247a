package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	otelapi "go.opentelemetry.io/otel"

	"accountability.app/coachflow/common/id"
	"accountability.app/coachflow/common/llm"
	"accountability.app/coachflow/common/logger"
	"accountability.app/coachflow/common/otel"
	"accountability.app/coachflow/core/config"
	"accountability.app/coachflow/core/db"
	"accountability.app/coachflow/internal/analysis"
	"accountability.app/coachflow/internal/changefeed"
	"accountability.app/coachflow/internal/queue"
	"accountability.app/coachflow/internal/service"
	"accountability.app/coachflow/internal/store"
	"accountability.app/coachflow/internal/worker"
)

const maxAttempts = 3

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "coachflow worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Redis.AnalysisGroup,
		"consumer_name", cfg.Redis.Consumer,
		"model", cfg.AnalysisLLM.Model)

	// Node id must differ from the server's so snowflake ids never collide.
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

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
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Redis.AnalysisStream)

	llmClient, err := llm.New(llm.Config{
		APIKey:    cfg.AnalysisLLM.APIKey,
		BaseURL:   cfg.AnalysisLLM.BaseURL,
		Model:     cfg.AnalysisLLM.Model,
		MaxTokens: cfg.AnalysisLLM.MaxTokens,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create llm client", "error", err)
		os.Exit(1)
	}

	metrics, err := service.NewMetrics(otelapi.Meter("coachflow"))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create metrics", "error", err)
		os.Exit(1)
	}

	services := service.NewServices(service.Deps{
		Sessions:  store.NewStores(database.Queries()).Sessions(),
		Publisher: changefeed.NewRedisFeed(redisClient, cfg.Redis.ChangeStream, cfg.Redis.ChangeMaxLen),
		Generator: analysis.NewLLMGenerator(llmClient),
		Metrics:   metrics,
	})

	consumer, err := queue.NewRedisConsumer(ctx, redisClient, queue.ConsumerConfig{
		Stream:       cfg.Redis.AnalysisStream,
		Group:        cfg.Redis.AnalysisGroup,
		Consumer:     cfg.Redis.Consumer,
		DLQStream:    cfg.Redis.AnalysisDLQ,
		BatchSize:    1, // One LLM call at a time
		Block:        5 * time.Second,
		MaxAttempts:  maxAttempts,
		RequeueDelay: 2 * time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, services.Analysis(), worker.Config{
		MaxAttempts: maxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Redis.AnalysisStream,
		Group:     cfg.Redis.AnalysisGroup,
		Consumer:  cfg.Redis.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
		// Deliveries, not attempts: each one means a worker died mid-job.
		MaxDeliveries: maxAttempts + 2,
	}, consumer, w)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Reclaimer first; the worker may be mid-analysis.
	reclaimer.Stop()
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
  ___  ___   _    ___ _  _ ___ _    _____      __ __      _____  ___ _  _____ ___
 / __|/ _ \ /_\  / __| || | __| |  / _ \ \    / / \ \    / / _ \| _ \ |/ / __| _ \
| (__| (_) / _ \| (__| __ | _|| |_| (_) \ \/\/ /   \ \/\/ / (_) |   / ' <| _||   /
 \___|\___/_/ \_\\___|_||_|_| |____\___/ \_/\_/     \_/\_/ \___/|_|_\_|\_\___|_|_\
`

package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/voicepost-platform/voicepost/internal/api"
	"github.com/voicepost-platform/voicepost/internal/audit"
	"github.com/voicepost-platform/voicepost/internal/config"
	"github.com/voicepost-platform/voicepost/internal/contextstore"
	"github.com/voicepost-platform/voicepost/internal/credentials"
	"github.com/voicepost-platform/voicepost/internal/database"
	"github.com/voicepost-platform/voicepost/internal/events"
	"github.com/voicepost-platform/voicepost/internal/generation"
	"github.com/voicepost-platform/voicepost/internal/middleware"
	"github.com/voicepost-platform/voicepost/internal/pipeline"
	"github.com/voicepost-platform/voicepost/internal/publisher"
	iredis "github.com/voicepost-platform/voicepost/internal/redis"
	"github.com/voicepost-platform/voicepost/internal/schedule"
	"github.com/voicepost-platform/voicepost/internal/scoring"
	"github.com/voicepost-platform/voicepost/internal/server"
	"github.com/voicepost-platform/voicepost/internal/speech"
)

// sampleContexts seed the retrieval index on first boot so early requests
// have something to match against.
var sampleContexts = []string{
	"Excited to announce our new product launch! 🚀 #innovation",
	"Just finished an amazing team offsite. Grateful for this crew. #teamwork",
	"Sharing some thoughts on the future of voice interfaces in social media.",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("running migrations", "error", err)
		os.Exit(1)
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS is optional; without it events are dropped and audit is disabled.
	var natsClient *events.Client
	var eventPublisher *events.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		eventPublisher = events.NewPublisher(natsClient.JetStream())

		auditConsumer := audit.NewConsumer(
			audit.NewRepository(pool),
			events.NewConsumerManager(natsClient.JetStream()),
		)
		go func() {
			if err := auditConsumer.Start(ctx); err != nil {
				slog.Error("audit consumer stopped", "error", err)
			}
		}()
	}

	// Credentials
	credSvc, err := credentials.NewService(credentials.NewPostgresRepository(pool), cfg.Encryption.Key)
	if err != nil {
		slog.Error("creating credentials service", "error", err)
		os.Exit(1)
	}
	credHandler := credentials.NewHandler(credSvc)

	// Context retrieval index
	contextSvc := contextstore.NewService(
		contextstore.NewPostgresRepository(pool),
		contextstore.NewGeminiEmbedder(cfg.Gemini),
	)
	contextHandler := contextstore.NewHandler(contextSvc)
	seedCtx, cancelSeed := context.WithTimeout(ctx, 30*time.Second)
	contextSvc.SeedSamples(seedCtx, sampleContexts)
	cancelSeed()

	// Publishing
	registry := publisher.NewRegistry(publisher.NewServiceCredentials(credSvc), slog.Default())

	// Scheduler
	clock := clockwork.NewRealClock()
	scheduler := schedule.NewScheduler(clock, slog.Default(), eventPublisher)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Pipeline
	loc, err := time.LoadLocation(cfg.Pipeline.DefaultTimezone)
	if err != nil {
		slog.Error("loading pipeline timezone", "error", err, "timezone", cfg.Pipeline.DefaultTimezone)
		os.Exit(1)
	}
	gate := pipeline.NewGate(
		scoring.NewEvaluator(scoring.DefaultPolicy()),
		schedule.NewParser(loc),
		scheduler,
		registry,
		eventPublisher,
		clock,
		slog.Default(),
	)
	pipe := pipeline.NewPipeline(
		speech.NewDeepgramTranscriber(cfg.Deepgram),
		contextSvc,
		generation.NewGeminiGenerator(cfg.Gemini, generation.NewNewsEnricher(cfg.News.APIKey)),
		gate,
		cfg.Pipeline.TopK,
		slog.Default(),
	)
	pipeHandler := pipeline.NewHandler(pipe, gate, scheduler, registry)

	// Router
	limiter := middleware.NewRateLimiter(redisClient, cfg.Pipeline.RateLimitMax, cfg.Pipeline.RateLimitWindow)
	router := api.NewRouter(pool, natsClient,
		api.RouterConfig{
			CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
			GenerateRateLimit:  limiter.Middleware,
		},
		api.HandlerSet{
			GeneratePost: pipeHandler.GeneratePost,
			ConfirmPost:  pipeHandler.ConfirmPost,

			ListScheduled:  pipeHandler.ListScheduled,
			CancelSchedule: pipeHandler.CancelSchedule,

			SaveKeys: credHandler.SaveKeys,

			AddContext: contextHandler.AddTexts,

			SchedulerRunning: scheduler.Running,
		})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"signal-engine/config"
	"signal-engine/internal/api"
	"signal-engine/internal/confidence"
	"signal-engine/internal/invalidation"
	"signal-engine/internal/logging"
	"signal-engine/internal/pipeline"
	"signal-engine/internal/risk"
	sig "signal-engine/internal/signal"
	"signal-engine/internal/snapshot"
	"signal-engine/internal/target"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.JSONFormat,
	})
	logger.Info().Msg("Configuration loaded")

	// Optional shared snapshot store.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	snapshots := snapshot.NewRedisProvider(redisClient, logger)

	// Delegate implementations.
	bounce := target.NewBounceCalculator()
	dynamic := target.NewDynamicCalculator()
	scorer := confidence.NewConfluenceScorer()
	generator := invalidation.NewGenerator()

	// Pipeline stages.
	normalizer := sig.NewNormalizer(logger)
	synthesizer := sig.NewInvalidationSynthesizer(generator, logger)

	stopConfig := risk.DefaultStopConfig()
	stopConfig.WickBufferPercent = cfg.Pipeline.WickBufferPercent
	stopConfig.FallbackPercent = cfg.Pipeline.FallbackStopPercent
	stops := risk.NewStopLossSizer(stopConfig, bounce, logger)

	positionConfig := risk.DefaultPositionConfig()
	positionConfig.EqualCapitalPerSignal = cfg.Pipeline.EqualCapitalPerSignal
	positionConfig.RiskPercent = cfg.Pipeline.RiskPercent
	positionConfig.Leverage = cfg.Pipeline.Leverage
	position := risk.NewPositionSizer(positionConfig, logger)

	tpConfig := risk.DefaultTakeProfitConfig()
	tpConfig.MinAITargetMovePercent = cfg.Pipeline.MinAITargetMovePercent
	tpConfig.MaxAITargetMovePercent = cfg.Pipeline.MaxAITargetMovePercent
	takeProfit := risk.NewTakeProfitCalculator(tpConfig, dynamic, bounce, cfg, logger)

	finalizer := confidence.NewFinalizer(scorer, logger)

	pipe := pipeline.New(normalizer, synthesizer, stops, position, takeProfit, finalizer, logger)

	server := api.NewServer(api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		ShutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}, pipe, snapshots, snapshots, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}

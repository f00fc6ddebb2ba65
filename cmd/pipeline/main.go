package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoetl/config"
	"cryptoetl/internal/crypto/pipeline"
	"cryptoetl/internal/crypto/schedule"
	"cryptoetl/logger"
	"cryptoetl/pkg/coingecko"
	"cryptoetl/pkg/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default: search ../config)")
	once := flag.Bool("once", false, "run the pipeline a single time and exit")
	flag.Parse()

	// viper config
	var cfg *config.Config
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFrom(*configPath); err != nil {
			panic("failed to load config: " + err.Error())
		}
	} else {
		cfg = config.Load()
	}

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	if err := run(cfg, log, *once); err != nil {
		log.Error("pipeline exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// run owns every resource that must be released before the process exits.
func run(cfg *config.Config, log *zap.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// sink connection
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	postgresClient, err := postgres.InitializePriceHistory(initCtx, cfg.Postgres, cfg.Environment)
	if err != nil {
		return fmt.Errorf("initialize price history store: %w", err)
	}
	defer postgresClient.Close()

	if !postgresClient.IsHealthy(initCtx) {
		return errors.New("price history store failed health check")
	}
	log.Info("price history store ready", zap.String("table", postgres.PriceHistoryTable))

	// fetch connection
	restClient := coingecko.NewRESTClient(coingecko.Options{
		BaseURL:           cfg.CoinGecko.REST.BaseURL,
		Timeout:           cfg.CoinGecko.REST.Timeout,
		APIKey:            cfg.CoinGecko.REST.ResolveAPIKey(cfg.Environment),
		APIKeyHeader:      cfg.CoinGecko.REST.APIKeyHeader,
		RequestsPerMinute: cfg.CoinGecko.REST.RequestsPerMinute,
	})

	p := pipeline.New(pipeline.Options{
		AssetID:    cfg.Pipeline.AssetID,
		Currency:   cfg.Pipeline.Currency,
		RunTimeout: cfg.Pipeline.RunTimeout,
	}, restClient, postgresClient, log)

	if once {
		if err := p.RunOnce(ctx); err != nil {
			return err
		}
		if n, err := postgresClient.CountPriceRows(ctx, cfg.Pipeline.AssetID); err == nil {
			log.Info("price history rows", zap.String("asset_id", cfg.Pipeline.AssetID), zap.Int64("count", n))
		}
		return nil
	}

	scheduler := &schedule.Scheduler{
		Interval:   cfg.Pipeline.Schedule.Interval,
		RunOnStart: cfg.Pipeline.Schedule.RunOnStart,
		Job:        p.RunOnce,
		Logger:     log,
	}
	scheduler.Run(ctx)
	return nil
}

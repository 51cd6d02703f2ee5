/*
Copyright 2026 Prameya LLC.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command ingest is the run driver CLI: it parses flags, wires the
// core's collaborators together, runs once, and exits. All
// business logic lives in pkg/runner and its collaborators; main does
// nothing but flag-parse, wire, and call in.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/prameyallc/congress-ingest/internal/config"
	"github.com/prameyallc/congress-ingest/internal/logging"
	"github.com/prameyallc/congress-ingest/internal/runlog"
	"github.com/prameyallc/congress-ingest/pkg/congressapi"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/governor"
	"github.com/prameyallc/congress-ingest/pkg/metrics"
	"github.com/prameyallc/congress-ingest/pkg/runner"
	"github.com/prameyallc/congress-ingest/pkg/store"
	"github.com/prameyallc/congress-ingest/pkg/store/dynamo"
	"github.com/prameyallc/congress-ingest/pkg/traversal"
	"github.com/prameyallc/congress-ingest/pkg/writer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  = pflag.String("config", "config.yaml", "path to the YAML config file")
		mode        = pflag.String("mode", "incremental", "run mode: incremental, refresh, or bulk")
		from        = pflag.String("from", "", "window start date (YYYY-MM-DD), required for refresh/bulk")
		to          = pflag.String("to", "", "window end date (YYYY-MM-DD), required for refresh/bulk")
		lookback    = pflag.Int("lookback", 0, "lookback days for incremental mode; 0 uses the config default")
		familiesRaw = pflag.String("families", "", "comma-separated family tags; empty means all 18")
		metricsPort = pflag.String("metrics-port", "9090", "port to serve /metrics and /health on")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	log := logging.NewLogr(zapLogger)

	req, err := buildRunRequest(*mode, *from, *to, *lookback, *familiesRaw, cfg)
	if err != nil {
		return fmt.Errorf("build run request: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetricsWithRegistry(registry)

	metricsServer := metrics.NewServer(*metricsPort, registry, zapLogger)
	metricsServer.StartAsync()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Stop(shutdownCtx)
	}()

	gov := governor.New(cfg.API.RateLimit.RequestsPerSecond, endpointRates(cfg))

	client := congressapi.New(congressapi.Config{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.APIKey,
		FamilyTimeouts: familyTimeouts(cfg),
	})

	st, err := buildStore(cfg, log)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}

	rl := buildRunlog(cfg, zapLogger)

	r := runner.New(client, gov, st, m, log, runner.Config{
		MaxWorkers:          cfg.Ingest.Parallel.MaxWorkers,
		ChunkSize:           cfg.Ingest.Parallel.ChunkSize,
		MaxRangeDays:        cfg.Ingest.DateRanges.MaxRangeDays,
		MinDate:             cfg.Ingest.DateRanges.MinDate,
		DefaultLookbackDays: cfg.Ingest.DefaultLookbackDays,
		ResetFrequency:      cfg.Store.Deduplication.ResetFrequency,
		MemoryThresholdMB:   cfg.Store.Deduplication.MemoryThresholdMB,
		BatchSize:           cfg.Ingest.BatchSize,
		Traversal:           traversal.Config{MaxRangeDays: cfg.Ingest.DateRanges.MaxRangeDays},
		Writer:              writer.Config{BatchSize: cfg.Ingest.BatchSize, MaxRetries: cfg.API.RateLimit.MaxRetries},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	report := r.Run(ctx, req)
	finishedAt := time.Now()

	if err := rl.Record(context.Background(), string(req.Mode), startedAt, finishedAt, report); err != nil {
		log.Error(err, "failed to persist run log entry")
	}

	log.Info("run complete", "terminal", report.Terminal, "stored", report.Totals.Stored, "duration", finishedAt.Sub(startedAt))

	if report.Terminal == runner.TerminalFailed {
		return fmt.Errorf("run terminated with status %q", report.Terminal)
	}
	return nil
}

func buildRunRequest(mode, from, to string, lookback int, familiesRaw string, cfg *config.Config) (runner.RunRequest, error) {
	req := runner.RunRequest{
		Mode:     runner.Mode(mode),
		Lookback: lookback,
	}
	if req.Lookback == 0 {
		req.Lookback = cfg.Ingest.DefaultLookbackDays
	}

	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return req, fmt.Errorf("invalid --from: %w", err)
		}
		req.From = t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return req, fmt.Errorf("invalid --to: %w", err)
		}
		req.To = t
	}

	if familiesRaw != "" {
		for _, tag := range strings.Split(familiesRaw, ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if !family.Valid(family.Tag(tag)) {
				return req, fmt.Errorf("unknown family tag %q", tag)
			}
			req.Families = append(req.Families, family.Tag(tag))
		}
	}

	return req, nil
}

func endpointRates(cfg *config.Config) map[family.Tag]float64 {
	rates := make(map[family.Tag]float64, len(cfg.API.EndpointRateLimits))
	for k, v := range cfg.API.EndpointRateLimits {
		rates[family.Tag(k)] = v
	}
	return rates
}

func familyTimeouts(cfg *config.Config) map[family.Tag]congressapi.TimeoutPair {
	timeouts := make(map[family.Tag]congressapi.TimeoutPair, len(cfg.API.TimeoutConfig))
	for k, v := range cfg.API.TimeoutConfig {
		timeouts[family.Tag(k)] = congressapi.TimeoutPair{Connect: v.Connect, Read: v.Read}
	}
	return timeouts
}

func buildStore(cfg *config.Config, log logr.Logger) (store.Store, error) {
	ctx := context.Background()
	client, err := dynamo.NewClient(ctx, cfg.Store.Region, "")
	if err != nil {
		return nil, fmt.Errorf("build dynamodb client: %w", err)
	}
	return dynamo.New(client, cfg.Store.TableName, log), nil
}

func buildRunlog(cfg *config.Config, zapLogger *zap.Logger) *runlog.Store {
	if cfg.Runlog.DSNEnvVar == "" {
		return nil
	}
	dsn := os.Getenv(cfg.Runlog.DSNEnvVar)
	if dsn == "" {
		return nil
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		zapLogger.Error("failed to open run-history database", zap.Error(err))
		return nil
	}
	if err := runlog.Migrate(sqlDB); err != nil {
		zapLogger.Error("failed to migrate run-history schema", zap.Error(err))
		return nil
	}
	return runlog.New(sqlx.NewDb(sqlDB, "pgx"), logging.NewLogr(zapLogger))
}

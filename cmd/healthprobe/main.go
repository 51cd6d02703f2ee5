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

// Command healthprobe is a standalone liveness check: it
// verifies the store table and upstream API are reachable, reports the
// last recorded run from internal/runlog if configured, and posts a
// Slack alert via internal/notify when either check fails.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/prameyallc/congress-ingest/internal/config"
	"github.com/prameyallc/congress-ingest/internal/logging"
	"github.com/prameyallc/congress-ingest/internal/notify"
	"github.com/prameyallc/congress-ingest/internal/runlog"
	"github.com/prameyallc/congress-ingest/pkg/congressapi"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/store"
	"github.com/prameyallc/congress-ingest/pkg/store/dynamo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := "config.yaml"
	if v := os.Getenv("CONGRESS_CONFIG"); v != "" {
		configPath = v
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zapLogger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zapLogger.Sync() //nolint:errcheck
	log := logging.NewLogr(zapLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n := notify.New(cfg.Notify.SlackWebhookEnvVar)

	var problems []string

	if err := checkStore(ctx, cfg); err != nil {
		problems = append(problems, fmt.Sprintf("store: %v", err))
	}
	if err := checkUpstream(ctx, cfg); err != nil {
		problems = append(problems, fmt.Sprintf("upstream: %v", err))
	}

	if last, ok, err := lastRun(ctx, cfg); err != nil {
		log.Error(err, "failed to read last run from run history")
	} else if ok {
		log.Info("last recorded run", "startedAt", last.StartedAt, "finishedAt", last.FinishedAt, "terminal", last.Terminal, "mode", last.Mode)
	} else {
		log.Info("no run history recorded yet")
	}

	if len(problems) > 0 {
		for _, p := range problems {
			log.Info("health check failed", "problem", p)
		}
		if n.Enabled() {
			if err := n.Alert(fmt.Sprintf("healthprobe failed: %v", problems)); err != nil {
				log.Error(err, "failed to send health alert")
			}
		}
		return fmt.Errorf("healthprobe: %d check(s) failed: %v", len(problems), problems)
	}

	log.Info("healthprobe ok")
	return nil
}

func checkStore(ctx context.Context, cfg *config.Config) error {
	client, err := dynamo.NewClient(ctx, cfg.Store.Region, "")
	if err != nil {
		return fmt.Errorf("build dynamodb client: %w", err)
	}
	st := dynamo.New(client, cfg.Store.TableName, logr.Discard())

	status, err := st.DescribeTable(ctx, cfg.Store.TableName)
	if err != nil {
		return err
	}
	if status != store.TableExists {
		return fmt.Errorf("table %q is %s", cfg.Store.TableName, status)
	}
	return nil
}

// checkUpstream probes the Congress.gov API with a single, minimal
// bill-family page fetch. It exercises the same client/circuit-breaker
// path the run driver uses, at the smallest possible cost.
func checkUpstream(ctx context.Context, cfg *config.Config) error {
	client := congressapi.New(congressapi.Config{
		BaseURL: cfg.API.BaseURL,
		APIKey:  cfg.API.APIKey,
	})

	to := time.Now().UTC()
	from := to.Add(-24 * time.Hour)

	_, outcome, _, err := client.ListWindow(ctx, family.Bill, from, to, 0, 1)
	if err != nil {
		return fmt.Errorf("%s: %w", outcome, err)
	}
	return nil
}

func lastRun(ctx context.Context, cfg *config.Config) (runlog.Entry, bool, error) {
	if cfg.Runlog.DSNEnvVar == "" {
		return runlog.Entry{}, false, nil
	}
	dsn := os.Getenv(cfg.Runlog.DSNEnvVar)
	if dsn == "" {
		return runlog.Entry{}, false, nil
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return runlog.Entry{}, false, fmt.Errorf("open run-history database: %w", err)
	}
	defer sqlDB.Close()

	st := runlog.New(sqlx.NewDb(sqlDB, "pgx"), logr.Discard())
	return st.Last(ctx)
}

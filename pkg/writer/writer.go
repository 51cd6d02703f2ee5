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

// Package writer implements the deduplicating batch writer: it skips
// records already offered to the store this run, groups survivors into
// storage-native batches, and retries transient batch failures with
// exponential backoff + jitter.
package writer

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"github.com/sethvargo/go-retry"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/dedup"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
)

// Config parameterizes the writer.
type Config struct {
	BatchSize  int // default 100
	MaxRetries int // default 5
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	return c
}

// Report summarizes one Write call's outcome, feeding the run report's
// per-family counters.
type Report struct {
	Stored            []string
	DuplicatesSkipped int
	Dropped           map[string]store.ItemOutcome // conditional_check_failed / validation_rejected_by_store
	Retries           int
}

// Writer batches and writes canonical records, deduplicating against a
// shared Set for the lifetime of a run.
type Writer struct {
	store store.Store
	dedup *dedup.Set
	log   logr.Logger
	cfg   Config
}

// New builds a Writer over the given store and shared dedup set.
func New(s store.Store, d *dedup.Set, log logr.Logger, cfg Config) *Writer {
	return &Writer{store: s, dedup: d, log: log, cfg: cfg.withDefaults()}
}

// Write skips records whose id is already in the dedup set or has
// already appeared earlier in recs, groups the survivors into batches
// of at most BatchSize, and writes each batch.
// A fatal per-item outcome (auth_failed, table_missing) aborts the
// remaining batches and is returned as an error; everything already
// written is still reflected in the returned Report.
func (w *Writer) Write(ctx context.Context, recs []*model.Record) (Report, error) {
	report := Report{Dropped: make(map[string]store.ItemOutcome)}

	survivors := make([]*model.Record, 0, len(recs))
	seenThisCall := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if _, dup := seenThisCall[rec.ID]; dup {
			report.DuplicatesSkipped++
			continue
		}
		seenThisCall[rec.ID] = struct{}{}

		if !w.dedup.CheckAndAdd(rec.ID) {
			report.DuplicatesSkipped++
			continue
		}
		survivors = append(survivors, rec)
	}

	for start := 0; start < len(survivors); start += w.cfg.BatchSize {
		end := start + w.cfg.BatchSize
		if end > len(survivors) {
			end = len(survivors)
		}
		batch := survivors[start:end]

		if err := w.writeBatch(ctx, batch, &report); err != nil {
			return report, err
		}
	}

	return report, nil
}

// writeBatch issues one batch, retrying throughput_exceeded/transient
// outcomes with exponential backoff + jitter up to MaxRetries,
// dropping conditional_check_failed/validation_rejected_by_store per
// item, and treating auth_failed/table_missing as fatal.
func (w *Writer) writeBatch(ctx context.Context, batch []*model.Record, report *Report) error {
	backoff := retry.NewExponential(w.cfg.BaseDelay)
	backoff = retry.WithMaxRetries(uint64(w.cfg.MaxRetries), backoff)
	backoff = retry.WithCappedDuration(w.cfg.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(10, backoff)

	pending := batch
	var fatalErr error

	retryErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, err := w.store.BatchPut(ctx, pending)
		if err != nil {
			report.Retries++
			return retry.RetryableError(err)
		}
		report.Stored = append(report.Stored, result.Stored...)

		var retryable []*model.Record
		for _, rec := range pending {
			outcome, failed := result.Failures[rec.ID]
			if !failed {
				continue
			}
			switch outcome {
			case store.ItemThroughputExceeded, store.ItemTransient, store.ItemTimeout:
				retryable = append(retryable, rec)
			case store.ItemConditionalCheckFailed, store.ItemValidationRejected:
				report.Dropped[rec.ID] = outcome
			case store.ItemAuthFailed, store.ItemTableMissing:
				fatalErr = apperrors.New(apperrors.ErrorTypePermanent, "fatal store outcome: "+string(outcome)).
					WithContext(string(rec.Type), "", rec.ID)
			}
		}
		if fatalErr != nil {
			return fatalErr
		}
		if len(retryable) > 0 {
			pending = retryable
			report.Retries++
			return retry.RetryableError(apperrors.New(apperrors.ErrorTypeTransient, "batch partially throughput-exceeded"))
		}
		return nil
	})

	if fatalErr != nil {
		return fatalErr
	}
	if retryErr != nil {
		w.log.Error(retryErr, "batch write exhausted retries", "batch_size", len(pending))
		return apperrors.Wrap(retryErr, apperrors.ErrorTypeTransient, "batch write exhausted retries")
	}
	return nil
}

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

// Package runner is the run driver: it partitions a RunRequest into
// per-family sub-windows, drives a fixed-size worker pool over them,
// and aggregates a structured RunReport.
package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/congressapi"
	"github.com/prameyallc/congress-ingest/pkg/dedup"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/governor"
	"github.com/prameyallc/congress-ingest/pkg/metrics"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
	"github.com/prameyallc/congress-ingest/pkg/traversal"
	"github.com/prameyallc/congress-ingest/pkg/validator"
	"github.com/prameyallc/congress-ingest/pkg/writer"
)

// Mode selects how RunRequest's window is resolved.
type Mode string

const (
	ModeIncremental Mode = "incremental"
	ModeRefresh     Mode = "refresh"
	ModeBulk        Mode = "bulk"
)

// RunRequest is the core's single entry point.
type RunRequest struct {
	Mode     Mode
	From, To time.Time    // required for refresh/bulk
	Lookback int          // days; required for incremental
	Families []family.Tag // nil/empty means ALL
}

// TerminalState is the run's final outcome.
type TerminalState string

const (
	TerminalOK        TerminalState = "ok"
	TerminalPartial   TerminalState = "partial"
	TerminalFailed    TerminalState = "failed"
	TerminalCancelled TerminalState = "cancelled"
)

// Counters is the per-family (or run-total) breakdown of a run.
type Counters struct {
	Requested         int
	Received          int
	Validated         int
	Stored            int
	DuplicatesSkipped int
	FailedValidation  int
	FailedStore       int
	Retries           int
	RateLimitWaits    int
}

func (c *Counters) add(other Counters) {
	c.Requested += other.Requested
	c.Received += other.Received
	c.Validated += other.Validated
	c.Stored += other.Stored
	c.DuplicatesSkipped += other.DuplicatesSkipped
	c.FailedValidation += other.FailedValidation
	c.FailedStore += other.FailedStore
	c.Retries += other.Retries
	c.RateLimitWaits += other.RateLimitWaits
}

// RunReport is the structured summary returned from Run: summary
// counters, per-family breakdown, terminal state.
type RunReport struct {
	Terminal TerminalState
	Totals   Counters
	ByFamily map[family.Tag]*Counters
}

// Config parameterizes a Runner (the ingest.* and store.deduplication.*
// options).
type Config struct {
	MaxWorkers          int // default 3, clamped to [1,10]
	ChunkSize           int // sub-windows per worker dispatch, default 1
	MaxRangeDays        int // default 365
	MinDate             string
	DefaultLookbackDays int
	ResetFrequency      dedup.ResetFrequency
	MemoryThresholdMB   int
	BatchSize           int // writer batch_size, default 100
	Traversal           traversal.Config
	Writer              writer.Config
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 3
	}
	if c.MaxWorkers > 10 {
		c.MaxWorkers = 10
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = 365
	}
	if c.DefaultLookbackDays <= 0 {
		c.DefaultLookbackDays = 7
	}
	if c.ResetFrequency == "" {
		c.ResetFrequency = dedup.PerDate
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Writer.BatchSize <= 0 {
		c.Writer.BatchSize = c.BatchSize
	}
	if c.Traversal.MaxRangeDays <= 0 {
		c.Traversal.MaxRangeDays = c.MaxRangeDays
	}
	return c
}

// Runner wires the four core subsystems together for one process.
type Runner struct {
	client  *congressapi.Client
	gov     *governor.Governor
	store   store.Store
	metrics *metrics.Metrics
	log     logr.Logger
	cfg     Config
}

// New builds a Runner.
func New(client *congressapi.Client, gov *governor.Governor, st store.Store, m *metrics.Metrics, log logr.Logger, cfg Config) *Runner {
	return &Runner{client: client, gov: gov, store: st, metrics: m, log: log, cfg: cfg.withDefaults()}
}

// subWindowJob is the unit of work dispatched to a worker: one family
// over one window. resetBefore is set when the configured
// reset_frequency demands a dedup-set reset before this job runs.
type subWindowJob struct {
	tag         family.Tag
	window      traversal.Window
	resetBefore bool
}

// Run partitions req into sub-window jobs, drives a fixed-size worker
// pool over them, and returns the aggregated RunReport.
func (r *Runner) Run(ctx context.Context, req RunRequest) RunReport {
	families := req.Families
	if len(families) == 0 {
		families = family.All
	}

	from, to, err := r.resolveWindow(req)
	if err != nil {
		return RunReport{Terminal: TerminalFailed, ByFamily: map[family.Tag]*Counters{}}
	}

	jobs := r.buildJobs(families, from, to)
	chunks := chunkJobs(jobs, r.cfg.ChunkSize)

	dedupSet := dedup.New(r.cfg.ResetFrequency, r.cfg.MemoryThresholdMB)
	w := writer.New(r.store, dedupSet, r.log, r.cfg.Writer)

	results := make(chan jobResult, len(jobs))
	jobCh := make(chan []subWindowJob, len(chunks))
	for _, c := range chunks {
		jobCh <- c
	}
	close(jobCh)

	var wg sync.WaitGroup
	var dedupMu sync.Mutex // serializes the workers' Reset() calls; the Set's own mutex orders them against CheckAndAdd
	var cancelled atomic.Bool

	for i := 0; i < r.cfg.MaxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine := traversal.New(r.client, r.gov, r.log, r.cfg.Traversal)
			for chunk := range jobCh {
				for _, j := range chunk {
					if ctx.Err() != nil {
						cancelled.Store(true)
						results <- jobResult{tag: j.tag, state: stateFailed}
						continue
					}
					results <- r.runJob(ctx, engine, w, dedupSet, &dedupMu, j)
				}
			}
		}()
	}
	wg.Wait()
	close(results)

	return r.aggregate(results, ctx.Err() != nil || cancelled.Load())
}

type subWindowState string

const (
	stateReady    subWindowState = "ready"
	stateFetching subWindowState = "fetching"
	stateWriting  subWindowState = "writing"
	stateBackoff  subWindowState = "backoff"
	stateDone     subWindowState = "done"
	stateFailed   subWindowState = "failed"
)

type jobResult struct {
	tag      family.Tag
	state    subWindowState
	partial  bool
	counters Counters
}

// runJob drives one sub-window through its state machine:
// ready -> fetching -> writing -> done (possibly partial), or failed
// on retry exhaustion or a permanent error.
func (r *Runner) runJob(ctx context.Context, engine *traversal.Engine, w *writer.Writer, dedupSet *dedup.Set, dedupMu *sync.Mutex, job subWindowJob) jobResult {
	state := stateReady
	counters := Counters{}

	if job.resetBefore {
		dedupMu.Lock()
		dedupSet.Reset()
		dedupMu.Unlock()
	}
	if dedupSet.ExceedsMemoryThreshold() {
		r.log.Info("dedup set exceeded memory threshold, forcing reset", "family", job.tag)
		dedupMu.Lock()
		dedupSet.Reset()
		dedupMu.Unlock()
	}

	state = stateFetching
	var rawBatch []map[string]any
	outcome := engine.Run(ctx, job.tag, job.window, func(ctx context.Context, raw map[string]any) error {
		counters.Requested++
		counters.Received++
		rawBatch = append(rawBatch, raw)
		return nil
	})

	records := make([]*model.Record, 0, len(rawBatch))
	for _, raw := range rawBatch {
		res := validator.Validate(job.tag, validator.Raw(raw))
		if res.Record != nil {
			records = append(records, res.Record)
			counters.Validated++
		} else {
			counters.FailedValidation++
		}
	}

	counters.Retries += outcome.Retries
	counters.RateLimitWaits += outcome.RateLimitWaits

	state = stateWriting
	report, err := w.Write(ctx, records)
	counters.Stored += len(report.Stored)
	counters.DuplicatesSkipped += report.DuplicatesSkipped
	counters.FailedStore += len(report.Dropped)
	counters.Retries += report.Retries

	r.recordMetrics(job.tag, counters)

	if err != nil {
		state = stateFailed
		r.log.Error(err, "writer aborted sub-window", "family", job.tag)
		return jobResult{tag: job.tag, state: state, counters: counters}
	}

	switch outcome.Status {
	case traversal.StatusCompleted:
		state = stateDone
		return jobResult{tag: job.tag, state: state, counters: counters}
	case traversal.StatusPartial:
		state = stateDone
		return jobResult{tag: job.tag, state: state, partial: true, counters: counters}
	default:
		state = stateFailed
		return jobResult{tag: job.tag, state: state, counters: counters}
	}
}

// recordMetrics publishes one job's counters to the shared Prometheus
// collectors, labeled by family.
func (r *Runner) recordMetrics(tag family.Tag, c Counters) {
	label := string(tag)
	r.metrics.Requested.WithLabelValues(label).Add(float64(c.Requested))
	r.metrics.Received.WithLabelValues(label).Add(float64(c.Received))
	r.metrics.Validated.WithLabelValues(label).Add(float64(c.Validated))
	r.metrics.Stored.WithLabelValues(label).Add(float64(c.Stored))
	r.metrics.DuplicatesSkipped.WithLabelValues(label).Add(float64(c.DuplicatesSkipped))
	r.metrics.FailedValidation.WithLabelValues(label).Add(float64(c.FailedValidation))
	r.metrics.FailedStore.WithLabelValues(label).Add(float64(c.FailedStore))
	r.metrics.Retries.WithLabelValues(label).Add(float64(c.Retries))
	r.metrics.RateLimitWaits.WithLabelValues(label).Add(float64(c.RateLimitWaits))

	_, health := r.gov.Snapshot(tag)
	r.metrics.GovernorHealth.WithLabelValues(label).Set(health)
}

func (r *Runner) resolveWindow(req RunRequest) (time.Time, time.Time, error) {
	switch req.Mode {
	case ModeIncremental:
		lookback := req.Lookback
		if lookback <= 0 {
			lookback = r.cfg.DefaultLookbackDays
		}
		to := now()
		from := to.AddDate(0, 0, -lookback)
		return r.clampToMinDate(from), to, nil
	case ModeRefresh, ModeBulk:
		if req.From.IsZero() || req.To.IsZero() {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("refresh/bulk mode requires an explicit window")
		}
		return r.clampToMinDate(req.From), req.To, nil
	default:
		return time.Time{}, time.Time{}, apperrors.NewValidationError("unknown run mode")
	}
}

// clampToMinDate raises a window's start to the configured
// ingest.date_ranges.min_date; no Congress.gov record predates the
// first Congress, so asking for earlier dates only wastes pages.
func (r *Runner) clampToMinDate(from time.Time) time.Time {
	minDate := r.cfg.MinDate
	if minDate == "" {
		minDate = model.MinDate
	}
	min, err := time.Parse("2006-01-02", minDate)
	if err != nil {
		return from
	}
	if from.Before(min) {
		return min
	}
	return from
}

// chunkJobs groups jobs into ingest.parallel.chunk_size batches, the
// unit a worker claims from the queue at a time.
func chunkJobs(jobs []subWindowJob, size int) [][]subWindowJob {
	if size <= 0 {
		size = 1
	}
	var chunks [][]subWindowJob
	for start := 0; start < len(jobs); start += size {
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		chunks = append(chunks, jobs[start:end])
	}
	return chunks
}

// now is overridable in tests (the codebase avoids time.Now() directly
// in business logic per convention elsewhere, e.g. pkg/governor's
// injected clock).
var now = time.Now

// buildJobs partitions [from, to) into per-family sub-windows, further
// splitting each sub-window into single-day jobs when reset_frequency
// is per_date so that a reset boundary corresponds to exactly one job.
func (r *Runner) buildJobs(families []family.Tag, from, to time.Time) []subWindowJob {
	var jobs []subWindowJob
	for _, tag := range families {
		subWindows := traversal.Windows(from, to, r.cfg.MaxRangeDays)
		for _, sw := range subWindows {
			if r.cfg.ResetFrequency == dedup.PerDate {
				for _, day := range splitIntoDays(sw) {
					jobs = append(jobs, subWindowJob{tag: tag, window: day, resetBefore: true})
				}
				continue
			}
			jobs = append(jobs, subWindowJob{tag: tag, window: sw, resetBefore: r.cfg.ResetFrequency == dedup.PerRange})
		}
	}
	return jobs
}

func splitIntoDays(w traversal.Window) []traversal.Window {
	if !w.To.After(w.From) {
		return []traversal.Window{w}
	}
	var days []traversal.Window
	cursor := w.From
	for cursor.Before(w.To) {
		end := cursor.AddDate(0, 0, 1)
		if end.After(w.To) {
			end = w.To
		}
		days = append(days, traversal.Window{From: cursor, To: end})
		cursor = end
	}
	return days
}

func (r *Runner) aggregate(results <-chan jobResult, cancelled bool) RunReport {
	byFamily := make(map[family.Tag]*Counters)
	var totals Counters
	anyFailed := false
	anyPartial := false

	for res := range results {
		if _, ok := byFamily[res.tag]; !ok {
			byFamily[res.tag] = &Counters{}
		}
		byFamily[res.tag].add(res.counters)
		totals.add(res.counters)

		if res.state == stateFailed {
			anyFailed = true
		}
		if res.partial {
			anyPartial = true
		}
	}

	terminal := TerminalOK
	switch {
	case cancelled:
		terminal = TerminalCancelled
	case anyFailed:
		terminal = TerminalFailed
	case anyPartial:
		terminal = TerminalPartial
	}

	return RunReport{Terminal: terminal, Totals: totals, ByFamily: byFamily}
}


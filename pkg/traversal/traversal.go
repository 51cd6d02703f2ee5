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

// Package traversal implements the paginated traversal engine: given a
// family and a date window, it enumerates every record across the
// upstream's paginated list endpoint and emits them one at a time,
// paced by pkg/governor and fetched through pkg/congressapi.
package traversal

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/congressapi"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/governor"
)

// defaultMaxRangeDays is the window-chunking threshold.
const defaultMaxRangeDays = 365

// Reason enumerates why a traversal stopped short of completed.
type Reason string

const (
	ReasonMaxRetriesExceeded Reason = "max_retries_exceeded"
	ReasonPageCapReached     Reason = "page_cap_reached"
	ReasonCancelled          Reason = "cancelled"
)

// Outcome is the terminal result of a single Run call.
type Outcome struct {
	Status     Status
	Reason     Reason // set only when Status == StatusPartial
	LastOffset int    // offset reached when Run returned, set for every Status
	Kind       string // set only when Status == StatusFailed: the congressapi outcome tag (e.g. "permanent") or "emit_error"

	// Retries and RateLimitWaits are summed across every page fetched
	// during this Run call, for the run report's per-family counters.
	Retries        int
	RateLimitWaits int
}

// Status is the coarse terminal state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// Config parameterizes one traversal call.
type Config struct {
	PageSize     int // congressapi page limit, default 250
	MaxRetries   int // per-page retry budget, default 3
	MaxPages     int // 0 means unbounded
	MaxRangeDays int // window-chunking threshold, default 365
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = 250
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxRangeDays <= 0 {
		c.MaxRangeDays = defaultMaxRangeDays
	}
	return c
}

// Emitter receives raw records one at a time, in upstream list order,
// as the engine walks the window. Returning an error aborts the
// traversal with that error surfaced through Run.
type Emitter func(ctx context.Context, raw map[string]any) error

// Engine runs paginated traversals against one upstream client, paced
// by a shared governor; each Run call covers one (family, window).
type Engine struct {
	client *congressapi.Client
	gov    *governor.Governor
	log    logr.Logger
	cfg    Config
}

// New builds an Engine.
func New(client *congressapi.Client, gov *governor.Governor, log logr.Logger, cfg Config) *Engine {
	return &Engine{client: client, gov: gov, log: log, cfg: cfg.withDefaults()}
}

// Windows splits [from, to) into contiguous sub-windows no longer than
// maxRangeDays; each is an independent unit of parallel dispatch.
func Windows(from, to time.Time, maxRangeDays int) []Window {
	if maxRangeDays <= 0 {
		maxRangeDays = defaultMaxRangeDays
	}
	step := time.Duration(maxRangeDays) * 24 * time.Hour

	var windows []Window
	cursor := from
	for cursor.Before(to) {
		end := cursor.Add(step)
		if end.After(to) {
			end = to
		}
		windows = append(windows, Window{From: cursor, To: end})
		cursor = end
	}
	return windows
}

// Window is one contiguous sub-window of a traversal.
type Window struct {
	From, To time.Time
}

// Run walks a single (family, window), emitting every raw record found
// via emit, and returns the terminal Outcome. No record in the window
// is emitted more than once per call.
func (e *Engine) Run(ctx context.Context, tag family.Tag, win Window, emit Emitter) Outcome {
	offset := 0
	pageCount := 0
	totalRetries := 0
	totalRateLimitWaits := 0

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Status: StatusPartial, Reason: ReasonCancelled, LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
		}
		if e.cfg.MaxPages > 0 && pageCount >= e.cfg.MaxPages {
			return Outcome{Status: StatusPartial, Reason: ReasonPageCapReached, LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
		}

		page, outcome, retries, rateLimitWaits, err := e.fetchPageWithRetry(ctx, tag, win, offset)
		totalRetries += retries
		totalRateLimitWaits += rateLimitWaits
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok && appErr.Type == apperrors.ErrorTypeCancelled {
				return Outcome{Status: StatusPartial, Reason: ReasonCancelled, LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
			}
			if outcome == congressapi.OutcomeRateLimited || outcome == congressapi.OutcomeTransient || outcome == congressapi.OutcomeTimeout {
				return Outcome{Status: StatusPartial, Reason: ReasonMaxRetriesExceeded, LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
			}
			return Outcome{Status: StatusFailed, Kind: string(outcome), LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
		}

		for _, raw := range page.Records {
			if err := emit(ctx, raw); err != nil {
				return Outcome{Status: StatusFailed, Kind: "emit_error", LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
			}
		}

		pageCount++
		offset = page.NextOffset
		if len(page.Records) == 0 || !page.HasMore {
			return Outcome{Status: StatusCompleted, LastOffset: offset, Retries: totalRetries, RateLimitWaits: totalRateLimitWaits}
		}
	}
}

// fetchPageWithRetry fetches one page, retrying retryable outcomes up
// to MaxRetries using the governor's adaptive wait before giving up.
func (e *Engine) fetchPageWithRetry(ctx context.Context, tag family.Tag, win Window, offset int) (page congressapi.Page, outcome congressapi.Outcome, retries int, rateLimitWaits int, err error) {
	var lastErr error
	var lastOutcome congressapi.Outcome

	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		waitRes := e.gov.Wait(ctx, tag)
		if waitRes.Cancelled {
			return congressapi.Page{}, "", retries, rateLimitWaits, apperrors.NewCancelledError("traversal wait")
		}

		p, o, retryAfter, reqErr := e.client.ListWindow(ctx, tag, win.From, win.To, offset, e.cfg.PageSize)
		e.gov.RecordOutcome(ctx, tag, governor.Outcome(o))

		if o == congressapi.OutcomeOK {
			return p, o, retries, rateLimitWaits, nil
		}

		lastErr, lastOutcome = reqErr, o
		if o == congressapi.OutcomePermanent {
			return congressapi.Page{}, o, retries, rateLimitWaits, reqErr
		}

		if attempt == e.cfg.MaxRetries {
			break
		}

		retries++
		if o == congressapi.OutcomeRateLimited && retryAfter > 0 {
			rateLimitWaits++
			if res := e.gov.WaitRetryAfter(ctx, retryAfter); res.Cancelled {
				return congressapi.Page{}, "", retries, rateLimitWaits, apperrors.NewCancelledError("retry-after wait")
			}
		}
		e.log.V(1).Info("retrying page", "family", tag, "offset", offset, "attempt", attempt+1, "outcome", o)
	}

	return congressapi.Page{}, lastOutcome, retries, rateLimitWaits, lastErr
}

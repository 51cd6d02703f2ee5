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

// Package governor implements the fetch scheduler and rate governor:
// per-family pacing with jittered intervals and AIMD adaptive backoff,
// shared read-write across all workers in a run.
package governor

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/prameyallc/congress-ingest/pkg/family"
)

// Outcome classifies the result of a dispatched call, fed back into the
// governor by the traversal engine. The governor never classifies HTTP
// results itself.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeTransient   Outcome = "transient"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomePermanent   Outcome = "permanent"
	OutcomeTimeout     Outcome = "timeout"
)

// WaitResult is returned by Wait: either the caller may proceed, or the
// wait was cut short by cancellation.
type WaitResult struct {
	Cancelled bool
	Waited    time.Duration
}

const (
	minHealthFactor = 1.0
	maxHealthFactor = 8.0
	healthIncrement = 0.5
	healthDecay     = 0.9
	maxBackoffPower = 120.0
	jitterFraction  = 0.15
)

type familyState struct {
	mu                sync.Mutex
	consecutiveErrors int
	healthFactor      float64
	lastDispatch      time.Time
	hasDispatched     bool
}

// Governor paces requests per family and adapts to observed health. One
// Governor is shared read-write across all workers in a run.
type Governor struct {
	mu            sync.RWMutex
	states        map[family.Tag]*familyState
	defaultRate   float64 // requests/second
	perFamilyRate map[family.Tag]float64
	now           func() time.Time
	rand          func() float64 // uniform [0,1)
	mirror        HealthMirror
}

// HealthMirror is an optional, best-effort cross-process observability
// sink: it never gates pacing decisions, it only reports them.
type HealthMirror interface {
	ReportHealth(ctx context.Context, tag family.Tag, consecutiveErrors int, healthFactor float64)
}

// Option configures a Governor at construction time.
type Option func(*Governor)

// WithHealthMirror attaches an advisory cross-process health sink.
func WithHealthMirror(m HealthMirror) Option {
	return func(g *Governor) { g.mirror = m }
}

// New creates a Governor. defaultRate is requests/second used for any
// family without an override in perFamilyRate.
func New(defaultRate float64, perFamilyRate map[family.Tag]float64, opts ...Option) *Governor {
	g := &Governor{
		states:        make(map[family.Tag]*familyState),
		defaultRate:   defaultRate,
		perFamilyRate: perFamilyRate,
		now:           time.Now,
		rand:          rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Governor) stateFor(tag family.Tag) *familyState {
	g.mu.RLock()
	s, ok := g.states[tag]
	g.mu.RUnlock()
	if ok {
		return s
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.states[tag]; ok {
		return s
	}
	s = &familyState{healthFactor: minHealthFactor}
	g.states[tag] = s
	return s
}

func (g *Governor) rateFor(tag family.Tag) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if r, ok := g.perFamilyRate[tag]; ok && r > 0 {
		return r
	}
	return g.defaultRate
}

// Wait blocks the caller until at least the computed wait interval has
// elapsed since the last dispatch to tag, then records the dispatch
// time. It returns promptly with Cancelled=true if ctx is cancelled
// mid-wait.
func (g *Governor) Wait(ctx context.Context, tag family.Tag) WaitResult {
	state := g.stateFor(tag)

	state.mu.Lock()
	interval := g.computeWaitInterval(tag, state)
	var due time.Time
	if state.hasDispatched {
		due = state.lastDispatch.Add(interval)
	} else {
		due = g.now()
	}
	state.mu.Unlock()

	now := g.now()
	remaining := due.Sub(now)
	if remaining <= 0 {
		g.recordDispatch(state)
		return WaitResult{Waited: 0}
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return WaitResult{Cancelled: true}
	case <-timer.C:
		g.recordDispatch(state)
		return WaitResult{Waited: remaining}
	}
}

func (g *Governor) recordDispatch(state *familyState) {
	state.mu.Lock()
	state.lastDispatch = g.now()
	state.hasDispatched = true
	state.mu.Unlock()
}

// computeWaitInterval is (base_interval + jitter) * health_factor *
// backoff_multiplier, where the multiplier is 2^(errors+1) capped at
// 120. Caller must hold state.mu.
func (g *Governor) computeWaitInterval(tag family.Tag, state *familyState) time.Duration {
	rate := g.rateFor(tag)
	if rate <= 0 {
		rate = 1
	}
	base := time.Duration(float64(time.Second) / rate)

	jitterRange := float64(base) * jitterFraction
	jitter := time.Duration((g.rand()*2 - 1) * jitterRange)

	backoffMultiplier := 1.0
	if state.consecutiveErrors > 0 {
		backoffMultiplier = math.Min(math.Pow(2, float64(state.consecutiveErrors+1)), maxBackoffPower)
	}

	wait := time.Duration(float64(base+jitter) * state.healthFactor * backoffMultiplier)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// RecordOutcome feeds a dispatch outcome back into the governor. A
// failure increments the consecutive-error counter and raises the AIMD
// health factor by +0.5 (clamped to 8.0); a success resets the counter
// and decays the health factor by 0.9 toward 1.0.
func (g *Governor) RecordOutcome(ctx context.Context, tag family.Tag, outcome Outcome) {
	state := g.stateFor(tag)

	state.mu.Lock()
	switch outcome {
	case OutcomeOK:
		state.consecutiveErrors = 0
		state.healthFactor = math.Max(minHealthFactor, state.healthFactor*healthDecay)
	case OutcomeTransient, OutcomeRateLimited, OutcomeTimeout, OutcomePermanent:
		state.consecutiveErrors++
		state.healthFactor = math.Min(maxHealthFactor, state.healthFactor+healthIncrement)
	}
	consecutiveErrors := state.consecutiveErrors
	healthFactor := state.healthFactor
	state.mu.Unlock()

	if g.mirror != nil {
		g.mirror.ReportHealth(ctx, tag, consecutiveErrors, healthFactor)
	}
}

// WaitRetryAfter honors an upstream Retry-After hint directly, adding a
// small jitter, rather than computing backoff. It still respects
// cancellation.
func (g *Governor) WaitRetryAfter(ctx context.Context, hint time.Duration) WaitResult {
	jitter := time.Duration(g.rand() * float64(time.Second))
	wait := hint + jitter

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return WaitResult{Cancelled: true}
	case <-timer.C:
		return WaitResult{Waited: wait}
	}
}

// Snapshot returns the current (consecutiveErrors, healthFactor) for a
// family, for diagnostics/tests.
func (g *Governor) Snapshot(tag family.Tag) (consecutiveErrors int, healthFactor float64) {
	state := g.stateFor(tag)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.consecutiveErrors, state.healthFactor
}

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

// Package metrics exposes the run counters: requested, received,
// validated, stored, duplicates_skipped, failed_validation,
// failed_store, retries, rate_limit_waits, each broken down by family.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the run counters need,
// registered against a caller-supplied registry so tests can isolate
// their own.
type Metrics struct {
	Requested         *prometheus.CounterVec
	Received          *prometheus.CounterVec
	Validated         *prometheus.CounterVec
	Stored            *prometheus.CounterVec
	DuplicatesSkipped *prometheus.CounterVec
	FailedValidation  *prometheus.CounterVec
	FailedStore       *prometheus.CounterVec
	Retries           *prometheus.CounterVec
	RateLimitWaits    *prometheus.CounterVec
	GovernorHealth    *prometheus.GaugeVec
}

// NewMetricsWithRegistry constructs a Metrics instance and registers
// every collector against reg. Tests pass a fresh *prometheus.Registry
// for isolation.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_requested_total",
			Help: "Upstream records requested, by family, counted once per record the traversal emits (the same count as received).",
		}, []string{"family"}),
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_received_total",
			Help: "Raw upstream records received, by family.",
		}, []string{"family"}),
		Validated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_validated_total",
			Help: "Records that passed validation, by family.",
		}, []string{"family"}),
		Stored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_stored_total",
			Help: "Canonical records successfully stored, by family.",
		}, []string{"family"}),
		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_duplicates_skipped_total",
			Help: "Records skipped as same-run duplicates, by family.",
		}, []string{"family"}),
		FailedValidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_failed_validation_total",
			Help: "Records rejected by the validator, by family.",
		}, []string{"family"}),
		FailedStore: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_failed_store_total",
			Help: "Records dropped after a permanent store outcome, by family.",
		}, []string{"family"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_retries_total",
			Help: "Page and batch retries issued, by family.",
		}, []string{"family"}),
		RateLimitWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "congress_ingest_rate_limit_waits_total",
			Help: "Retry-After waits honored, by family.",
		}, []string{"family"}),
		GovernorHealth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "congress_ingest_governor_health_factor",
			Help: "Current AIMD health factor per family (1.0-8.0).",
		}, []string{"family"}),
	}

	reg.MustRegister(
		m.Requested, m.Received, m.Validated, m.Stored,
		m.DuplicatesSkipped, m.FailedValidation, m.FailedStore,
		m.Retries, m.RateLimitWaits, m.GovernorHealth,
	)
	return m
}

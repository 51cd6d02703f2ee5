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

// Package congressapi is the upstream HTTP client for the Congress.gov
// REST API: it issues one GET per page of a family's list endpoint and
// classifies the response into the outcome tags the governor and
// traversal engine share.
package congressapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/family"
)

// Config configures the client.
type Config struct {
	BaseURL string

	// APIKey is read by the caller from the environment, never from
	// the config file, and passed in here.
	APIKey string

	Timeout        time.Duration
	MaxConnections int

	// FamilyTimeouts carries the per-family (connect, read) overrides
	// (api.timeout_config.<family>); a family without an entry uses
	// Timeout.
	FamilyTimeouts map[family.Tag]TimeoutPair
}

// TimeoutPair is one family's (connect, read) timeout budget. The sum
// bounds the whole round trip for that family's requests.
type TimeoutPair struct {
	Connect time.Duration
	Read    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 10
	}
	return c
}

// Page is one page of raw upstream records plus the pagination envelope
// the Congress.gov API returns ("pagination.next" or monotonic offset).
type Page struct {
	Records    []map[string]any
	Total      int
	NextOffset int
	HasMore    bool
}

// Outcome classifies an HTTP round trip: 429 is rate_limited, 5xx and
// network errors are transient, any other 4xx is permanent.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeTransient   Outcome = "transient"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomePermanent   Outcome = "permanent"
	OutcomeTimeout     Outcome = "timeout"
)

// Client fetches pages from the upstream API, guarded per family by a
// circuit breaker distinct from the governor's pacing. One Client is
// shared by every worker in a run.
type Client struct {
	cfg  Config
	http *http.Client

	mu       sync.Mutex
	breakers map[family.Tag]*gobreaker.CircuitBreaker
}

// New constructs a Client.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: cfg.MaxConnections,
			},
		},
		breakers: make(map[family.Tag]*gobreaker.CircuitBreaker),
	}
}

func (c *Client) breakerFor(tag family.Tag) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b, ok := c.breakers[tag]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(tag),
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	c.breakers[tag] = b
	return b
}

// ListWindow fetches one page of a family's list endpoint within
// [fromDateTime, toDateTime], at the given offset/limit. It returns
// the page, the classified outcome, and a Retry-After hint when
// present.
func (c *Client) ListWindow(ctx context.Context, tag family.Tag, from, to time.Time, offset, limit int) (Page, Outcome, time.Duration, error) {
	spec, ok := family.Lookup(tag)
	if !ok {
		return Page{}, OutcomePermanent, 0, apperrors.NewPermanentError("list window", fmt.Errorf("unregistered family %q", tag))
	}

	breaker := c.breakerFor(tag)
	type result struct {
		page       Page
		outcome    Outcome
		retryAfter time.Duration
	}

	raw, err := breaker.Execute(func() (any, error) {
		page, outcome, retryAfter, err := c.doRequest(ctx, spec, from, to, offset, limit)
		return result{page, outcome, retryAfter}, err
	})

	if raw == nil {
		return Page{}, OutcomeTransient, 0, apperrors.Wrap(err, apperrors.ErrorTypeTransient, "circuit open for family").WithContext(string(tag), "", "")
	}
	res := raw.(result)
	return res.page, res.outcome, res.retryAfter, err
}

func (c *Client) doRequest(ctx context.Context, spec family.Spec, from, to time.Time, offset, limit int) (Page, Outcome, time.Duration, error) {
	if tp, ok := c.cfg.FamilyTimeouts[spec.Tag]; ok {
		if total := tp.Connect + tp.Read; total > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, total)
			defer cancel()
		}
	}

	reqURL, err := c.buildURL(spec, from, to, offset, limit)
	if err != nil {
		return Page{}, OutcomePermanent, 0, apperrors.NewPermanentError("build request url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Page{}, OutcomePermanent, 0, apperrors.NewPermanentError("build request", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("User-Agent", "congress-ingest/1.0")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, OutcomeTimeout, 0, apperrors.NewTimeoutError("list " + spec.Endpoint)
		}
		return Page{}, OutcomeTransient, 0, apperrors.NewTransientError("list "+spec.Endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Page{}, OutcomeTransient, 0, apperrors.NewTransientError("read body", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Page{}, OutcomeRateLimited, parseRetryAfter(resp.Header.Get("Retry-After")), apperrors.NewRateLimitedError("list "+spec.Endpoint, fmt.Errorf("HTTP 429"))
	case resp.StatusCode >= 500:
		return Page{}, OutcomeTransient, 0, apperrors.NewTransientError("list "+spec.Endpoint, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return Page{}, OutcomePermanent, 0, apperrors.NewPermanentError("list "+spec.Endpoint, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
	}

	page, err := parsePage(body)
	if err != nil {
		return Page{}, OutcomePermanent, 0, apperrors.Wrap(err, apperrors.ErrorTypePermanent, "malformed page").
			WithDetailsf("offset=%d", offset).
			WithContext(string(spec.Tag), "", "")
	}
	return page, OutcomeOK, 0, nil
}

func (c *Client) buildURL(spec family.Spec, from, to time.Time, offset, limit int) (string, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	base.Path = base.Path + "/" + spec.Endpoint

	q := base.Query()
	q.Set("fromDateTime", from.UTC().Format(time.RFC3339))
	q.Set("toDateTime", to.UTC().Format(time.RFC3339))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	if c.cfg.APIKey != "" {
		q.Set("api_key", c.cfg.APIKey)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

type envelope struct {
	Data       []map[string]any `json:"data"`
	Pagination struct {
		Total   int  `json:"total"`
		Limit   int  `json:"limit"`
		Offset  int  `json:"offset"`
		HasMore bool `json:"has_more"`
	} `json:"pagination"`
}

func parsePage(body []byte) (Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Page{}, err
	}
	return Page{
		Records:    env.Data,
		Total:      env.Pagination.Total,
		NextOffset: env.Pagination.Offset + len(env.Data),
		HasMore:    env.Pagination.HasMore,
	}, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

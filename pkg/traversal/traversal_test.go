package traversal_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/prameyallc/congress-ingest/pkg/congressapi"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/governor"
	"github.com/prameyallc/congress-ingest/pkg/traversal"
)

func TestTraversal(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Traversal Engine Suite")
}

func fastGovernor() *governor.Governor {
	return governor.New(1000, nil)
}

var _ = Describe("Engine", func() {
	var (
		server *httptest.Server
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	It("walks every page until has_more is false, preserving order", func() {
		var calls int32
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusOK)
			switch n {
			case 1:
				_, _ = w.Write([]byte(`{"data":[{"billNumber":1},{"billNumber":2}],"pagination":{"total":3,"limit":2,"offset":0,"has_more":true}}`))
			case 2:
				_, _ = w.Write([]byte(`{"data":[{"billNumber":3}],"pagination":{"total":3,"limit":2,"offset":2,"has_more":false}}`))
			default:
				_, _ = w.Write([]byte(`{"data":[],"pagination":{"total":3,"limit":2,"offset":3,"has_more":false}}`))
			}
		}))
		client := congressapi.New(congressapi.Config{BaseURL: server.URL})
		engine := traversal.New(client, fastGovernor(), logr.Discard(), traversal.Config{PageSize: 2})

		var got []any
		outcome := engine.Run(ctx, family.Bill, traversal.Window{From: time.Now().AddDate(0, 0, -1), To: time.Now()}, func(ctx context.Context, raw map[string]any) error {
			got = append(got, raw["billNumber"])
			return nil
		})

		Expect(outcome.Status).To(Equal(traversal.StatusCompleted))
		Expect(got).To(Equal([]any{float64(1), float64(2), float64(3)}))
		Expect(calls).To(Equal(int32(2)))
	})

	It("retries a transient page failure and eventually succeeds", func() {
		var calls int32
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := atomic.AddInt32(&calls, 1)
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":[],"pagination":{"total":0,"limit":100,"offset":0,"has_more":false}}`))
		}))
		client := congressapi.New(congressapi.Config{BaseURL: server.URL})
		engine := traversal.New(client, fastGovernor(), logr.Discard(), traversal.Config{MaxRetries: 2})

		outcome := engine.Run(ctx, family.Amendment, traversal.Window{From: time.Now(), To: time.Now()}, func(ctx context.Context, raw map[string]any) error {
			return nil
		})

		Expect(outcome.Status).To(Equal(traversal.StatusCompleted))
		Expect(calls).To(Equal(int32(2)))
		Expect(outcome.Retries).To(Equal(1))
	})

	It("gives up as partial after exhausting max_retries on a persistent transient failure", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		client := congressapi.New(congressapi.Config{BaseURL: server.URL})
		engine := traversal.New(client, fastGovernor(), logr.Discard(), traversal.Config{MaxRetries: 1})

		outcome := engine.Run(ctx, family.Hearing, traversal.Window{From: time.Now(), To: time.Now()}, func(ctx context.Context, raw map[string]any) error {
			return nil
		})

		Expect(outcome.Status).To(Equal(traversal.StatusPartial))
		Expect(outcome.Reason).To(Equal(traversal.ReasonMaxRetriesExceeded))
	})

	It("fails fatally on a permanent 4xx without retrying", func() {
		var calls int32
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		client := congressapi.New(congressapi.Config{BaseURL: server.URL})
		engine := traversal.New(client, fastGovernor(), logr.Discard(), traversal.Config{MaxRetries: 3})

		outcome := engine.Run(ctx, family.Treaty, traversal.Window{From: time.Now(), To: time.Now()}, func(ctx context.Context, raw map[string]any) error {
			return nil
		})

		Expect(outcome.Status).To(Equal(traversal.StatusFailed))
		Expect(calls).To(Equal(int32(1)))
	})

	It("stops promptly on cancellation", func() {
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"data":[{"n":1}],"pagination":{"total":1,"limit":1,"offset":0,"has_more":true}}`))
		}))
		client := congressapi.New(congressapi.Config{BaseURL: server.URL})
		slowGov := governor.New(0.5, nil) // ~2s between dispatches forces the cancellation to land mid-wait
		engine := traversal.New(client, slowGov, logr.Discard(), traversal.Config{PageSize: 1})

		cctx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		start := time.Now()
		outcome := engine.Run(cctx, family.Nomination, traversal.Window{From: time.Now(), To: time.Now()}, func(ctx context.Context, raw map[string]any) error {
			return nil
		})
		elapsed := time.Since(start)

		Expect(outcome.Status).To(Equal(traversal.StatusPartial))
		Expect(elapsed).To(BeNumerically("<", 1*time.Second))
	})
})

var _ = Describe("Windows", func() {
	It("splits a range exceeding max_range_days into contiguous sub-windows", func() {
		from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(2, 0, 0) // 2 years, default max is 365 days

		windows := traversal.Windows(from, to, 365)

		Expect(len(windows)).To(BeNumerically(">=", 2))
		Expect(windows[0].From).To(Equal(from))
		Expect(windows[len(windows)-1].To).To(Equal(to))
		for i := 1; i < len(windows); i++ {
			Expect(windows[i].From).To(Equal(windows[i-1].To), fmt.Sprintf("window %d should start where %d ended", i, i-1))
		}
	})

	It("returns a single window when the range fits", func() {
		from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)

		windows := traversal.Windows(from, to, 365)

		Expect(windows).To(HaveLen(1))
	})
})

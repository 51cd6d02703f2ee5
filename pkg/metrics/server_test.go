package metrics_test

import (
	"context"
	"io"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/prameyallc/congress-ingest/pkg/metrics"
)

var _ = Describe("Server", func() {
	var log *zap.Logger

	BeforeEach(func() {
		log = zap.NewNop()
	})

	It("serves /metrics in Prometheus text format", func() {
		reg := prometheus.NewRegistry()
		m := metrics.NewMetricsWithRegistry(reg)
		m.Stored.WithLabelValues("bill").Inc()

		server := metrics.NewServer("0", reg, log)
		server.StartAsync()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Stop(ctx)
		}()
		Eventually(server.Addr).ShouldNot(BeEmpty())

		resp, err := http.Get("http://" + server.Addr() + "/metrics")
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, err := io.ReadAll(resp.Body)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("congress_ingest_stored_total"))
	})

	It("serves /health as a plain liveness check", func() {
		reg := prometheus.NewRegistry()
		server := metrics.NewServer("0", reg, log)
		server.StartAsync()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Stop(ctx)
		}()
		Eventually(server.Addr).ShouldNot(BeEmpty())

		resp, err := http.Get("http://" + server.Addr() + "/health")
		Expect(err).ToNot(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		body, _ := io.ReadAll(resp.Body)
		Expect(string(body)).To(Equal("OK"))
	})

	It("shuts down gracefully within the given context", func() {
		reg := prometheus.NewRegistry()
		server := metrics.NewServer("0", reg, log)
		server.StartAsync()
		Eventually(server.Addr).ShouldNot(BeEmpty())

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		Expect(server.Stop(ctx)).To(Succeed())
	})
})

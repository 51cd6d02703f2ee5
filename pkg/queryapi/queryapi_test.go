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

package queryapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/queryapi"
	"github.com/prameyallc/congress-ingest/pkg/store/memstore"
)

func TestQueryAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "QueryAPI Suite")
}

var _ = Describe("Server", func() {
	var (
		st         *memstore.Store
		testServer *httptest.Server
	)

	BeforeEach(func() {
		st = memstore.New()
		_, _ = st.PutItem(context.Background(), &model.Record{
			ID: "bill-hr-1-118", Type: family.Bill, Congress: 118,
			UpdateDate: "2025-01-02", Version: model.SchemaVersion,
		})
		_, _ = st.PutItem(context.Background(), &model.Record{
			ID: "bill-hr-2-118", Type: family.Bill, Congress: 118,
			UpdateDate: "2025-01-03", Version: model.SchemaVersion,
		})

		srv := queryapi.NewServer(st, logr.Discard())
		testServer = httptest.NewServer(srv)
	})

	AfterEach(func() {
		testServer.Close()
	})

	It("returns a single record by type and id", func() {
		resp, err := http.Get(testServer.URL + "/records/bill/bill-hr-1-118")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var rec model.Record
		Expect(json.NewDecoder(resp.Body).Decode(&rec)).To(Succeed())
		Expect(rec.ID).To(Equal("bill-hr-1-118"))
	})

	It("returns 404 for an id that does not exist", func() {
		resp, err := http.Get(testServer.URL + "/records/bill/does-not-exist")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
	})

	It("rejects an unregistered record type", func() {
		resp, err := http.Get(testServer.URL + "/records/not-a-family/x")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("lists every record of a type", func() {
		resp, err := http.Get(testServer.URL + "/records/bill")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		var recs []*model.Record
		Expect(json.NewDecoder(resp.Body).Decode(&recs)).To(Succeed())
		Expect(recs).To(HaveLen(2))
	})

	It("includes CORS headers for browser access", func() {
		req, err := http.NewRequest(http.MethodGet, testServer.URL+"/records/bill", nil)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Origin", "https://example.com")

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.Header.Get("Access-Control-Allow-Origin")).NotTo(BeEmpty())
	})

	It("serves a liveness probe", func() {
		resp, err := http.Get(testServer.URL + "/health")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})
})

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

package export_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prameyallc/congress-ingest/pkg/export"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
	"github.com/prameyallc/congress-ingest/pkg/store/memstore"
)

func TestExport(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Export Suite")
}

var _ = Describe("Export", func() {
	var st *memstore.Store

	BeforeEach(func() {
		st = memstore.New()
		_, _ = st.PutItem(context.Background(), &model.Record{
			ID: "bill-hr-1-118", Type: family.Bill, Congress: 118,
			UpdateDate: "2025-01-02", Version: model.SchemaVersion,
			Extras: map[string]any{
				"title":          "An act to do a thing",
				"origin_chamber": "house",
				"sponsor":        map[string]any{"bioguide_id": "S000001", "state": "CA"},
				"cosponsors":     []any{"S000002", "S000003"},
			},
		})
	})

	queryAll := func() store.RecordIterator {
		it, err := st.QueryPrefix(context.Background(), store.QueryPredicate{})
		Expect(err).NotTo(HaveOccurred())
		return it
	}

	Describe("ToCSV", func() {
		It("writes an envelope header plus a flattened, dot-joined extras header", func() {
			var buf bytes.Buffer
			Expect(export.ToCSV(context.Background(), queryAll(), &buf)).To(Succeed())

			r := csv.NewReader(&buf)
			rows, err := r.ReadAll()
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(2))

			header := rows[0]
			Expect(header[:5]).To(Equal([]string{"id", "type", "congress", "update_date", "version"}))
			Expect(header).To(ContainElement("sponsor.bioguide_id"))
			Expect(header).To(ContainElement("sponsor.state"))
			Expect(header).To(ContainElement("cosponsors"))

			row := rows[1]
			Expect(row[0]).To(Equal("bill-hr-1-118"))
			idx := indexOf(header, "cosponsors")
			Expect(row[idx]).To(Equal("S000002;S000003"))
		})
	})

	Describe("ToJSON", func() {
		It("writes a JSON array with one element per record, extras left nested", func() {
			var buf bytes.Buffer
			Expect(export.ToJSON(context.Background(), queryAll(), &buf)).To(Succeed())

			var recs []model.Record
			Expect(json.Unmarshal(buf.Bytes(), &recs)).To(Succeed())
			Expect(recs).To(HaveLen(1))
			Expect(recs[0].ID).To(Equal("bill-hr-1-118"))
			sponsor, ok := recs[0].Extras["sponsor"].(map[string]any)
			Expect(ok).To(BeTrue())
			Expect(sponsor["bioguide_id"]).To(Equal("S000001"))
		})
	})
})

func indexOf(s []string, v string) int {
	for i, item := range s {
		if item == v {
			return i
		}
	}
	return -1
}

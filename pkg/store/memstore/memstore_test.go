package memstore_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
	"github.com/prameyallc/congress-ingest/pkg/store/memstore"
)

func TestMemstore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Memstore Suite")
}

var _ = Describe("Store", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reports the table as existing by default", func() {
		s := memstore.New()
		status, err := s.DescribeTable(ctx, "records")
		Expect(err).ToNot(HaveOccurred())
		Expect(status).To(Equal(store.TableExists))
	})

	It("can be forced into a table_missing state", func() {
		s := memstore.New()
		s.SetTableMissing()
		status, _ := s.DescribeTable(ctx, "records")
		Expect(status).To(Equal(store.TableMissing))
	})

	It("stores and retrieves an item by id", func() {
		s := memstore.New()
		rec := &model.Record{ID: "118-hr-1", UpdateDate: "2024-01-01"}

		outcome, err := s.PutItem(ctx, rec)

		Expect(err).ToNot(HaveOccurred())
		Expect(outcome).To(Equal(store.ItemOK))
		got, ok := s.Get("118-hr-1")
		Expect(ok).To(BeTrue())
		Expect(got).To(Equal(rec))
	})

	It("reports partial batch failures via injected outcomes", func() {
		s := memstore.New()
		s.FailItems["bad-id"] = store.ItemThroughputExceeded

		result, err := s.BatchPut(ctx, []*model.Record{
			{ID: "good-id"},
			{ID: "bad-id"},
		})

		Expect(err).ToNot(HaveOccurred())
		Expect(result.Stored).To(ConsistOf("good-id"))
		Expect(result.Failures).To(HaveKeyWithValue("bad-id", store.ItemThroughputExceeded))
		Expect(result.AllStored()).To(BeFalse())
	})

	It("queries by id prefix", func() {
		s := memstore.New()
		_, _ = s.PutItem(ctx, &model.Record{ID: "118-hr-1"})
		_, _ = s.PutItem(ctx, &model.Record{ID: "118-hr-2"})
		_, _ = s.PutItem(ctx, &model.Record{ID: "119-hr-1"})

		iter, err := s.QueryPrefix(ctx, store.QueryPredicate{HashValue: "118-"})
		Expect(err).ToNot(HaveOccurred())

		var ids []string
		for {
			rec, ok, err := iter.Next(ctx)
			Expect(err).ToNot(HaveOccurred())
			if !ok {
				break
			}
			ids = append(ids, rec.ID)
		}
		Expect(ids).To(ConsistOf("118-hr-1", "118-hr-2"))
	})
})

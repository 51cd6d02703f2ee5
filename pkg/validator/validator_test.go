package validator_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/validator"
)

func TestValidator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validator Suite")
}

var _ = Describe("Validate", func() {
	Context("a well-formed bill", func() {
		It("produces a canonical record with a deterministic id", func() {
			raw := validator.Raw{
				"congress":      float64(118),
				"billType":      "hr",
				"billNumber":    float64(100),
				"title":         "  An Act to do a thing  ",
				"originChamber": "House",
				"updateDate":    "2024-01-20T10:00:00Z",
				"url":           "https://api.congress.gov/v3/bill/118/hr/100",
			}

			res := validator.Validate(family.Bill, raw)

			Expect(res.Invalid).To(BeNil())
			Expect(res.Record).ToNot(BeNil())
			Expect(res.Record.ID).To(Equal("118-hr-100"))
			Expect(res.Record.Congress).To(Equal(118))
			Expect(res.Record.UpdateDate).To(Equal("2024-01-20"))
			Expect(res.Record.Version).To(Equal(1))
			Expect(res.Record.Extras["title"]).To(Equal("An Act to do a thing"))
		})
	})

	Context("idempotence", func() {
		It("produces byte-identical records across repeated calls", func() {
			raw := validator.Raw{
				"congress":      float64(118),
				"billType":      "hr",
				"billNumber":    float64(100),
				"title":         "An Act",
				"originChamber": "house",
				"updateDate":    "2024-01-20T10:00:00Z",
			}
			first := validator.Validate(family.Bill, raw)
			second := validator.Validate(family.Bill, raw)

			Expect(first.Record).ToNot(BeNil())
			Expect(first.Record).To(Equal(second.Record))
		})
	})

	Context("a committee with an invalid chamber", func() {
		It("rejects the record", func() {
			raw := validator.Raw{
				"congress":   float64(118),
				"chamber":    "Plenary",
				"name":       "Committee on Things",
				"systemCode": "hsif00",
				"updateDate": "2024-01-20T10:00:00Z",
			}

			res := validator.Validate(family.Committee, raw)

			Expect(res.Record).To(BeNil())
			Expect(res.Invalid).ToNot(BeNil())
			Expect(res.Invalid.MissingFields).To(ContainElement("chamber"))
		})
	})

	Context("a record missing a required field", func() {
		It("reports the missing field list", func() {
			raw := validator.Raw{
				"congress":   float64(118),
				"updateDate": "2024-01-20T10:00:00Z",
			}

			res := validator.Validate(family.Bill, raw)

			Expect(res.Record).To(BeNil())
			Expect(res.Invalid.MissingFields).To(ContainElements("bill_type", "bill_number", "title", "origin_chamber"))
		})
	})

	Context("an unparseable update date", func() {
		It("is rejected as invalid, not defaulted", func() {
			raw := validator.Raw{
				"congress":      float64(118),
				"billType":      "hr",
				"billNumber":    float64(100),
				"title":         "x",
				"originChamber": "house",
				"updateDate":    "not-a-date",
			}

			res := validator.Validate(family.Bill, raw)
			Expect(res.Record).To(BeNil())
			Expect(res.Invalid.MissingFields).To(ContainElement("update_date"))
		})
	})

	Context("a family that does not mandate congress", func() {
		It("does not default congress to 1 when absent", func() {
			raw := validator.Raw{
				"issueDate":  "2024-01-20T10:00:00Z",
				"updateDate": "2024-01-20T10:00:00Z",
			}

			res := validator.Validate(family.CongressionalRecord, raw)
			Expect(res.Invalid).To(BeNil())
			Expect(res.Record.Congress).To(Equal(0))
		})
	})

	Context("an unregistered family", func() {
		It("is rejected rather than panicking", func() {
			res := validator.Validate(family.Tag("not-a-family"), validator.Raw{})
			Expect(res.Record).To(BeNil())
			Expect(res.Invalid).ToNot(BeNil())
		})
	})
})

var _ = Describe("ValidateBatch", func() {
	It("splits valid records from rejections while preserving order", func() {
		raws := []validator.Raw{
			{"congress": float64(118), "billType": "hr", "billNumber": float64(1), "title": "a", "originChamber": "house", "updateDate": "2024-01-01T00:00:00Z"},
			{"congress": float64(118)}, // missing everything else
			{"congress": float64(118), "billType": "hr", "billNumber": float64(2), "title": "b", "originChamber": "house", "updateDate": "2024-01-02T00:00:00Z"},
		}

		records, rejections := validator.ValidateBatch(family.Bill, raws)

		Expect(records).To(HaveLen(2))
		Expect(rejections).To(HaveLen(1))
		Expect(records[0].ID).To(Equal("118-hr-1"))
		Expect(records[1].ID).To(Equal("118-hr-2"))
	})
})

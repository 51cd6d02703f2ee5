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

package runlog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-logr/logr"

	"github.com/prameyallc/congress-ingest/internal/runlog"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/runner"
)

func TestRunlog(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Runlog Suite")
}

var _ = Describe("Store", func() {
	var (
		db   *sqlx.DB
		mock sqlmock.Sqlmock
		st   *runlog.Store
	)

	BeforeEach(func() {
		mockDB, mockSQL, err := sqlmock.New()
		Expect(err).NotTo(HaveOccurred())

		db = sqlx.NewDb(mockDB, "sqlmock")
		mock = mockSQL
		st = runlog.New(db, logr.Discard())
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	Describe("Record", func() {
		It("inserts a row for a terminal report", func() {
			mock.ExpectExec(`INSERT INTO run_log`).
				WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "incremental", "ok", sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))

			report := runner.RunReport{
				Terminal: runner.TerminalOK,
				Totals:   runner.Counters{Stored: 3},
				ByFamily: map[family.Tag]*runner.Counters{family.Bill: {Stored: 3}},
			}

			err := st.Record(context.Background(), "incremental", time.Now(), time.Now(), report)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the error on a failed insert without panicking", func() {
			mock.ExpectExec(`INSERT INTO run_log`).
				WillReturnError(errors.New("connection reset"))

			report := runner.RunReport{Terminal: runner.TerminalFailed}
			err := st.Record(context.Background(), "bulk", time.Now(), time.Now(), report)
			Expect(err).To(HaveOccurred())
		})

		It("is a no-op on a nil store", func() {
			var nilStore *runlog.Store
			err := nilStore.Record(context.Background(), "incremental", time.Now(), time.Now(), runner.RunReport{})
			Expect(err).NotTo(HaveOccurred())
		})
	})
})

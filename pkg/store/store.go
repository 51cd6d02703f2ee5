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

// Package store defines the minimal capability set the core requires of
// any wide-column key-value store: describe_table, put_item, batch_put,
// query_prefix. Concrete adapters live in pkg/store/dynamo (production)
// and pkg/store/memstore (tests).
package store

import (
	"context"

	"github.com/prameyallc/congress-ingest/pkg/model"
)

// TableStatus is the result of DescribeTable.
type TableStatus string

const (
	TableExists     TableStatus = "exists"
	TableMissing    TableStatus = "missing"
	TableAuthFailed TableStatus = "auth_failed"
)

// ItemOutcome tags the per-item result of a write.
type ItemOutcome string

const (
	ItemOK                     ItemOutcome = "ok"
	ItemThroughputExceeded     ItemOutcome = "throughput_exceeded"
	ItemTransient              ItemOutcome = "transient_network"
	ItemTimeout                ItemOutcome = "timeout"
	ItemConditionalCheckFailed ItemOutcome = "conditional_check_failed"
	ItemValidationRejected     ItemOutcome = "validation_rejected_by_store"
	ItemAuthFailed             ItemOutcome = "auth_failed"
	ItemTableMissing           ItemOutcome = "table_missing"
)

// BatchResult reports the per-item outcome of a BatchPut call: the
// stored ids, plus the unstored subset with their error tags.
type BatchResult struct {
	Stored   []string // ids successfully stored
	Failures map[string]ItemOutcome
}

// AllStored reports whether every item in the batch was stored.
func (r BatchResult) AllStored() bool {
	return len(r.Failures) == 0
}

// QueryPredicate narrows a QueryPrefix call to one of the store's
// declared secondary indexes (type/update_date, congress/type,
// chamber/date, version/update_date).
type QueryPredicate struct {
	Index     string
	HashKey   string
	HashValue string
	RangeFrom string
	RangeTo   string
}

// Store is the capability set the core (and the out-of-core query
// surface/export routine) requires of any backing store.
type Store interface {
	DescribeTable(ctx context.Context, table string) (TableStatus, error)
	PutItem(ctx context.Context, rec *model.Record) (ItemOutcome, error)
	BatchPut(ctx context.Context, recs []*model.Record) (BatchResult, error)
	QueryPrefix(ctx context.Context, pred QueryPredicate) (RecordIterator, error)
}

// RecordIterator is a lazy sequence of records, consumed by pkg/export
// and pkg/queryapi.
type RecordIterator interface {
	Next(ctx context.Context) (*model.Record, bool, error)
	Close() error
}

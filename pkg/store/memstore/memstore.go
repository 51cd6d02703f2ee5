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

// Package memstore is an in-memory store.Store implementation used by
// tests.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
)

// Store is a minimal, thread-safe in-memory implementation of store.Store.
type Store struct {
	mu      sync.Mutex
	items   map[string]*model.Record
	tableOK bool

	// Inject controls let tests exercise the writer's failure-handling
	// paths without a real store.
	FailItems map[string]store.ItemOutcome // id -> forced outcome on PutItem/BatchPut
}

// New creates an empty, "existing" store.
func New() *Store {
	return &Store{
		items:     make(map[string]*model.Record),
		tableOK:   true,
		FailItems: make(map[string]store.ItemOutcome),
	}
}

func (s *Store) DescribeTable(ctx context.Context, table string) (store.TableStatus, error) {
	if !s.tableOK {
		return store.TableMissing, nil
	}
	return store.TableExists, nil
}

// SetTableMissing flips the store into a "missing table" state for
// testing the table_missing fatal path.
func (s *Store) SetTableMissing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tableOK = false
}

func (s *Store) PutItem(ctx context.Context, rec *model.Record) (store.ItemOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if outcome, ok := s.FailItems[rec.ID]; ok {
		return outcome, nil
	}
	s.items[rec.ID] = rec
	return store.ItemOK, nil
}

func (s *Store) BatchPut(ctx context.Context, recs []*model.Record) (store.BatchResult, error) {
	result := store.BatchResult{Failures: make(map[string]store.ItemOutcome)}
	for _, rec := range recs {
		outcome, err := s.PutItem(ctx, rec)
		if err != nil {
			return result, err
		}
		if outcome == store.ItemOK {
			result.Stored = append(result.Stored, rec.ID)
		} else {
			result.Failures[rec.ID] = outcome
		}
	}
	return result, nil
}

func (s *Store) QueryPrefix(ctx context.Context, pred store.QueryPredicate) (store.RecordIterator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*model.Record
	for _, rec := range s.items {
		if matches(rec, pred) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return &sliceIterator{records: matched}, nil
}

func matches(rec *model.Record, pred store.QueryPredicate) bool {
	switch pred.Index {
	case "type-update_date":
		if pred.HashValue != "" && string(rec.Type) != pred.HashValue {
			return false
		}
	case "congress-type":
		// HashValue encodes "<congress>" when present.
		if pred.HashValue != "" && strconv.Itoa(rec.Congress) != pred.HashValue {
			return false
		}
	case "chamber-date":
	case "version-update_date":
	}
	if pred.RangeFrom != "" && rec.UpdateDate < pred.RangeFrom {
		return false
	}
	if pred.RangeTo != "" && rec.UpdateDate > pred.RangeTo {
		return false
	}
	if pred.Index == "" && pred.HashValue != "" {
		return strings.HasPrefix(rec.ID, pred.HashValue)
	}
	return true
}

type sliceIterator struct {
	records []*model.Record
	pos     int
}

func (it *sliceIterator) Next(ctx context.Context) (*model.Record, bool, error) {
	if it.pos >= len(it.records) {
		return nil, false, nil
	}
	rec := it.records[it.pos]
	it.pos++
	return rec, true, nil
}

func (it *sliceIterator) Close() error { return nil }

// Len reports the number of items currently stored, for test assertions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Get returns the stored record for id, if any (test helper).
func (s *Store) Get(id string) (*model.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	return rec, ok
}

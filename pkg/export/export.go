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

// Package export streams a query_prefix result to CSV or JSON. Nested
// Extras maps are flattened to dot-joined keys for CSV; JSON keeps
// them nested.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/prameyallc/congress-ingest/pkg/model"
	"github.com/prameyallc/congress-ingest/pkg/store"
)

// Format selects the export's wire shape.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

const csvEnvelopeColumns = 5 // id, type, congress, update_date, version

// ToCSV writes every record returned by it to w as CSV. The header row
// is the envelope columns followed by the sorted union of every
// flattened Extras key seen, so a single pass can't emit a header that
// later rows don't match; records are buffered in memory to compute
// that union before any row is written.
func ToCSV(ctx context.Context, it store.RecordIterator, w io.Writer) error {
	var records []*model.Record
	flatByID := make(map[string]map[string]string)
	keySet := make(map[string]struct{})

	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("export: read record: %w", err)
		}
		if !ok {
			break
		}
		flat := flattenExtras(rec.Extras, "")
		flatByID[rec.ID] = flat
		for k := range flat {
			keySet[k] = struct{}{}
		}
		records = append(records, rec)
	}

	extraKeys := make([]string, 0, len(keySet))
	for k := range keySet {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)

	cw := csv.NewWriter(w)
	header := make([]string, 0, csvEnvelopeColumns+len(extraKeys))
	header = append(header, "id", "type", "congress", "update_date", "version")
	header = append(header, extraKeys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row, rec.ID, string(rec.Type), fmt.Sprintf("%d", rec.Congress), rec.UpdateDate, fmt.Sprintf("%d", rec.Version))
		flat := flatByID[rec.ID]
		for _, k := range extraKeys {
			row = append(row, flat[k])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("export: write row %s: %w", rec.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ToJSON streams every record returned by it to w as a JSON array,
// writing one record at a time rather than buffering the whole result.
func ToJSON(ctx context.Context, it store.RecordIterator, w io.Writer) error {
	enc := json.NewEncoder(w)

	if _, err := io.WriteString(w, "["); err != nil {
		return fmt.Errorf("export: write array open: %w", err)
	}

	first := true
	for {
		rec, ok, err := it.Next(ctx)
		if err != nil {
			return fmt.Errorf("export: read record: %w", err)
		}
		if !ok {
			break
		}
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return fmt.Errorf("export: write separator: %w", err)
			}
		}
		first = false
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("export: encode record %s: %w", rec.ID, err)
		}
	}

	if _, err := io.WriteString(w, "]"); err != nil {
		return fmt.Errorf("export: write array close: %w", err)
	}
	return nil
}

// flattenExtras dot-joins nested map keys. Scalar values are formatted
// with fmt.Sprint; lists are joined with ";".
func flattenExtras(extras map[string]any, prefix string) map[string]string {
	out := make(map[string]string)
	for k, v := range extras {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			for fk, fv := range flattenExtras(val, key) {
				out[fk] = fv
			}
		case []any:
			joined := ""
			for i, item := range val {
				if i > 0 {
					joined += ";"
				}
				joined += fmt.Sprint(item)
			}
			out[key] = joined
		default:
			out[key] = fmt.Sprint(val)
		}
	}
	return out
}

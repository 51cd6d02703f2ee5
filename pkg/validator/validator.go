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

// Package validator implements the validation/normalization pipeline:
// a total, side-effect-free function from a raw upstream record to
// either a canonical model.Record or a rejection reason.
package validator

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/prameyallc/congress-ingest/internal/errors"
	"github.com/prameyallc/congress-ingest/pkg/family"
	"github.com/prameyallc/congress-ingest/pkg/model"
)

// Raw is the loosely-typed upstream record shape as parsed from JSON.
type Raw map[string]any

// Result is the outcome of validating a single raw record.
type Result struct {
	Record  *model.Record
	Invalid *InvalidResult
}

// InvalidResult records why a raw record was rejected, listing every
// required field that was missing or malformed.
type InvalidResult struct {
	MissingFields []string
	Reason        string
}

// Validate converts one raw upstream record for the given family into a
// canonical Record, or reports why it was rejected. Validate performs no
// I/O and is safe to call concurrently; calling it twice on the same
// input yields byte-identical output.
func Validate(tag family.Tag, raw Raw) Result {
	spec, ok := family.Lookup(tag)
	if !ok {
		return Result{Invalid: &InvalidResult{Reason: fmt.Sprintf("unregistered family %q", tag)}}
	}

	trimmed := trimAndDropEmpty(raw)

	congress, hasCongress := intField(trimmed, "congress")
	if !hasCongress {
		if spec.RequiresCongress {
			congress = 1 // defaulted only when the family mandates presence and upstream omitted it
		}
	}

	updateDateRaw, _ := stringField(trimmed, "updateDate")
	updateDate, dateOK := model.NormalizeDate(updateDateRaw)

	var missing []string
	if spec.RequiresCongress && congress < 1 {
		missing = append(missing, "congress")
	}
	if !dateOK {
		missing = append(missing, "update_date")
	}
	for _, f := range spec.RequiredFields {
		if _, present := trimmed[jsonKey(f)]; !present {
			missing = append(missing, f)
		}
	}

	if chamberRaw, present := stringField(trimmed, "chamber"); present {
		lowered := strings.ToLower(chamberRaw)
		if !model.ValidChamber(lowered) {
			missing = append(missing, "chamber")
		} else {
			trimmed["chamber"] = lowered
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return Result{Invalid: &InvalidResult{
			MissingFields: missing,
			Reason:        fmt.Sprintf("missing or invalid required fields: %s", strings.Join(missing, ", ")),
		}}
	}

	id := BuildID(spec, congress, trimmed)

	extras := make(map[string]any, len(trimmed))
	for k, v := range trimmed {
		switch k {
		case "congress", "updateDate", "url":
			continue
		default:
			extras[k] = v
		}
	}

	url, _ := stringField(trimmed, "url")

	rec := &model.Record{
		ID:         id,
		Type:       tag,
		Congress:   congress,
		UpdateDate: updateDate,
		Version:    model.SchemaVersion,
		URL:        url,
		Extras:     extras,
	}
	return Result{Record: rec}
}

// ValidateBatch validates every raw record in order, returning the
// canonical records and the rejections separately; order is preserved
// within each slice relative to the input.
func ValidateBatch(tag family.Tag, raws []Raw) (records []*model.Record, rejections []InvalidResult) {
	for _, raw := range raws {
		res := Validate(tag, raw)
		if res.Record != nil {
			records = append(records, res.Record)
		} else if res.Invalid != nil {
			rejections = append(rejections, *res.Invalid)
		}
	}
	return records, rejections
}

// BuildID synthesizes the deterministic id for a family from its
// declared IDFields, prefixed by congress when the family requires it,
// so reruns over the same upstream entity converge on one key.
func BuildID(spec family.Spec, congress int, fields map[string]any) string {
	parts := make([]string, 0, len(spec.IDFields)+1)
	if spec.RequiresCongress {
		parts = append(parts, fmt.Sprintf("%d", congress))
	}
	for _, f := range spec.IDFields {
		parts = append(parts, fmt.Sprintf("%v", lookupDotted(fields, f)))
	}
	return strings.ToLower(strings.Join(parts, "-"))
}

func lookupDotted(fields map[string]any, dotted string) any {
	segments := strings.Split(dotted, ".")
	var cur any = fields[jsonKey(segments[0])]
	for _, seg := range segments[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = m[jsonKey(seg)]
	}
	return cur
}

// jsonKey maps a snake_case family attribute name to the camelCase key
// the upstream API actually sends, e.g. "bill_type" -> "billType".
// Keys with no underscore pass through unchanged.
func jsonKey(snake string) string {
	parts := strings.Split(snake, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}

// trimAndDropEmpty trims every string value (recursively through nested
// maps) and drops keys whose trimmed value is empty or null. The input
// is not mutated; a new map is returned.
func trimAndDropEmpty(raw Raw) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		cleaned, keep := trimValue(v)
		if keep {
			out[k] = cleaned
		}
	}
	return out
}

func trimValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return nil, false
		}
		return trimmed, true
	case map[string]any:
		nested := trimAndDropEmpty(val)
		if len(nested) == 0 {
			return nil, false
		}
		return nested, true
	case []any:
		var out []any
		for _, item := range val {
			if cleaned, keep := trimValue(item); keep {
				out = append(out, cleaned)
			}
		}
		if len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return v, true
	}
}

func stringField(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func intField(m map[string]any, key string) (int, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// AsValidationError converts an InvalidResult into an *errors.AppError
// for callers that want to propagate it through the standard error path
// as an item-level rejection that never aborts the run.
func (r InvalidResult) AsValidationError() *apperrors.AppError {
	return apperrors.NewValidationError(r.Reason).WithDetails(strings.Join(r.MissingFields, ","))
}

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

// Package model defines the canonical record shape shared by the
// validator, dedup writer, and store adapters.
package model

import (
	"time"

	"github.com/prameyallc/congress-ingest/pkg/family"
)

// SchemaVersion is the canonical record's wire schema version, bumped
// only when the stored shape changes. It is not a per-record revision
// counter.
const SchemaVersion = 1

// MinDate is the lower bound on any normalized date, the date the
// first Congress convened.
const MinDate = "1789-03-04"

// Chamber is one of the three lowercase chamber tags.
type Chamber string

const (
	ChamberHouse  Chamber = "house"
	ChamberSenate Chamber = "senate"
	ChamberJoint  Chamber = "joint"
)

// ValidChamber reports whether c is one of the three recognized chambers.
func ValidChamber(c string) bool {
	switch Chamber(c) {
	case ChamberHouse, ChamberSenate, ChamberJoint:
		return true
	default:
		return false
	}
}

// Record is the canonical, normalized form every upstream item is
// converted to before it reaches the dedup batch writer.
type Record struct {
	ID         string
	Type       family.Tag
	Congress   int
	UpdateDate string // YYYY-MM-DD
	Version    int
	URL        string

	// Extras holds family-specific flat scalars and nested maps/lists.
	// Keys with empty/null trimmed values are never populated here;
	// the validator enforces that.
	Extras map[string]any
}

// Clone returns a deep-enough copy of r for idempotence comparisons:
// the top-level struct plus a fresh Extras map with the same
// scalar/nested values.
func (r Record) Clone() Record {
	out := r
	out.Extras = make(map[string]any, len(r.Extras))
	for k, v := range r.Extras {
		out.Extras[k] = v
	}
	return out
}

// minDateTime is MinDate parsed once for comparisons.
var minDateTime = mustParseDate(MinDate)

func mustParseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// ValidDate reports whether s is a valid Gregorian calendar date in
// YYYY-MM-DD form, no earlier than MinDate.
func ValidDate(s string) bool {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return false
	}
	// time.Parse already rejects impossible days such as "2024-02-30";
	// the round-trip additionally requires s to be exactly the canonical
	// formatted value.
	if t.Format("2006-01-02") != s {
		return false
	}
	return !t.Before(minDateTime)
}

// NormalizeDate converts an upstream ISO-8601 timestamp (date or
// date-time, optionally with a "Z"/offset suffix) to YYYY-MM-DD. It
// returns false if the input cannot be parsed as a valid calendar date.
func NormalizeDate(raw string) (string, bool) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			formatted := t.Format("2006-01-02")
			if ValidDate(formatted) {
				return formatted, true
			}
			return "", false
		}
	}
	return "", false
}

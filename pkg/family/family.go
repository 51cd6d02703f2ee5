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

// Package family is the closed registry of the 18 Congress.gov resource
// families and the metadata the rest of the core needs per family:
// upstream endpoint shape, required canonical fields, and how to
// synthesize a deterministic id.
package family

import "fmt"

// Tag identifies one of the 18 ingestible resource families.
type Tag string

const (
	Bill                     Tag = "bill"
	Amendment                Tag = "amendment"
	Committee                Tag = "committee"
	Hearing                  Tag = "hearing"
	Nomination               Tag = "nomination"
	Treaty                   Tag = "treaty"
	CommitteeReport          Tag = "committee-report"
	CommitteePrint           Tag = "committee-print"
	CommitteeMeeting         Tag = "committee-meeting"
	CongressionalRecord      Tag = "congressional-record"
	DailyCongressionalRecord Tag = "daily-congressional-record"
	BoundCongressionalRecord Tag = "bound-congressional-record"
	HouseCommunication       Tag = "house-communication"
	HouseRequirement         Tag = "house-requirement"
	SenateCommunication      Tag = "senate-communication"
	Member                   Tag = "member"
	Summary                  Tag = "summary"
	Congress                 Tag = "congress"
)

// All lists every registered family tag in a stable order, used by the
// scheduler to break ties without starving any family.
var All = []Tag{
	Bill, Amendment, Committee, Hearing, Nomination, Treaty,
	CommitteeReport, CommitteePrint, CommitteeMeeting,
	CongressionalRecord, DailyCongressionalRecord, BoundCongressionalRecord,
	HouseCommunication, HouseRequirement, SenateCommunication,
	Member, Summary, Congress,
}

// Spec describes the shape of one family: its upstream endpoint segment,
// the canonical fields required beyond the common envelope, and whether
// congress/chamber are mandatory for this family.
type Spec struct {
	Tag Tag

	// Endpoint is the upstream path segment, e.g. "bill", "amendment".
	Endpoint string

	// RequiredFields lists family-specific extras that must survive
	// validation beyond the common id/type/congress/update_date/version
	// envelope.
	RequiredFields []string

	// RequiresCongress marks families where congress must be present
	// (defaulted to 1 only when RequiresCongress is true and upstream
	// omitted it).
	RequiresCongress bool

	// IDFields lists, in order, the extras consulted to build the
	// deterministic id, after the family tag's own prefix rules are
	// applied by BuildID.
	IDFields []string
}

var registry = map[Tag]Spec{
	Bill: {
		Tag:              Bill,
		Endpoint:         "bill",
		RequiredFields:   []string{"bill_type", "bill_number", "title", "origin_chamber"},
		RequiresCongress: true,
		IDFields:         []string{"bill_type", "bill_number"},
	},
	Amendment: {
		Tag:              Amendment,
		Endpoint:         "amendment",
		RequiredFields:   []string{"amendment_type", "amendment_number"},
		RequiresCongress: true,
		IDFields:         []string{"amendment_type", "amendment_number"},
	},
	Committee: {
		Tag:              Committee,
		Endpoint:         "committee",
		RequiredFields:   []string{"name", "chamber", "system_code"},
		RequiresCongress: true,
		IDFields:         []string{"chamber", "system_code"},
	},
	Hearing: {
		Tag:              Hearing,
		Endpoint:         "hearing",
		RequiredFields:   []string{"chamber", "committee", "date"},
		RequiresCongress: true,
		IDFields:         []string{"chamber", "committee.system_code", "date"},
	},
	Nomination: {
		Tag:              Nomination,
		Endpoint:         "nomination",
		RequiredFields:   []string{"nomination_number"},
		RequiresCongress: true,
		IDFields:         []string{"nomination_number"},
	},
	Treaty: {
		Tag:              Treaty,
		Endpoint:         "treaty",
		RequiredFields:   []string{"treaty_number"},
		RequiresCongress: true,
		IDFields:         []string{"treaty_number"},
	},
	CommitteeReport: {
		Tag:              CommitteeReport,
		Endpoint:         "committee-report",
		RequiredFields:   []string{"chamber", "report_number"},
		RequiresCongress: true,
		IDFields:         []string{"chamber", "report_number"},
	},
	CommitteePrint: {
		Tag:              CommitteePrint,
		Endpoint:         "committee-print",
		RequiredFields:   []string{"chamber", "print_number"},
		RequiresCongress: true,
		IDFields:         []string{"chamber", "print_number"},
	},
	CommitteeMeeting: {
		Tag:              CommitteeMeeting,
		Endpoint:         "committee-meeting",
		RequiredFields:   []string{"chamber", "event_id"},
		RequiresCongress: true,
		IDFields:         []string{"chamber", "event_id"},
	},
	CongressionalRecord: {
		Tag:              CongressionalRecord,
		Endpoint:         "congressional-record",
		RequiredFields:   []string{"issue_date"},
		RequiresCongress: false,
		IDFields:         []string{"issue_date"},
	},
	DailyCongressionalRecord: {
		Tag:              DailyCongressionalRecord,
		Endpoint:         "daily-congressional-record",
		RequiredFields:   []string{"issue_date", "issue_number"},
		RequiresCongress: false,
		IDFields:         []string{"issue_date", "issue_number"},
	},
	BoundCongressionalRecord: {
		Tag:              BoundCongressionalRecord,
		Endpoint:         "bound-congressional-record",
		RequiredFields:   []string{"issue_date"},
		RequiresCongress: false,
		IDFields:         []string{"issue_date"},
	},
	HouseCommunication: {
		Tag:              HouseCommunication,
		Endpoint:         "house-communication",
		RequiredFields:   []string{"communication_type", "communication_number"},
		RequiresCongress: true,
		IDFields:         []string{"communication_type", "communication_number"},
	},
	HouseRequirement: {
		Tag:              HouseRequirement,
		Endpoint:         "house-requirement",
		RequiredFields:   []string{"requirement_number"},
		RequiresCongress: false,
		IDFields:         []string{"requirement_number"},
	},
	SenateCommunication: {
		Tag:              SenateCommunication,
		Endpoint:         "senate-communication",
		RequiredFields:   []string{"communication_type", "communication_number"},
		RequiresCongress: true,
		IDFields:         []string{"communication_type", "communication_number"},
	},
	Member: {
		Tag:              Member,
		Endpoint:         "member",
		RequiredFields:   []string{"bioguide_id"},
		RequiresCongress: false,
		IDFields:         []string{"bioguide_id"},
	},
	Summary: {
		Tag:              Summary,
		Endpoint:         "summary",
		RequiredFields:   []string{"bill_type", "bill_number"},
		RequiresCongress: true,
		IDFields:         []string{"bill_type", "bill_number"},
	},
	Congress: {
		Tag:              Congress,
		Endpoint:         "congress",
		RequiredFields:   []string{},
		RequiresCongress: true,
		IDFields:         []string{},
	},
}

// Lookup returns the registered Spec for a tag, or false if the tag is
// not one of the 18 registered families.
func Lookup(t Tag) (Spec, bool) {
	s, ok := registry[t]
	return s, ok
}

// MustLookup panics on an unregistered tag. Reaching an unregistered
// tag at this boundary is a programmer error (a traversal or validator
// bug), not a runtime condition to recover from.
func MustLookup(t Tag) Spec {
	s, ok := registry[t]
	if !ok {
		panic(fmt.Sprintf("family: unregistered tag %q", t))
	}
	return s
}

// Valid reports whether t names a registered family.
func Valid(t Tag) bool {
	_, ok := registry[t]
	return ok
}

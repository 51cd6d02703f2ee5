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

package logging

import (
	"errors"
	"testing"
	"time"
)

func TestNewFields(t *testing.T) {
	fields := NewFields()
	if fields == nil {
		t.Fatal("NewFields() returned nil")
	}
	if len(fields) != 0 {
		t.Errorf("NewFields() should be empty, got %d fields", len(fields))
	}
}

func TestFields_Component(t *testing.T) {
	fields := NewFields().Component("traversal")
	if fields["component"] != "traversal" {
		t.Errorf("Component() = %v, want %v", fields["component"], "traversal")
	}
}

func TestFields_Family(t *testing.T) {
	fields := NewFields().Family("bill")
	if fields["family"] != "bill" {
		t.Errorf("Family() = %v, want %v", fields["family"], "bill")
	}
}

func TestFields_FamilyEmpty(t *testing.T) {
	fields := NewFields().Family("")
	if _, exists := fields["family"]; exists {
		t.Error("Family(\"\") should not set the family field")
	}
}

func TestFields_Window(t *testing.T) {
	fields := NewFields().Window("2025-01-01", "2025-01-31")
	if fields["window_from"] != "2025-01-01" {
		t.Errorf("Window() window_from = %v, want %v", fields["window_from"], "2025-01-01")
	}
	if fields["window_to"] != "2025-01-31" {
		t.Errorf("Window() window_to = %v, want %v", fields["window_to"], "2025-01-31")
	}
}

func TestFields_Duration(t *testing.T) {
	fields := NewFields().Duration(150 * time.Millisecond)
	if fields["duration_ms"] != int64(150) {
		t.Errorf("Duration() = %v, want %v", fields["duration_ms"], int64(150))
	}
}

func TestFields_Error(t *testing.T) {
	fields := NewFields().Error(errors.New("boom"))
	if fields["error"] != "boom" {
		t.Errorf("Error() = %v, want %v", fields["error"], "boom")
	}
}

func TestFields_ErrorNil(t *testing.T) {
	fields := NewFields().Error(nil)
	if _, exists := fields["error"]; exists {
		t.Error("Error(nil) should not set the error field")
	}
}

func TestFields_ChainedCalls(t *testing.T) {
	fields := NewFields().
		Component("traversal").
		Operation("fetch_page").
		Family("bill").
		Count(3)

	expected := map[string]interface{}{
		"component": "traversal",
		"operation": "fetch_page",
		"family":    "bill",
		"count":     3,
	}
	for key, want := range expected {
		if fields[key] != want {
			t.Errorf("chained calls: %s = %v, want %v", key, fields[key], want)
		}
	}
}

func TestFetchFields(t *testing.T) {
	fields := FetchFields("bill", "2025-01-01..2025-01-31", 40)
	expected := map[string]interface{}{
		"component": "traversal",
		"operation": "fetch_page",
		"family":    "bill",
		"window":    "2025-01-01..2025-01-31",
		"offset":    40,
	}
	for key, want := range expected {
		if fields[key] != want {
			t.Errorf("FetchFields() %s = %v, want %v", key, fields[key], want)
		}
	}
}

func TestWriteFields(t *testing.T) {
	fields := WriteFields("bill", 25)
	expected := map[string]interface{}{
		"component": "writer",
		"operation": "write_batch",
		"family":    "bill",
		"count":     25,
	}
	for key, want := range expected {
		if fields[key] != want {
			t.Errorf("WriteFields() %s = %v, want %v", key, fields[key], want)
		}
	}
}

func TestGovernorFields(t *testing.T) {
	fields := GovernorFields("bill")
	if fields["component"] != "governor" {
		t.Errorf("GovernorFields() component = %v, want %v", fields["component"], "governor")
	}
	if fields["family"] != "bill" {
		t.Errorf("GovernorFields() family = %v, want %v", fields["family"], "bill")
	}
}

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

import "time"

// Fields is a chained structured-field builder for the ingestion
// domain's standard log dimensions (component, operation, family,
// window).
type Fields map[string]interface{}

// NewFields returns an empty field set.
func NewFields() Fields {
	return Fields{}
}

// Component tags which package emitted the log line.
func (f Fields) Component(name string) Fields {
	f["component"] = name
	return f
}

// Operation tags the logical operation in progress.
func (f Fields) Operation(name string) Fields {
	f["operation"] = name
	return f
}

// Family tags the resource family a log line concerns.
func (f Fields) Family(tag string) Fields {
	if tag != "" {
		f["family"] = tag
	}
	return f
}

// Window tags the date window ([from, to)) a log line concerns.
func (f Fields) Window(from, to string) Fields {
	if from != "" {
		f["window_from"] = from
	}
	if to != "" {
		f["window_to"] = to
	}
	return f
}

// Duration records an elapsed time in milliseconds.
func (f Fields) Duration(d time.Duration) Fields {
	f["duration_ms"] = d.Milliseconds()
	return f
}

// Count records an item count.
func (f Fields) Count(n int) Fields {
	f["count"] = n
	return f
}

// Error records err's message, doing nothing on a nil error.
func (f Fields) Error(err error) Fields {
	if err != nil {
		f["error"] = err.Error()
	}
	return f
}

// Custom sets an arbitrary key.
func (f Fields) Custom(key string, value interface{}) Fields {
	f[key] = value
	return f
}

// FetchFields builds the standard field set for a fetch/traversal log
// line.
func FetchFields(family, window string, offset int) Fields {
	return NewFields().
		Component("traversal").
		Operation("fetch_page").
		Family(family).
		Custom("window", window).
		Custom("offset", offset)
}

// WriteFields builds the standard field set for a dedup-writer log line.
func WriteFields(family string, batchSize int) Fields {
	return NewFields().
		Component("writer").
		Operation("write_batch").
		Family(family).
		Count(batchSize)
}

// GovernorFields builds the standard field set for a rate-governor log
// line.
func GovernorFields(family string) Fields {
	return NewFields().
		Component("governor").
		Family(family)
}

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
	"testing"

	"github.com/prameyallc/congress-ingest/internal/config"
)

func TestNew_DefaultsToInfoOnUnknownLevel(t *testing.T) {
	z, err := New(config.LoggingConfig{Level: "not-a-level", Format: "json"})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if !z.Core().Enabled(0) { // zapcore.InfoLevel == 0
		t.Error("expected info level to be enabled by default")
	}
}

func TestNew_ConsoleEncoding(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
}

func TestNewLogr_WrapsZapLogger(t *testing.T) {
	z, err := New(config.LoggingConfig{Level: "info", Format: "json"})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	log := NewLogr(z)
	log.Info("smoke test")
}

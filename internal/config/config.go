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

// Package config loads the ingest core's configuration from a YAML
// file, overlays process-environment secrets, and validates the result
// before the run driver starts.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/prameyallc/congress-ingest/pkg/dedup"
)

// APIConfig is the `api.*` section.
type APIConfig struct {
	BaseURL string `yaml:"base_url" validate:"required,url"`

	RateLimit struct {
		RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gt=0"`
		MaxRetries        int           `yaml:"max_retries" validate:"gte=0"`
		RetryDelay        time.Duration `yaml:"retry_delay"`
	} `yaml:"rate_limit"`

	// EndpointRateLimits overrides RateLimit.RequestsPerSecond per
	// family tag.
	EndpointRateLimits map[string]float64 `yaml:"endpoint_rate_limits"`

	// TimeoutConfig names a (connect, read) pair per family.
	TimeoutConfig map[string]struct {
		Connect time.Duration `yaml:"connect"`
		Read    time.Duration `yaml:"read"`
	} `yaml:"timeout_config"`

	// APIKey is never read from YAML; secrets come from the process
	// environment, so only loadFromEnv populates it.
	APIKey string `yaml:"-"`
}

// DeduplicationConfig is `store.deduplication.*`.
type DeduplicationConfig struct {
	Enabled           bool                 `yaml:"enabled"`
	ResetFrequency    dedup.ResetFrequency `yaml:"reset_frequency" validate:"oneof=per_date per_range per_session"`
	MemoryThresholdMB int                  `yaml:"memory_threshold_mb"`
}

// StoreConfig is the `store.*` section.
type StoreConfig struct {
	TableName     string              `yaml:"table_name" validate:"required"`
	Region        string              `yaml:"region"`
	Deduplication DeduplicationConfig `yaml:"deduplication"`

	// Credentials are never read from YAML; populated by loadFromEnv.
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// DateRangesConfig is `ingest.date_ranges.*`.
type DateRangesConfig struct {
	MaxRangeDays int    `yaml:"max_range_days" validate:"gt=0"`
	MinDate      string `yaml:"min_date"`
}

// ParallelConfig is `ingest.parallel.*`.
type ParallelConfig struct {
	MaxWorkers int `yaml:"max_workers" validate:"min=1,max=10"`
	ChunkSize  int `yaml:"chunk_size"`
}

// IngestConfig is the `ingest.*` section.
type IngestConfig struct {
	BatchSize           int              `yaml:"batch_size" validate:"gt=0"`
	DefaultLookbackDays int              `yaml:"default_lookback_days"`
	DateRanges          DateRangesConfig `yaml:"date_ranges"`
	Parallel            ParallelConfig   `yaml:"parallel"`
}

// LoggingConfig controls internal/logging's zap construction.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NotifyConfig names the environment variable holding the Slack webhook
// URL, never the URL itself (it is a secret).
type NotifyConfig struct {
	SlackWebhookEnvVar string `yaml:"slack_webhook_env_var"`
}

// RunlogConfig names the environment variable holding the run-history
// database DSN, never the DSN itself.
type RunlogConfig struct {
	DSNEnvVar string `yaml:"dsn_env_var"`
}

// Config is the root configuration document.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	Runlog  RunlogConfig  `yaml:"runlog"`
}

// forbiddenKeys are literal secret-shaped keys Load rejects outright if
// present in the file; secrets come from the environment only.
// "password:" also matches any key ending in "password" (db_password:).
var forbiddenKeys = []string{"api_key:", "access_key_id:", "secret_access_key:", "password:"}

// Load reads path, applies defaults, rejects any literal secret key,
// unmarshals YAML into a Config, overlays environment secrets, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := rejectSecretKeys(data); err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment secrets: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func rejectSecretKeys(data []byte) error {
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(strings.TrimSpace(line), "- ")
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		name, _, hasColon := strings.Cut(trimmed, ":")
		for _, key := range forbiddenKeys {
			if strings.HasPrefix(trimmed, key) || (key == "password:" && hasColon && strings.HasSuffix(name, "password")) {
				return fmt.Errorf("config file must not contain secret key %q: secrets come from the environment", key)
			}
		}
	}
	return nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.API.RateLimit.RequestsPerSecond = 5
	cfg.API.RateLimit.MaxRetries = 3
	cfg.API.RateLimit.RetryDelay = 2 * time.Second
	cfg.Store.Deduplication.ResetFrequency = dedup.PerDate
	cfg.Ingest.BatchSize = 100
	cfg.Ingest.DefaultLookbackDays = 7
	cfg.Ingest.DateRanges.MaxRangeDays = 365
	cfg.Ingest.DateRanges.MinDate = "1789-03-04"
	cfg.Ingest.Parallel.MaxWorkers = 3
	cfg.Ingest.Parallel.ChunkSize = 1
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}

// loadFromEnv overlays the secrets the config file may not carry: the
// upstream API key and store credentials.
func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("CONGRESS_API_KEY"); v != "" {
		cfg.API.APIKey = v
	}
	if v := os.Getenv("CONGRESS_STORE_ACCESS_KEY_ID"); v != "" {
		cfg.Store.AccessKeyID = v
	}
	if v := os.Getenv("CONGRESS_STORE_SECRET_ACCESS_KEY"); v != "" {
		cfg.Store.SecretAccessKey = v
	}
	if v := os.Getenv("CONGRESS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CONGRESS_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONGRESS_MAX_WORKERS must be an integer: %w", err)
		}
		cfg.Ingest.Parallel.MaxWorkers = n
	}
	return nil
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// validate runs the struct tags through go-playground/validator and
// reports the first failure by its config-file option name (e.g.
// "ingest.parallel.max_workers"), not the Go field path, so operators
// can find the offending line.
func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fmt.Errorf("%s must satisfy %s=%s", optionName(fe.Namespace()), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%s must satisfy %s", optionName(fe.Namespace()), fe.Tag())
	}
	return err
}

// optionName maps a validator namespace like
// "Config.Ingest.Parallel.MaxWorkers" to "ingest.parallel.max_workers".
func optionName(namespace string) string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 0 && segments[0] == "Config" {
		segments = segments[1:]
	}
	for i, seg := range segments {
		segments[i] = toSnake(seg)
	}
	return strings.Join(segments, ".")
}

// toSnake converts an exported field name to its snake_case YAML key,
// keeping acronym runs together (BaseURL -> base_url, MemoryThresholdMB
// -> memory_threshold_mb).
func toSnake(field string) string {
	var out []rune
	runes := []rune(field)
	for i, r := range runes {
		if r >= 'A' && r <= 'Z' {
			prevLower := i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if i > 0 && (prevLower || nextLower) {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

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

package governor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"

	"github.com/prameyallc/congress-ingest/pkg/family"
)

// RedisHealthMirror is a best-effort, advisory mirror of the per-family
// health map into Redis, for operators running multiple ingest
// processes who want a single place to eyeball family health across
// instances. It never feeds back into pacing decisions; a write
// failure is logged and swallowed.
type RedisHealthMirror struct {
	client *redis.Client
	prefix string
	log    logr.Logger
	ttl    time.Duration
}

// NewRedisHealthMirror builds a mirror over an existing redis client.
// keyPrefix namespaces keys, e.g. "congress-ingest:health:".
func NewRedisHealthMirror(client *redis.Client, keyPrefix string, log logr.Logger) *RedisHealthMirror {
	return &RedisHealthMirror{client: client, prefix: keyPrefix, log: log, ttl: 5 * time.Minute}
}

// ReportHealth implements HealthMirror.
func (m *RedisHealthMirror) ReportHealth(ctx context.Context, tag family.Tag, consecutiveErrors int, healthFactor float64) {
	key := m.prefix + string(tag)
	val := fmt.Sprintf("errors=%d health=%.3f", consecutiveErrors, healthFactor)
	if err := m.client.Set(ctx, key, val, m.ttl).Err(); err != nil {
		m.log.V(1).Info("health mirror write failed, continuing without it", "family", tag, "error", err.Error())
	}
}

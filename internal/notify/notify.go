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

// Package notify posts fatal run-state alerts to Slack, invoked from
// cmd/healthprobe when the store or upstream reachability check fails.
package notify

import (
	"fmt"
	"os"

	"github.com/slack-go/slack"
)

// postWebhook is a package variable so tests can stub out the network
// call without standing up a Slack-compatible HTTP server.
var postWebhook = slack.PostWebhook

// Notifier posts alerts to a Slack incoming webhook. A Notifier with no
// webhook URL is a valid, silent no-op, so callers don't need to branch
// on whether alerting is configured.
type Notifier struct {
	webhookURL string
}

// New builds a Notifier, reading the webhook URL from the environment
// variable named by envVar (the notify.slack_webhook_env_var option).
// An empty envVar, or an unset variable, produces a no-op Notifier.
func New(envVar string) *Notifier {
	if envVar == "" {
		return &Notifier{}
	}
	return &Notifier{webhookURL: os.Getenv(envVar)}
}

// Enabled reports whether alerts will actually be sent.
func (n *Notifier) Enabled() bool {
	return n != nil && n.webhookURL != ""
}

// Alert posts message, prefixed with a fixed "[congress-ingest]" tag so
// alerts are identifiable in a shared channel. It is a no-op if the
// Notifier has no webhook configured.
func (n *Notifier) Alert(message string) error {
	if !n.Enabled() {
		return nil
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("[congress-ingest] %s", message),
	}
	if err := postWebhook(n.webhookURL, msg); err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	return nil
}

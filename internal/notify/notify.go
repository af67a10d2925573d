// Package notify delivers webhook notifications for backup lifecycle
// events: a successful backup, a failed backup, and a completed retention
// sweep. Delivery is best-effort; a webhook failure never fails the
// underlying operation.
package notify

import (
	"bytes"
	"context"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vaultwatch/vaultwatch/internal/logging"
	"github.com/vaultwatch/vaultwatch/internal/metrics"
)

// Event names reported in the webhook payload's "event" field.
const (
	EventBackupSuccess = "backup_success"
	EventBackupFailure = "backup_failure"
	EventCleanup       = "cleanup"
)

// Config holds the notifier's webhook target and which events to send.
type Config struct {
	WebhookURL string
	OnSuccess  bool
	OnFailure  bool
	OnCleanup  bool
}

// Notifier posts JSON event payloads to a configured webhook URL.
type Notifier struct {
	config     Config
	httpClient *http.Client
	deviceID   string
}

func New(config Config, deviceID string) *Notifier {
	return &Notifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		deviceID: deviceID,
	}
}

// Payload is the JSON body posted to the webhook URL.
type Payload struct {
	Event     string         `json:"event"`
	DeviceID  string         `json:"device_id"`
	Timestamp time.Time      `json:"timestamp"`
	Detail    map[string]any `json:"detail,omitempty"`
}

// BackupSucceeded notifies that path was backed up successfully.
func (n *Notifier) BackupSucceeded(ctx context.Context, path string, version int) {
	if !n.config.OnSuccess {
		return
	}
	n.send(ctx, EventBackupSuccess, map[string]any{"path": path, "version": version})
}

// BackupFailed notifies that path failed to back up.
func (n *Notifier) BackupFailed(ctx context.Context, path string, cause error) {
	if !n.config.OnFailure {
		return
	}
	n.send(ctx, EventBackupFailure, map[string]any{"path": path, "error": cause.Error()})
}

// CleanupCompleted notifies that a retention sweep finished.
func (n *Notifier) CleanupCompleted(ctx context.Context, versionsRemoved int64, bytesFreed int64) {
	if !n.config.OnCleanup {
		return
	}
	n.send(ctx, EventCleanup, map[string]any{"versions_removed": versionsRemoved, "bytes_freed": bytesFreed})
}

// send posts one event. It never retries: a webhook collaborator that is
// temporarily unreachable simply misses the notification, and the next
// event carries current state anyway.
func (n *Notifier) send(ctx context.Context, event string, detail map[string]any) {
	if n.config.WebhookURL == "" {
		return
	}

	body, err := json.Marshal(Payload{
		Event:     event,
		DeviceID:  n.deviceID,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
	})
	if err != nil {
		logging.Warn().Err(err).Str("event", event).Msg("failed to marshal notification payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.WebhookURL, bytes.NewReader(body))
	if err != nil {
		logging.Warn().Err(err).Str("event", event).Msg("failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		metrics.NotifyDeliveries.WithLabelValues(event, "failed").Inc()
		logging.Warn().Err(err).Str("event", event).Msg("webhook delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		metrics.NotifyDeliveries.WithLabelValues(event, "rejected").Inc()
		logging.Warn().Str("event", event).Int("status", resp.StatusCode).Msg("webhook endpoint rejected notification")
		return
	}

	metrics.NotifyDeliveries.WithLabelValues(event, "success").Inc()
}

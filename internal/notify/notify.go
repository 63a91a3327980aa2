// Package notify delivers review reminders to users.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/platform/logger"
)

// ErrDeliveryFailed is returned when the remote end rejects a reminder.
var ErrDeliveryFailed = errors.New("reminder delivery failed")

// Reminder tells a user that items are waiting for review.
type Reminder struct {
	UserID   uuid.UUID `json:"user_id"`
	DueCount int       `json:"due_count"`
	DueAt    time.Time `json:"due_at"`
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes each reminder as a structured log line. It is the
// default when no delivery endpoint is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(l *slog.Logger) *LogNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &LogNotifier{logger: l.With(slog.String("component", "log_notifier"))}
}

func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	logger.FromContextOrDefault(ctx, n.logger).Info("items due for review",
		slog.String("user_id", r.UserID.String()),
		slog.Int("due_count", r.DueCount),
		slog.Time("due_at", r.DueAt))
	return nil
}

// WebhookNotifier POSTs each reminder as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewWebhookNotifier creates a notifier posting to url with the given timeout.
func NewWebhookNotifier(url string, timeout time.Duration, l *slog.Logger) *WebhookNotifier {
	if l == nil {
		l = slog.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: l.With(slog.String("component", "webhook_notifier")),
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, r Reminder) error {
	log := logger.FromContextOrDefault(ctx, n.logger)

	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reminder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Warn("reminder webhook unreachable", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn("reminder webhook rejected delivery",
			slog.Int("status", resp.StatusCode),
			slog.String("user_id", r.UserID.String()))
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}

	log.Debug("reminder delivered", slog.String("user_id", r.UserID.String()))
	return nil
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*WebhookNotifier)(nil)
)

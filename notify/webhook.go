package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"suggestguard/utils"
)

// errStatus marks a non-2xx webhook response.
type errStatus struct {
	code int
}

func (e *errStatus) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryableStatus(err error) bool {
	var se *errStatus
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return !errors.Is(err, context.Canceled)
}

// WebhookNotifier POSTs the event as JSON to a URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
	retry  *utils.RetryConfig
	// format renders the request body. Defaults to the raw event.
	format func(Event) any
	name   string
}

// NewWebhookNotifier creates a generic JSON webhook notifier.
func NewWebhookNotifier(url string, logger *utils.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		retry: &utils.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    5 * time.Second,
			Retryable:   retryableStatus,
			Logger:      logger,
		},
		format: func(ev Event) any { return ev },
		name:   "webhook",
	}
}

// NewSlackNotifier creates a notifier for a Slack incoming webhook.
func NewSlackNotifier(url string, logger *utils.Logger) *WebhookNotifier {
	n := NewWebhookNotifier(url, logger)
	n.name = "slack"
	n.format = func(ev Event) any {
		return map[string]string{"text": SlackText(ev)}
	}
	return n
}

// WithRetry replaces the retry policy.
func (w *WebhookNotifier) WithRetry(rc *utils.RetryConfig) *WebhookNotifier {
	rc.Retryable = retryableStatus
	w.retry = rc
	return w
}

func (w *WebhookNotifier) Name() string {
	return w.name
}

func (w *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	body, err := json.Marshal(w.format(ev))
	if err != nil {
		return fmt.Errorf("%s: encode: %w", w.name, err)
	}

	return w.retry.Do(ctx, w.name+" delivery", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &errStatus{code: resp.StatusCode}
		}
		return nil
	})
}

// SlackText renders ev as a Slack mrkdwn message.
func SlackText(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, ":warning: *%s*: %d new negative suggestion(s)\n",
		ev.BrandName, len(ev.NewNegativeSuggestions))
	for _, s := range ev.NewNegativeSuggestions {
		fmt.Fprintf(&b, "• #%d `%s` (%s)\n", s.Rank+1, s.Text, s.Category)
	}
	fmt.Fprintf(&b, "_%s_", ev.Timestamp.Format(time.RFC1123))
	return b.String()
}

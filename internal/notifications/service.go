package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jellymigrate/internal/config"
)

const userAgent = "jellymigrate/0.1.0"

// Summary is the outcome of one migration run.
type Summary struct {
	Operation string
	RunID     string
	DryRun    bool
	Migrated  int
	Skipped   int
	Unmatched int
	Failed    int
	Elapsed   time.Duration
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary Summary) error
	NotifyRunAborted(ctx context.Context, operation string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary Summary) error {
	elapsed := summary.Elapsed.Round(time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	operation := strings.TrimSpace(summary.Operation)

	title := fmt.Sprintf("jellymigrate - %s complete", operation)
	tags := []string{"jellymigrate", operation, "completed"}
	if summary.Failed > 0 {
		title += " (with errors)"
		tags = append(tags, "warning")
	}
	if summary.DryRun {
		title += " [dry run]"
	}

	message := fmt.Sprintf("%d migrated, %d skipped, %d unmatched, %d failed in %s",
		summary.Migrated, summary.Skipped, summary.Unmatched, summary.Failed, elapsed)
	if summary.RunID != "" {
		message += "\nRun: " + summary.RunID
	}
	return n.send(ctx, payload{title: title, message: message, tags: tags})
}

func (n *ntfyService) NotifyRunAborted(ctx context.Context, operation string, err error) error {
	var builder strings.Builder
	builder.WriteString("Aborted")
	if operation = strings.TrimSpace(operation); operation != "" {
		builder.WriteString(" ")
		builder.WriteString(operation)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "jellymigrate - Error",
		message:  builder.String(),
		tags:     []string{"jellymigrate", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "jellymigrate - Test",
		message:  "Notification system test",
		tags:     []string{"jellymigrate", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, Summary) error     { return nil }
func (noopService) NotifyRunAborted(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }

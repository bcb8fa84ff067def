package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jellymigrate/internal/config"
	"jellymigrate/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunCompleted(context.Background(), notifications.Summary{Operation: "ratings"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run completed",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), notifications.Summary{
					Operation: "ratings",
					RunID:     "run-1",
					Migrated:  12,
					Skipped:   3,
					Unmatched: 1,
					Elapsed:   90*time.Second + 400*time.Millisecond,
				})
			},
			expectTitle:   "jellymigrate - ratings complete",
			expectMessage: "12 migrated, 3 skipped, 1 unmatched, 0 failed in 1m30s\nRun: run-1",
			expectTags:    "jellymigrate,ratings,completed",
		},
		{
			name: "run with failures in dry run",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), notifications.Summary{
					Operation: "posters",
					DryRun:    true,
					Failed:    2,
				})
			},
			expectTitle:   "jellymigrate - posters complete (with errors) [dry run]",
			expectMessage: "0 migrated, 0 skipped, 0 unmatched, 2 failed in 0s",
			expectTags:    "jellymigrate,posters,completed,warning",
		},
		{
			name: "run aborted",
			send: func(svc notifications.Service) error {
				return svc.NotifyRunAborted(context.Background(), "users", errors.New("authentication failure"))
			},
			expectTitle:    "jellymigrate - Error",
			expectMessage:  "Aborted users: authentication failure",
			expectTags:     "jellymigrate,error,alert",
			expectPriority: "high",
		},
		{
			name: "test",
			send: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "jellymigrate - Test",
			expectMessage:  "Notification system test",
			expectTags:     "jellymigrate,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Errorf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			if err := tc.send(notifications.NewService(&cfg)); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	err := notifications.NewService(&cfg).TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if got := err.Error(); got != "ntfy returned 429: topic quota exceeded" {
		t.Fatalf("unexpected error %q", got)
	}
}

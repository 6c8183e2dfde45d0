package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ckcrowd/internal/config"
)

const userAgent = "ckcrowd/0.1.0"

// Event names one notification type.
type Event string

const (
	EventStageCompleted      Event = "stage_completed"
	EventStageFailed         Event = "stage_failed"
	EventAdjudicationPending Event = "adjudication_pending"
	EventBonusesSent         Event = "bonuses_sent"
	EventTest                Event = "test"
)

// Payload carries the event fields used to format the message.
type Payload map[string]any

// Service publishes campaign events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
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
		settings: cfg.Notifications,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	settings config.Notifications
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled(event) {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func (n *ntfyService) enabled(event Event) bool {
	switch event {
	case EventStageCompleted:
		return n.settings.Stages
	case EventStageFailed:
		return n.settings.Errors
	case EventAdjudicationPending:
		return n.settings.Adjudication
	case EventBonusesSent:
		return n.settings.Bonuses
	case EventTest:
		return true
	default:
		return false
	}
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventStageCompleted:
		body := fmt.Sprintf("%s complete: %d/%d items accepted, %d tasks forwarded",
			payload.text("stage"), payload.number("accepted"), payload.number("items"), payload.number("forwarded"))
		if skipped := payload.number("skipped"); skipped > 0 {
			body = fmt.Sprintf("%s\n%d submissions skipped", body, skipped)
		}
		return message{
			title: "ckcrowd - Stage Complete",
			body:  body,
			tags:  []string{"ckcrowd", "stage", "completed"},
		}, true
	case EventStageFailed:
		body := "Stage failed"
		if stage := payload.text("stage"); stage != "" {
			body = stage + " failed"
		}
		if err := payload.text("error"); err != "" {
			body += ": " + err
		}
		return message{
			title:    "ckcrowd - Error",
			body:     body,
			tags:     []string{"ckcrowd", "error", "alert"},
			priority: "high",
		}, true
	case EventAdjudicationPending:
		return message{
			title: "ckcrowd - Review Needed",
			body: fmt.Sprintf("%d expert disagreements await resolution\nRun: ckcrowd adjudicate template",
				payload.number("disagreements")),
			tags: []string{"ckcrowd", "adjudicate", "review"},
		}, true
	case EventBonusesSent:
		return message{
			title: "ckcrowd - Bonuses Sent",
			body: fmt.Sprintf("%s: %d bonuses paid, %s total",
				payload.text("stage"), payload.number("sent"), payload.text("amount")),
			tags: []string{"ckcrowd", "bonus", "sent"},
		}, true
	case EventTest:
		return message{
			title:    "ckcrowd - Test",
			body:     "Notification system test",
			tags:     []string{"ckcrowd", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) number(key string) int {
	if p == nil {
		return 0
	}
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

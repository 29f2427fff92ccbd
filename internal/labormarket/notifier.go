package labormarket

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NotificationKind names the event types delivered to the run host's
// notification endpoint. The encoding mirrors the labor market's own
// webhook format so replayed and synthesized notifications travel the
// same code path as real ones.
type NotificationKind string

const (
	NotificationAssignmentSubmitted NotificationKind = "AssignmentSubmitted"
	NotificationAssignmentAbandoned NotificationKind = "AssignmentAbandoned"
	NotificationAssignmentReturned  NotificationKind = "AssignmentReturned"
	NotificationMissing             NotificationKind = "NotificationMissing"
)

const defaultNotifyTimeout = 30 * time.Second

// Notifier posts labor market event notifications to a run host over HTTP.
type Notifier struct {
	base   string
	client *http.Client
}

// NewNotifier builds a notifier for the run host at base (scheme and host,
// no trailing path).
func NewNotifier(base string) (*Notifier, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return nil, fmt.Errorf("labormarket: notifier base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("labormarket: notifier base url: %w", err)
	}
	return &Notifier{base: base, client: &http.Client{Timeout: defaultNotifyTimeout}}, nil
}

// PostNotification delivers a single event for an assignment. A non-2xx
// response is an error so callers can retry on the next sweep.
func (n *Notifier) PostNotification(ctx context.Context, kind NotificationKind, assignmentRef string) error {
	form := url.Values{}
	form.Set("Event.1.EventType", string(kind))
	form.Set("Event.1.AssignmentId", assignmentRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.base+"/notifications",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("labormarket: build notification: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("labormarket: post %s for %s: %w", kind, assignmentRef, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("labormarket: post %s for %s: status %d", kind, assignmentRef, resp.StatusCode)
	}
	return nil
}

package labormarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNotifierPostsFormEncodedEvent(t *testing.T) {
	var gotType, gotRef string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/notifications" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotType = r.PostForm.Get("Event.1.EventType")
		gotRef = r.PostForm.Get("Event.1.AssignmentId")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n, err := NewNotifier(srv.URL + "/")
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.PostNotification(context.Background(), NotificationAssignmentSubmitted, "asg-7"); err != nil {
		t.Fatalf("post notification: %v", err)
	}
	if gotType != "AssignmentSubmitted" || gotRef != "asg-7" {
		t.Fatalf("got event %q for %q", gotType, gotRef)
	}
}

func TestNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n, err := NewNotifier(srv.URL)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := n.PostNotification(context.Background(), NotificationMissing, "asg-7"); err == nil {
		t.Fatalf("expected error on 502 response")
	}
}

func TestNotifierRequiresBaseURL(t *testing.T) {
	if _, err := NewNotifier("   "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

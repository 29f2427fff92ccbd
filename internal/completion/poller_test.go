package completion

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crowdcore/internal/hosting"
)

type fakeHosting struct {
	mu       sync.Mutex
	statuses []hosting.RunStatus
	errs     []error
	calls    int
	tornDown []string
}

func (f *fakeHosting) RunStatus(_ context.Context, _ string) (hosting.RunStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return hosting.RunStatus{}, f.errs[i]
	}
	if i >= len(f.statuses) {
		return f.statuses[len(f.statuses)-1], nil
	}
	return f.statuses[i], nil
}

func (f *fakeHosting) Teardown(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tornDown = append(f.tornDown, runID)
	return nil
}

func (f *fakeHosting) DisableAutoRecruit(context.Context, string) error { return nil }

func TestWaitReturnsAfterCompletionAndTeardown(t *testing.T) {
	fake := &fakeHosting{statuses: []hosting.RunStatus{
		{Status: "running"},
		{Status: "running"},
		{Status: "completed", Completed: true},
	}}
	p := New(fake, "run-1", WithInterval(time.Millisecond))

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(fake.tornDown) != 1 || fake.tornDown[0] != "run-1" {
		t.Fatalf("teardown calls = %v, want [run-1]", fake.tornDown)
	}
	if fake.calls != 3 {
		t.Fatalf("status polls = %d, want 3", fake.calls)
	}
}

func TestWaitRetriesAfterStatusError(t *testing.T) {
	fake := &fakeHosting{
		errs:     []error{errors.New("bad gateway")},
		statuses: []hosting.RunStatus{{}, {Status: "completed", Completed: true}},
	}
	p := New(fake, "run-1", WithInterval(time.Millisecond))

	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if len(fake.tornDown) != 1 {
		t.Fatalf("teardown calls = %v, want one", fake.tornDown)
	}
}

func TestWaitStopsOnCancellation(t *testing.T) {
	fake := &fakeHosting{statuses: []hosting.RunStatus{{Status: "running"}}}
	p := New(fake, "run-1", WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Wait(ctx) }()
	time.Sleep(15 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("wait returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("wait did not stop after cancellation")
	}
	if len(fake.tornDown) != 0 {
		t.Fatalf("cancelled wait must not tear down, got %v", fake.tornDown)
	}
}

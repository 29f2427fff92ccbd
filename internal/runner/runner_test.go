package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"crowdcore/internal/blob"
	"crowdcore/internal/config"
	"crowdcore/internal/core"
	"crowdcore/internal/export"
	"crowdcore/internal/hosting"
	"crowdcore/internal/infra/persistence/memory"
	"crowdcore/internal/labormarket"
)

type completedHosting struct {
	mu       sync.Mutex
	polls    int
	tornDown int
}

func (h *completedHosting) RunStatus(context.Context, string) (hosting.RunStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.polls++
	return hosting.RunStatus{Status: "completed", Completed: true}, nil
}

func (h *completedHosting) Teardown(context.Context, string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.tornDown++
	return nil
}

func (h *completedHosting) DisableAutoRecruit(context.Context, string) error { return nil }

func newTestRunner(t *testing.T, cfg config.Config, host hosting.Client) (*Runner, *labormarket.LocalClient, *export.Exporter) {
	t.Helper()
	store := memory.NewStore(core.NewDefaultRulesEngine())
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	store.SetNowFunc(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	})
	market := labormarket.NewLocal()
	svc := core.NewService(store, market)
	exporter := export.New(store, blob.NewMemory())
	return New(cfg, svc, market, host, exporter), market, exporter
}

func TestRunWaitsTearsDownAndExports(t *testing.T) {
	cfg := config.Config{
		RunID:             "run-1",
		ExperimentRepeats: 2,
		NetworkMaxSize:    3,
		InitialRecruits:   2,
		PollInterval:      time.Millisecond,
	}
	host := &completedHosting{}
	r, market, _ := newTestRunner(t, cfg, host)

	manifest, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if market.Recruited() != 2 {
		t.Fatalf("recruited = %d, want 2", market.Recruited())
	}
	if host.tornDown != 1 {
		t.Fatalf("teardown calls = %d, want 1", host.tornDown)
	}
	if len(manifest.Files) == 0 {
		t.Fatalf("manifest has no files")
	}
}

func TestDebugRunSkipsCompletionPoll(t *testing.T) {
	cfg := config.Config{
		RunID:             "run-1",
		Debug:             true,
		ExperimentRepeats: 1,
		NetworkMaxSize:    1,
	}
	host := &completedHosting{}
	r, _, _ := newTestRunner(t, cfg, host)

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if host.polls != 0 || host.tornDown != 0 {
		t.Fatalf("debug run must not touch hosting, got polls=%d teardowns=%d", host.polls, host.tornDown)
	}
}

func TestCollectReturnsExistingExport(t *testing.T) {
	cfg := config.Config{
		RunID:             "run-1",
		Debug:             true,
		ExperimentRepeats: 1,
		NetworkMaxSize:    1,
		InitialRecruits:   1,
	}
	r, market, _ := newTestRunner(t, cfg, nil)
	ctx := context.Background()

	first, err := r.Collect(ctx)
	if err != nil {
		t.Fatalf("first collect: %v", err)
	}
	second, err := r.Collect(ctx)
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if second.RunID != first.RunID || len(second.Files) != len(first.Files) {
		t.Fatalf("collect mismatch: %+v vs %+v", first, second)
	}
	if market.Recruited() != 1 {
		t.Fatalf("recruited = %d, second collect must not rerun", market.Recruited())
	}
}

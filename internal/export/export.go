// Package export serializes a run's entity tables to the blob store so the
// data survives teardown of the hosted run. Each run exports once; later
// collections read the stored copy.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"crowdcore/internal/blob"
	"crowdcore/internal/core"
	"crowdcore/pkg/domain"
)

// Manifest records what an export produced. It is stored alongside the
// data files and doubles as the existence marker for a completed export.
type Manifest struct {
	RunID      string    `json:"run_id"`
	ExportedAt time.Time `json:"exported_at"`
	Files      []string  `json:"files"`
}

// Exporter writes run data into a blob store.
type Exporter struct {
	store domain.PersistentStore
	blobs blob.Store
	clock core.Clock
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithClock overrides the time source used for the manifest timestamp.
func WithClock(c core.Clock) Option {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

// New builds an exporter over the entity store and a blob backend.
func New(store domain.PersistentStore, blobs blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		store: store,
		blobs: blobs,
		clock: core.ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func manifestKey(runID string) string { return "runs/" + runID + "/manifest.json" }

// clearPartialExport removes data files abandoned by an export that failed
// before its manifest was written. A run with a manifest is complete and is
// never touched; exporting it again is an error.
func (e *Exporter) clearPartialExport(ctx context.Context, runID string) error {
	infos, err := e.blobs.List(ctx, "runs/"+runID+"/")
	if err != nil {
		return fmt.Errorf("export: list %s: %w", runID, err)
	}
	for _, info := range infos {
		if info.Key == manifestKey(runID) {
			return fmt.Errorf("export: run %s already exported", runID)
		}
	}
	for _, info := range infos {
		if _, err := e.blobs.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("export: clear partial export %s: %w", info.Key, err)
		}
	}
	return nil
}

// Existing returns the manifest of a prior export of runID, if one was
// completed.
func (e *Exporter) Existing(ctx context.Context, runID string) (Manifest, bool, error) {
	infos, err := e.blobs.List(ctx, manifestKey(runID))
	if err != nil {
		return Manifest{}, false, fmt.Errorf("export: list %s: %w", runID, err)
	}
	if len(infos) == 0 {
		return Manifest{}, false, nil
	}
	_, rc, err := e.blobs.Get(ctx, manifestKey(runID))
	if err != nil {
		return Manifest{}, false, fmt.Errorf("export: read manifest for %s: %w", runID, err)
	}
	defer rc.Close()
	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, false, fmt.Errorf("export: decode manifest for %s: %w", runID, err)
	}
	return m, true, nil
}

// Export writes the run's networks, participants, and nodes as CSV plus a
// complete JSON snapshot, then the manifest. The manifest goes last so a
// partial export is never mistaken for a finished one; data files left by
// an export that failed partway are cleared before writing, so a retry
// starts clean instead of tripping over the create-only blob semantics.
func (e *Exporter) Export(ctx context.Context, runID string) (Manifest, error) {
	if err := e.clearPartialExport(ctx, runID); err != nil {
		return Manifest{}, err
	}

	var (
		networks     []domain.Network
		participants []domain.Participant
		nodes        []domain.Node
	)
	// One view so the watchdog cannot tear the snapshot between tables.
	if err := e.store.View(ctx, func(view domain.TransactionView) error {
		networks = view.ListNetworks()
		participants = view.ListParticipants()
		nodes = view.ListNodes()
		return nil
	}); err != nil {
		return Manifest{}, fmt.Errorf("export: snapshot run %s: %w", runID, err)
	}

	files := map[string][]byte{}
	var err error
	if files["networks.csv"], err = networksCSV(networks); err != nil {
		return Manifest{}, err
	}
	if files["participants.csv"], err = participantsCSV(participants); err != nil {
		return Manifest{}, err
	}
	if files["nodes.csv"], err = nodesCSV(nodes); err != nil {
		return Manifest{}, err
	}
	snapshot := map[string]any{
		"networks":     networks,
		"participants": participants,
		"nodes":        nodes,
	}
	if files["data.json"], err = json.MarshalIndent(snapshot, "", "  "); err != nil {
		return Manifest{}, fmt.Errorf("export: marshal snapshot: %w", err)
	}

	manifest := Manifest{RunID: runID, ExportedAt: e.clock.Now()}
	for _, name := range []string{"networks.csv", "participants.csv", "nodes.csv", "data.json"} {
		key := "runs/" + runID + "/" + name
		contentType := "text/csv"
		if name == "data.json" {
			contentType = "application/json"
		}
		if _, err := e.blobs.Put(ctx, key, bytes.NewReader(files[name]), blob.PutOptions{ContentType: contentType}); err != nil {
			return Manifest{}, fmt.Errorf("export: store %s: %w", key, err)
		}
		manifest.Files = append(manifest.Files, key)
	}

	encoded, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("export: marshal manifest: %w", err)
	}
	if _, err := e.blobs.Put(ctx, manifestKey(runID), bytes.NewReader(encoded), blob.PutOptions{ContentType: "application/json"}); err != nil {
		return Manifest{}, fmt.Errorf("export: store manifest: %w", err)
	}
	return manifest, nil
}

func networksCSV(networks []domain.Network) ([]byte, error) {
	rows := [][]string{{"id", "created_at", "role", "max_size", "full", "order_key"}}
	for _, n := range networks {
		rows = append(rows, []string{
			n.ID,
			n.CreatedAt.Format(time.RFC3339),
			string(n.Role),
			strconv.Itoa(n.MaxSize),
			strconv.FormatBool(n.Full),
			strconv.Itoa(n.OrderKey),
		})
	}
	return writeCSV(rows)
}

func participantsCSV(participants []domain.Participant) ([]byte, error) {
	rows := [][]string{{"id", "created_at", "assignment_ref", "worker_ref", "status", "bad_data", "end_time"}}
	for _, p := range participants {
		end := ""
		if p.EndTime != nil {
			end = p.EndTime.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			p.ID,
			p.CreatedAt.Format(time.RFC3339),
			p.AssignmentRef,
			p.WorkerRef,
			string(p.Status),
			strconv.FormatBool(p.BadData),
			end,
		})
	}
	return writeCSV(rows)
}

func nodesCSV(nodes []domain.Node) ([]byte, error) {
	rows := [][]string{{"id", "created_at", "participant_id", "network_id", "failed", "failed_at"}}
	for _, n := range nodes {
		failedAt := ""
		if n.FailedAt != nil {
			failedAt = n.FailedAt.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			n.ID,
			n.CreatedAt.Format(time.RFC3339),
			n.ParticipantID,
			n.NetworkID,
			strconv.FormatBool(n.Failed),
			failedAt,
		})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("export: write csv: %w", err)
	}
	return buf.Bytes(), nil
}

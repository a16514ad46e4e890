package api_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/studynexus/nexus/internal/api"
	"github.com/studynexus/nexus/internal/models"
)

func TestExport(t *testing.T) {
	t.Parallel()

	eng := &mockEngine{
		exportData: &models.ExportFormat{
			SchemaVersion: models.SnapshotVersion,
			NexusVersion:  "test-v1",
			ExportedAt:    testNow,
			Nodes:         []models.Node{sampleNode("a", "A")},
		},
	}

	w := doRequest(newTestRouter(t, eng), http.MethodGet, "/api/v1/export", "")
	expectStatus(t, w, http.StatusOK)

	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "nexus-export-20260310T090000Z.json") {
		t.Errorf("unexpected Content-Disposition %q", cd)
	}

	var data models.ExportFormat
	decode(t, w, &data)

	if len(data.Nodes) != 1 || len(data.Nodes[0].Embedding) != 3 {
		t.Errorf("export must carry full nodes, got %+v", data.Nodes)
	}
}

func TestImport(t *testing.T) {
	t.Parallel()

	var got *models.ExportFormat

	eng := &mockEngine{
		importSnapFn: func(data *models.ExportFormat) (*models.ImportResult, error) {
			if data.SchemaVersion > models.SnapshotVersion {
				return nil, models.ErrSnapshotVersion
			}

			got = data

			return &models.ImportResult{NodesLoaded: len(data.Nodes)}, nil
		},
	}
	r := newTestRouter(t, eng)

	w := doRequest(r, http.MethodPost, "/api/v1/import", `{"schema_version":1,"nodes":[{"id":"a","label":"A"}]}`)
	expectStatus(t, w, http.StatusOK)

	if got == nil || got.Nodes[0].ID != "a" {
		t.Fatalf("snapshot not forwarded: %+v", got)
	}

	var result models.ImportResult
	decode(t, w, &result)

	if result.NodesLoaded != 1 {
		t.Errorf("expected 1 node loaded, got %d", result.NodesLoaded)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/import", `{"schema_version":99,"nodes":[]}`)
	expectError(t, w, http.StatusBadRequest, api.ErrCodeUnsupported)
}

func TestStatsAndRebuild(t *testing.T) {
	t.Parallel()

	rebuilt := false
	eng := &mockEngine{
		stats: models.Stats{Total: 3, New: 1, Learning: 1, Mastered: 1, DueNow: 2, AverageMastery: 0.4},
		rebuildFn: func(_ context.Context) error {
			rebuilt = true

			return nil
		},
	}
	r := newTestRouter(t, eng)

	w := doRequest(r, http.MethodGet, "/api/v1/stats", "")
	expectStatus(t, w, http.StatusOK)

	var stats models.Stats
	decode(t, w, &stats)

	if stats != eng.stats {
		t.Errorf("expected %+v, got %+v", eng.stats, stats)
	}

	w = doRequest(r, http.MethodPost, "/api/v1/graph/rebuild", "")
	expectStatus(t, w, http.StatusOK)

	if !rebuilt {
		t.Error("expected rebuild to be called")
	}
}

func TestGraphClear(t *testing.T) {
	t.Parallel()

	eng := &mockEngine{stats: models.Stats{Total: 4}}
	r := newTestRouter(t, eng)

	w := doRequest(r, http.MethodDelete, "/api/v1/graph", "")
	expectError(t, w, http.StatusBadRequest, api.ErrCodeInvalidRequest)

	if eng.cleared {
		t.Fatal("graph cleared without confirmation")
	}

	w = doRequest(r, http.MethodDelete, "/api/v1/graph?confirm=true", "")
	expectStatus(t, w, http.StatusOK)

	var body struct {
		Removed int `json:"removed"`
	}
	decode(t, w, &body)

	if !eng.cleared || body.Removed != 4 {
		t.Errorf("cleared=%v removed=%d, want true and 4", eng.cleared, body.Removed)
	}
}

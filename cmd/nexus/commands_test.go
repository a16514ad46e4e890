package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/studynexus/nexus/client"
	"github.com/studynexus/nexus/internal/models"
)

var entropy = client.Node{
	ID:             "n1",
	Label:          "Entropy",
	Category:       "concept",
	VisibleMastery: 0.42,
	MasteryLevel:   "learning",
	SRS: client.SRS{
		EaseFactor: 2.5,
		Interval:   6,
		Mastery:    0.5,
		NextReview: time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
	},
}

func TestQueryCommand(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/query": client.QueryResult{
			RelevantNodes: []client.Node{entropy},
			Confidence:    0.8,
			Prompt:        "Context:\n- Entropy",
		},
	})

	out, err := executeArgs(t, "--url", fs.URL, "query", "what", "is", "entropy", "--top-k", "3")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	var res client.QueryResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}

	if len(res.RelevantNodes) != 1 || res.RelevantNodes[0].ID != "n1" {
		t.Errorf("relevant = %+v", res.RelevantNodes)
	}

	req := fs.last(t)
	if req.Body["query"] != "what is entropy" {
		t.Errorf("query = %v", req.Body["query"])
	}

	if req.Body["top_k"] != float64(3) {
		t.Errorf("top_k = %v", req.Body["top_k"])
	}
}

func TestQueryPromptOnly(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/query": client.QueryResult{Prompt: "Context:\n- Entropy"},
	})

	out, err := executeArgs(t, "--url", fs.URL, "query", "entropy", "--prompt")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if out != "Context:\n- Entropy\n" {
		t.Errorf("output = %q", out)
	}
}

func TestQueryTutorWithTranscript(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/query": client.QueryResult{TutorPrompt: "You are a personalized tutor."},
	})

	path := filepath.Join(t.TempDir(), "lecture.txt")
	if err := os.WriteFile(path, []byte("heat flows from hot to cold"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := executeArgs(t, "--url", fs.URL, "query", "why", "does", "entropy", "grow", "--transcript", path, "--tutor")
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	if out != "You are a personalized tutor.\n" {
		t.Errorf("output = %q", out)
	}

	req := fs.last(t)
	if req.Body["query"] != "why does entropy grow" || req.Body["transcript"] != "heat flows from hot to cold" {
		t.Errorf("body = %v", req.Body)
	}
}

func TestQueryPromptAndTutorExclusive(t *testing.T) {
	fs := newFakeServer(t, nil)

	if _, err := executeArgs(t, "--url", fs.URL, "query", "x", "--prompt", "--tutor"); err == nil {
		t.Fatal("expected error for --prompt with --tutor")
	}

	if fs.count() != 0 {
		t.Errorf("requests = %d, want 0", fs.count())
	}
}

func TestPathAndSuggest(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/query/learning-path": client.LearningPath{Path: []client.Node{entropy}, EstimatedMinutes: 5},
		"POST /api/v1/query/suggest": map[string]any{
			"suggestions": []client.Suggestion{{Node: entropy, Reason: "related"}},
		},
	})

	out, err := executeArgs(t, "--url", fs.URL, "--format", "table", "path", "free", "energy")
	if err != nil {
		t.Fatalf("path: %v", err)
	}

	if !strings.HasPrefix(out, "Estimated time: 5 min\n") || !strings.Contains(out, "Entropy") {
		t.Errorf("path output = %q", out)
	}

	out, err = executeArgs(t, "--url", fs.URL, "--format", "quiet", "suggest", "entropy", "--limit", "2")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}

	if out != "n1\n" {
		t.Errorf("suggest output = %q", out)
	}

	if fs.last(t).Body["limit"] != float64(2) {
		t.Errorf("limit = %v", fs.last(t).Body["limit"])
	}
}

func TestReviewCommand(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/nodes/n1/review": client.ReviewedNode{Node: entropy, QualityLabel: "Good"},
	})

	out, err := executeArgs(t, "--url", fs.URL, "--format", "table", "review", "n1", "4")
	if err != nil {
		t.Fatalf("review: %v", err)
	}

	if !strings.Contains(out, "Good") || !strings.Contains(out, "6d") {
		t.Errorf("output = %q", out)
	}

	if fs.last(t).Body["quality"] != float64(4) {
		t.Errorf("quality = %v", fs.last(t).Body["quality"])
	}
}

func TestReviewUnknownNode(t *testing.T) {
	fs := newFakeServer(t, nil)

	_, err := executeArgs(t, "--url", fs.URL, "review", "missing", "3")
	if err == nil || !client.IsNotFound(err) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestDueCommand(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"GET /api/v1/reviews/due":      map[string]any{"nodes": []client.Node{entropy}},
		"GET /api/v1/reviews/upcoming": map[string]any{"nodes": []client.Node{}},
	})

	out, err := executeArgs(t, "--url", fs.URL, "--format", "quiet", "due")
	if err != nil {
		t.Fatalf("due: %v", err)
	}

	if out != "n1\n" {
		t.Errorf("due output = %q", out)
	}

	if _, err := executeArgs(t, "--url", fs.URL, "due", "--upcoming", "48"); err != nil {
		t.Fatalf("due --upcoming: %v", err)
	}

	req := fs.last(t)
	if req.Path != "/api/v1/reviews/upcoming" || req.Query != "hours=48" {
		t.Errorf("request = %s?%s", req.Path, req.Query)
	}
}

func TestPredictWithTranscript(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/exam/predictions": map[string]any{
			"predictions": []client.ExamPrediction{{NodeID: "n1", Label: "Entropy", Probability: 0.9, Confidence: "high"}},
		},
	})

	path := filepath.Join(t.TempDir(), "lecture.txt")
	if err := os.WriteFile(path, []byte("entropy will be on the exam"), 0o600); err != nil {
		t.Fatal(err)
	}

	out, err := executeArgs(t, "--url", fs.URL, "--format", "table", "predict", "--transcript", path, "--limit", "5")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	if !strings.Contains(out, "0.90") || !strings.Contains(out, "high") {
		t.Errorf("output = %q", out)
	}

	req := fs.last(t)
	if req.Body["transcript"] != "entropy will be on the exam" || req.Body["limit"] != float64(5) {
		t.Errorf("body = %v", req.Body)
	}
}

func TestPredictMissingTranscript(t *testing.T) {
	fs := newFakeServer(t, nil)

	_, err := executeArgs(t, "--url", fs.URL, "predict", "--transcript", filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil || !strings.Contains(err.Error(), "reading transcript") {
		t.Fatalf("got %v", err)
	}

	if fs.count() != 0 {
		t.Errorf("requests = %d, want 0", fs.count())
	}
}

func TestPriorityCommand(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"POST /api/v1/exam/priorities": map[string]any{
			"priorities": []client.StudyPriority{{NodeID: "n1", Label: "Entropy", Priority: "high", Score: 0.7, Reason: "due"}},
		},
	})

	out, err := executeArgs(t, "--url", fs.URL, "--format", "quiet", "priority")
	if err != nil {
		t.Fatalf("priority: %v", err)
	}

	if out != "n1\n" {
		t.Errorf("output = %q", out)
	}

	if _, ok := fs.last(t).Body["transcript"]; ok {
		t.Error("empty transcript should be omitted")
	}
}

func TestNodeCommands(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"GET /api/v1/nodes":            client.NodeList{Nodes: []client.Node{entropy}, Total: 1},
		"GET /api/v1/nodes/n1":         entropy,
		"DELETE /api/v1/nodes/n1":      map[string]bool{"deleted": true},
		"PATCH /api/v1/nodes/n1":       entropy,
		"GET /api/v1/nodes/n1/similar": map[string]any{"nodes": []client.ScoredNode{{Node: entropy, Similarity: 0.93}}},
		"GET /api/v1/nodes/n1/reviews": map[string]any{"reviews": []client.ReviewRecord{{NodeID: "n1", Quality: 4, Interval: 6}}},
		"POST /api/v1/nodes":           entropy,
	})

	tests := []struct {
		name     string
		args     []string
		contains string
		check    func(t *testing.T, req recordedRequest)
	}{
		{
			name:     "list with filters",
			args:     []string{"--format", "table", "node", "list", "--category", "formula", "--limit", "10"},
			contains: "Entropy",
			check: func(t *testing.T, req recordedRequest) {
				if !strings.Contains(req.Query, "category=formula") || !strings.Contains(req.Query, "limit=10") {
					t.Errorf("query = %q", req.Query)
				}
			},
		},
		{name: "get", args: []string{"node", "get", "n1"}, contains: `"label": "Entropy"`},
		{name: "delete", args: []string{"--format", "quiet", "node", "delete", "n1"}, contains: "n1"},
		{
			name:     "update only sends changed fields",
			args:     []string{"node", "update", "n1", "--label", "Entropy (S)"},
			contains: "n1",
			check: func(t *testing.T, req recordedRequest) {
				if req.Body["label"] != "Entropy (S)" {
					t.Errorf("label = %v", req.Body["label"])
				}
				if _, ok := req.Body["explanation"]; ok {
					t.Error("explanation should not be sent")
				}
			},
		},
		{name: "similar", args: []string{"--format", "table", "node", "similar", "n1"}, contains: "0.93"},
		{name: "history", args: []string{"--format", "table", "node", "history", "n1"}, contains: "6d"},
		{
			name:     "create",
			args:     []string{"node", "create", "Entropy", "--category", "concept", "--explanation", "disorder"},
			contains: "n1",
			check: func(t *testing.T, req recordedRequest) {
				if req.Body["label"] != "Entropy" || req.Body["category"] != "concept" {
					t.Errorf("body = %v", req.Body)
				}
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := executeArgs(t, append([]string{"--url", fs.URL}, tc.args...)...)
			if err != nil {
				t.Fatalf("%v: %v", tc.args, err)
			}

			if !strings.Contains(out, tc.contains) {
				t.Errorf("output missing %q:\n%s", tc.contains, out)
			}

			if tc.check != nil {
				tc.check(t, fs.last(t))
			}
		})
	}
}

func TestStatsRebuildHealth(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"GET /api/v1/stats":          client.StatsResponse{Total: 3, New: 1, Learning: 1, Mastered: 1, AverageMastery: 0.5},
		"POST /api/v1/graph/rebuild": map[string]bool{"rebuilt": true},
		"GET /api/v1/health":         client.HealthResponse{Status: "ok", Storage: "sqlite", StorageStatus: "ok", Nodes: 3},
	})

	out, err := executeArgs(t, "--url", fs.URL, "--format", "quiet", "stats")
	if err != nil || out != "3\n" {
		t.Errorf("stats: out=%q err=%v", out, err)
	}

	out, err = executeArgs(t, "--url", fs.URL, "--format", "quiet", "rebuild")
	if err != nil || out != "ok\n" {
		t.Errorf("rebuild: out=%q err=%v", out, err)
	}

	out, err = executeArgs(t, "--url", fs.URL, "--format", "table", "health")
	if err != nil || !strings.Contains(out, "sqlite (ok)") {
		t.Errorf("health: out=%q err=%v", out, err)
	}
}

func TestExportAndRestore(t *testing.T) {
	snapshot := models.ExportFormat{
		SchemaVersion: 1,
		NexusVersion:  "test",
		Nodes:         []models.Node{{ID: "n1", Label: "Entropy", Category: models.CategoryConcept}},
	}

	fs := newFakeServer(t, map[string]any{
		"GET /api/v1/export":  snapshot,
		"POST /api/v1/import": models.ImportResult{NodesLoaded: 1},
	})

	path := filepath.Join(t.TempDir(), "snap.json")

	if _, err := executeArgs(t, "--url", fs.URL, "export", "-o", path); err != nil {
		t.Fatalf("export: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}

	if !strings.Contains(string(raw), `"label": "Entropy"`) {
		t.Errorf("export file = %s", raw)
	}

	out, err := executeArgs(t, "--url", fs.URL, "--format", "quiet", "restore", path)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if out != "1\n" {
		t.Errorf("restore output = %q", out)
	}

	nodes, _ := fs.last(t).Body["nodes"].([]any)
	if len(nodes) != 1 {
		t.Errorf("restored nodes sent = %d, want 1", len(nodes))
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	fs := newFakeServer(t, nil)

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := executeArgs(t, "--url", fs.URL, "restore", path)
	if err == nil || !strings.Contains(err.Error(), "parsing snapshot") {
		t.Fatalf("got %v", err)
	}
}

func TestClearNeedsConfirmation(t *testing.T) {
	fs := newFakeServer(t, map[string]any{
		"DELETE /api/v1/graph": map[string]int{"removed": 7},
	})

	if _, err := executeArgs(t, "--url", fs.URL, "clear"); err == nil {
		t.Fatal("expected clear without --yes to fail")
	}

	if fs.count() != 0 {
		t.Fatalf("requests = %d, want 0", fs.count())
	}

	out, err := executeArgs(t, "--url", fs.URL, "--format", "quiet", "clear", "--yes")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}

	if out != "7\n" {
		t.Errorf("output = %q", out)
	}

	if req := fs.last(t); req.Query != "confirm=true" {
		t.Errorf("query = %q, want confirm=true", req.Query)
	}
}

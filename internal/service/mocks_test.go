package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/models"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)

	return l
}

// mockSnapshotStore records saves and returns configured loads.
type mockSnapshotStore struct {
	mu    sync.Mutex
	saves [][]models.Node

	load    func(ctx context.Context) ([]models.Node, error)
	saveErr error
}

func (m *mockSnapshotStore) Load(ctx context.Context) ([]models.Node, error) {
	if m.load == nil {
		return nil, nil
	}

	return m.load(ctx)
}

func (m *mockSnapshotStore) Save(_ context.Context, nodes []models.Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves = append(m.saves, nodes)

	return m.saveErr
}

func (m *mockSnapshotStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.saves)
}

func (m *mockSnapshotStore) lastSave() []models.Node {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.saves) == 0 {
		return nil
	}

	return m.saves[len(m.saves)-1]
}

// mockHistory keeps review records in memory.
type mockHistory struct {
	mu      sync.Mutex
	records []models.ReviewRecord
}

func (m *mockHistory) RecordReview(_ context.Context, rec models.ReviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = append(m.records, rec)

	return nil
}

func (m *mockHistory) ListReviews(_ context.Context, nodeID string, limit int) ([]models.ReviewRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.ReviewRecord{}
	for i := len(m.records) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if m.records[i].NodeID == nodeID {
			out = append(out, m.records[i])
		}
	}

	return out, nil
}

func (m *mockHistory) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.records)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}

		time.Sleep(5 * time.Millisecond)
	}

	return cond()
}

// eventCounter counts published events by type.
type eventCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *eventCounter) Publish(eventType string, _ any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[eventType]++
}

func (c *eventCounter) count(eventType string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.counts[eventType]
}

// Package store persists snapshots of the node collection and the review
// history. PostgresStore and SQLiteStore share one schema, managed by the
// goose migrations in internal/db.
package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/studynexus/nexus/internal/models"
)

const defaultQueryTimeout = 30 * time.Second

// EventSnapshotSaved is the change notice type sent after a postgres save.
const EventSnapshotSaved = "snapshot.saved"

// DefaultReviewLimit caps ListReviews when no limit is given.
const DefaultReviewLimit = 50

// nodeColumns is the insert column order shared by both backends.
var nodeColumns = []string{
	"id", "position", "label", "explanation", "category", "embedding",
	"depth", "parent_id", "child_ids", "connections",
	"ease_factor", "interval_days", "repetitions", "last_review", "next_review", "mastery",
	"session_id", "exam_probability", "created_at",
}

// selectNodes reads a snapshot in saved order.
const selectNodes = `SELECT id, label, explanation, category, embedding,
	depth, parent_id, child_ids, connections,
	ease_factor, interval_days, repetitions, last_review, next_review, mastery,
	session_id, exam_probability, created_at
	FROM nexus_nodes ORDER BY position`

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

func reviewLimit(limit int) int {
	if limit <= 0 || limit > DefaultReviewLimit {
		return DefaultReviewLimit
	}

	return limit
}

// timePtr maps the zero time to NULL.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	u := t.UTC()

	return &u
}

func fromTimePtr(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return t.UTC()
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func fromStringPtr(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func marshalConnections(c []models.Connection) ([]byte, error) {
	if c == nil {
		c = []models.Connection{}
	}

	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling connections: %w", err)
	}

	return b, nil
}

func unmarshalConnections(b []byte) ([]models.Connection, error) {
	var c []models.Connection
	if len(b) == 0 {
		return c, nil
	}

	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshalling connections: %w", err)
	}

	return c, nil
}

// encodeEmbedding packs a vector as little-endian float64s.
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}

	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	if len(buf) == 0 {
		return nil
	}

	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}

	return vec
}

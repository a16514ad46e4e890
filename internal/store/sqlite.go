package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // register the sqlite driver

	"github.com/studynexus/nexus/internal/db"
	"github.com/studynexus/nexus/internal/models"
)

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	log  *logrus.Logger
}

// OpenSQLite opens (or creates) the database at path, configures pragmas and
// applies pending migrations. ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, log *logrus.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// A single connection serialises writers and keeps :memory: databases
	// from splitting across pool connections.
	sqlDB.SetMaxOpenConns(1)

	s := &SQLiteStore{db: sqlDB, path: path, log: log}

	if err := s.configurePragmas(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if err := db.Migrate(ctx, sqlDB, db.DialectSQLite, log); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating sqlite: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) configurePragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}

	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	return nil
}

// Path returns the database location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database is readable.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads the last saved collection in its saved order.
func (s *SQLiteStore) Load(ctx context.Context) ([]models.Node, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, selectNodes)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node

	for rows.Next() {
		n, err := scanSQLiteNode(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}

		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	return nodes, nil
}

func scanSQLiteNode(scan func(dest ...any) error) (models.Node, error) {
	var (
		n           models.Node
		category    string
		embedding   []byte
		parentID    sql.NullString
		sessionID   sql.NullString
		children    string
		conns       string
		lastReview  sql.NullInt64
		nextReview  sql.NullInt64
		createdAt   sql.NullInt64
		probability sql.NullFloat64
	)

	err := scan(
		&n.ID, &n.Label, &n.Explanation, &category, &embedding,
		&n.Depth, &parentID, &children, &conns,
		&n.SRS.EaseFactor, &n.SRS.Interval, &n.SRS.Repetitions, &lastReview, &nextReview, &n.SRS.Mastery,
		&sessionID, &probability, &createdAt,
	)
	if err != nil {
		return models.Node{}, err
	}

	n.Category = models.Category(category)
	n.Embedding = decodeEmbedding(embedding)
	n.ParentID = parentID.String
	n.SessionID = sessionID.String
	n.SRS.LastReview = fromNanos(lastReview)
	n.SRS.NextReview = fromNanos(nextReview)
	n.Timestamp = fromNanos(createdAt)

	if probability.Valid {
		p := probability.Float64
		n.ExamProbability = &p
	}

	if err := json.Unmarshal([]byte(children), &n.ChildIDs); err != nil {
		return models.Node{}, fmt.Errorf("unmarshalling child ids: %w", err)
	}

	if n.Connections, err = unmarshalConnections([]byte(conns)); err != nil {
		return models.Node{}, err
	}

	return n, nil
}

// Save replaces the stored collection in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, nodes []models.Node) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit.

	if _, err := tx.ExecContext(ctx, "DELETE FROM nexus_nodes"); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nexus_nodes (
		id, position, label, explanation, category, embedding,
		depth, parent_id, child_ids, connections,
		ease_factor, interval_days, repetitions, last_review, next_review, mastery,
		session_id, exam_probability, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, n := range nodes {
		children := n.ChildIDs
		if children == nil {
			children = []string{}
		}

		childJSON, err := json.Marshal(children)
		if err != nil {
			return fmt.Errorf("marshalling child ids: %w", err)
		}

		conns, err := marshalConnections(n.Connections)
		if err != nil {
			return err
		}

		var probability any
		if n.ExamProbability != nil {
			probability = *n.ExamProbability
		}

		_, err = stmt.ExecContext(ctx,
			n.ID, i, n.Label, n.Explanation, string(n.Category), encodeEmbedding(n.Embedding),
			n.Depth, stringPtr(n.ParentID), string(childJSON), string(conns),
			n.SRS.EaseFactor, n.SRS.Interval, n.SRS.Repetitions,
			toNanos(n.SRS.LastReview), toNanos(n.SRS.NextReview), n.SRS.Mastery,
			stringPtr(n.SessionID), probability, toNanos(n.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	return nil
}

// RecordReview appends one review to the history.
func (s *SQLiteStore) RecordReview(ctx context.Context, rec models.ReviewRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO nexus_reviews (node_id, quality, ease_factor, interval_days, mastery, reviewed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.NodeID, rec.Quality, rec.EaseFactor, rec.Interval, rec.Mastery, rec.ReviewedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}

	return nil
}

// ListReviews returns a node's most recent reviews, newest first.
func (s *SQLiteStore) ListReviews(ctx context.Context, nodeID string, limit int) ([]models.ReviewRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, quality, ease_factor, interval_days, mastery, reviewed_at
		 FROM nexus_reviews WHERE node_id = ?
		 ORDER BY reviewed_at DESC, id DESC LIMIT ?`,
		nodeID, reviewLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}
	defer rows.Close()

	recs := []models.ReviewRecord{}

	for rows.Next() {
		var (
			r  models.ReviewRecord
			at int64
		)

		if err := rows.Scan(&r.NodeID, &r.Quality, &r.EaseFactor, &r.Interval, &r.Mastery, &at); err != nil {
			return nil, fmt.Errorf("scanning review: %w", err)
		}

		r.ReviewedAt = time.Unix(0, at).UTC()
		recs = append(recs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reviews: %w", err)
	}

	return recs, nil
}

// toNanos maps the zero time to NULL.
func toNanos(t time.Time) any {
	if t.IsZero() {
		return nil
	}

	return t.UnixNano()
}

func fromNanos(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}

	return time.Unix(0, v.Int64).UTC()
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/db"
	"github.com/studynexus/nexus/internal/dbpool"
	"github.com/studynexus/nexus/internal/models"
)

// PostgresStore keeps snapshots in PostgreSQL.
type PostgresStore struct {
	pool     *dbpool.Pool
	log      *logrus.Logger
	instance string
}

// NewPostgresStore runs pending migrations and returns a store over pool.
// instance tags change notices so a process can ignore its own.
func NewPostgresStore(ctx context.Context, pool *dbpool.Pool, log *logrus.Logger, instance string) (*PostgresStore, error) {
	if err := db.MigratePool(ctx, pool, log); err != nil {
		return nil, fmt.Errorf("migrating postgres: %w", err)
	}

	return &PostgresStore{pool: pool, log: log, instance: instance}, nil
}

// Load reads the last saved collection in its saved order.
func (s *PostgresStore) Load(ctx context.Context) ([]models.Node, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, selectNodes)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.Node

	for rows.Next() {
		n, err := scanPostgresNode(rows.Scan)
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

func scanPostgresNode(scan func(dest ...any) error) (models.Node, error) {
	var (
		n           models.Node
		category    string
		parentID    *string
		sessionID   *string
		conns       []byte
		lastReview  *time.Time
		nextReview  *time.Time
		createdAt   *time.Time
		probability *float64
	)

	err := scan(
		&n.ID, &n.Label, &n.Explanation, &category, &n.Embedding,
		&n.Depth, &parentID, &n.ChildIDs, &conns,
		&n.SRS.EaseFactor, &n.SRS.Interval, &n.SRS.Repetitions, &lastReview, &nextReview, &n.SRS.Mastery,
		&sessionID, &probability, &createdAt,
	)
	if err != nil {
		return models.Node{}, err
	}

	n.Category = models.Category(category)
	n.ParentID = fromStringPtr(parentID)
	n.SessionID = fromStringPtr(sessionID)
	n.SRS.LastReview = fromTimePtr(lastReview)
	n.SRS.NextReview = fromTimePtr(nextReview)
	n.Timestamp = fromTimePtr(createdAt)
	n.ExamProbability = probability

	if n.Connections, err = unmarshalConnections(conns); err != nil {
		return models.Node{}, err
	}

	return n, nil
}

// Save replaces the stored collection in one transaction and announces the
// save on the change channel.
func (s *PostgresStore) Save(ctx context.Context, nodes []models.Node) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows := make([][]any, len(nodes))
	for i, n := range nodes {
		conns, err := marshalConnections(n.Connections)
		if err != nil {
			return err
		}

		children := n.ChildIDs
		if children == nil {
			children = []string{}
		}

		embedding := n.Embedding
		if embedding == nil {
			embedding = []float64{}
		}

		rows[i] = []any{
			n.ID, i, n.Label, n.Explanation, string(n.Category), embedding,
			n.Depth, stringPtr(n.ParentID), children, string(conns),
			n.SRS.EaseFactor, n.SRS.Interval, n.SRS.Repetitions,
			timePtr(n.SRS.LastReview), timePtr(n.SRS.NextReview), n.SRS.Mastery,
			stringPtr(n.SessionID), n.ExamProbability, timePtr(n.Timestamp),
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit.

	if _, err := tx.Exec(ctx, "DELETE FROM nexus_nodes"); err != nil {
		return fmt.Errorf("clearing nodes: %w", err)
	}

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"nexus_nodes"}, nodeColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copying nodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}

	s.notify(EventSnapshotSaved, len(nodes))

	return nil
}

// notify sends a pg_notify on the change channel (best-effort, post-commit).
func (s *PostgresStore) notify(eventType string, nodes int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, _ := json.Marshal(db.ChangeNotice{ //nolint:errcheck // plain struct, cannot fail.
		Type:     eventType,
		Instance: s.instance,
		Nodes:    nodes,
	})

	if _, err := s.pool.Exec(ctx, "SELECT pg_notify($1, $2)", db.ChangeChannel, string(payload)); err != nil {
		s.log.WithError(err).Warn("failed to send change notification")
	}
}

// RecordReview appends one review to the history.
func (s *PostgresStore) RecordReview(ctx context.Context, rec models.ReviewRecord) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO nexus_reviews (node_id, quality, ease_factor, interval_days, mastery, reviewed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.NodeID, rec.Quality, rec.EaseFactor, rec.Interval, rec.Mastery, rec.ReviewedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting review: %w", err)
	}

	return nil
}

// ListReviews returns a node's most recent reviews, newest first.
func (s *PostgresStore) ListReviews(ctx context.Context, nodeID string, limit int) ([]models.ReviewRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT node_id, quality, ease_factor, interval_days, mastery, reviewed_at
		 FROM nexus_reviews WHERE node_id = $1
		 ORDER BY reviewed_at DESC, id DESC LIMIT $2`,
		nodeID, reviewLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying reviews: %w", err)
	}

	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ReviewRecord, error) {
		var r models.ReviewRecord
		err := row.Scan(&r.NodeID, &r.Quality, &r.EaseFactor, &r.Interval, &r.Mastery, &r.ReviewedAt)
		r.ReviewedAt = r.ReviewedAt.UTC()

		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning reviews: %w", err)
	}

	return recs, nil
}

// HealthCheck verifies database connectivity.
func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.pool.HealthCheck(ctx)
}

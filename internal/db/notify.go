package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/dbpool"
)

// ChangeChannel is the LISTEN/NOTIFY channel snapshot writers announce saves on.
const ChangeChannel = "nexus_changes"

const (
	minReconnectDelay = time.Second
	maxReconnectDelay = 30 * time.Second

	// waitSlice bounds each WaitForNotification so a dead connection is
	// noticed without relying on TCP keepalives.
	waitSlice = 2 * time.Minute
)

// Broadcaster sends events to connected clients.
type Broadcaster interface {
	BroadcastEvent(eventType string, data json.RawMessage)
}

// ChangeNotice is the payload written to ChangeChannel.
type ChangeNotice struct {
	Type     string `json:"type"`
	Instance string `json:"instance"`
	Nodes    int    `json:"nodes"`
}

// NotifyBridge listens on ChangeChannel for notices from other instances
// sharing the database. Each one is forwarded to the hub and, when set, to
// the change handler.
type NotifyBridge struct {
	log      *logrus.Logger
	pool     *dbpool.Pool
	hub      Broadcaster
	instance string
	onChange func(ChangeNotice)
}

// NewNotifyBridge creates a NotifyBridge. Notices carrying instance are this
// process's own and are skipped.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster, instance string) *NotifyBridge {
	return &NotifyBridge{
		log:      log,
		pool:     pool,
		hub:      hub,
		instance: instance,
	}
}

// OnChange registers fn to run for every foreign notice. It runs on the
// listener goroutine and should return quickly. Call before Start.
func (b *NotifyBridge) OnChange(fn func(ChangeNotice)) {
	b.onChange = fn
}

// Start verifies the database is reachable and listens in the background
// until ctx is cancelled, reconnecting with jittered backoff.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.run(ctx)

	return nil
}

func (b *NotifyBridge) run(ctx context.Context) {
	delay := minReconnectDelay

	for ctx.Err() == nil {
		listening, err := b.listen(ctx)
		if ctx.Err() != nil {
			return
		}

		if listening {
			delay = minReconnectDelay
		}

		b.log.WithError(err).WithField("retry_in", delay).Warn("notify bridge disconnected")

		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(delay)):
		}

		delay = min(delay*2, maxReconnectDelay)
	}
}

// listen holds one connection until it fails. listening reports whether
// LISTEN succeeded, so a healthy period resets the backoff.
func (b *NotifyBridge) listen(ctx context.Context) (listening bool, err error) {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return false, fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", ChangeChannel).Info("notify bridge listening")

	for {
		waitCtx, cancel := context.WithTimeout(ctx, waitSlice)
		n, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()

		switch {
		case err == nil:
			b.handleNotification(n)
		case ctx.Err() != nil:
			return true, nil
		case errors.Is(err, context.DeadlineExceeded):
			if perr := conn.Ping(ctx); perr != nil {
				return true, fmt.Errorf("connection check after idle wait: %w", perr)
			}
		default:
			return true, fmt.Errorf("waiting for notification: %w", err)
		}
	}
}

func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	var notice ChangeNotice
	if err := json.Unmarshal([]byte(n.Payload), &notice); err != nil || notice.Type == "" {
		b.log.WithField("pid", n.PID).Warn("dropping malformed change notice")
		return
	}

	if notice.Instance == b.instance {
		return
	}

	b.log.WithFields(logrus.Fields{
		"type":     notice.Type,
		"instance": notice.Instance,
		"nodes":    notice.Nodes,
	}).Debug("change notice received")

	b.hub.BroadcastEvent(notice.Type, json.RawMessage(n.Payload))

	if b.onChange != nil {
		b.onChange(notice)
	}
}

// jitter spreads d by ±25%.
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.75 + rand.Float64()*0.5)) //nolint:gosec // jitter doesn't need crypto rand.
}

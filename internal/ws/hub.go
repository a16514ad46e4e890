// Package ws implements the live event feed: a hub that fans graph events
// out to WebSocket clients and replays recent events on reconnect.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/studynexus/nexus/internal/metrics"
)

const (
	outboxLen     = 256
	membershipLen = 64
	maxClients    = 1000

	// maxEventSize bounds one encoded event. Graph events carry IDs and
	// scores, never embeddings, so anything larger is a bug upstream.
	maxEventSize = 4096

	drainTimeout = 3 * time.Second
	drainPoll    = 50 * time.Millisecond
)

type outbound struct {
	eventType string
	msg       []byte
}

// Hub fans events out to registered clients. The client set is owned by
// the Run goroutine; everything else talks to it over channels.
type Hub struct {
	log *logrus.Logger

	joins  chan *Client
	leaves chan *Client
	outbox chan outbound

	clients map[*Client]struct{}
	active  atomic.Int64

	seq    atomic.Uint64
	replay *EventBuffer
	now    func() time.Time
}

// NewHub creates a Hub with the default replay window.
func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		log:     log,
		joins:   make(chan *Client, membershipLen),
		leaves:  make(chan *Client, membershipLen),
		outbox:  make(chan outbound, outboxLen),
		clients: make(map[*Client]struct{}),
		replay:  NewEventBuffer(defaultBufferMaxLen, defaultBufferMaxAge),
		now:     time.Now,
	}
}

// Run owns the client set until ctx is cancelled, then tells every client
// the server is going away and waits briefly for their queues to flush.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.drain()
			return

		case c := <-h.joins:
			if len(h.clients) >= maxClients {
				h.log.WithField("limit", maxClients).Warn("connection limit reached, rejecting client")
				c.closeSend()
				continue
			}
			h.clients[c] = struct{}{}
			h.syncCount("client registered")

		case c := <-h.leaves:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			h.drop(c)
			h.syncCount("client unregistered")

		case out := <-h.outbox:
			dropped := 0
			for c := range h.clients {
				if !c.wants(out.eventType) {
					continue
				}
				if !c.offer(out.msg) {
					h.drop(c)
					dropped++
				}
			}
			if dropped > 0 {
				h.syncCount("dropped slow clients")
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	c.closeSend()
}

func (h *Hub) syncCount(reason string) {
	n := len(h.clients)
	h.active.Store(int64(n))
	metrics.WSConnections.Set(float64(n))
	h.log.WithField("total", n).Debug(reason)
}

// Register hands a freshly accepted client to the hub. If the hub is
// backlogged the client is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.joins <- c:
	default:
		h.log.Warn("hub backlogged, rejecting client")
		c.closeSend()
	}
}

// Unregister removes c. It never blocks; after Run exits the drain has
// already closed every client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leaves <- c:
	default:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.active.Load())
}

// BroadcastEvent stamps the event with the next sequence ID, keeps it for
// replay and queues it for every subscribed client. It never blocks.
func (h *Hub) BroadcastEvent(eventType string, data json.RawMessage) {
	evt := Event{Type: eventType, ID: h.seq.Add(1), Data: data, Time: h.now()}

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("failed to encode event")
		return
	}

	if len(msg) > maxEventSize {
		h.log.WithFields(logrus.Fields{
			"type": eventType,
			"size": len(msg),
		}).Warn("event too large for the feed, dropped")
		return
	}

	h.replay.Append(&evt)
	h.enqueue(outbound{eventType: eventType, msg: msg})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.outbox <- out:
	default:
		h.log.WithField("type", out.eventType).Warn("hub outbox full, event not delivered live")
	}
}

// Publish implements graph.EventPublisher.
func (h *Hub) Publish(eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("failed to encode event payload")
		return
	}

	h.BroadcastEvent(eventType, data)
}

// ReplayEvents queues buffered events after lastEventID that match the
// client's filter. It reports false when lastEventID has already been
// evicted, in which case the client must refresh from the REST API.
func (h *Hub) ReplayEvents(c *Client, lastEventID uint64) bool {
	if oldest := h.replay.OldestID(); oldest > 0 && lastEventID > 0 && lastEventID < oldest {
		return false
	}

	for _, evt := range h.replay.Since(lastEventID) {
		if !c.wants(evt.Type) {
			continue
		}

		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		if !c.offer(msg) {
			break
		}
	}

	return true
}

func (h *Hub) drain() {
	defer h.syncCount("hub stopped")

	if len(h.clients) == 0 {
		return
	}

	h.log.WithField("clients", len(h.clients)).Info("draining WebSocket clients")

	bye, _ := json.Marshal(ControlMsg{Type: "shutdown", Reason: "server shutting down"}) //nolint:errcheck // static struct
	for c := range h.clients {
		c.offer(bye)
	}

	deadline := time.Now().Add(drainTimeout)
	for !h.flushed() && time.Now().Before(deadline) {
		time.Sleep(drainPoll)
	}

	if !h.flushed() {
		h.log.Warn("WebSocket drain timed out, closing remaining clients")
	}

	for c := range h.clients {
		h.drop(c)
	}
}

func (h *Hub) flushed() bool {
	for c := range h.clients {
		if len(c.queue) > 0 {
			return false
		}
	}

	return true
}

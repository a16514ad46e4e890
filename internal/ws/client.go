package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

const (
	clientQueueLen = 256
	maxInbound     = 4096 // bytes; subscribe messages are tiny
	writeDeadline  = 10 * time.Second

	keepaliveEvery   = 30 * time.Second
	keepaliveTimeout = 10 * time.Second
	maxFailedPings   = 2

	// sessionLimit forces long-lived tabs to reconnect and resubscribe.
	sessionLimit = 4 * time.Hour
)

// Client is one feed subscriber. The hub owns its queue: only Run writes to
// it and closes it.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	queue  chan []byte
	log    *logrus.Entry
	filter atomic.Pointer[eventFilter]

	closeOnce sync.Once
	opened    time.Time
}

// NewClient wraps an accepted connection. The client receives every event
// type until it subscribes with a filter.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		queue:  make(chan []byte, clientQueueLen),
		log:    logrus.NewEntry(hub.log).WithField("component", "ws"),
		opened: time.Now(),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.queue) })
}

// wants reports whether the client's subscription covers eventType.
func (c *Client) wants(eventType string) bool {
	return c.filter.Load().match(eventType)
}

// offer queues msg without blocking. It reports false when the queue is full.
func (c *Client) offer(msg []byte) bool {
	select {
	case c.queue <- msg:
		return true
	default:
		return false
	}
}

// ReadPump consumes inbound frames until the connection drops, then
// unregisters the client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // teardown
	}()

	c.conn.SetReadLimit(maxInbound)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("client closed connection")
			}
			return
		}

		var msg SubscribeMsg
		if json.Unmarshal(data, &msg) != nil || msg.Type != "subscribe" {
			continue
		}

		c.subscribe(msg)
	}
}

func (c *Client) subscribe(msg SubscribeMsg) {
	c.filter.Store(newEventFilter(msg.Events))

	if c.hub.ReplayEvents(c, msg.LastEventID) {
		return
	}

	reset, err := json.Marshal(ControlMsg{
		Type:   "reset",
		Reason: "requested events no longer available, perform full refresh",
	})
	if err == nil {
		c.offer(reset)
	}
}

// WritePump delivers queued messages and keeps the connection alive with
// pings. It returns when the queue is closed, a write or too many pings
// fail, or the session limit passes.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // teardown

	expiry := time.NewTimer(time.Until(c.opened.Add(sessionLimit)))
	defer expiry.Stop()

	keepalive := time.NewTicker(keepaliveEvery)
	defer keepalive.Stop()

	failedPings := 0

	for {
		select {
		case msg, ok := <-c.queue:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "") //nolint:errcheck // teardown
				return
			}

			if err := c.write(ctx, msg); err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}

		case <-keepalive.C:
			pctx, cancel := context.WithTimeout(ctx, keepaliveTimeout)
			err := c.conn.Ping(pctx)
			cancel()

			if err == nil {
				failedPings = 0
				continue
			}

			if failedPings++; failedPings >= maxFailedPings {
				c.log.WithField("failed_pings", failedPings).Debug("peer unresponsive, closing")
				return
			}

		case <-expiry.C:
			c.log.Info("session limit reached, closing WebSocket")
			c.conn.Close(websocket.StatusNormalClosure, "session limit reached") //nolint:errcheck // teardown
			return
		}
	}
}

func (c *Client) write(ctx context.Context, msg []byte) error {
	wctx, cancel := context.WithTimeout(ctx, writeDeadline)
	defer cancel()

	return c.conn.Write(wctx, websocket.MessageText, msg)
}

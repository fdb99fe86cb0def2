// Package ws pushes job progress to merchant dashboards over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/metrics"
)

const (
	broadcastBuffer     = 256
	registerBuffer      = 64
	maxBroadcastPayload = 4096
	drainTimeout        = 3 * time.Second
	pruneInterval       = 10 * time.Minute
)

// Limits caps how many dashboards may stay connected.
type Limits struct {
	Total   int
	PerShop int
}

// DefaultLimits returns the production connection caps.
func DefaultLimits() Limits {
	return Limits{Total: 1000, PerShop: 20}
}

type shopMessage struct {
	shopID string
	msg    []byte
}

// Hub fans job events out to the clients of each shop. Client sets are only
// touched from the Run goroutine.
type Hub struct {
	shops      map[string]map[*Client]struct{}
	total      int
	limits     Limits
	register   chan *Client
	unregister chan *Client
	broadcast  chan shopMessage
	done       chan struct{}
	count      atomic.Int64
	replay     *ReplayLog
	log        *logrus.Logger
}

// NewHub creates a Hub.
func NewHub(limits Limits, log *logrus.Logger) *Hub {
	return &Hub{
		shops:      make(map[string]map[*Client]struct{}),
		limits:     limits,
		register:   make(chan *Client, registerBuffer),
		unregister: make(chan *Client, registerBuffer),
		broadcast:  make(chan shopMessage, broadcastBuffer),
		done:       make(chan struct{}),
		replay:     NewReplayLog(defaultReplayLen, defaultReplayAge),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// tells every client the server is going away.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			h.drain()
			return

		case <-prune.C:
			h.replay.Prune()

		case c := <-h.register:
			h.add(c)

		case c := <-h.unregister:
			h.remove(c)

		case b := <-h.broadcast:
			for c := range h.shops[b.shopID] {
				select {
				case c.send <- b.msg:
				default:
					h.log.WithField("shop_id", b.shopID).Debug("dropping slow client")
					h.remove(c)
				}
			}
		}
	}
}

// Done is closed once Run has drained its clients.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) add(c *Client) {
	if h.total >= h.limits.Total {
		h.log.Warn("websocket connection limit reached, dropping client")
		c.closeSend()

		return
	}

	set := h.shops[c.ShopID]
	if len(set) >= h.limits.PerShop {
		h.log.WithField("shop_id", c.ShopID).Warn("per-shop websocket limit reached, dropping client")
		c.closeSend()

		return
	}

	if set == nil {
		set = make(map[*Client]struct{})
		h.shops[c.ShopID] = set
	}

	set[c] = struct{}{}
	h.total++
	h.updateCount()
}

func (h *Hub) remove(c *Client) {
	set, ok := h.shops[c.ShopID]
	if !ok {
		return
	}

	if _, ok := set[c]; !ok {
		return
	}

	delete(set, c)
	c.closeSend()
	h.total--

	if len(set) == 0 {
		delete(h.shops, c.ShopID)
	}

	h.updateCount()
}

func (h *Hub) updateCount() {
	h.count.Store(int64(h.total))
	metrics.WSConnections.Set(float64(h.total))
}

// BroadcastToShop records a job event and queues it for the shop's clients.
// Oversized payloads are dropped.
func (h *Hub) BroadcastToShop(shopID, eventType string, data json.RawMessage) {
	if len(data) > maxBroadcastPayload {
		h.log.WithFields(logrus.Fields{
			"shop_id":      shopID,
			"payload_size": len(data),
		}).Warn("dropping oversized job event")

		return
	}

	evt := h.replay.Record(shopID, eventType, data)

	msg, err := json.Marshal(evt)
	if err != nil {
		h.log.WithError(err).Error("encoding job event")
		return
	}

	select {
	case h.broadcast <- shopMessage{shopID: shopID, msg: msg}:
	default:
		h.log.Warn("broadcast channel full, dropping job event")
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	default:
		h.log.Warn("register channel full, dropping client")
		c.closeSend()
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// replayTo queues the events a reconnecting client missed. It returns false
// when the client's cursor is older than the replay window.
func (h *Hub) replayTo(c *Client, lastEventID uint64) bool {
	events, ok := h.replay.Since(c.ShopID, lastEventID)
	if !ok {
		return false
	}

	for _, evt := range events {
		msg, err := json.Marshal(evt)
		if err != nil {
			continue
		}

		if !c.trySend(msg) {
			break
		}
	}

	return true
}

func (h *Hub) drain() {
	if h.total == 0 {
		return
	}

	h.log.WithField("clients", h.total).Info("draining websocket clients")

	bye := []byte(`{"type":"shutdown","message":"server shutting down"}`)

	for _, set := range h.shops {
		for c := range set {
			c.trySend(bye)
		}
	}

	deadline := time.Now().Add(drainTimeout)

	for time.Now().Before(deadline) && h.pending() {
		time.Sleep(50 * time.Millisecond)
	}

	for _, set := range h.shops {
		for c := range set {
			c.closeSend()
		}
	}

	h.shops = make(map[string]map[*Client]struct{})
	h.total = 0
	h.updateCount()
}

func (h *Hub) pending() bool {
	for _, set := range h.shops {
		for c := range set {
			if len(c.send) > 0 {
				return true
			}
		}
	}

	return false
}

package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout     = 10 * time.Second
	readLimit        = 4096
	clientSendBuffer = 64
	maxConnLifetime  = 4 * time.Hour
	recheckInterval  = 15 * time.Minute
	recheckTimeout   = 10 * time.Second
	pingInterval     = 30 * time.Second
	pingTimeout      = 10 * time.Second
	maxMissedPings   = 2
)

// KeyResolver maps an API key to its shop.
type KeyResolver interface {
	GetShopByAPIKey(ctx context.Context, apiKey string) (uuid.UUID, error)
}

// Client is one dashboard connection.
type Client struct {
	ShopID string

	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	apiKey      string
	keys        KeyResolver
	connectedAt time.Time
	closeOnce   sync.Once
	log         *logrus.Entry
}

// NewClient creates a Client for an authenticated connection.
func NewClient(hub *Hub, conn *websocket.Conn, shopID uuid.UUID, keys KeyResolver, apiKey string) *Client {
	return &Client{
		ShopID:      shopID.String(),
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, clientSendBuffer),
		apiKey:      apiKey,
		keys:        keys,
		connectedAt: time.Now(),
		log:         hub.log.WithField("shop_id", shopID),
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) trySend(msg []byte) (sent bool) {
	defer func() {
		// send may already be closed by the hub.
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump handles subscribe messages until the connection closes.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown.
	}()

	c.conn.SetReadLimit(readLimit)

	for {
		_, raw, err := c.conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				c.log.WithField("status", status).Debug("client disconnected")
			}

			return
		}

		c.handleMessage(raw)
	}
}

func (c *Client) handleMessage(raw []byte) {
	var msg SubscribeMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != "subscribe" {
		return
	}

	if c.hub.replayTo(c, msg.LastEventID) {
		return
	}

	reset, err := json.Marshal(ResetMsg{Type: "reset", Reason: "missed events are no longer available, refetch the job"})
	if err != nil {
		return
	}

	c.trySend(reset)
}

// WritePump delivers queued events, pings the peer and closes the connection
// when the key is revoked or the lifetime cap is hit.
func (c *Client) WritePump(ctx context.Context) {
	defer c.conn.CloseNow() //nolint:errcheck // best-effort close on teardown.

	lifetime := time.NewTimer(time.Until(c.connectedAt.Add(maxConnLifetime)))
	defer lifetime.Stop()

	recheck := time.NewTicker(recheckInterval)
	defer recheck.Stop()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	missed := 0

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "closing") //nolint:errcheck // best-effort.
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write failed")
				return
			}

		case <-ping.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err == nil {
				missed = 0
				continue
			}

			if missed++; missed >= maxMissedPings {
				c.log.Debug("closing: peer stopped answering pings")
				return
			}

		case <-recheck.C:
			if !c.keyStillValid(ctx) {
				c.conn.Close(websocket.StatusPolicyViolation, "authentication expired") //nolint:errcheck // best-effort.
				return
			}

		case <-lifetime.C:
			c.conn.Close(websocket.StatusNormalClosure, "max connection lifetime exceeded") //nolint:errcheck // best-effort.
			return
		}
	}
}

// keyStillValid reports whether the API key still resolves to the same shop.
func (c *Client) keyStillValid(ctx context.Context) bool {
	if c.keys == nil {
		return true
	}

	checkCtx, cancel := context.WithTimeout(ctx, recheckTimeout)
	defer cancel()

	shopID, err := c.keys.GetShopByAPIKey(checkCtx, c.apiKey)
	if err != nil || shopID.String() != c.ShopID {
		c.log.Info("closing websocket: api key no longer valid")
		return false
	}

	return true
}

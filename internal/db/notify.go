package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/pathconvert/pathconvert/internal/dbpool"
	"github.com/pathconvert/pathconvert/internal/models"
)

// JobsChannel is the NOTIFY channel job progress events are published on.
const JobsChannel = "pathconvert_jobs"

const (
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// Broadcaster sends job events to connected clients of one shop.
type Broadcaster interface {
	BroadcastToShop(shopID, eventType string, data json.RawMessage)
}

// NotifyBridge subscribes to the jobs NOTIFY channel and forwards each
// event to the WebSocket hub. Progress written by any worker process
// reaches clients connected to any API process.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  Broadcaster
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster) *NotifyBridge {
	return &NotifyBridge{
		log:  log,
		pool: pool,
		hub:  hub,
	}
}

// Run listens until ctx is cancelled, reconnecting with jittered backoff.
// It returns an error only if the database is unreachable at start.
func (b *NotifyBridge) Run(ctx context.Context) error {
	if err := b.pool.HealthCheck(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	backoff := initialBackoff

	for {
		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{JobsChannel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", JobsChannel).Info("notify bridge listening")

	for {
		// Periodic deadline so cancellation is noticed on an idle channel.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	var event models.JobEvent
	if err := json.Unmarshal([]byte(n.Payload), &event); err != nil {
		b.log.WithError(err).Warn("dropping malformed job event")
		return
	}

	b.hub.BroadcastToShop(event.ShopID.String(), "job."+string(event.Status), json.RawMessage(n.Payload))
}

// nextBackoff doubles the current backoff with ±25% jitter, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}

package db

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

type recordingHub struct {
	shopID    string
	eventType string
	data      json.RawMessage
	calls     int
}

func (h *recordingHub) BroadcastToShop(shopID, eventType string, data json.RawMessage) {
	h.shopID, h.eventType, h.data = shopID, eventType, data
	h.calls++
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func TestNextBackoff_Capped(t *testing.T) {
	d := initialBackoff
	for range 20 {
		d = nextBackoff(d)
		if d > maxBackoff+maxBackoff/4 {
			t.Fatalf("backoff %s exceeds cap with jitter", d)
		}
	}

	if d < maxBackoff*3/4 {
		t.Errorf("backoff %s never reached the cap", d)
	}
}

func TestHandleNotification_ForwardsToShop(t *testing.T) {
	hub := &recordingHub{}
	b := NewNotifyBridge(quietLogger(), nil, hub)
	shopID := uuid.New()

	payload := `{"job_id":"` + uuid.NewString() + `","shop_id":"` + shopID.String() + `","status":"running","progress_percent":40}`
	b.handleNotification(&pgconn.Notification{Channel: JobsChannel, Payload: payload})

	if hub.calls != 1 {
		t.Fatalf("expected one broadcast, got %d", hub.calls)
	}

	if hub.shopID != shopID.String() || hub.eventType != "job.running" {
		t.Errorf("unexpected broadcast target %q / %q", hub.shopID, hub.eventType)
	}
}

func TestHandleNotification_DropsMalformed(t *testing.T) {
	hub := &recordingHub{}
	b := NewNotifyBridge(quietLogger(), nil, hub)

	b.handleNotification(&pgconn.Notification{Channel: JobsChannel, Payload: "not json"})

	if hub.calls != 0 {
		t.Errorf("expected no broadcast, got %d", hub.calls)
	}
}


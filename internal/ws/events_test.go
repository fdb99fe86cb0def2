package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func TestReplayLog_NumbersPerShop(t *testing.T) {
	l := NewReplayLog(10, time.Hour)

	a1 := l.Record("a", "job.running", json.RawMessage(`{}`))
	b1 := l.Record("b", "job.running", json.RawMessage(`{}`))
	a2 := l.Record("a", "job.complete", json.RawMessage(`{}`))

	if a1.ID != 1 || a2.ID != 2 || b1.ID != 1 {
		t.Errorf("ids = %d %d %d, want 1 2 1", a1.ID, a2.ID, b1.ID)
	}
}

func TestReplayLog_Since(t *testing.T) {
	l := NewReplayLog(3, time.Hour)

	for range 5 {
		l.Record("a", "job.running", json.RawMessage(`{}`))
	}

	tests := []struct {
		name    string
		last    uint64
		wantIDs []uint64
		wantOK  bool
	}{
		{name: "caught up", last: 5, wantOK: true},
		{name: "inside window", last: 3, wantIDs: []uint64{4, 5}, wantOK: true},
		{name: "window edge", last: 2, wantIDs: []uint64{3, 4, 5}, wantOK: true},
		{name: "evicted", last: 1, wantOK: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := l.Since("a", tc.last)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}

			if len(got) != len(tc.wantIDs) {
				t.Fatalf("got %d events, want %d", len(got), len(tc.wantIDs))
			}

			for i, e := range got {
				if e.ID != tc.wantIDs[i] {
					t.Errorf("event %d id = %d, want %d", i, e.ID, tc.wantIDs[i])
				}
			}
		})
	}

	if got, ok := l.Since("unknown", 0); !ok || got != nil {
		t.Errorf("unknown shop = %v, %v", got, ok)
	}
}

func TestReplayLog_AgesOut(t *testing.T) {
	now := time.Now()
	l := NewReplayLog(10, time.Minute)
	l.now = func() time.Time { return now }

	l.Record("a", "job.running", json.RawMessage(`{}`))

	now = now.Add(2 * time.Minute)

	if _, ok := l.Since("a", 0); ok {
		t.Error("expired event still replayable")
	}

	l.Prune()

	if _, found := l.shops["a"]; found {
		t.Error("prune kept an idle shop")
	}
}

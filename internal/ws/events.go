package ws

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	defaultReplayLen = 200
	defaultReplayAge = 30 * time.Minute
)

// Event is one job update delivered to dashboard clients.
type Event struct {
	Type   string          `json:"type"`
	ID     uint64          `json:"id"`
	ShopID string          `json:"-"`
	Data   json.RawMessage `json:"data"`
	Time   time.Time       `json:"time"`
}

// SubscribeMsg is sent by a reconnecting client to resume after lastEventID.
type SubscribeMsg struct {
	Type        string `json:"type"`
	LastEventID uint64 `json:"last_event_id"`
}

// ResetMsg tells the client its cursor is gone and it should refetch the job.
type ResetMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// shopLog is the replay window of one shop. IDs increase by one per event.
type shopLog struct {
	nextID uint64
	events []Event
}

// ReplayLog numbers events per shop and keeps a bounded window of them for
// clients that reconnect mid-job.
type ReplayLog struct {
	mu     sync.Mutex
	shops  map[string]*shopLog
	maxLen int
	maxAge time.Duration
	now    func() time.Time
}

// NewReplayLog creates a ReplayLog holding at most maxLen events no older
// than maxAge per shop.
func NewReplayLog(maxLen int, maxAge time.Duration) *ReplayLog {
	return &ReplayLog{
		shops:  make(map[string]*shopLog),
		maxLen: maxLen,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Record assigns the next ID for the shop, stores the event and returns it.
func (l *ReplayLog) Record(shopID, eventType string, data json.RawMessage) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.shops[shopID]
	if !ok {
		s = &shopLog{}
		l.shops[shopID] = s
	}

	s.nextID++
	evt := Event{Type: eventType, ID: s.nextID, ShopID: shopID, Data: data, Time: l.now()}

	s.events = append(l.trim(s.events), evt)
	if len(s.events) > l.maxLen {
		s.events = s.events[len(s.events)-l.maxLen:]
	}

	return evt
}

// Since returns the shop's events after lastEventID. ok is false when events
// after the cursor have already been evicted.
func (l *ReplayLog) Since(shopID string, lastEventID uint64) (events []Event, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, found := l.shops[shopID]
	if !found {
		return nil, true
	}

	s.events = l.trim(s.events)

	if lastEventID >= s.nextID {
		return nil, true
	}

	if len(s.events) == 0 || s.events[0].ID > lastEventID+1 {
		return nil, false
	}

	out := make([]Event, 0, len(s.events))

	for _, e := range s.events {
		if e.ID > lastEventID {
			out = append(out, e)
		}
	}

	return out, true
}

// Prune drops shops whose newest event has aged out.
func (l *ReplayLog) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, s := range l.shops {
		s.events = l.trim(s.events)
		if len(s.events) == 0 {
			delete(l.shops, id)
		}
	}
}

func (l *ReplayLog) trim(events []Event) []Event {
	cutoff := l.now().Add(-l.maxAge)

	start := 0
	for start < len(events) && events[start].Time.Before(cutoff) {
		start++
	}

	return events[start:]
}

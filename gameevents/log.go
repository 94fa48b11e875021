package gameevents

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// RecordedEvent is one entry in the append-only event log. Events are
// created exactly once by the recording pipeline and never edited or
// deleted afterwards; the log reflects rule violations rather than hiding
// them, so Valid is false for recorded-but-invalid events.
type RecordedEvent struct {
	EventID    int64          `json:"event_id"`
	GameID     string         `json:"game_id"`
	Type       string         `json:"type"`
	Info       map[string]any `json:"info"`
	Valid      bool           `json:"valid"`
	RecordedAt time.Time      `json:"date"`
}

// Sequencer allocates event ids. Next returns a value strictly greater
// than every previously allocated value, globally across all games, and
// must not hand out duplicates under concurrent callers.
type Sequencer interface {
	Next(ctx context.Context) (int64, error)
}

// EventLog is the durable, append-only store of recorded events.
type EventLog interface {
	// Append persists one event under its already-allocated id.
	Append(ctx context.Context, ev *RecordedEvent) error

	// ListByGame returns a game's events ascending by event id. The
	// order is stable and total; re-querying yields the same prefix
	// plus anything appended since.
	ListByGame(ctx context.Context, gameID string) ([]RecordedEvent, error)
}

// MemorySequencer is an atomic in-process Sequencer for tests and
// single-writer deployments.
type MemorySequencer struct {
	last atomic.Int64
}

func NewMemorySequencer() *MemorySequencer {
	return &MemorySequencer{}
}

func (s *MemorySequencer) Next(ctx context.Context) (int64, error) {
	return s.last.Add(1), nil
}

// MemoryEventLog is an in-memory EventLog, thread-safe for concurrent
// appends and listings.
type MemoryEventLog struct {
	mu     sync.RWMutex
	byGame map[string][]RecordedEvent
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{byGame: make(map[string][]RecordedEvent)}
}

func (l *MemoryEventLog) Append(ctx context.Context, ev *RecordedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.byGame[ev.GameID] = append(l.byGame[ev.GameID], *ev)
	return nil
}

func (l *MemoryEventLog) ListByGame(ctx context.Context, gameID string) ([]RecordedEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	events := make([]RecordedEvent, len(l.byGame[gameID]))
	copy(events, l.byGame[gameID])
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventID < events[j].EventID
	})
	return events, nil
}

package modbus

import (
	"sync"
	"time"
)

// LinkEventType describes the type of link event.
type LinkEventType string

const (
	LinkEventUp   LinkEventType = "up"
	LinkEventDown LinkEventType = "down"
)

// LinkEvent is emitted whenever the link to the slave recovers or fails.
type LinkEvent struct {
	Time     time.Time
	Type     LinkEventType
	Err      error         // Set when the link goes down
	Downtime time.Duration // Time spent down (on recovery)
	Up       bool          // Current link state after the event
}

// LinkStats contains snapshot metrics about link health.
type LinkStats struct {
	Up              bool
	LastUp          time.Time
	LastDown        time.Time
	CurrentDowntime time.Duration
	TotalDowntime   time.Duration
	LastDownErr     error
}

// LinkWatchdog tracks link health from exchange outcomes and emits events
// on transitions. A transport fault or silent slave marks the link down; a
// value-carrying response marks it up again. Slave exceptions count as up,
// the peer answered.
//
// Feed it iteration results through Reporter:
//
//	watchdog := modbus.NewLinkWatchdog(0)
//	runner := modbus.NewRunner(transport, cfg, modbus.WithReporter(watchdog.Reporter()))
//
// Events are dropped if the channel buffer is full so reporting never
// blocks the exchange loop.
type LinkWatchdog struct {
	events chan LinkEvent

	mu sync.RWMutex

	// guarded by mu
	up            bool
	seen          bool
	lastUp        time.Time
	lastDown      time.Time
	downtimeStart time.Time
	totalDowntime time.Duration
	lastErr       error
}

// NewLinkWatchdog creates a new watchdog. eventBuffer controls the channel
// buffer size for Events(); use 0 for the default of 16.
func NewLinkWatchdog(eventBuffer int) *LinkWatchdog {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &LinkWatchdog{
		events: make(chan LinkEvent, eventBuffer),
	}
}

// Reporter returns a Runner reporter feeding this watchdog. It can be
// combined with other reporting by calling Observe directly.
func (w *LinkWatchdog) Reporter() func(IterationResult) {
	return func(res IterationResult) {
		w.Observe(res)
	}
}

// Observe feeds one exchange outcome into the watchdog.
func (w *LinkWatchdog) Observe(res IterationResult) {
	switch res.Outcome {
	case OutcomeTransportError, OutcomeNoResponse:
		w.markDown(res.Err)
	default:
		// Any answer from the peer proves the link, exceptions included.
		w.markUp()
	}
}

func (w *LinkWatchdog) markUp() {
	now := time.Now()
	var downtime time.Duration

	w.mu.Lock()
	wasUp, seen := w.up, w.seen
	if !w.downtimeStart.IsZero() {
		downtime = time.Since(w.downtimeStart)
		w.totalDowntime += downtime
		w.downtimeStart = time.Time{}
	}
	w.up = true
	w.seen = true
	w.lastUp = now
	w.mu.Unlock()

	if wasUp && seen {
		return
	}
	w.emit(LinkEvent{
		Time:     now,
		Type:     LinkEventUp,
		Downtime: downtime,
		Up:       true,
	})
}

func (w *LinkWatchdog) markDown(err error) {
	now := time.Now()

	w.mu.Lock()
	wasUp, seen := w.up, w.seen
	w.up = false
	w.seen = true
	w.lastDown = now
	if w.downtimeStart.IsZero() {
		w.downtimeStart = now
	}
	w.lastErr = err
	w.mu.Unlock()

	if !wasUp && seen {
		return
	}
	w.emit(LinkEvent{
		Time: now,
		Type: LinkEventDown,
		Err:  err,
		Up:   false,
	})
}

// Events returns a read-only channel of link events.
func (w *LinkWatchdog) Events() <-chan LinkEvent {
	return w.events
}

// Stats returns a snapshot of link health metrics.
func (w *LinkWatchdog) Stats() LinkStats {
	var stats LinkStats

	w.mu.RLock()
	stats.Up = w.up
	stats.LastUp = w.lastUp
	stats.LastDown = w.lastDown
	stats.TotalDowntime = w.totalDowntime
	stats.LastDownErr = w.lastErr

	if !w.up && !w.downtimeStart.IsZero() {
		stats.CurrentDowntime = time.Since(w.downtimeStart)
	}
	w.mu.RUnlock()
	return stats
}

func (w *LinkWatchdog) emit(evt LinkEvent) {
	select {
	case w.events <- evt:
	default:
		// Drop if buffer is full to avoid blocking the loop.
	}
}

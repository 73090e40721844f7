package watcher

import (
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event has arrived for the configured delay.
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events []Event
	emit   func([]Event)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		events: make([]Event, 0),
		emit:   emit,
	}
}

// Add adds an event to the batch and restarts the quiet period.
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// flush coalesces the collected events and emits them
func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := b.events
	b.events = make([]Event, 0)
	b.timer = nil
	b.mu.Unlock()

	batch := Coalesce(events)
	if len(batch) > 0 && b.emit != nil {
		b.emit(batch)
	}
}

// Cancel drops any pending events without emitting them.
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = make([]Event, 0)
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// EventCount returns the number of pending events
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Coalesce turns raw events into the batch delivered to consumers.
//
// A rename-away (Renamed with an empty From) is paired with the next
// Created event in the batch to form Renamed{Path: new, From: old}; an
// unpaired rename-away becomes Deleted. Events for the same path collapse
// into one, keeping the position of the first: the latest kind wins, except
// that a later Modified does not downgrade Created or Renamed.
func Coalesce(raw []Event) []Event {
	paired := make([]Event, 0, len(raw))
	var away []int
	for _, ev := range raw {
		switch {
		case ev.Kind == Renamed && ev.From == "":
			away = append(away, len(paired))
			paired = append(paired, ev)
		case ev.Kind == Created && len(away) > 0:
			i := away[0]
			away = away[1:]
			paired[i] = Event{Kind: Renamed, Path: ev.Path, From: paired[i].Path, Timestamp: ev.Timestamp}
		default:
			paired = append(paired, ev)
		}
	}
	for _, i := range away {
		paired[i].Kind = Deleted
	}

	out := make([]Event, 0, len(paired))
	index := make(map[string]int, len(paired))
	for _, ev := range paired {
		i, seen := index[ev.Path]
		if !seen {
			index[ev.Path] = len(out)
			out = append(out, ev)
			continue
		}
		prev := out[i]
		if ev.Kind == Modified && (prev.Kind == Created || prev.Kind == Renamed) {
			prev.Timestamp = ev.Timestamp
			out[i] = prev
			continue
		}
		out[i] = ev
	}
	return out
}

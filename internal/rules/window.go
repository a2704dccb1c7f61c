package rules

import (
	"sync"
	"time"

	"github.com/LinuxMakesMehappy/BTC-Vault-Protocol-sub001/internal/models"
)

// Default bound on retained events. The window only needs to cover the
// longest configured rule window; anything beyond that is dead weight.
const defaultMaxEvents = 10000

// EventWindow is a bounded trailing record of domain events used as the
// history input for anomaly rule evaluation. It is safe for concurrent use:
// the event bus subscriber appends while the performance cycle reads.
type EventWindow struct {
	mu        sync.RWMutex
	events    []*models.DomainEvent
	maxEvents int
}

// NewEventWindow creates an empty window holding at most maxEvents entries.
// maxEvents <= 0 selects the default bound.
func NewEventWindow(maxEvents int) *EventWindow {
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &EventWindow{
		events:    make([]*models.DomainEvent, 0),
		maxEvents: maxEvents,
	}
}

// Add appends an event, evicting the oldest entries once the bound is hit.
func (w *EventWindow) Add(ev *models.DomainEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.events = append(w.events, ev)
	if len(w.events) > w.maxEvents {
		w.events = w.events[len(w.events)-w.maxEvents:]
	}
}

// CountMatching counts events for the given subject whose type matches the
// rule and whose timestamp falls inside (from, to]. An empty subject counts
// across all subjects.
func (w *EventWindow) CountMatching(rule *models.AnomalyRule, subject string, from, to time.Time) int {
	w.mu.RLock()
	defer w.mu.RUnlock()

	count := 0
	for _, ev := range w.events {
		if subject != "" && ev.Subject != subject {
			continue
		}
		if !rule.Matches(ev.Type) {
			continue
		}
		if ev.Timestamp.After(from) && !ev.Timestamp.After(to) {
			count++
		}
	}
	return count
}

// Since returns copies of events recorded after the given time, oldest
// first.
func (w *EventWindow) Since(t time.Time) []*models.DomainEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []*models.DomainEvent
	for _, ev := range w.events {
		if ev.Timestamp.After(t) {
			out = append(out, ev)
		}
	}
	return out
}

// Prune drops events older than the cutoff.
func (w *EventWindow) Prune(cutoff time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := w.events[:0]
	for _, ev := range w.events {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	w.events = kept
}

// Len returns the number of retained events.
func (w *EventWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.events)
}

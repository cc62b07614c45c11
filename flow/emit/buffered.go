package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, keyed by
// thread id, with query support. Intended for tests, debugging, and
// post-run analysis; everything stays in memory, so clear threads you are
// done with.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects a subset of a thread's events. Set fields combine
// with AND; zero values mean no filter.
type HistoryFilter struct {
	StepID  string
	Msg     string
	MinStep *int
	MaxStep *int
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit stores the event. Safe for concurrent use.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
}

// History returns a copy of all events for a thread, in emission order.
func (b *BufferedEmitter) History(threadID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[threadID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the thread's events matching filter.
func (b *BufferedEmitter) HistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events[threadID] {
		if filter.StepID != "" && ev.StepID != filter.StepID {
			continue
		}
		if filter.Msg != "" && ev.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && ev.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && ev.Step > *filter.MaxStep {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Clear drops all events for a thread.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	delete(b.events, threadID)
	b.mu.Unlock()
}

// ClearAll drops every stored event.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	b.events = make(map[string][]Event)
	b.mu.Unlock()
}

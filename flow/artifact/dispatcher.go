package artifact

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/studyflow/studyflow/flow/emit"
)

// Link is one announced artifact: a retrievable URL plus a display label
// (usually carrying a leading emoji).
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// Doc is a document a rule wants persisted.
type Doc struct {
	// Kind keys the pending/sent bookkeeping; producing the same kind
	// again overwrites the stored document and re-announces the link.
	Kind    string
	Label   string
	File    string
	Content string
}

// Rule binds a step to an artifact production: when the predicate holds
// on the post-step state, the rendered document is written and its link
// queued for announcement.
type Rule[S any] struct {
	Step   string
	When   func(state S) bool
	Render func(state S) Doc
}

// Dispatcher observes step outputs, persists derived documents through
// the artifact store, and tracks pending/sent notification URLs per
// thread.
//
// Persistence is a side channel: storage failures are emitted as events
// and swallowed, never aborting the workflow step that produced the
// state. Safe for concurrent use across threads.
type Dispatcher[S any] struct {
	store   Store
	emitter emit.Emitter
	rules   map[string][]Rule[S]

	mu   sync.Mutex
	book map[string]*bookkeeping
}

type bookkeeping struct {
	sessionID string
	pending   map[string]Link
	order     []string
	sent      map[string]Link
}

// NewDispatcher creates a Dispatcher over store with the given rules.
// A nil emitter is replaced with the null emitter.
func NewDispatcher[S any](store Store, rules []Rule[S], emitter emit.Emitter) *Dispatcher[S] {
	if emitter == nil {
		emitter = emit.NewNullEmitter()
	}
	byStep := make(map[string][]Rule[S])
	for _, r := range rules {
		byStep[r.Step] = append(byStep[r.Step], r)
	}
	return &Dispatcher[S]{
		store:   store,
		emitter: emitter,
		rules:   byStep,
		book:    make(map[string]*bookkeeping),
	}
}

// Dispatch runs the rules registered for step against the post-step
// state. Failures are logged and swallowed.
func (d *Dispatcher[S]) Dispatch(ctx context.Context, threadID, step string, state S) {
	rules := d.rules[step]
	if len(rules) == 0 {
		return
	}

	for _, rule := range rules {
		if rule.When != nil && !rule.When(state) {
			continue
		}
		doc := rule.Render(state)
		if doc.File == "" || doc.Content == "" {
			continue
		}

		sessionID := d.ensureSession(threadID)
		url, err := d.store.Write(ctx, threadID, sessionID, doc.File, []byte(doc.Content))
		if err != nil {
			d.emitter.Emit(emit.Event{
				ThreadID: threadID,
				StepID:   step,
				Msg:      "artifact_save_failed",
				Meta:     map[string]interface{}{"error": err.Error(), "file": doc.File},
			})
			continue
		}

		d.addPending(threadID, doc.Kind, Link{URL: url, Label: doc.Label})
		d.emitter.Emit(emit.Event{
			ThreadID: threadID,
			StepID:   step,
			Msg:      "artifact_saved",
			Meta:     map[string]interface{}{"file": doc.File, "kind": doc.Kind},
		})
	}
}

// SessionID returns the thread's session id, or "" when no artifact has
// been produced yet.
func (d *Dispatcher[S]) SessionID(threadID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if b, ok := d.book[threadID]; ok {
		return b.sessionID
	}
	return ""
}

// AdoptSessionID installs an externally supplied session id. An existing
// real session id (one carrying the session- prefix) is never
// overwritten; a placeholder is.
func (d *Dispatcher[S]) AdoptSessionID(threadID, sessionID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.bookFor(threadID)
	if strings.HasPrefix(b.sessionID, "session-") {
		return
	}
	b.sessionID = sessionID
}

// DrainPending moves every pending link to sent and returns them in
// production order. Each production event is announced exactly once even
// across multiple suspend/resume cycles.
func (d *Dispatcher[S]) DrainPending(threadID string) []Link {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.book[threadID]
	if !ok || len(b.pending) == 0 {
		return nil
	}

	out := make([]Link, 0, len(b.order))
	for _, kind := range b.order {
		link, ok := b.pending[kind]
		if !ok {
			continue
		}
		out = append(out, link)
		b.sent[kind] = link
		delete(b.pending, kind)
	}
	b.order = b.order[:0]
	return out
}

// Sent returns the links already announced for the thread.
func (d *Dispatcher[S]) Sent(threadID string) []Link {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.book[threadID]
	if !ok {
		return nil
	}
	out := make([]Link, 0, len(b.sent))
	for _, link := range b.sent {
		out = append(out, link)
	}
	return out
}

// SessionURL returns the link to the thread's artifact bundle, or ""
// when no session exists.
func (d *Dispatcher[S]) SessionURL(threadID string) string {
	sid := d.SessionID(threadID)
	if sid == "" {
		return ""
	}
	return d.store.SessionURL(threadID, sid)
}

// Drop evicts the thread's bookkeeping. Part of thread teardown;
// idempotent.
func (d *Dispatcher[S]) Drop(threadID string) {
	d.mu.Lock()
	delete(d.book, threadID)
	d.mu.Unlock()
}

func (d *Dispatcher[S]) ensureSession(threadID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.bookFor(threadID)
	if b.sessionID == "" {
		b.sessionID = "session-" + uuid.NewString()
	}
	return b.sessionID
}

func (d *Dispatcher[S]) addPending(threadID, kind string, link Link) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := d.bookFor(threadID)
	if _, exists := b.pending[kind]; !exists {
		b.order = append(b.order, kind)
	}
	b.pending[kind] = link
}

// bookFor returns the thread's bookkeeping, creating it on first touch.
// Callers hold d.mu.
func (d *Dispatcher[S]) bookFor(threadID string) *bookkeeping {
	b, ok := d.book[threadID]
	if !ok {
		b = &bookkeeping{
			pending: make(map[string]Link),
			sent:    make(map[string]Link),
		}
		d.book[threadID] = b
	}
	return b
}

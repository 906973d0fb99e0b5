// Package sse implements a Server-Sent Events broker pushing note, index and
// view changes to editors.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"

	"github.com/starford/luhmann/internal/index"
)

// Event types.
const (
	EventNoteCreated  = "note.created"
	EventNoteUpdated  = "note.updated"
	EventNoteDeleted  = "note.deleted"
	EventIndexUpdated = "index.updated"
	EventViewUpdated  = "view.updated"
)

var noteEventTypes = map[string]string{
	index.KindCreated: EventNoteCreated,
	index.KindUpdated: EventNoteUpdated,
	index.KindDeleted: EventNoteDeleted,
}

// Event represents an SSE event to broadcast. A non-empty View limits
// delivery to clients following that view and to unfiltered clients.
type Event struct {
	Type string `json:"type"`
	View string `json:"-"`
	Data any    `json:"data"`
}

// IndexChange is the payload of index.updated: the Luhmann IDs touched
// since the previous index.updated, in index order. Editors refresh the
// views showing any of them.
type IndexChange struct {
	LuhmannIDs []string `json:"luhmann_ids"`
	Unfiled    int      `json:"unfiled"`
}

type subscription struct {
	ch   chan []byte
	view string
}

// Broker manages SSE client connections and broadcasts events.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients, pending index change, throttle timer). Public methods
// communicate with this loop through channels, so no mutexes are required.
type Broker struct {
	indexMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan index.NoteEvent
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. index.updated is sent at most once
// per indexThrottle; changes arriving inside the window are merged into a
// trailing event when it ends.
func NewBroker(indexThrottle time.Duration) *Broker {
	if indexThrottle <= 0 {
		indexThrottle = 2 * time.Second
	}

	b := &Broker{
		indexMin:      indexThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan index.NoteEvent, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastIndex time.Time
	var flushTimer *time.Timer
	var flushCh <-chan time.Time
	pending := map[string]struct{}{}
	unfiled := 0

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, view := range clients {
			if event.View != "" && view != "" && view != event.View {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	flush := func() {
		ids := make([]string, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		broadcast(Event{Type: EventIndexUpdated, Data: IndexChange{LuhmannIDs: ids, Unfiled: unfiled}})
		clear(pending)
		unfiled = 0
		lastIndex = time.Now()
	}

	for {
		select {
		case <-b.stopCh:
			if flushTimer != nil {
				flushTimer.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.view

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case ev := <-b.noteEventCh:
			typ, ok := noteEventTypes[ev.Kind]
			if !ok {
				continue
			}
			broadcast(Event{Type: typ, Data: ev})

			if ev.LuhmannID != "" {
				pending[ev.LuhmannID] = struct{}{}
			} else {
				unfiled++
			}
			if flushCh != nil {
				continue
			}
			if wait := b.indexMin - time.Since(lastIndex); wait > 0 {
				if flushTimer == nil {
					flushTimer = time.NewTimer(wait)
				} else {
					flushTimer.Reset(wait)
				}
				flushCh = flushTimer.C
				continue
			}
			flush()

		case <-flushCh:
			flushCh = nil
			flush()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client receiving every event and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeView("")
}

// SubscribeView adds a client that receives view.updated only for the named
// view. An empty name receives all views.
func (b *Broker) SubscribeView(view string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, view: view}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishNoteEvent publishes a note change and schedules index.updated.
// It matches index.EventCallback.
func (b *Broker) PublishNoteEvent(ev index.NoteEvent) {
	if b.closed.Load() {
		return
	}
	select {
	case b.noteEventCh <- ev:
	case <-b.stopped:
	}
}

// PublishView publishes view.updated for the named view.
func (b *Broker) PublishView(view string, v any) {
	b.Publish(Event{Type: EventViewUpdated, View: view, Data: v})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). The optional
// "view" query parameter filters view.updated events.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeView(r.URL.Query().Get("view"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

// Package sse implements a Server-Sent Events broker for song and render updates.
package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	retryAfter       = 3 * time.Second
	defaultKeepalive = 25 * time.Second
)

// Event types.
const (
	TypeSongCreated  = "song.created"
	TypeSongUpdated  = "song.updated"
	TypeSongDeleted  = "song.deleted"
	TypeSongRendered = "song.rendered"
	TypeGraphUpdated = "graph.updated"
	TypePass         = "lifecycle.pass"
)

// Event represents an SSE event to broadcast.
type Event struct {
	ID   string `json:"-"`
	Type string `json:"type"`
	Data any    `json:"data"`
}

// SongEvent is the payload of song.* events. HTML is only set on
// song.rendered.
type SongEvent struct {
	Path     string `json:"path"`
	HTML     string `json:"html,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the client set and the graph throttle timestamp;
// public methods reach it through channels.
type Broker struct {
	graphMin  time.Duration
	keepalive time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	songEventCh   chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits graph.updated at most once per
// graphThrottle.
func NewBroker(graphThrottle time.Duration) *Broker {
	if graphThrottle <= 0 {
		graphThrottle = 2 * time.Second
	}

	b := &Broker{
		graphMin:      graphThrottle,
		keepalive:     defaultKeepalive,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		songEventCh:   make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// subscription is a client channel plus an optional song path filter.
type subscription struct {
	ch   chan []byte
	path string
}

// wants reports whether a client filtered on path receives event. An empty
// filter receives everything; a filtered client only sees song events for
// its path.
func wants(path string, event Event) bool {
	if path == "" {
		return true
	}
	se, ok := event.Data.(SongEvent)
	return ok && se.Path == path
}

// encode renders an event in the text/event-stream wire format.
func encode(event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, err
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	return []byte(fmt.Sprintf("id: %s\nevent: %s\ndata: %s\n\n", id, event.Type, payload)), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	var lastGraph time.Time

	broadcast := func(event Event) {
		raw, err := encode(event)
		if err != nil {
			return
		}
		for ch, path := range clients {
			if !wants(path, event) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.path

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case event := <-b.songEventCh:
			broadcast(event)
			if event.Type == TypeSongRendered {
				continue
			}
			now := time.Now()
			if now.Sub(lastGraph) >= b.graphMin {
				lastGraph = now
				broadcast(Event{Type: TypeGraphUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribePath("")
}

// SubscribePath adds a client that only receives song events for path.
// An empty path subscribes to every event.
func (b *Broker) SubscribePath(path string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, path: path}:
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
	b.send(b.publishCh, event)
}

// PublishSongEvent publishes song.created, song.updated or song.deleted for
// path, followed by a throttled graph.updated. Unknown kinds are ignored.
func (b *Broker) PublishSongEvent(kind, path string) {
	var typ string
	switch kind {
	case "created":
		typ = TypeSongCreated
	case "updated":
		typ = TypeSongUpdated
	case "deleted":
		typ = TypeSongDeleted
	default:
		return
	}
	b.send(b.songEventCh, Event{Type: typ, Data: SongEvent{Path: path}})
}

// PublishRendered publishes a freshly rendered song fragment.
func (b *Broker) PublishRendered(path, fragment, strategy string, fallback bool) {
	b.send(b.songEventCh, Event{
		Type: TypeSongRendered,
		Data: SongEvent{Path: path, HTML: fragment, Strategy: strategy, Fallback: fallback},
	})
}

func (b *Broker) send(ch chan Event, event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case ch <- event:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A path query
// parameter narrows the stream to one song.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", retryAfter.Milliseconds())
	flusher.Flush()

	ch := b.SubscribePath(r.URL.Query().Get("path"))
	defer b.Unsubscribe(ch)

	keepalive := time.NewTicker(b.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

package dashboard

import (
	"sync"
	"time"
)

// ChangeKind describes what happened to the row cache.
type ChangeKind string

const (
	ChangeReloaded   ChangeKind = "reloaded"
	ChangeStaged     ChangeKind = "staged"
	ChangeCommitted  ChangeKind = "committed"
	ChangeRolledBack ChangeKind = "rolled_back"
)

// Change is published to watchers after every cache mutation.
type Change struct {
	Kind ChangeKind `json:"kind"`
	IDs  []string   `json:"ids,omitempty"`
	At   time.Time  `json:"at"`
}

// Hub fans cache changes out to watchers. Slow watchers lose changes
// instead of blocking the cache.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]chan Change
	next   int
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: map[int]chan Change{}}
}

// Subscribe returns a change channel and a cancel func that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Change, buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

func (h *Hub) Publish(c Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close closes every watcher channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

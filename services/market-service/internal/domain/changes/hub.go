package changes

import "sync"

// Hub is an in-process Subscriber. One feed goroutine calls Dispatch and
// every registered callback for the table runs in turn.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(id string)
}

var _ Subscriber = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[uint64]func(id string))}
}

func (h *Hub) Subscribe(table string, onChange func(id string)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[table] == nil {
		h.subs[table] = make(map[uint64]func(string))
	}
	h.subs[table][id] = onChange

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[table], id)
		})
	}
}

// Dispatch delivers change to the table's subscribers. Callbacks run
// outside the lock so they may unsubscribe.
func (h *Hub) Dispatch(change Change) {
	h.mu.RLock()
	callbacks := make([]func(string), 0, len(h.subs[change.Table]))
	for _, cb := range h.subs[change.Table] {
		callbacks = append(callbacks, cb)
	}
	h.mu.RUnlock()

	for _, cb := range callbacks {
		cb(change.ID)
	}
}

// Subscribers returns how many callbacks are registered for table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

package docstore

import (
	"sync"
	"time"
)

// ChangeKind is the kind of write that produced a Change.
type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeRemove ChangeKind = "remove"
)

// Change is broadcast after every successful write.
type Change struct {
	Collection string
	Kind       ChangeKind
	ID         string
	At         time.Time
}

// Listener receives change notifications. Listeners run synchronously on the
// writing goroutine and must not write to the store.
type Listener func(Change)

// Notifier is the observer registry embedded by store backends.
type Notifier struct {
	mu        sync.RWMutex
	next      int
	listeners map[int]Listener
}

// Subscribe registers l and returns a function that removes it.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	key := n.next
	n.next++
	n.listeners[key] = l

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, key)
	}
}

// Notify fans c out to every listener.
func (n *Notifier) Notify(c Change) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	n.mu.RLock()
	ls := make([]Listener, 0, len(n.listeners))
	for _, l := range n.listeners {
		ls = append(ls, l)
	}
	n.mu.RUnlock()

	for _, l := range ls {
		l(c)
	}
}

package storage

import (
	"errors"
	"sync"
)

// Slot names one durable value.
type Slot string

const (
	SlotToken     Slot = "auth_token"
	SlotPrincipal Slot = "user"
)

// ErrCorrupt is returned when the persisted document cannot be decoded.
var ErrCorrupt = errors.New("storage: corrupt document")

// Store is the durable client storage shared by the HTTP adapter and the session.
// Values are opaque strings, one per slot.
type Store interface {
	Get(slot Slot) (string, bool, error)
	// Set writes several slots in one durable operation.
	Set(values map[Slot]string) error
	Remove(slots ...Slot) error
	// Subscribe registers fn to run after the stored values change.
	Subscribe(fn func()) (unsubscribe func())
}

// listeners is the subscription registry embedded by Store implementations.
type listeners struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

func (l *listeners) subscribe(fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(){}
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

// notify runs listeners outside the registry lock so they may read the store.
func (l *listeners) notify() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

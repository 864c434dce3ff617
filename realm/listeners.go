package realm

import (
	"reflect"
	"sync"

	"github.com/remoterealm/remoterealm/rpc"
)

// ChangeEvent is the only event name the listener API accepts.
const ChangeEvent = "change"

// ChangeListenerFunc is a process-local callback invoked once per successful
// transaction commit on the realm it was registered on.
type ChangeListenerFunc func(r *Realm, event string)

// listenerSet holds the registered change listeners with set semantics:
// registering the same function twice keeps a single entry. Identity is the
// callback's function pointer.
type listenerSet struct {
	mu        sync.Mutex
	listeners map[uintptr]ChangeListenerFunc
}

func newListenerSet() *listenerSet {
	return &listenerSet{
		listeners: make(map[uintptr]ChangeListenerFunc),
	}
}

func listenerKey(cb ChangeListenerFunc) uintptr {
	return reflect.ValueOf(cb).Pointer()
}

func (s *listenerSet) add(cb ChangeListenerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[listenerKey(cb)] = cb
}

func (s *listenerSet) remove(cb ChangeListenerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, listenerKey(cb))
}

func (s *listenerSet) removeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = make(map[uintptr]ChangeListenerFunc)
}

func (s *listenerSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// snapshot returns the currently registered callbacks. Iteration order is
// not specified; each callback appears exactly once.
func (s *listenerSet) snapshot() []ChangeListenerFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	callbacks := make([]ChangeListenerFunc, 0, len(s.listeners))
	for _, cb := range s.listeners {
		callbacks = append(callbacks, cb)
	}
	return callbacks
}

// AddListener registers a callback invoked after every successful commit.
// Only the literal event name "change" is accepted.
func (r *Realm) AddListener(event string, cb ChangeListenerFunc) error {
	if event != ChangeEvent {
		return rpc.NewUsageError("unknown event name %q: only 'change' is supported", event)
	}
	if cb == nil {
		return rpc.NewUsageError("listener callback must not be nil")
	}
	r.listeners.add(cb)
	return nil
}

// RemoveListener unregisters a previously added callback. Removing a
// callback that was never added is a no-op.
func (r *Realm) RemoveListener(event string, cb ChangeListenerFunc) error {
	if event != ChangeEvent {
		return rpc.NewUsageError("unknown event name %q: only 'change' is supported", event)
	}
	if cb == nil {
		return rpc.NewUsageError("listener callback must not be nil")
	}
	r.listeners.remove(cb)
	return nil
}

// RemoveAllListeners unregisters every callback. When an event name is
// given it must be "change".
func (r *Realm) RemoveAllListeners(event ...string) error {
	if len(event) > 0 && event[0] != ChangeEvent {
		return rpc.NewUsageError("unknown event name %q: only 'change' is supported", event[0])
	}
	r.listeners.removeAll()
	return nil
}

// Package hooks provides the in-process extensibility bus. Listeners
// register under one of three dispatch kinds, each with its own error
// isolation contract:
//
//   - Filter: sequential; each listener may transform the payload or veto by
//     returning nil. A listener error or panic passes the payload through to
//     the next listener unchanged.
//   - Action: fire-and-forget fan-out; no return value.
//   - Static: parallel fan-out; the bus waits for every listener, payload is
//     never replaced, and each listener's panic is isolated.
package hooks

import (
	"errors"
	"sync"

	"github.com/forumbase/notifyd/pkg/logger"
)

var errListenerPanic = errors.New("hook listener panicked")

// FilterFunc may transform the payload. Returning (nil, nil) vetoes the
// chain; returning an error leaves the payload unchanged for the next
// listener.
type FilterFunc func(payload interface{}) (interface{}, error)

// ListenerFunc receives the payload for Action and Static dispatch.
type ListenerFunc func(payload interface{})

// Bus dispatches named hook points to registered listeners.
type Bus struct {
	mu      sync.RWMutex
	filters map[string][]FilterFunc
	actions map[string][]ListenerFunc
	statics map[string][]ListenerFunc
	log     *logger.Logger
}

// NewBus creates an empty hook bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		filters: make(map[string][]FilterFunc),
		actions: make(map[string][]ListenerFunc),
		statics: make(map[string][]ListenerFunc),
		log:     log,
	}
}

// RegisterFilter adds a filter listener to the named hook point.
func (b *Bus) RegisterFilter(name string, fn FilterFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filters[name] = append(b.filters[name], fn)
}

// RegisterAction adds an action listener to the named hook point.
func (b *Bus) RegisterAction(name string, fn ListenerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.actions[name] = append(b.actions[name], fn)
}

// RegisterStatic adds a static listener to the named hook point.
func (b *Bus) RegisterStatic(name string, fn ListenerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statics[name] = append(b.statics[name], fn)
}

// Filter runs the filter chain for the hook point. The payload returned by
// each listener feeds the next one; a nil result short-circuits the chain
// and is returned to the caller (veto).
func (b *Bus) Filter(name string, payload interface{}) interface{} {
	b.mu.RLock()
	chain := b.filters[name]
	b.mu.RUnlock()

	for _, fn := range chain {
		result, err := b.runFilter(name, fn, payload)
		if err != nil {
			continue
		}
		if result == nil {
			return nil
		}
		payload = result
	}
	return payload
}

func (b *Bus) runFilter(name string, fn FilterFunc, payload interface{}) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("hook", name).Warnf("filter listener panicked: %v", r)
			result, err = nil, errListenerPanic
		}
	}()
	result, err = fn(payload)
	if err != nil {
		b.log.WithField("hook", name).Warnf("filter listener failed: %v", err)
	}
	return result, err
}

// Fire dispatches the payload to every action listener asynchronously and
// returns immediately.
func (b *Bus) Fire(name string, payload interface{}) {
	b.mu.RLock()
	listeners := b.actions[name]
	b.mu.RUnlock()

	for _, fn := range listeners {
		go b.runListener(name, fn, payload)
	}
}

// FireStatic dispatches the payload to every static listener in parallel and
// waits for all of them. Listeners cannot replace the payload.
func (b *Bus) FireStatic(name string, payload interface{}) {
	b.mu.RLock()
	listeners := b.statics[name]
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, fn := range listeners {
		wg.Add(1)
		go func(fn ListenerFunc) {
			defer wg.Done()
			b.runListener(name, fn, payload)
		}(fn)
	}
	wg.Wait()
}

func (b *Bus) runListener(name string, fn ListenerFunc, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("hook", name).Warnf("listener panicked: %v", r)
		}
	}()
	fn(payload)
}

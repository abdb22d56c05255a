// Copyright (c) 2026 the juno authors
// released under the MIT license

// Package events implements the synchronous named-event bus that the server
// core hangs its lifecycle hooks on. Listeners for an event run in the order
// they subscribed; any listener can stop propagation, which short-circuits
// the rest. Dispatch is deliberately lock-free: the bus belongs to the
// server's event-loop goroutine, like every other piece of core state.
package events

// An Event is a single dispatch in progress. Payload is shared by every
// listener; mutable payloads are how listeners hand results back to the
// firing site.
type Event struct {
	Name    string
	Payload any

	stopped bool
	vetoed  bool
}

// StopPropagation prevents any remaining listeners from seeing the event.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Veto rejects whatever the event proposes (a message, a NAMES entry, a
// channel teardown) and stops propagation.
func (e *Event) Veto() {
	e.vetoed = true
	e.stopped = true
}

// Vetoed reports whether some listener called Veto.
func (e *Event) Vetoed() bool {
	return e.vetoed
}

// Handler is a subscribed listener.
type Handler func(*Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus dispatches named events to subscribed listeners.
type Bus struct {
	subs   map[string][]subscription
	nextID uint64
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
	}
}

// Subscribe attaches handler to the named event, behind any listeners already
// attached. The returned id can be passed to Unsubscribe.
func (bus *Bus) Subscribe(name string, handler Handler) (id uint64) {
	bus.nextID++
	id = bus.nextID
	bus.subs[name] = append(bus.subs[name], subscription{id: id, handler: handler})
	return
}

// Unsubscribe detaches a listener; unknown ids are a no-op.
func (bus *Bus) Unsubscribe(name string, id uint64) {
	subs := bus.subs[name]
	for i := range subs {
		if subs[i].id == id {
			bus.subs[name] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Fire dispatches the named event to its listeners in subscription order,
// then returns the event so the caller can inspect the outcome. Firing an
// event nobody listens to is fine.
func (bus *Bus) Fire(name string, payload any) *Event {
	event := &Event{
		Name:    name,
		Payload: payload,
	}
	for _, sub := range bus.subs[name] {
		sub.handler(event)
		if event.stopped {
			break
		}
	}
	return event
}

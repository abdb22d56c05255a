// Copyright (c) 2026 the juno authors
// released under the MIT license

package events

import (
	"reflect"
	"testing"
)

func TestFireOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.Subscribe("user.new", func(e *Event) {
		order = append(order, "first")
	})
	bus.Subscribe("user.new", func(e *Event) {
		order = append(order, "second")
	})
	bus.Subscribe("channel_join", func(e *Event) {
		order = append(order, "unrelated")
	})

	bus.Fire("user.new", nil)

	expected := []string{"first", "second"}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v but got %v", expected, order)
	}
}

func TestStopPropagation(t *testing.T) {
	bus := NewBus()
	var calls int
	bus.Subscribe("user.can_message", func(e *Event) {
		calls++
		e.StopPropagation()
	})
	bus.Subscribe("user.can_message", func(e *Event) {
		calls++
	})

	e := bus.Fire("user.can_message", nil)
	if calls != 1 {
		t.Errorf("expected 1 listener to fire, got %d", calls)
	}
	if e.Vetoed() {
		t.Errorf("StopPropagation should not imply a veto")
	}
}

func TestVeto(t *testing.T) {
	bus := NewBus()
	bus.Subscribe("can_destroy", func(e *Event) {
		e.Veto()
	})
	bus.Subscribe("can_destroy", func(e *Event) {
		t.Errorf("listener after a veto should not fire")
	})

	if !bus.Fire("can_destroy", nil).Vetoed() {
		t.Errorf("expected the event to be vetoed")
	}
	// nobody listening: fires clean
	if bus.Fire("channel_part", nil).Vetoed() {
		t.Errorf("expected an unvetoed event")
	}
}

func TestPayloadMutation(t *testing.T) {
	type namesChar struct {
		prefix string
	}
	bus := NewBus()
	bus.Subscribe("names_character", func(e *Event) {
		e.Payload.(*namesChar).prefix = "@"
	})

	payload := new(namesChar)
	bus.Fire("names_character", payload)
	if payload.prefix != "@" {
		t.Errorf("expected listener to set the prefix, got %q", payload.prefix)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	var calls int
	id := bus.Subscribe("server.send_burst", func(e *Event) {
		calls++
	})
	bus.Subscribe("server.send_burst", func(e *Event) {
		calls += 10
	})

	bus.Fire("server.send_burst", nil)
	bus.Unsubscribe("server.send_burst", id)
	bus.Fire("server.send_burst", nil)
	// unknown id: no-op
	bus.Unsubscribe("server.send_burst", 999)
	bus.Fire("server.send_burst", nil)

	if calls != 31 {
		t.Errorf("expected 31 accumulated calls, got %d", calls)
	}
}

// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package oidc

import "sync"

// EventType identifies what happened to a session.
type EventType int

const (
	// EventStateChanged is published after a new auth state was persisted by
	// a login or a refresh.
	EventStateChanged EventType = iota + 1

	// EventLoggedOut is published after the auth state was cleared by
	// ending the session or because the provider rejected the refresh token.
	EventLoggedOut
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventStateChanged:
		return "state_changed"
	case EventLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers of a Session.
type Event struct {
	Type EventType

	// ClientID is the client of the state involved.
	ClientID string
}

// eventBufferSize is the number of undelivered events kept per subscriber.
const eventBufferSize = 8

type subscriber struct {
	ch   chan Event
	once sync.Once
}

// broadcaster fans events out to subscribers without blocking the
// publisher.
type broadcaster struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: map[int]*subscriber{}}
}

func (b *broadcaster) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, eventBufferSize)}
	b.subs[id] = sub
	return sub.ch, func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		sub.once.Do(func() { close(sub.ch) })
	}
}

// publish delivers e to every subscriber with room in its buffer and
// returns the number of subscribers that missed it.
func (b *broadcaster) publish(e Event) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			dropped++
		}
	}
	return dropped
}

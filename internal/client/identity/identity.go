// Package identity carries the currently authenticated user through the
// client. The auth layer publishes changes; consumers subscribe and always
// act on the latest value.
package identity

import "sync"

// Identity is the authenticated user. A nil *Identity means logged out.
type Identity struct {
	UserID string
	Name   string
}

// Source is a subscribable identity provider.
type Source interface {
	// Current returns the latest identity, or nil.
	Current() *Identity

	// Subscribe registers fn and immediately calls it with the current
	// value. The returned func unsubscribes.
	Subscribe(fn func(*Identity)) (cancel func())
}

// Broadcaster is the in-process Source used by the CLI. Every publish gets
// a sequence number, and a subscriber never sees an older value after a
// newer one, however Publish and Subscribe calls interleave.
type Broadcaster struct {
	mu      sync.Mutex
	current *Identity
	seq     uint64
	nextID  int
	subs    map[int]*subscriber
}

type subscriber struct {
	mu   sync.Mutex
	last uint64
	fn   func(*Identity)
}

// deliver calls fn unless a newer value already reached this subscriber.
func (s *subscriber) deliver(seq uint64, id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.last {
		return
	}
	s.last = seq
	s.fn(id)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]*subscriber)}
}

var _ Source = (*Broadcaster)(nil)

func (b *Broadcaster) Current() *Identity {
	b.mu.Lock()
	defer b.mu.Unlock()
	return clone(b.current)
}

// Publish replaces the current identity and notifies all subscribers.
// Callbacks run outside the broadcaster lock and must not call Publish.
func (b *Broadcaster) Publish(id *Identity) {
	b.mu.Lock()
	b.current = clone(id)
	b.seq++
	seq := b.seq
	subs := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.deliver(seq, clone(id))
	}
}

func (b *Broadcaster) Subscribe(fn func(*Identity)) func() {
	s := &subscriber{fn: fn}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = s
	seq, cur := b.seq, clone(b.current)
	b.mu.Unlock()

	s.deliver(seq, cur)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func clone(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

package identity

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_SubscribeEmitsCurrent(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(&Identity{UserID: "u1", Name: "alice"})

	var got *Identity
	cancel := b.Subscribe(func(id *Identity) { got = id })
	defer cancel()

	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
}

func TestBroadcaster_PublishAndCancel(t *testing.T) {
	b := NewBroadcaster()

	var seen []*Identity
	cancel := b.Subscribe(func(id *Identity) { seen = append(seen, id) })

	b.Publish(&Identity{UserID: "u1"})
	b.Publish(nil)
	cancel()
	cancel()
	b.Publish(&Identity{UserID: "u2"})

	require.Len(t, seen, 3)
	assert.Nil(t, seen[0], "startup value is logged out")
	assert.Equal(t, "u1", seen[1].UserID)
	assert.Nil(t, seen[2])
	assert.Equal(t, "u2", b.Current().UserID)
}

func TestBroadcaster_CurrentIsCopy(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(&Identity{UserID: "u1"})

	c := b.Current()
	c.UserID = "mutated"

	assert.Equal(t, "u1", b.Current().UserID)
}

func TestBroadcaster_Concurrent(t *testing.T) {
	b := NewBroadcaster()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.Publish(&Identity{UserID: "u"})
		}()
		go func() {
			defer wg.Done()
			cancel := b.Subscribe(func(*Identity) {})
			_ = b.Current()
			cancel()
		}()
	}
	wg.Wait()
	assert.Equal(t, "u", b.Current().UserID)
}

func TestSubscriber_DropsOlderDelivery(t *testing.T) {
	var seen []string
	s := &subscriber{fn: func(id *Identity) {
		if id == nil {
			seen = append(seen, "")
			return
		}
		seen = append(seen, id.UserID)
	}}

	s.deliver(2, &Identity{UserID: "newer"})
	s.deliver(1, &Identity{UserID: "older"})
	s.deliver(3, nil)

	assert.Equal(t, []string{"newer", ""}, seen)
}

func TestBroadcaster_ConcurrentPublishEndsOnLatest(t *testing.T) {
	for round := 0; round < 20; round++ {
		b := NewBroadcaster()

		var mu sync.Mutex
		var last *Identity
		cancel := b.Subscribe(func(id *Identity) {
			mu.Lock()
			last = id
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				b.Publish(&Identity{UserID: fmt.Sprintf("u%d", i)})
			}(i)
		}
		wg.Wait()
		cancel()

		mu.Lock()
		require.NotNil(t, last)
		assert.Equal(t, b.Current().UserID, last.UserID, "round %d", round)
		mu.Unlock()
	}
}

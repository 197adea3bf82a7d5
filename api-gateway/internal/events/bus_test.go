package events

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aaronwang/auction-platform/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(models.UpdateAuction, "one")
	bus.Publish(models.UpdateHistory, "two")

	for _, sub := range []*Subscriber{a, b} {
		msg, ok, err := sub.Next(context.Background(), time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Message{Type: models.UpdateAuction, Payload: "one"}, msg)

		msg, ok, err = sub.Next(context.Background(), time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, Message{Type: models.UpdateHistory, Payload: "two"}, msg)
	}
}

func TestNextTimesOutWhenIdle(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	start := time.Now()
	_, ok, err := sub.Next(context.Background(), 20*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestNextWakesOnPublish(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	go func() {
		time.Sleep(10 * time.Millisecond)
		bus.Publish(models.UpdateAuction, "late")
	}()

	msg, ok, err := sub.Next(context.Background(), 5*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "late", msg.Payload)
}

func TestNextStopsOnContextCancel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := sub.Next(ctx, time.Minute)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			bus.Publish(models.UpdateHistory, i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on a subscriber that never reads")
	}
	assert.Equal(t, 10000, slow.Pending())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	require.Equal(t, 1, bus.Len())

	bus.Unsubscribe(sub)
	bus.Unsubscribe(sub)
	assert.Equal(t, 0, bus.Len())

	bus.Publish(models.UpdateAuction, "ignored")
	assert.Equal(t, 0, sub.Pending())
}

func TestSubscribersShareGlobalOrder(t *testing.T) {
	bus := NewBus()
	subs := []*Subscriber{bus.Subscribe(), bus.Subscribe(), bus.Subscribe()}

	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				bus.Publish(models.UpdateHistory, fmt.Sprintf("%d-%d", p, i))
			}
		}(p)
	}
	wg.Wait()

	drain := func(sub *Subscriber) []any {
		var out []any
		for {
			msg, ok, err := sub.Next(context.Background(), time.Millisecond)
			require.NoError(t, err)
			if !ok {
				return out
			}
			out = append(out, msg.Payload)
		}
	}

	first := drain(subs[0])
	require.Len(t, first, 200)
	for _, sub := range subs[1:] {
		assert.Equal(t, first, drain(sub))
	}
}

package service

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kvanc/server/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyWait = 2 * time.Second
	eventuallyTick = 5 * time.Millisecond
)

func TestBroadcastHub_PushMessageReachesEverySubscriber(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	conns := []*fakeConn{newFakeConn(), newFakeConn(), newFakeConn()}
	for _, conn := range conns {
		require.NotNil(t, hub.Register(conn))
	}
	assert.Equal(t, 3, hub.Count())

	hub.PushMessage("Is Go fun?")

	for _, conn := range conns {
		conn := conn
		assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, eventuallyWait, eventuallyTick)
		message := conn.messages()[0]
		assert.Equal(t, dto.PushTypeQuestion, message.Type)
		assert.Equal(t, "Is Go fun?", message.Question)
	}
}

func TestBroadcastHub_PushResults(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	conn := newFakeConn()
	require.NotNil(t, hub.Register(conn))

	hub.PushResults(dto.ResultSnapshot{Question: "q", Round: 2, Yes: 3, No: 1, Total: 4})

	assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, eventuallyWait, eventuallyTick)
	message := conn.messages()[0]
	assert.Equal(t, dto.PushTypeResults, message.Type)
	require.NotNil(t, message.Results)
	assert.Equal(t, 3, message.Results.Yes)
	assert.Equal(t, 1, message.Results.No)
	assert.Equal(t, 2, message.Results.Round)
}

func TestBroadcastHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	healthy := newFakeConn()
	slow := newBlockingConn()
	require.NotNil(t, hub.Register(healthy))
	require.NotNil(t, hub.Register(slow))

	pushes := 10
	for i := 1; i <= pushes; i++ {
		done := make(chan struct{})
		go func(i int) {
			hub.PushMessage(fmt.Sprintf("question %d", i))
			close(done)
		}(i)

		select {
		case <-done:
		case <-time.After(eventuallyWait):
			t.Fatal("push blocked on a slow subscriber")
		}

		expected := i
		assert.Eventually(t, func() bool { return len(healthy.messages()) == expected }, eventuallyWait, eventuallyTick)
	}

	assert.Eventually(t, slow.isClosed, eventuallyWait, eventuallyTick)
	assert.Equal(t, 1, hub.Count())
	assert.False(t, healthy.isClosed())
	assert.Equal(t, fmt.Sprintf("question %d", pushes), healthy.messages()[pushes-1].Question)
}

func TestBroadcastHub_Send(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	first := newFakeConn()
	second := newFakeConn()
	subscriber := hub.Register(first)
	require.NotNil(t, subscriber)
	require.NotNil(t, hub.Register(second))

	assert.True(t, hub.Send(subscriber, "only for you"))
	assert.Eventually(t, func() bool { return len(first.messages()) == 1 }, eventuallyWait, eventuallyTick)
	assert.Equal(t, "only for you", first.messages()[0].Question)
	assert.Empty(t, second.messages())

	hub.Unregister(subscriber)
	assert.False(t, hub.Send(subscriber, "gone"))
}

func TestBroadcastHub_BindAndReset(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	conn := newFakeConn()
	require.NotNil(t, hub.Register(conn))

	conn.incoming <- []byte("not json")
	conn.incoming <- []byte(`{"voteId":""}`)
	conn.incoming <- []byte(`{"voteId":"vote-1"}`)
	assert.Eventually(t, func() bool { return hub.Bound() == 1 }, eventuallyWait, eventuallyTick)

	hub.Reset()
	assert.Equal(t, 0, hub.Bound())
	assert.Equal(t, 1, hub.Count())
	assert.False(t, conn.isClosed())

	hub.PushMessage("still connected")
	assert.Eventually(t, func() bool { return len(conn.messages()) == 1 }, eventuallyWait, eventuallyTick)
}

func TestBroadcastHub_ClientDisconnectUnregisters(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	conn := newFakeConn()
	require.NotNil(t, hub.Register(conn))
	require.Equal(t, 1, hub.Count())

	conn.Close()

	assert.Eventually(t, func() bool { return hub.Count() == 0 }, eventuallyWait, eventuallyTick)
}

func TestBroadcastHub_UnregisterIsIdempotent(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	subscriber := hub.Register(newFakeConn())
	require.NotNil(t, subscriber)

	assert.NotPanics(t, func() {
		hub.Unregister(subscriber)
		hub.Unregister(subscriber)
	})
	assert.Equal(t, 0, hub.Count())
}

func TestBroadcastHub_Close(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, conn := range conns {
		require.NotNil(t, hub.Register(conn))
	}

	hub.Close()
	assert.Equal(t, 0, hub.Count())
	for _, conn := range conns {
		assert.Eventually(t, conn.isClosed, eventuallyWait, eventuallyTick)
	}

	late := newFakeConn()
	assert.Nil(t, hub.Register(late))
	assert.True(t, late.isClosed())
	assert.NotPanics(t, hub.Close)
}

func TestBroadcastHub_ConcurrentRegisterAndPush(t *testing.T) {
	hub := newBroadcastHub(testHubConfig())
	defer hub.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			subscriber := hub.Register(newFakeConn())
			hub.Bind(subscriber, "vote")
			hub.Unregister(subscriber)
		}()
		go func(i int) {
			defer wg.Done()
			hub.PushMessage(fmt.Sprintf("question %d", i))
			hub.Reset()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Count())
}

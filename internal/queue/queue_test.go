package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_PushPop(t *testing.T) {
	q := New[[]byte]()
	assert.True(t, q.Empty())

	_, ok := q.TryPop()
	assert.False(t, ok)

	require.True(t, q.Push([]byte{1}, []byte{2}))
	require.True(t, q.Push([]byte{3}))
	assert.Equal(t, 3, q.Len())

	for _, want := range []byte{1, 2, 3} {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, []byte{want}, got)
	}
	assert.True(t, q.Empty())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[int]()
	q.Push(1, 2, 3)

	assert.Equal(t, []int{1, 2, 3}, q.GetAndEmpty())
	assert.True(t, q.Empty())
	assert.Empty(t, q.GetAndEmpty())
}

func TestQueue_CloseDrains(t *testing.T) {
	q := New[int]()
	q.Push(1, 2)
	q.Close()

	assert.False(t, q.Push(3), "closed queue rejects items")

	ctx := context.Background()
	var got []int
	for {
		v, ok := q.Next(ctx)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestQueue_NextBlocksUntilPush(t *testing.T) {
	q := New[int]()

	done := make(chan int)
	go func() {
		v, _ := q.Next(context.Background())
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Next returned before anything was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(42)
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Next did not wake up")
	}
}

func TestQueue_NextContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := q.Next(ctx)
	assert.False(t, ok)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()
	const producers, perProducer = 8, 250

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}

	received := make(chan int)
	go func() {
		n := 0
		for {
			if _, ok := q.Next(context.Background()); !ok {
				received <- n
				return
			}
			n++
		}
	}()

	wg.Wait()
	q.Close()
	assert.Equal(t, producers*perProducer, <-received)
}

package chatqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopOrder(t *testing.T) {
	q := New()
	q.Push(Message{Sender: "a", Text: "one"})
	q.Push(Message{Sender: "a", Text: "two"})

	ctx := context.Background()
	m1, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, "one", m1.Text)

	m2, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, "two", m2.Text)
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New()
	result := make(chan Message, 1)
	go func() {
		m, ok := q.Pop(context.Background())
		if ok {
			result <- m
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(Message{Text: "late"})

	select {
	case m := <-result:
		assert.Equal(t, "late", m.Text)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned")
	}
}

func TestPopReturnsFalseOnContextDone(t *testing.T) {
	q := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok := q.Pop(ctx)
	assert.False(t, ok)
}

func TestPopReturnsFalseOnClose(t *testing.T) {
	q := New()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop(context.Background())
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Pop never returned after Close")
	}
}

func TestDrain(t *testing.T) {
	q := New()
	q.Push(Message{Text: "one"})
	q.Push(Message{Text: "two"})

	drained := q.Drain()
	assert.Len(t, drained, 2)
	assert.Empty(t, q.Drain())
}

func TestPushAfterCloseIsNoop(t *testing.T) {
	q := New()
	q.Close()
	q.Push(Message{Text: "ignored"})
	assert.Empty(t, q.buf)
}

func TestCloseIsIdempotent(t *testing.T) {
	q := New()
	assert.NotPanics(t, func() {
		q.Close()
		q.Close()
	})
}

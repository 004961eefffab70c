package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestQueueDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []string
	done := make(chan struct{}, 2)

	q := NewQueue(Func(func(_ context.Context, to, _, _ string) error {
		mu.Lock()
		got = append(got, to)
		mu.Unlock()
		done <- struct{}{}
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	if !q.Enqueue("first@example.com", "s", "b") {
		t.Fatalf("expected enqueue to succeed")
	}
	if !q.Enqueue("second@example.com", "s", "b") {
		t.Fatalf("expected enqueue to succeed")
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for delivery %d", i+1)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != "first@example.com" || got[1] != "second@example.com" {
		t.Fatalf("expected ordered deliveries, got %v", got)
	}
}

func TestQueueReportsFull(t *testing.T) {
	// Never started, so nothing drains the channel.
	q := NewQueue(Func(func(context.Context, string, string, string) error {
		return errors.New("unused")
	}))

	for i := 0; i < queueCapacity; i++ {
		if !q.Enqueue("user@example.com", "s", "b") {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	if q.Enqueue("user@example.com", "s", "b") {
		t.Fatalf("expected enqueue to report a full queue")
	}
}

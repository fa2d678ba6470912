package bus

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestQueueRoundTrip(t *testing.T) {
	q := NewQueue[string]()
	t.Cleanup(q.Close)

	if ok := q.Publish("hello"); !ok {
		t.Fatal("expected publish to succeed")
	}

	got, ok := q.Consume(context.Background())
	if !ok {
		t.Fatal("expected consume to succeed")
	}
	if got != "hello" {
		t.Fatalf("item = %q, want %q", got, "hello")
	}
}

func TestQueuePreservesPublishOrder(t *testing.T) {
	q := NewQueue[int]()
	t.Cleanup(q.Close)

	for i := 0; i < 50; i++ {
		if ok := q.Publish(i); !ok {
			t.Fatalf("publish %d failed", i)
		}
	}

	for want := 0; want < 50; want++ {
		got, ok := q.Consume(context.Background())
		if !ok {
			t.Fatalf("consume %d failed", want)
		}
		if got != want {
			t.Fatalf("item = %d, want %d", got, want)
		}
	}
}

func TestQueuePublishNeverBlocks(t *testing.T) {
	q := NewQueue[int]()
	t.Cleanup(q.Close)

	start := time.Now()
	for i := 0; i < 10000; i++ {
		q.Publish(i)
	}
	if time.Since(start) > time.Second {
		t.Fatal("publish blocked without a consumer")
	}
	if got := q.Len(); got != 10000 {
		t.Fatalf("len = %d, want 10000", got)
	}
}

func TestQueuePerProducerOrderWithConcurrentProducers(t *testing.T) {
	q := NewQueue[[2]int]()
	t.Cleanup(q.Close)

	const producers = 4
	const perProducer = 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Publish([2]int{p, i})
			}
		}(p)
	}
	wg.Wait()

	next := make([]int, producers)
	for n := 0; n < producers*perProducer; n++ {
		item, ok := q.Consume(context.Background())
		if !ok {
			t.Fatal("expected item")
		}
		if item[1] != next[item[0]] {
			t.Fatalf("producer %d item = %d, want %d", item[0], item[1], next[item[0]])
		}
		next[item[0]]++
	}
}

func TestCloseRejectsPublishAndDrainsQueued(t *testing.T) {
	q := NewQueue[string]()
	q.Publish("queued")
	q.Close()

	if ok := q.Publish("late"); ok {
		t.Fatal("expected publish to fail after close")
	}
	if !q.Closed() {
		t.Fatal("expected queue to report closed")
	}

	got, ok := q.Consume(context.Background())
	if !ok || got != "queued" {
		t.Fatalf("consume = %q, %v; want queued item", got, ok)
	}

	if _, ok := q.Consume(context.Background()); ok {
		t.Fatal("expected consume to stop after drain")
	}
}

func TestConsumeUnblocksOnClose(t *testing.T) {
	q := NewQueue[string]()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = q.Consume(context.Background())
	}()

	q.Close()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not unblock after close")
	}
}

func TestConsumeWakesOnPublish(t *testing.T) {
	q := NewQueue[string]()
	t.Cleanup(q.Close)

	got := make(chan string, 1)
	go func() {
		item, _ := q.Consume(context.Background())
		got <- item
	}()

	time.Sleep(20 * time.Millisecond)
	q.Publish("late")

	select {
	case item := <-got:
		if item != "late" {
			t.Fatalf("item = %q, want late", item)
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("consume did not wake on publish")
	}
}

func TestConsumeContextCancellation(t *testing.T) {
	q := NewQueue[string]()
	t.Cleanup(q.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := q.Consume(ctx); ok {
		t.Fatal("expected consume to fail on canceled context")
	}
}

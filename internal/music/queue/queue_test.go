package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func entry(title string) Entry {
	return NewEntry("g", "c", "u", Track{Title: title, URL: "https://example.com/" + title, Duration: time.Minute})
}

func TestFIFO(t *testing.T) {
	q := New()
	for i := 0; i < 10; i++ {
		q.Enqueue(entry(fmt.Sprint(i)))
	}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue error: %v", err)
		}
		if e.Track.Title != fmt.Sprint(i) {
			t.Errorf("Expected entry %d, got %s", i, e.Track.Title)
		}
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

func TestNewEntry(t *testing.T) {
	a, b := entry("a"), entry("b")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected distinct non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.EnqueuedAt.IsZero() {
		t.Error("Expected EnqueuedAt to be set")
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := New()
	got := make(chan Entry, 1)

	go func() {
		e, err := q.Dequeue(context.Background())
		if err == nil {
			got <- e
		}
	}()

	select {
	case <-got:
		t.Fatal("Dequeue returned before anything was enqueued")
	case <-time.After(50 * time.Millisecond):
	}

	q.Enqueue(entry("late"))

	select {
	case e := <-got:
		if e.Track.Title != "late" {
			t.Errorf("Expected 'late', got %q", e.Track.Title)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not wake up after Enqueue")
	}
}

func TestDequeueCancelled(t *testing.T) {
	q := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestChangedAfterMutation(t *testing.T) {
	q := New()

	q.Enqueue(entry("a"))
	select {
	case <-q.Changed():
	default:
		t.Fatal("Expected a change signal after Enqueue")
	}
	if q.Len() != 1 {
		t.Errorf("Expected post-enqueue length 1, got %d", q.Len())
	}

	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	select {
	case <-q.Changed():
	default:
		t.Fatal("Expected a change signal after Dequeue")
	}
	if q.Len() != 0 {
		t.Errorf("Expected post-dequeue length 0, got %d", q.Len())
	}
}

func TestChangedCoalesces(t *testing.T) {
	q := New()
	for i := 0; i < 5; i++ {
		q.Enqueue(entry(fmt.Sprint(i)))
	}

	<-q.Changed()
	select {
	case <-q.Changed():
		t.Error("Expected bursts to coalesce into one signal")
	default:
	}
}

func TestPeek(t *testing.T) {
	q := New()
	if got := q.Peek(5); len(got) != 0 {
		t.Errorf("Expected empty peek, got %d", len(got))
	}

	for i := 0; i < 7; i++ {
		q.Enqueue(entry(fmt.Sprint(i)))
	}

	view := q.Peek(5)
	if len(view) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(view))
	}
	for i, e := range view {
		if e.Track.Title != fmt.Sprint(i) {
			t.Errorf("Peek[%d] = %s", i, e.Track.Title)
		}
	}

	view[0].Track.Title = "mutated"
	if q.Peek(1)[0].Track.Title != "0" {
		t.Error("Peek must return a copy")
	}
	if got := q.Peek(100); len(got) != 7 {
		t.Errorf("Expected 7 entries, got %d", len(got))
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New()
	const producers, perProducer = 8, 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(entry(fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	for n := 0; n < producers*perProducer; n++ {
		e, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue error after %d entries: %v", n, err)
		}
		var p, i int
		fmt.Sscanf(e.Track.Title, "%d-%d", &p, &i)
		if i <= last[p] {
			t.Errorf("Producer %d order violated: %d after %d", p, i, last[p])
		}
		last[p] = i
	}
	wg.Wait()

	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got %d", q.Len())
	}
}

// Package queue holds the pending playback requests. There is exactly one
// slice of entries: the status view and the playback loop read the same
// sequence, so they can never disagree on length or order.
package queue

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Track is the resolved metadata of a piece of audio.
type Track struct {
	Title     string
	URL       string
	Thumbnail string
	Duration  time.Duration
}

// Entry is one accepted playback request.
type Entry struct {
	ID         string
	GuildID    string
	ChannelID  string // text channel the request came from
	UserID     string
	Track      Track
	EnqueuedAt time.Time
}

func NewEntry(guildID, channelID, userID string, track Track) Entry {
	return Entry{
		ID:         uuid.NewString(),
		GuildID:    guildID,
		ChannelID:  channelID,
		UserID:     userID,
		Track:      track,
		EnqueuedAt: time.Now().UTC(),
	}
}

// Queue is a FIFO with a single blocking consumer.
type Queue struct {
	mu      sync.Mutex
	entries []Entry

	ready   chan struct{} // wakes the consumer
	changed chan struct{} // wakes the status reconciler
}

func New() *Queue {
	return &Queue{
		ready:   make(chan struct{}, 1),
		changed: make(chan struct{}, 1),
	}
}

// Enqueue appends e to the tail. It never blocks.
func (q *Queue) Enqueue(e Entry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()

	notify(q.ready)
	notify(q.changed)
}

// Dequeue waits until an entry is available and removes the head. Only one
// goroutine may call Dequeue at a time.
func (q *Queue) Dequeue(ctx context.Context) (Entry, error) {
	for {
		q.mu.Lock()
		if len(q.entries) > 0 {
			e := q.entries[0]
			q.entries[0] = Entry{}
			q.entries = q.entries[1:]
			q.mu.Unlock()

			notify(q.changed)
			return e, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Entry{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Peek returns a copy of at most n entries from the head.
func (q *Queue) Peek(n int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.entries) {
		n = len(q.entries)
	}
	if n <= 0 {
		return nil
	}
	return slices.Clone(q.entries[:n])
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Changed fires after every enqueue and dequeue. Bursts coalesce into a
// single pending signal; receivers must read the queue rather than count
// signals.
func (q *Queue) Changed() <-chan struct{} {
	return q.changed
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

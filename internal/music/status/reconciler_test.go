package status

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/frisbee/internal/music/queue"
	"github.com/keshon/frisbee/pkg/retrylimit"
	"github.com/rs/zerolog"
)

type fakeMessenger struct {
	mu       sync.Mutex
	nextID   int
	messages map[string][]*discordgo.MessageEmbed
	order    []string // channel history, oldest first
	sends    int
	edits    int
	deletes  int
	failSend bool
	failEdit bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{messages: make(map[string][]*discordgo.MessageEmbed)}
}

func (f *fakeMessenger) post(embeds []*discordgo.MessageEmbed) string {
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.messages[id] = embeds
	f.order = append(f.order, id)
	return id
}

func (f *fakeMessenger) SendEmbeds(_ context.Context, _ string, embeds []*discordgo.MessageEmbed) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	if f.failSend {
		return "", errors.New("send failed")
	}
	return f.post(embeds), nil
}

func (f *fakeMessenger) EditEmbeds(_ context.Context, _ string, id string, embeds []*discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits++
	if f.failEdit {
		return errors.New("edit failed")
	}
	if _, ok := f.messages[id]; !ok {
		return errors.New("unknown message")
	}
	f.messages[id] = embeds
	return nil
}

func (f *fakeMessenger) DeleteMessage(_ context.Context, _ string, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.messages, id)
	for i, m := range f.order {
		if m == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeMessenger) LatestMessageID(context.Context, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return "", nil
	}
	return f.order[len(f.order)-1], nil
}

// live returns how many messages the bot currently has in the channel.
func (f *fakeMessenger) live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func newTestReconciler(q *queue.Queue, m Messenger) *Reconciler {
	retry := retrylimit.RetryConfig{MaxAttempts: 1}
	return New(Options{
		Queue:     q,
		Messenger: m,
		ChannelID: "music",
		Limiter:   retrylimit.NewAdaptiveLimiter(1000, 1000, 1000, 0, 1),
		Retry:     &retry,
		Logger:    zerolog.Nop(),
	})
}

func entry(title string, secs int) queue.Entry {
	return queue.NewEntry("g", "c", "u", queue.Track{
		Title:    title,
		URL:      "https://example.com/" + title,
		Duration: time.Duration(secs) * time.Second,
	})
}

func TestReconcileEmptyQueueShowsNothing(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)

	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if m.live() != 0 || m.sends != 0 {
		t.Errorf("Expected no messages, got %d live and %d sends", m.live(), m.sends)
	}
	if r.MessageID() != "" {
		t.Errorf("Expected no tracked message, got %q", r.MessageID())
	}
}

func TestReconcileSingleMessageForSmallQueue(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		q.Enqueue(entry(fmt.Sprintf("t%d", i), 60))
		if err := r.Reconcile(ctx); err != nil {
			t.Fatalf("Reconcile error: %v", err)
		}
		if m.live() != 1 {
			t.Fatalf("Expected exactly 1 status message with %d entries, got %d", i, m.live())
		}
		if got := len(m.messages[r.MessageID()]); got != i {
			t.Errorf("Expected %d embeds, got %d", i, got)
		}
	}
	if m.sends != 1 {
		t.Errorf("Expected 1 send and edits afterwards, got %d sends", m.sends)
	}
	if m.edits != 4 {
		t.Errorf("Expected 4 edits, got %d", m.edits)
	}
}

func TestReconcileCapsViewAtFive(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)

	for i := 1; i <= 7; i++ {
		q.Enqueue(entry(fmt.Sprintf("t%d", i), 60))
	}
	if err := r.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}

	embeds := m.messages[r.MessageID()]
	if len(embeds) != 5 {
		t.Fatalf("Expected 5 embeds, got %d", len(embeds))
	}
	if embeds[0].Title != "t1" || embeds[4].Title != "t5" {
		t.Errorf("Expected first five entries in order, got %q..%q", embeds[0].Title, embeds[4].Title)
	}
}

func TestReconcileRepostsWhenNotLatest(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)
	ctx := context.Background()

	q.Enqueue(entry("a", 60))
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	first := r.MessageID()

	// someone else talks in the channel
	m.mu.Lock()
	m.order = append(m.order, "user-message")
	m.mu.Unlock()

	q.Enqueue(entry("b", 60))
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}

	if r.MessageID() == first {
		t.Error("Expected a fresh status message")
	}
	if _, ok := m.messages[first]; ok {
		t.Error("Expected the old status message to be deleted")
	}
	if m.live() != 1 {
		t.Errorf("Expected 1 live message, got %d", m.live())
	}
	latest, _ := m.LatestMessageID(ctx, "music")
	if latest != r.MessageID() {
		t.Errorf("Expected status message at the bottom, latest is %q", latest)
	}
}

func TestReconcileDeletesWhenQueueDrains(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)
	ctx := context.Background()

	q.Enqueue(entry("a", 60))
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue error: %v", err)
	}
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}

	if m.live() != 0 {
		t.Errorf("Expected status message removed, got %d live", m.live())
	}
	if r.MessageID() != "" {
		t.Errorf("Expected state cleared, got %q", r.MessageID())
	}
}

func TestReconcileEditFailureFallsBackToRepost(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)
	ctx := context.Background()

	q.Enqueue(entry("a", 60))
	_ = r.Reconcile(ctx)
	first := r.MessageID()

	m.failEdit = true
	q.Enqueue(entry("b", 60))
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if r.MessageID() == first || m.live() != 1 {
		t.Errorf("Expected repost after failed edit, id %q live %d", r.MessageID(), m.live())
	}
}

func TestReconcileSendFailureLeavesUntracked(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	m.failSend = true
	r := newTestReconciler(q, m)
	ctx := context.Background()

	q.Enqueue(entry("a", 60))
	if err := r.Reconcile(ctx); err == nil {
		t.Fatal("Expected send error")
	}
	if r.MessageID() != "" {
		t.Errorf("Expected untracked state, got %q", r.MessageID())
	}

	m.failSend = false
	if err := r.Reconcile(ctx); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if r.MessageID() == "" || m.live() != 1 {
		t.Error("Expected the next pass to post the message")
	}
}

func TestRunFollowsQueueChanges(t *testing.T) {
	q := queue.New()
	m := newFakeMessenger()
	r := newTestReconciler(q, m)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	q.Enqueue(entry("a", 60))

	deadline := time.Now().Add(2 * time.Second)
	for m.live() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("status message was never posted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Expected nil from Run, got %v", err)
	}
}

func TestBuildView(t *testing.T) {
	e := entry("song", 3661)
	e.Track.Thumbnail = "https://example.com/thumb.jpg"

	embeds := BuildView([]queue.Entry{e})
	if len(embeds) != 1 {
		t.Fatalf("Expected 1 embed, got %d", len(embeds))
	}
	got := embeds[0]
	if got.Title != "song" {
		t.Errorf("Expected title 'song', got %q", got.Title)
	}
	if got.Thumbnail == nil || got.Thumbnail.URL != "https://example.com/thumb.jpg" {
		t.Errorf("Expected thumbnail to be set, got %+v", got.Thumbnail)
	}
	if len(got.Fields) != 2 || got.Fields[1].Value != "1:01:01" {
		t.Errorf("Expected URL and Duration fields, got %+v", got.Fields)
	}
}

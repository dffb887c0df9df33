package orchestration

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Vioneyy/AI-VTuber-demo/core/events"
)

func testQueueConfig(maxSize int) Config {
	cfg := DefaultConfig()
	cfg.MaxQueueSize = maxSize
	cfg.AdminIDs = []string{"admin-1"}
	return cfg
}

func adminSubmission(content string) Submission {
	return Submission{Content: content, Source: SourceText, UserID: "admin-1", UserName: "Admin"}
}

func normalSubmission(content string) Submission {
	return Submission{Content: content, Source: SourceLiveChat, UserID: "viewer-7", UserName: "Viewer"}
}

func TestEnqueueDerivesPriorityFromAdminIdentity(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	item, err := q.Enqueue(adminSubmission("admin message"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if item.Priority != PriorityAdmin {
		t.Fatalf("expected admin priority, got %v", item.Priority)
	}

	item, err = q.Enqueue(normalSubmission("viewer message"))
	if err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}
	if item.Priority != PriorityNormal {
		t.Fatalf("expected normal priority, got %v", item.Priority)
	}
}

func TestDequeueReturnsAdminItemsFirstThenFIFO(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	q.Enqueue(normalSubmission("normal 1"))
	q.Enqueue(normalSubmission("normal 2"))
	q.Enqueue(adminSubmission("admin 1"))
	q.Enqueue(normalSubmission("normal 3"))
	q.Enqueue(adminSubmission("admin 2"))

	expected := []string{"admin 1", "admin 2", "normal 1", "normal 2", "normal 3"}
	for _, content := range expected {
		item, ok := q.DequeueBlocking()
		if !ok {
			t.Fatalf("expected an item, queue reported stopped")
		}
		if item.Content != content {
			t.Fatalf("expected %q next, got %q", content, item.Content)
		}
	}
}

func TestEnqueueRejectsNormalItemWhenFull(t *testing.T) {
	q := newQueueManager(testQueueConfig(2), nil)

	q.Enqueue(normalSubmission("normal 1"))
	q.Enqueue(normalSubmission("normal 2"))

	if _, err := q.Enqueue(normalSubmission("normal 3")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if size := q.Len(); size != 2 {
		t.Fatalf("expected queue size 2, got %d", size)
	}
}

func TestAdminEnqueueEvictsOldestNormalItemWhenFull(t *testing.T) {
	q := newQueueManager(testQueueConfig(2), nil)

	q.Enqueue(normalSubmission("oldest normal"))
	q.Enqueue(normalSubmission("newer normal"))

	if _, err := q.Enqueue(adminSubmission("urgent")); err != nil {
		t.Fatalf("expected admin enqueue to succeed, got %v", err)
	}
	if size := q.Len(); size != 2 {
		t.Fatalf("expected queue size to stay 2, got %d", size)
	}

	item, _ := q.DequeueBlocking()
	if item.Content != "urgent" {
		t.Fatalf("expected admin item first, got %q", item.Content)
	}
	item, _ = q.DequeueBlocking()
	if item.Content != "newer normal" {
		t.Fatalf("expected oldest normal item evicted, next was %q", item.Content)
	}
}

func TestAdminEnqueueRejectedWhenFullOfAdminItems(t *testing.T) {
	q := newQueueManager(testQueueConfig(2), nil)

	q.Enqueue(adminSubmission("admin 1"))
	q.Enqueue(adminSubmission("admin 2"))

	if _, err := q.Enqueue(adminSubmission("admin 3")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestStopDrainsRemainingItemsThenSignalsTermination(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	q.Enqueue(normalSubmission("pending 1"))
	q.Enqueue(normalSubmission("pending 2"))
	q.Stop()

	if _, err := q.Enqueue(normalSubmission("too late")); !errors.Is(err, ErrQueueStopped) {
		t.Fatalf("expected ErrQueueStopped, got %v", err)
	}

	for _, content := range []string{"pending 1", "pending 2"} {
		item, ok := q.DequeueBlocking()
		if !ok {
			t.Fatalf("expected item %q before termination signal", content)
		}
		if item.Content != content {
			t.Fatalf("expected %q, got %q", content, item.Content)
		}
	}

	if _, ok := q.DequeueBlocking(); ok {
		t.Fatalf("expected termination signal after drain")
	}
}

func TestStopWakesBlockedConsumer(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	consumerDone := make(chan bool, 1)
	go func() {
		_, ok := q.DequeueBlocking()
		consumerDone <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.Stop()

	select {
	case ok := <-consumerDone:
		if ok {
			t.Fatalf("expected termination signal, got an item")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for blocked consumer to wake")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	stoppedEvents := 0
	q := newQueueManager(testQueueConfig(10), func(event events.Event) {
		if event.Kind() == events.KindQueueStopped {
			stoppedEvents++
		}
	})

	q.Stop()
	q.Stop()
	q.Stop()

	if stoppedEvents != 1 {
		t.Fatalf("expected a single stopped event, got %d", stoppedEvents)
	}
}

func TestDisabledSourceRejectsEnqueue(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	q.SetSourceEnabled(SourceLiveChat, false)
	if _, err := q.Enqueue(normalSubmission("muted")); !errors.Is(err, ErrSourceDisabled) {
		t.Fatalf("expected ErrSourceDisabled, got %v", err)
	}

	q.SetSourceEnabled(SourceLiveChat, true)
	if _, err := q.Enqueue(normalSubmission("unmuted")); err != nil {
		t.Fatalf("expected enqueue to succeed after re-enabling, got %v", err)
	}
}

func TestClearDropsPendingItems(t *testing.T) {
	q := newQueueManager(testQueueConfig(10), nil)

	q.Enqueue(normalSubmission("drop 1"))
	q.Enqueue(normalSubmission("drop 2"))
	q.Enqueue(adminSubmission("drop 3"))

	if dropped := q.Clear(); dropped != 3 {
		t.Fatalf("expected 3 dropped items, got %d", dropped)
	}
	if size := q.Len(); size != 0 {
		t.Fatalf("expected empty queue, got size %d", size)
	}
}

func TestConcurrentProducersNeverExceedCapacity(t *testing.T) {
	const capacity = 5
	q := newQueueManager(testQueueConfig(capacity), nil)

	var wg sync.WaitGroup
	for producer := 0; producer < 8; producer++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				sub := normalSubmission(fmt.Sprintf("producer %d message %d", producer, i))
				if producer%2 == 0 {
					sub = adminSubmission(sub.Content)
				}
				q.Enqueue(sub)
			}
		}(producer)
	}
	wg.Wait()

	if size := q.Len(); size > capacity {
		t.Fatalf("queue size %d exceeded capacity %d", size, capacity)
	}
}

func TestStatusReportsCounters(t *testing.T) {
	q := newQueueManager(testQueueConfig(1), nil)

	q.Enqueue(normalSubmission("kept"))
	q.Enqueue(normalSubmission("rejected"))
	q.Enqueue(adminSubmission("evicts"))

	status := q.status()
	if status.Accepted != 2 {
		t.Fatalf("expected 2 accepted, got %d", status.Accepted)
	}
	if status.Rejected != 1 {
		t.Fatalf("expected 1 rejected, got %d", status.Rejected)
	}
	if status.Evicted != 1 {
		t.Fatalf("expected 1 evicted, got %d", status.Evicted)
	}
	if status.AdminSize != 1 || status.Size != 1 {
		t.Fatalf("expected a single admin item, got size=%d admin=%d", status.Size, status.AdminSize)
	}
}

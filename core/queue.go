package orchestration

import (
	"errors"
	"sync"

	"github.com/Vioneyy/AI-VTuber-demo/core/events"
)

// Enqueue rejection reasons. All of them surface as results to the caller,
// never as panics or crashes.
var (
	ErrQueueFull      = errors.New("queue is at capacity")
	ErrQueueStopped   = errors.New("queue manager is stopped")
	ErrSourceDisabled = errors.New("source is disabled")
)

// QueueManager is the single point of mutual exclusion between producers and
// the pipeline consumer. It holds admin and normal items in separate FIFO
// runs so dequeue order is priority-first, oldest-first within a priority.
//
// Producers and the consumer only ever touch the buffer through Enqueue and
// DequeueBlocking; the internal slices are never handed out.
type QueueManager struct {
	mu   sync.Mutex
	cond *sync.Cond

	admin  []QueueItem
	normal []QueueItem

	maxSize        int
	adminIDs       map[string]struct{}
	disabledSource map[Source]bool

	stopped bool

	accepted uint64
	rejected uint64
	evicted  uint64

	emit eventEmitter
}

func newQueueManager(cfg Config, emit eventEmitter) *QueueManager {
	if emit == nil {
		emit = noopEventEmitter
	}
	q := &QueueManager{
		maxSize:        cfg.MaxQueueSize,
		adminIDs:       cfg.adminSet(),
		disabledSource: map[Source]bool{},
		emit:           emit,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue derives the item's priority from the admin set and appends it in
// FIFO position within its priority class.
//
// A normal item is rejected when the queue is full. An admin item instead
// evicts the oldest normal item; only a queue full of admin items rejects
// further admin work (true capacity ceiling).
func (q *QueueManager) Enqueue(sub Submission) (QueueItem, error) {
	priority := PriorityNormal
	if _, ok := q.adminIDs[sub.UserID]; ok {
		priority = PriorityAdmin
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		q.rejected++
		q.emit(events.NewQueueItemRejected(string(sub.Source), sub.UserID, "queue stopped"))
		return QueueItem{}, ErrQueueStopped
	}
	if q.disabledSource[sub.Source] {
		q.rejected++
		q.emit(events.NewQueueItemRejected(string(sub.Source), sub.UserID, "source disabled"))
		return QueueItem{}, ErrSourceDisabled
	}

	if len(q.admin)+len(q.normal) >= q.maxSize {
		if priority == PriorityNormal || len(q.normal) == 0 {
			q.rejected++
			q.emit(events.NewQueueItemRejected(string(sub.Source), sub.UserID, "queue full"))
			return QueueItem{}, ErrQueueFull
		}

		oldest := q.normal[0]
		q.normal = q.normal[1:]
		q.evicted++
		q.emit(events.NewQueueItemEvicted(oldest.ID, string(oldest.Source)))
		logger.Warn("queue full, evicted oldest normal item",
			"evicted_item", oldest.ID, "evicted_source", oldest.Source)
	}

	item := newQueueItem(sub, priority)
	if priority == PriorityAdmin {
		q.admin = append(q.admin, item)
	} else {
		q.normal = append(q.normal, item)
	}
	q.accepted++
	q.emit(events.NewQueueItemAccepted(item.ID, string(item.Source), item.Priority.String(), len(q.admin)+len(q.normal)))

	q.cond.Signal()
	return item, nil
}

// DequeueBlocking suspends the caller until an item is available or the
// manager is stopped and drained. The second return value is false only for
// the terminal stopped signal.
func (q *QueueManager) DequeueBlocking() (QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.admin) == 0 && len(q.normal) == 0 {
		if q.stopped {
			return QueueItem{}, false
		}
		q.cond.Wait()
	}

	if len(q.admin) > 0 {
		item := q.admin[0]
		q.admin = q.admin[1:]
		return item, true
	}
	item := q.normal[0]
	q.normal = q.normal[1:]
	return item, true
}

// Stop closes the queue to new work and wakes blocked consumers. Items
// already accepted remain dequeuable so the pipeline can drain them.
// Idempotent.
func (q *QueueManager) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}
	q.stopped = true
	q.emit(events.NewQueueStopped())
	q.cond.Broadcast()
}

// Clear drops all pending items and reports how many were removed.
func (q *QueueManager) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	dropped := len(q.admin) + len(q.normal)
	q.admin = nil
	q.normal = nil
	q.cond.Broadcast()
	return dropped
}

// SetSourceEnabled gates enqueues per source without touching items already
// queued. Used by admin commands to mute a noisy source.
func (q *QueueManager) SetSourceEnabled(source Source, enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.disabledSource[source] = !enabled
}

func (q *QueueManager) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.admin) + len(q.normal)
}

func (q *QueueManager) status() QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	disabled := []string{}
	for source, isDisabled := range q.disabledSource {
		if isDisabled {
			disabled = append(disabled, string(source))
		}
	}

	return QueueStatus{
		Size:            len(q.admin) + len(q.normal),
		AdminSize:       len(q.admin),
		MaxSize:         q.maxSize,
		Stopped:         q.stopped,
		Accepted:        q.accepted,
		Rejected:        q.rejected,
		Evicted:         q.evicted,
		DisabledSources: disabled,
	}
}

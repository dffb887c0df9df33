package events

const (
	// KindQueueItemAccepted identifies a successful enqueue decision.
	KindQueueItemAccepted Kind = "queue.item_accepted"
	// KindQueueItemRejected identifies a capacity or shutdown rejection.
	KindQueueItemRejected Kind = "queue.item_rejected"
	// KindQueueItemEvicted identifies a normal item displaced by an admin item.
	KindQueueItemEvicted Kind = "queue.item_evicted"
	// KindQueueStopped identifies the queue refusing all further work.
	KindQueueStopped Kind = "queue.stopped"
)

// QueueItemAccepted marks an item entering the queue.
type QueueItemAccepted struct {
	Base
	ItemID    string
	Source    string
	Priority  string
	QueueSize int
}

// NewQueueItemAccepted creates a queue item accepted event.
func NewQueueItemAccepted(itemID, source, priority string, queueSize int) QueueItemAccepted {
	return QueueItemAccepted{Base: NewBase(KindQueueItemAccepted), ItemID: itemID, Source: source, Priority: priority, QueueSize: queueSize}
}

// QueueItemRejected marks an enqueue refusal. Reason distinguishes capacity
// rejections from shutdown and disabled-source rejections.
type QueueItemRejected struct {
	Base
	Source string
	UserID string
	Reason string
}

// NewQueueItemRejected creates a queue item rejected event.
func NewQueueItemRejected(source, userID, reason string) QueueItemRejected {
	return QueueItemRejected{Base: NewBase(KindQueueItemRejected), Source: source, UserID: userID, Reason: reason}
}

// QueueItemEvicted marks the oldest normal item being displaced to make room
// for an admin item on a full queue.
type QueueItemEvicted struct {
	Base
	ItemID string
	Source string
}

// NewQueueItemEvicted creates a queue item evicted event.
func NewQueueItemEvicted(itemID, source string) QueueItemEvicted {
	return QueueItemEvicted{Base: NewBase(KindQueueItemEvicted), ItemID: itemID, Source: source}
}

// QueueStopped marks the queue closing to new work.
type QueueStopped struct{ Base }

// NewQueueStopped creates a queue stopped event.
func NewQueueStopped() QueueStopped {
	return QueueStopped{Base: NewBase(KindQueueStopped)}
}

package orchestration

import (
	"time"

	"github.com/google/uuid"
)

// Source identifies where a queued item originated.
type Source string

const (
	SourceVoice    Source = "voice"
	SourceText     Source = "text"
	SourceLiveChat Source = "live-chat"
)

// Priority orders queued items. Admin items are always drained before normal
// ones and are partially exempt from capacity rejection.
type Priority int

const (
	PriorityAdmin Priority = iota
	PriorityNormal
)

func (p Priority) String() string {
	switch p {
	case PriorityAdmin:
		return "admin"
	case PriorityNormal:
		return "normal"
	}
	return "unknown"
}

// QueueItem is one unit of response work. Voice input is already transcribed
// by the time it is enqueued; Content is always text.
type QueueItem struct {
	ID       string
	Content  string
	Source   Source
	UserID   string
	UserName string

	// Priority is derived at enqueue time from the configured admin set.
	Priority Priority
	// EnqueuedAt is used for FIFO ordering within a priority class and for
	// staleness checks. time.Time carries a monotonic reading on this path.
	EnqueuedAt time.Time

	// Metadata carries source-specific extras (e.g. sample rate). It is
	// opaque to the queue and the pipeline and passed through unchanged.
	Metadata map[string]any
}

// Submission is the producer-facing shape of an item, before the queue
// assigns identity, priority and ordering.
type Submission struct {
	Content  string
	Source   Source
	UserID   string
	UserName string
	Metadata map[string]any
}

func newQueueItem(sub Submission, priority Priority) QueueItem {
	return QueueItem{
		ID:         uuid.NewString(),
		Content:    sub.Content,
		Source:     sub.Source,
		UserID:     sub.UserID,
		UserName:   sub.UserName,
		Priority:   priority,
		EnqueuedAt: time.Now(),
		Metadata:   sub.Metadata,
	}
}

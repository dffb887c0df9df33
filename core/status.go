package orchestration

import (
	"time"

	"github.com/jinzhu/copier"
)

// QueueStatus is a point-in-time snapshot of the queue manager's counters.
type QueueStatus struct {
	Size            int
	AdminSize       int
	MaxSize         int
	Stopped         bool
	Accepted        uint64
	Rejected        uint64
	Evicted         uint64
	DisabledSources []string
}

// ConnectionStatus is a point-in-time snapshot of one supervised link.
type ConnectionStatus struct {
	Link       string
	State      ConnectionState
	RetryCount int
	LastError  string
}

// PipelineStatus is a point-in-time snapshot of the response pipeline.
type PipelineStatus struct {
	Stage        Stage
	CurrentItem  *QueueItem
	Completed    uint64
	Aborted      uint64
	Suppressed   uint64
	Skipped      uint64
	LastDuration time.Duration
}

// Status is a point-in-time snapshot of the whole orchestrator. It shares no
// memory with live state; callers can hold it indefinitely.
type Status struct {
	Running     bool
	Queue       QueueStatus
	Pipeline    PipelineStatus
	Connections []ConnectionStatus
}

// Status returns a consistent-enough snapshot for dashboards and admin
// commands. Each component is locked independently, so counters may be a few
// operations apart from each other.
func (o *Orchestrator) Status() Status {
	if o == nil {
		return Status{}
	}

	status := Status{Running: o.running.Load()}
	if o.queue != nil {
		status.Queue = o.queue.status()
	}
	if o.pipeline != nil {
		status.Pipeline = o.pipeline.status()
	}
	for _, supervisor := range o.supervisors {
		status.Connections = append(status.Connections, supervisor.status())
	}
	return status
}

func copyItem(item QueueItem) *QueueItem {
	snapshot := &QueueItem{}
	if err := copier.CopyWithOption(snapshot, item, copier.Option{DeepCopy: true}); err != nil {
		clone := item
		clone.Metadata = nil
		return &clone
	}
	return snapshot
}

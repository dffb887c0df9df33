package events

const (
	// KindResponseStarted identifies reply generation beginning for an item.
	KindResponseStarted Kind = "response.started"
	// KindResponseSuppressed identifies a policy decision to produce no reply.
	KindResponseSuppressed Kind = "response.suppressed"
	// KindResponseFinal identifies a fully generated reply text.
	KindResponseFinal Kind = "response.final"

	// KindPlaybackStarted identifies playback beginning for an item.
	KindPlaybackStarted Kind = "playback.started"
	// KindPlaybackEnded identifies playback completion for an item.
	KindPlaybackEnded Kind = "playback.ended"

	// KindPipelineItemCompleted identifies an item reaching the Done state.
	KindPipelineItemCompleted Kind = "pipeline.item_completed"
	// KindPipelineItemAborted identifies an item abandoned mid-pipeline.
	KindPipelineItemAborted Kind = "pipeline.item_aborted"
	// KindPipelineItemSkipped identifies a stale item dropped before generation.
	KindPipelineItemSkipped Kind = "pipeline.item_skipped"
)

// ResponseStarted marks the start of reply generation.
type ResponseStarted struct {
	Base
	ItemID string
	Source string
}

// NewResponseStarted creates a response started event.
func NewResponseStarted(itemID, source string) ResponseStarted {
	return ResponseStarted{Base: NewBase(KindResponseStarted), ItemID: itemID, Source: source}
}

// ResponseSuppressed marks a reply that policy decided not to produce.
type ResponseSuppressed struct {
	Base
	ItemID string
	Reason string
}

// NewResponseSuppressed creates a response suppressed event.
func NewResponseSuppressed(itemID, reason string) ResponseSuppressed {
	return ResponseSuppressed{Base: NewBase(KindResponseSuppressed), ItemID: itemID, Reason: reason}
}

// ResponseFinal carries the complete generated reply text.
type ResponseFinal struct {
	Base
	ItemID string
	Text   string
}

// NewResponseFinal creates a response final event.
func NewResponseFinal(itemID, text string) ResponseFinal {
	return ResponseFinal{Base: NewBase(KindResponseFinal), ItemID: itemID, Text: text}
}

// PlaybackStarted marks the start of audio playback for an item.
type PlaybackStarted struct {
	Base
	ItemID string
}

// NewPlaybackStarted creates a playback started event.
func NewPlaybackStarted(itemID string) PlaybackStarted {
	return PlaybackStarted{Base: NewBase(KindPlaybackStarted), ItemID: itemID}
}

// PlaybackEnded marks the end of audio playback for an item.
type PlaybackEnded struct {
	Base
	ItemID string
}

// NewPlaybackEnded creates a playback ended event.
func NewPlaybackEnded(itemID string) PlaybackEnded {
	return PlaybackEnded{Base: NewBase(KindPlaybackEnded), ItemID: itemID}
}

// PipelineItemCompleted marks an item finishing the pipeline.
type PipelineItemCompleted struct {
	Base
	ItemID string
}

// NewPipelineItemCompleted creates a pipeline item completed event.
func NewPipelineItemCompleted(itemID string) PipelineItemCompleted {
	return PipelineItemCompleted{Base: NewBase(KindPipelineItemCompleted), ItemID: itemID}
}

// PipelineItemAborted marks an item abandoned because a stage failed. Stage
// names the stage that failed.
type PipelineItemAborted struct {
	Base
	ItemID string
	Stage  string
	Reason string
}

// NewPipelineItemAborted creates a pipeline item aborted event.
func NewPipelineItemAborted(itemID, stage, reason string) PipelineItemAborted {
	return PipelineItemAborted{Base: NewBase(KindPipelineItemAborted), ItemID: itemID, Stage: stage, Reason: reason}
}

// PipelineItemSkipped marks a stale item dropped without processing.
type PipelineItemSkipped struct {
	Base
	ItemID string
}

// NewPipelineItemSkipped creates a pipeline item skipped event.
func NewPipelineItemSkipped(itemID string) PipelineItemSkipped {
	return PipelineItemSkipped{Base: NewBase(KindPipelineItemSkipped), ItemID: itemID}
}

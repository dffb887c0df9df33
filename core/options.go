package orchestration

import "github.com/Vioneyy/AI-VTuber-demo/core/events"

type OrchestratorOption func(*Orchestrator)

// WithReplyGenerator installs the client used to turn queued messages into
// reply text. Without one, every item completes as suppressed.
func WithReplyGenerator(client ReplyGenerator) OrchestratorOption {
	return func(o *Orchestrator) { o.replyGenerator = client }
}

// WithSpeechSynthesizer installs the client used to turn reply text into
// audio. Without one, replies complete without playback.
func WithSpeechSynthesizer(client SpeechSynthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = client }
}

// WithAvatarController installs the avatar link. Its connection is supervised
// for the lifetime of the orchestrator and its talking state is driven around
// playback.
func WithAvatarController(client AvatarController) OrchestratorOption {
	return func(o *Orchestrator) { o.avatar = client }
}

// WithPlaybackSink installs the audio output used for synthesized replies.
func WithPlaybackSink(client PlaybackSink) OrchestratorOption {
	return func(o *Orchestrator) { o.playback = client }
}

// WithAdapter registers an external input adapter (chat host, voice host).
// Adapters are started by Run and stopped first during shutdown. May be used
// multiple times.
func WithAdapter(client Adapter) OrchestratorOption {
	return func(o *Orchestrator) { o.adapters = append(o.adapters, client) }
}

// WithFeedbackSender installs the channel used to tell a user their message
// failed mid-pipeline.
func WithFeedbackSender(client FeedbackSender) OrchestratorOption {
	return func(o *Orchestrator) { o.feedback = client }
}

// WithSafetyFilter installs a screen applied to generated replies before
// synthesis. A rejection suppresses the reply instead of aborting the item.
func WithSafetyFilter(filter SafetyFilter) OrchestratorOption {
	return func(o *Orchestrator) { o.safety = filter }
}

type RunOptions struct {
	onEvent                  func(events.Event)
	onResponse               func(itemID, text string)
	onPlaybackStateChanged   func(isPlaying bool)
	onConnectionStateChanged func(link, state string)
	onItemCompleted          func(itemID string)
}

type RunOption func(*RunOptions)

// WithEventCallback registers a callback for every orchestration event.
//
// The callback runs inline on the emitting goroutine and should not block.
func WithEventCallback(callback func(events.Event)) RunOption {
	return func(o *RunOptions) {
		o.onEvent = callback
	}
}

// WithResponseCallback registers a callback for final reply text.
func WithResponseCallback(callback func(itemID, text string)) RunOption {
	return func(o *RunOptions) {
		o.onResponse = callback
	}
}

// WithPlaybackStateChangedCallback registers a callback for playback
// start/stop transitions.
func WithPlaybackStateChangedCallback(callback func(isPlaying bool)) RunOption {
	return func(o *RunOptions) {
		o.onPlaybackStateChanged = callback
	}
}

// WithConnectionStateChangedCallback registers a callback for supervised link
// state transitions.
func WithConnectionStateChangedCallback(callback func(link, state string)) RunOption {
	return func(o *RunOptions) {
		o.onConnectionStateChanged = callback
	}
}

// WithItemCompletedCallback registers a callback fired when an item leaves
// the pipeline through the completed state.
func WithItemCompletedCallback(callback func(itemID string)) RunOption {
	return func(o *RunOptions) {
		o.onItemCompleted = callback
	}
}

package orchestration

import (
	"context"

	"github.com/Vioneyy/AI-VTuber-demo/core/audio"
)

// Reply is the outcome of reply generation. A suppressed reply carries no
// text; the pipeline finishes the item without synthesis or playback.
type Reply struct {
	Text           string
	Suppressed     bool
	SuppressReason string
}

// ReplyGenerator produces a reply for one queued item. Implementations own
// their per-request deadlines and may cancel slow calls themselves.
type ReplyGenerator interface {
	Generate(ctx context.Context, content string, userName string, source Source) (Reply, error)
}

// SpeechSynthesizer turns reply text into an audio clip.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (audio.Clip, error)
}

// AvatarController drives the avatar's talking signal. SetTalking failures
// are treated as best-effort by the pipeline; Disconnect runs during ordered
// shutdown. Done returns a channel that is closed when an established link
// drops unexpectedly, so the supervisor can reconnect; a deliberate
// Disconnect must not close it. A nil channel means the link never reports
// drops.
type AvatarController interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SetTalking(ctx context.Context, talking bool) error
	Done() <-chan struct{}
}

// PlaybackSink plays a processed clip on the output device or channel.
type PlaybackSink interface {
	Play(ctx context.Context, clip audio.Clip) error
}

// Adapter is a long-lived external integration (chat/voice host). Start runs
// until the connection drops or Stop is called; a supervisor restarts it
// after transient failures.
type Adapter interface {
	Start(ctx context.Context) error
	Stop() error
}

// SafetyFilter screens generated reply text before it is spoken. Screen
// returns false with a human-readable reason to suppress the reply. It may
// block on ctx while a reply waits for an operator decision.
type SafetyFilter interface {
	Screen(ctx context.Context, text string) (ok bool, reason string)
}

// FeedbackSender reports capacity rejections and per-item failures back to
// the originating user through the adapter's normal channel. Adapters that
// can deliver feedback implement it alongside Adapter.
type FeedbackSender interface {
	SendFeedback(ctx context.Context, userID string, message string) error
}

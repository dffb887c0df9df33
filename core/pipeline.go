package orchestration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vioneyy/AI-VTuber-demo/core/audio"
	"github.com/Vioneyy/AI-VTuber-demo/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage reports what the pipeline is doing with the current item.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageGenerating     Stage = "generating"
	StageSynthesizing   Stage = "synthesizing"
	StagePostProcessing Stage = "post-processing"
	StagePlaying        Stage = "playing"
)

// responsePipeline is the single consumer of the queue. It processes exactly
// one item end to end at a time: generate, synthesize, post-process, play.
// A failure at any stage aborts that item only; the loop moves on to the
// next one.
type responsePipeline struct {
	queue          *QueueManager
	replyGenerator ReplyGenerator
	synthesizer    SpeechSynthesizer
	avatar         AvatarController
	playback       PlaybackSink
	feedback       FeedbackSender
	safety         SafetyFilter
	emit           eventEmitter
	maxItemWait    time.Duration

	mu           sync.Mutex
	stage        Stage
	current      *QueueItem
	completed    uint64
	aborted      uint64
	suppressed   uint64
	skipped      uint64
	lastDuration time.Duration
}

func newResponsePipeline(queue *QueueManager, o *Orchestrator, emit eventEmitter) *responsePipeline {
	if emit == nil {
		emit = noopEventEmitter
	}
	return &responsePipeline{
		queue:          queue,
		replyGenerator: o.replyGenerator,
		synthesizer:    o.synthesizer,
		avatar:         o.avatar,
		playback:       o.playback,
		feedback:       o.feedback,
		safety:         o.safety,
		emit:           emit,
		maxItemWait:    o.config.MaxItemWait,
		stage:          StageIdle,
	}
}

// Run consumes the queue until it is stopped and drained. Cancellation of
// ctx aborts remaining drained items without calling collaborators, except
// playback already in flight, which always finishes.
func (p *responsePipeline) Run(ctx context.Context) error {
	for {
		item, ok := p.queue.DequeueBlocking()
		if !ok {
			p.setStage(StageIdle, nil)
			return nil
		}

		if ctx.Err() != nil {
			p.abort(item, StageIdle, "shutting down")
			continue
		}

		p.process(ctx, item)
	}
}

func (p *responsePipeline) process(ctx context.Context, item QueueItem) {
	ctx, span := tracer.Start(ctx, "process queue item", trace.WithAttributes(
		attribute.String("item.id", item.ID),
		attribute.String("item.source", string(item.Source)),
		attribute.String("item.priority", item.Priority.String()),
	))
	defer span.End()

	started := time.Now()
	defer func() {
		p.mu.Lock()
		p.lastDuration = time.Since(started)
		p.mu.Unlock()
	}()
	defer p.setStage(StageIdle, nil)

	if p.maxItemWait > 0 && item.Priority != PriorityAdmin && time.Since(item.EnqueuedAt) > p.maxItemWait {
		p.mu.Lock()
		p.skipped++
		p.mu.Unlock()
		p.emit(events.NewPipelineItemSkipped(item.ID))
		logger.Info("skipped stale item", "item", item.ID, "waited", time.Since(item.EnqueuedAt))
		return
	}

	p.setStage(StageGenerating, &item)
	p.emit(events.NewResponseStarted(item.ID, string(item.Source)))

	reply, err := p.generate(ctx, item)
	if err != nil {
		p.recordStageErr(span, item, StageGenerating, err)
		return
	}
	if reply.Suppressed {
		p.suppress(item, reply.SuppressReason)
		return
	}
	if p.safety != nil {
		if ok, reason := p.safety.Screen(ctx, reply.Text); !ok {
			p.suppress(item, reason)
			return
		}
	}
	p.emit(events.NewResponseFinal(item.ID, reply.Text))

	if p.synthesizer == nil || p.playback == nil {
		p.complete(item)
		return
	}

	p.setStage(StageSynthesizing, &item)
	clip, err := p.synthesizer.Synthesize(ctx, reply.Text)
	if err != nil {
		p.recordStageErr(span, item, StageSynthesizing, err)
		return
	}
	if clip.IsZero() {
		p.complete(item)
		return
	}

	p.setStage(StagePostProcessing, &item)
	clip, err = audio.PostProcess(clip)
	if err != nil {
		p.recordStageErr(span, item, StagePostProcessing, err)
		return
	}

	p.setStage(StagePlaying, &item)
	if err := p.play(ctx, item, clip); err != nil {
		p.recordStageErr(span, item, StagePlaying, err)
		return
	}

	p.complete(item)
}

func (p *responsePipeline) generate(ctx context.Context, item QueueItem) (Reply, error) {
	if p.replyGenerator == nil {
		return Reply{Suppressed: true, SuppressReason: "no reply generator configured"}, nil
	}
	return p.replyGenerator.Generate(ctx, item.Content, item.UserName, item.Source)
}

// play runs the playback stage. Playback is never cut short by shutdown, so
// it runs detached from ctx's cancellation. The avatar's talking signal is
// raised best-effort before playback and always lowered afterwards.
func (p *responsePipeline) play(ctx context.Context, item QueueItem, clip audio.Clip) error {
	playCtx := context.WithoutCancel(ctx)

	if p.avatar != nil {
		if err := p.avatar.SetTalking(playCtx, true); err != nil {
			logger.Warn("failed to raise avatar talking signal", "item", item.ID, "error", err)
		}
		defer func() {
			if err := p.avatar.SetTalking(playCtx, false); err != nil {
				logger.Warn("failed to lower avatar talking signal", "item", item.ID, "error", err)
			}
		}()
	}

	p.emit(events.NewPlaybackStarted(item.ID))
	err := p.playback.Play(playCtx, clip)
	p.emit(events.NewPlaybackEnded(item.ID))
	return err
}

func (p *responsePipeline) complete(item QueueItem) {
	p.mu.Lock()
	p.completed++
	p.mu.Unlock()
	p.emit(events.NewPipelineItemCompleted(item.ID))
}

func (p *responsePipeline) suppress(item QueueItem, reason string) {
	p.mu.Lock()
	p.suppressed++
	p.completed++
	p.mu.Unlock()
	logger.Info("suppressed reply", "item", item.ID, "reason", reason)
	p.emit(events.NewResponseSuppressed(item.ID, reason))
	p.emit(events.NewPipelineItemCompleted(item.ID))
}

func (p *responsePipeline) abort(item QueueItem, stage Stage, reason string) {
	p.mu.Lock()
	p.aborted++
	p.mu.Unlock()
	p.emit(events.NewPipelineItemAborted(item.ID, string(stage), reason))
}

func (p *responsePipeline) recordStageErr(span trace.Span, item QueueItem, stage Stage, err error) {
	recordedErr := fmt.Errorf("%s stage failed for item %s: %w", stage, item.ID, err)
	span.RecordError(recordedErr)
	span.SetStatus(codes.Error, recordedErr.Error())
	logger.Error("pipeline stage failed", "item", item.ID, "stage", stage, "error", err)

	p.abort(item, stage, err.Error())
	p.sendFailureFeedback(item)
}

func (p *responsePipeline) sendFailureFeedback(item QueueItem) {
	if p.feedback == nil || item.UserID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	message := "Sorry, I couldn't respond to your message this time."
	if err := p.feedback.SendFeedback(ctx, item.UserID, message); err != nil {
		logger.Warn("failed to send failure feedback", "item", item.ID, "user", item.UserID, "error", err)
	}
}

func (p *responsePipeline) setStage(stage Stage, item *QueueItem) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stage = stage
	p.current = item
}

func (p *responsePipeline) status() PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := PipelineStatus{
		Stage:        p.stage,
		Completed:    p.completed,
		Aborted:      p.aborted,
		Suppressed:   p.suppressed,
		Skipped:      p.skipped,
		LastDuration: p.lastDuration,
	}
	if p.current != nil {
		status.CurrentItem = copyItem(*p.current)
	}
	return status
}

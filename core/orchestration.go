package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Vioneyy/AI-VTuber-demo/core/events"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Lifecycle misuse errors.
var (
	ErrAlreadyRunning = errors.New("orchestrator is already running")
	ErrNotRunning     = errors.New("orchestrator is not running")
)

// Orchestrator ties the queue, the response pipeline and the supervised
// external links together under one lifecycle. Construct it with
// [NewOrchestrator], start it with [Run], and stop it with [Shutdown].
type Orchestrator struct {
	config Config

	replyGenerator ReplyGenerator
	synthesizer    SpeechSynthesizer
	avatar         AvatarController
	playback       PlaybackSink
	feedback       FeedbackSender
	safety         SafetyFilter
	adapters       []Adapter

	queue       *QueueManager
	pipeline    *responsePipeline
	supervisors []*connectionSupervisor
	group       *taskGroup
	emit        eventEmitter

	// mu orders Run's wiring before any Shutdown that observed started, so
	// shutdown never sees a half-built orchestrator.
	mu           sync.Mutex
	running      atomic.Bool
	started      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
	baseContext  context.Context
}

// NewOrchestrator validates the configuration and wires the collaborators.
// An invalid configuration is the only fatal condition in the whole
// orchestrator; everything after construction degrades instead of failing.
func NewOrchestrator(config Config, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid orchestrator configuration: %w", err)
	}

	o := &Orchestrator{
		config:      config,
		emit:        noopEventEmitter,
		baseContext: context.Background(),
	}
	for _, opt := range opts {
		opt(o)
	}

	return o, nil
}

// Configure applies more options before Run. It exists for collaborators
// that need the orchestrator itself to be constructed first, like a chat
// host that submits into the queue.
func (o *Orchestrator) Configure(opts ...OrchestratorOption) error {
	if o.started.Load() {
		return ErrAlreadyRunning
	}
	for _, opt := range opts {
		opt(o)
	}
	return nil
}

// Run starts the pipeline consumer and the supervised links, then returns.
// The orchestrator keeps running until ctx is cancelled or Shutdown is
// called, whichever comes first. Run may be called at most once.
func (o *Orchestrator) Run(ctx context.Context, opts ...RunOption) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.started.Load() {
		return ErrAlreadyRunning
	}

	runOptions := RunOptions{}
	for _, opt := range opts {
		opt(&runOptions)
	}
	o.emit = newCallbackEventEmitter(runOptions)

	o.baseContext = ctx
	o.queue = newQueueManager(o.config, o.emit)
	o.pipeline = newResponsePipeline(o.queue, o, o.emit)
	o.group = newTaskGroup(context.WithoutCancel(ctx))

	o.group.Spawn("response pipeline", o.pipeline.Run)

	if o.avatar != nil {
		supervisor := newConnectionSupervisor("avatar", o.config.BackoffInterval, o.superviseAvatar, o.emit)
		o.supervisors = append(o.supervisors, supervisor)
		o.group.Spawn("avatar supervisor", supervisor.Run)
	}
	for i, adapter := range o.adapters {
		link := fmt.Sprintf("adapter-%d", i)
		supervisor := newConnectionSupervisor(link, o.config.BackoffInterval, superviseAdapter(adapter), o.emit)
		o.supervisors = append(o.supervisors, supervisor)
		o.group.Spawn(link+" supervisor", supervisor.Run)
	}

	o.started.Store(true)
	o.running.Store(true)
	logger.Info("orchestrator running",
		"queue_capacity", o.config.MaxQueueSize,
		"adapters", len(o.adapters),
		"supervised_links", len(o.supervisors))

	go func() {
		<-ctx.Done()
		if err := o.Shutdown(); err != nil {
			recordedErr := fmt.Errorf("shutdown after context cancellation failed: %w", err)
			span := trace.SpanFromContext(ctx)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
	}()

	return nil
}

func (o *Orchestrator) superviseAvatar(ctx context.Context, onConnected func()) error {
	if err := o.avatar.Connect(ctx); err != nil {
		return err
	}
	onConnected()
	select {
	case <-ctx.Done():
		return nil
	case <-o.avatar.Done():
		return errors.New("avatar link dropped")
	}
}

func superviseAdapter(adapter Adapter) superviseFunc {
	return func(ctx context.Context, onConnected func()) error {
		onConnected()
		return adapter.Start(ctx)
	}
}

// Submit offers a message to the queue. The item's priority is derived from
// the configured admin identities. Rejections come back as errors the caller
// can relay to the originating user.
func (o *Orchestrator) Submit(sub Submission) (QueueItem, error) {
	if o == nil || !o.running.Load() {
		return QueueItem{}, ErrNotRunning
	}
	return o.queue.Enqueue(sub)
}

// SetSourceEnabled gates future submissions from one source.
func (o *Orchestrator) SetSourceEnabled(source Source, enabled bool) error {
	if o == nil || !o.running.Load() {
		return ErrNotRunning
	}
	o.queue.SetSourceEnabled(source, enabled)
	logger.Info("source gate changed", "source", source, "enabled", enabled)
	return nil
}

// ClearQueue drops every pending item and reports how many were dropped.
// The item currently in the pipeline is unaffected.
func (o *Orchestrator) ClearQueue() (int, error) {
	if o == nil || !o.running.Load() {
		return 0, ErrNotRunning
	}
	dropped := o.queue.Clear()
	logger.Info("queue cleared", "dropped", dropped)
	return dropped, nil
}

// Shutdown stops the orchestrator in a fixed order: external adapters first
// so no new work arrives, then the avatar link, then the queue so the
// pipeline can drain, and finally the background workers. Idempotent; every
// call after the first returns the first call's result.
func (o *Orchestrator) Shutdown() error {
	if o == nil {
		return nil
	}

	o.mu.Lock()
	started := o.started.Load()
	o.mu.Unlock()
	if !started {
		return nil
	}

	o.shutdownOnce.Do(func() {
		o.emit(events.NewLifecycleStopping())
		logger.Info("orchestrator shutting down")

		var errs []error
		for i, adapter := range o.adapters {
			if err := adapter.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop adapter %d: %w", i, err))
			}
		}

		if o.avatar != nil {
			if err := o.avatar.Disconnect(); err != nil {
				errs = append(errs, fmt.Errorf("failed to disconnect avatar: %w", err))
			}
		}

		o.queue.Stop()

		o.group.Cancel()
		if err := o.group.Join(); err != nil {
			errs = append(errs, err)
		}

		o.running.Store(false)
		o.shutdownErr = errors.Join(errs...)
		if o.shutdownErr != nil {
			recordedErr := fmt.Errorf("orchestrator shutdown finished with errors: %w", o.shutdownErr)
			span := trace.SpanFromContext(o.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}

		o.emit(events.NewLifecycleStopped())
		logger.Info("orchestrator stopped")
	})

	return o.shutdownErr
}

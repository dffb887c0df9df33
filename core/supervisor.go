package orchestration

import (
	"context"
	"sync"
	"time"

	"github.com/Vioneyy/AI-VTuber-demo/core/events"
)

// ConnectionState describes where a supervised external link currently is in
// its connect/retry cycle.
type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionRetrying     ConnectionState = "retrying"
)

// superviseFunc establishes and holds one external link. It should call
// onConnected once the link is usable and return when the link drops or ctx
// is cancelled. The returned error describes the drop.
type superviseFunc func(ctx context.Context, onConnected func()) error

// connectionSupervisor keeps one external link alive with a fixed retry
// interval. Failures never escalate past the supervisor; it logs and emits
// state transitions and tries again. The loop observes cancellation at every
// wait point, so it exits within one backoff interval of stop.
type connectionSupervisor struct {
	link    string
	backoff time.Duration
	connect superviseFunc
	emit    eventEmitter

	mu         sync.Mutex
	state      ConnectionState
	retryCount int
	lastError  error
}

func newConnectionSupervisor(link string, backoff time.Duration, connect superviseFunc, emit eventEmitter) *connectionSupervisor {
	if emit == nil {
		emit = noopEventEmitter
	}
	return &connectionSupervisor{
		link:    link,
		backoff: backoff,
		connect: connect,
		emit:    emit,
		state:   ConnectionDisconnected,
	}
}

func (s *connectionSupervisor) setState(state ConnectionState, err error) {
	s.mu.Lock()
	s.state = state
	if err != nil {
		s.lastError = err
	}
	if state == ConnectionRetrying {
		s.retryCount++
	}
	if state == ConnectionConnected {
		s.retryCount = 0
	}
	retryCount := s.retryCount
	lastError := ""
	if s.lastError != nil {
		lastError = s.lastError.Error()
	}
	s.mu.Unlock()

	s.emit(events.NewConnectionStateChanged(s.link, string(state), retryCount, lastError))
}

// Run drives the connect/retry loop until ctx is cancelled. It always
// returns nil; link failures are state, not errors.
func (s *connectionSupervisor) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			s.setState(ConnectionDisconnected, nil)
			return nil
		}

		s.setState(ConnectionConnecting, nil)
		err := s.connect(ctx, func() { s.setState(ConnectionConnected, nil) })
		if ctx.Err() != nil {
			s.setState(ConnectionDisconnected, nil)
			return nil
		}

		s.setState(ConnectionRetrying, err)
		logger.Warn("supervised link dropped, retrying",
			"link", s.link, "backoff", s.backoff, "error", err)

		select {
		case <-ctx.Done():
			s.setState(ConnectionDisconnected, nil)
			return nil
		case <-time.After(s.backoff):
		}
	}
}

func (s *connectionSupervisor) status() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastError := ""
	if s.lastError != nil {
		lastError = s.lastError.Error()
	}
	return ConnectionStatus{
		Link:       s.link,
		State:      s.state,
		RetryCount: s.retryCount,
		LastError:  lastError,
	}
}

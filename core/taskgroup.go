package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// taskGroup runs named background workers under a shared cancellable context.
// Worker panics are converted to errors so one misbehaving collaborator
// cannot take the process down. Join reports every failure via errors.Join.
type taskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error
}

func newTaskGroup(ctx context.Context) *taskGroup {
	ctx, cancel := context.WithCancel(ctx)
	return &taskGroup{ctx: ctx, cancel: cancel}
}

func (g *taskGroup) addErr(err error) {
	if err == nil {
		return
	}
	g.errMu.Lock()
	g.err = errors.Join(g.err, err)
	g.errMu.Unlock()
}

// Spawn starts a named worker. The worker's context is cancelled when the
// group is cancelled; a worker returning an error does not cancel its peers.
func (g *taskGroup) Spawn(name string, run func(context.Context) error) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				g.addErr(fmt.Errorf("%s worker panicked: %v", name, recovered))
			}
		}()

		if err := run(g.ctx); err != nil && !errors.Is(err, context.Canceled) {
			g.addErr(fmt.Errorf("%s worker failed: %w", name, err))
		}
	}()
}

// Cancel signals every worker to stop. Safe to call multiple times.
func (g *taskGroup) Cancel() {
	g.cancel()
}

// Join waits for all workers and returns their aggregated errors.
func (g *taskGroup) Join() error {
	g.wg.Wait()

	g.errMu.Lock()
	defer g.errMu.Unlock()
	return g.err
}

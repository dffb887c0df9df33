package orchestration

import (
	"errors"
	"fmt"
	"time"
)

// Config is the orchestration-facing configuration surface. It is constructed
// once at startup and handed to NewOrchestrator explicitly; core code never
// reaches into process-wide state for settings.
type Config struct {
	// MaxQueueSize bounds the total number of items the queue will hold.
	// Admin items displace the oldest normal item when the queue is full.
	MaxQueueSize int

	// AdminIDs lists user identities whose items enqueue at admin priority.
	AdminIDs []string

	// BackoffInterval is the fixed delay a connection supervisor sleeps
	// between reconnect attempts. Not adaptive.
	BackoffInterval time.Duration

	// MaxItemWait bounds how long an item may sit queued before the pipeline
	// skips it as stale. Zero disables the staleness check.
	MaxItemWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxQueueSize:    50,
		BackoffInterval: 3 * time.Second,
		MaxItemWait:     0,
	}
}

// Validate reports configuration errors. A non-nil result is the only
// condition under which startup aborts the whole process.
func (c Config) Validate() error {
	var err error
	if c.MaxQueueSize <= 0 {
		err = errors.Join(err, fmt.Errorf("max queue size must be positive, got %d", c.MaxQueueSize))
	}
	if c.BackoffInterval <= 0 {
		err = errors.Join(err, fmt.Errorf("backoff interval must be positive, got %s", c.BackoffInterval))
	}
	if c.MaxItemWait < 0 {
		err = errors.Join(err, fmt.Errorf("max item wait must not be negative, got %s", c.MaxItemWait))
	}
	for _, id := range c.AdminIDs {
		if id == "" {
			err = errors.Join(err, errors.New("admin ids must not contain empty identities"))
			break
		}
	}
	return err
}

func (c Config) adminSet() map[string]struct{} {
	admins := make(map[string]struct{}, len(c.AdminIDs))
	for _, id := range c.AdminIDs {
		admins[id] = struct{}{}
	}
	return admins
}

package events

const (
	// KindLifecycleStopping identifies the start of the ordered shutdown.
	KindLifecycleStopping Kind = "lifecycle.stopping"
	// KindLifecycleStopped identifies the end of the ordered shutdown.
	KindLifecycleStopped Kind = "lifecycle.stopped"
)

// LifecycleStopping marks shutdown entry.
type LifecycleStopping struct{ Base }

// NewLifecycleStopping creates a lifecycle stopping event.
func NewLifecycleStopping() LifecycleStopping {
	return LifecycleStopping{Base: NewBase(KindLifecycleStopping)}
}

// LifecycleStopped marks shutdown completion.
type LifecycleStopped struct{ Base }

// NewLifecycleStopped creates a lifecycle stopped event.
func NewLifecycleStopped() LifecycleStopped {
	return LifecycleStopped{Base: NewBase(KindLifecycleStopped)}
}

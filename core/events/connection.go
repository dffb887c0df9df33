package events

// KindConnectionStateChanged identifies a supervised link state transition.
const KindConnectionStateChanged Kind = "connection.state_changed"

// ConnectionStateChanged marks a supervised external link moving between
// disconnected, connecting, connected and retrying.
type ConnectionStateChanged struct {
	Base
	Link       string
	State      string
	RetryCount int
	LastError  string
}

// NewConnectionStateChanged creates a connection state changed event.
func NewConnectionStateChanged(link, state string, retryCount int, lastError string) ConnectionStateChanged {
	return ConnectionStateChanged{
		Base:       NewBase(KindConnectionStateChanged),
		Link:       link,
		State:      state,
		RetryCount: retryCount,
		LastError:  lastError,
	}
}

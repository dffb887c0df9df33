// Package admincmd interprets operator commands arriving through chat.
package admincmd

import (
	"fmt"
	"strings"
	"time"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/Vioneyy/AI-VTuber-demo/core/safety"
)

const commandPrefix = "!"

// Controller is the slice of the orchestrator the command handler drives.
type Controller interface {
	ClearQueue() (int, error)
	SetSourceEnabled(source orchestration.Source, enabled bool) error
	Status() orchestration.Status
}

// ApprovalRegistry decides on replies the safety filter is holding.
type ApprovalRegistry interface {
	Resolve(id string, approved bool) bool
	Pending() []safety.PendingApproval
}

// Handler parses and executes admin commands. Commands start with "!"; any
// other text is not a command and should be queued normally.
type Handler struct {
	controller Controller
	approvals  ApprovalRegistry
}

type Option func(*Handler)

// WithApprovals enables the approve, reject and pending commands against a
// registry of held replies.
func WithApprovals(registry ApprovalRegistry) Option {
	return func(h *Handler) { h.approvals = registry }
}

func NewHandler(controller Controller, opts ...Option) *Handler {
	h := &Handler{controller: controller}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// IsCommand reports whether text should be handled as a command instead of
// being enqueued.
func (h *Handler) IsCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), commandPrefix)
}

// Execute runs one command and returns the response to relay back to the
// operator. Unknown commands are an error so typos do not fail silently.
func (h *Handler) Execute(text string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], commandPrefix) {
		return "", fmt.Errorf("not a command: %q", text)
	}

	command := strings.TrimPrefix(fields[0], commandPrefix)
	args := fields[1:]

	switch command {
	case "clear":
		dropped, err := h.controller.ClearQueue()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("cleared %d queued messages", dropped), nil

	case "mute", "unmute":
		if len(args) != 1 {
			return "", fmt.Errorf("usage: !%s <source>", command)
		}
		source, err := parseSource(args[0])
		if err != nil {
			return "", err
		}
		if err := h.controller.SetSourceEnabled(source, command == "unmute"); err != nil {
			return "", err
		}
		return fmt.Sprintf("%sd %s", command, source), nil

	case "approve", "reject":
		if h.approvals == nil {
			return "", fmt.Errorf("approvals are not configured")
		}
		if len(args) != 1 {
			return "", fmt.Errorf("usage: !%s <approval-id>", command)
		}
		if !h.approvals.Resolve(args[0], command == "approve") {
			return "", fmt.Errorf("no pending approval %q", args[0])
		}
		if command == "approve" {
			return "approved " + args[0], nil
		}
		return "rejected " + args[0], nil

	case "pending":
		if h.approvals == nil {
			return "", fmt.Errorf("approvals are not configured")
		}
		pending := h.approvals.Pending()
		if len(pending) == 0 {
			return "no replies awaiting approval", nil
		}
		var b strings.Builder
		for i, p := range pending {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s: %s", p.ID, p.Text)
		}
		return b.String(), nil

	case "status":
		status := h.controller.Status()
		return h.formatStatus(status), nil

	default:
		return "", fmt.Errorf("unknown command %q", command)
	}
}

func parseSource(name string) (orchestration.Source, error) {
	switch orchestration.Source(strings.ToLower(name)) {
	case orchestration.SourceVoice:
		return orchestration.SourceVoice, nil
	case orchestration.SourceText:
		return orchestration.SourceText, nil
	case orchestration.SourceLiveChat:
		return orchestration.SourceLiveChat, nil
	}
	return "", fmt.Errorf("unknown source %q", name)
}

func (h *Handler) formatStatus(status orchestration.Status) string {
	var b strings.Builder
	fmt.Fprintf(&b, "queue %d/%d (admin %d)",
		status.Queue.Size, status.Queue.MaxSize, status.Queue.AdminSize)
	fmt.Fprintf(&b, ", pipeline %s", status.Pipeline.Stage)
	fmt.Fprintf(&b, ", done %d aborted %d", status.Pipeline.Completed, status.Pipeline.Aborted)
	if status.Pipeline.LastDuration > 0 {
		fmt.Fprintf(&b, ", last %s", status.Pipeline.LastDuration.Round(time.Millisecond))
	}
	if h.approvals != nil {
		fmt.Fprintf(&b, ", awaiting approval %d", len(h.approvals.Pending()))
	}
	for _, conn := range status.Connections {
		fmt.Fprintf(&b, ", %s %s", conn.Link, conn.State)
	}
	return b.String()
}

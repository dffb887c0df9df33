// Package console renders a terminal dashboard for the running orchestrator:
// live queue and connection status, an event log, and a command prompt.
package console

import (
	"fmt"
	"strings"
	"time"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/Vioneyy/AI-VTuber-demo/core/events"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const maxLogLines = 200

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	retryingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
)

// eventMsg carries one orchestration event into the tea loop.
type eventMsg struct{ event events.Event }

// tickMsg refreshes the status header once a second.
type tickMsg time.Time

// commandResultMsg is the outcome of an operator command.
type commandResultMsg struct {
	command string
	result  string
	err     error
}

// Model is the console's tea model. Create it with New and hand it to
// tea.NewProgram.
type Model struct {
	status  func() orchestration.Status
	execute func(command string) (string, error)
	events  <-chan events.Event

	input    textinput.Model
	log      []string
	latest   orchestration.Status
	width    int
	quitting bool
}

// New builds the console around the orchestrator's status and command
// surfaces. The events channel feeds the log; close it to stop the event
// stream without quitting the console.
func New(
	status func() orchestration.Status,
	execute func(command string) (string, error),
	eventStream <-chan events.Event,
) Model {
	input := textinput.New()
	input.Placeholder = "type a message, or !status / !clear / !mute <source>"
	input.Prompt = promptStyle.Render("> ")
	input.Focus()

	return Model{
		status:  status,
		execute: execute,
		events:  eventStream,
		input:   input,
		width:   80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvent(m.events), tick())
}

func waitForEvent(eventStream <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-eventStream
		if !ok {
			return nil
		}
		return eventMsg{event: event}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			command := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if command == "" {
				return m, nil
			}
			return m, runCommand(m.execute, command)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tickMsg:
		m.latest = m.status()
		return m, tick()

	case eventMsg:
		m = m.appendLog(formatEvent(msg.event))
		return m, waitForEvent(m.events)

	case commandResultMsg:
		if msg.err != nil {
			m = m.appendLog(errorStyle.Render(fmt.Sprintf("%s failed: %v", msg.command, msg.err)))
		} else {
			m = m.appendLog(msg.result)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func runCommand(execute func(string) (string, error), command string) tea.Cmd {
	return func() tea.Msg {
		result, err := execute(command)
		return commandResultMsg{command: command, result: result, err: err}
	}
}

func (m Model) appendLog(line string) Model {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
	return m
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("AI VTuber"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(formatStatusLine(m.latest)))
	b.WriteString("\n")
	for _, conn := range m.latest.Connections {
		b.WriteString(formatConnection(conn))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	visible := m.log
	if len(visible) > 12 {
		visible = visible[len(visible)-12:]
	}
	for _, line := range visible {
		b.WriteString(wordwrap.String(line, m.width))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func formatStatusLine(status orchestration.Status) string {
	if !status.Running {
		return "stopped"
	}
	return fmt.Sprintf("queue %d/%d  stage %s  done %d  aborted %d",
		status.Queue.Size, status.Queue.MaxSize,
		status.Pipeline.Stage,
		status.Pipeline.Completed, status.Pipeline.Aborted)
}

func formatConnection(conn orchestration.ConnectionStatus) string {
	label := fmt.Sprintf("%s: %s", conn.Link, conn.State)
	switch conn.State {
	case orchestration.ConnectionConnected:
		return connectedStyle.Render(label)
	case orchestration.ConnectionRetrying:
		if conn.LastError != "" {
			label += " (" + conn.LastError + ")"
		}
		return retryingStyle.Render(fmt.Sprintf("%s, attempt %d", label, conn.RetryCount))
	default:
		return statusStyle.Render(label)
	}
}

func formatEvent(event events.Event) string {
	timestamp := event.Timestamp().Format("15:04:05")

	switch typedEvent := event.(type) {
	case events.QueueItemAccepted:
		return fmt.Sprintf("%s queued %s message (%s), queue at %d",
			timestamp, typedEvent.Source, typedEvent.Priority, typedEvent.QueueSize)
	case events.QueueItemRejected:
		return fmt.Sprintf("%s rejected %s message: %s",
			timestamp, typedEvent.Source, typedEvent.Reason)
	case events.QueueItemEvicted:
		return fmt.Sprintf("%s evicted a %s message for admin work",
			timestamp, typedEvent.Source)
	case events.ResponseFinal:
		return fmt.Sprintf("%s reply: %s", timestamp, typedEvent.Text)
	case events.ResponseSuppressed:
		return fmt.Sprintf("%s reply suppressed: %s", timestamp, typedEvent.Reason)
	case events.PipelineItemAborted:
		return errorStyle.Render(fmt.Sprintf("%s item aborted during %s: %s",
			timestamp, typedEvent.Stage, typedEvent.Reason))
	case events.ConnectionStateChanged:
		return fmt.Sprintf("%s %s is %s", timestamp, typedEvent.Link, typedEvent.State)
	default:
		return fmt.Sprintf("%s %s", timestamp, event.Kind())
	}
}

// Package chathost exposes a websocket endpoint for chat and voice clients.
//
// Chat clients send JSON messages; a voice client streams binary PCM frames
// that are transcribed into voice submissions. Feedback flows back to the
// originating client over the same connection.
package chathost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/Vioneyy/AI-VTuber-demo/core/speechtotext/deepgram"
	"github.com/gorilla/websocket"
)

// Submitter is the slice of the orchestrator the host feeds.
type Submitter interface {
	Submit(sub orchestration.Submission) (orchestration.QueueItem, error)
}

// CommandHandler executes operator commands arriving through chat.
type CommandHandler interface {
	IsCommand(text string) bool
	Execute(text string) (string, error)
}

// VoiceTranscriber turns streamed PCM into utterance transcripts.
type VoiceTranscriber interface {
	Start(ctx context.Context, callbacks deepgram.TranscriptionCallbacks) error
	SendAudio(pcm []byte) error
	Stop() error
}

type inboundMessage struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Text     string `json:"text"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Server hosts the websocket endpoint. It implements the orchestrator's
// adapter and feedback contracts.
type Server struct {
	addr        string
	submitter   Submitter
	commands    CommandHandler
	adminIDs    []string
	transcriber VoiceTranscriber
	voiceUserID string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]string

	// writeMu serializes writes; gorilla allows one concurrent writer per
	// connection and feedback arrives from the pipeline goroutine.
	writeMu sync.Mutex

	stopOnce sync.Once
	stopped  chan struct{}
	httpSrv  *http.Server
}

type Option func(*Server)

// WithCommandHandler enables operator commands for the given admin
// identities. Commands from anyone else are queued as ordinary messages.
func WithCommandHandler(handler CommandHandler, adminIDs ...string) Option {
	return func(s *Server) {
		s.commands = handler
		s.adminIDs = adminIDs
	}
}

// WithVoiceTranscriber enables binary voice frames. Transcripts are
// submitted under the given user identity.
func WithVoiceTranscriber(transcriber VoiceTranscriber, voiceUserID string) Option {
	return func(s *Server) {
		s.transcriber = transcriber
		s.voiceUserID = voiceUserID
	}
}

func NewServer(addr string, submitter Submitter, opts ...Option) *Server {
	s := &Server{
		addr:      addr,
		submitter: submitter,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		clients:   map[*websocket.Conn]string{},
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start serves the websocket endpoint until Stop is called or ctx is
// cancelled. It blocks, which lets a connection supervisor restart the host
// after a listener failure.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebsocket)

	httpSrv := &http.Server{
		Addr:    s.addr,
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	s.mu.Lock()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	if s.transcriber != nil {
		err := s.transcriber.Start(ctx, deepgram.TranscriptionCallbacks{
			OnTranscript: func(transcript string) {
				s.submit(orchestration.Submission{
					Content: transcript,
					Source:  orchestration.SourceVoice,
					UserID:  s.voiceUserID,
				}, nil)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to start voice transcription: %w", err)
		}
		defer func() {
			if err := s.transcriber.Stop(); err != nil {
				logger.Warn("failed to stop voice transcription", "error", err)
			}
		}()
	}

	shutdownHook := make(chan struct{})
	defer close(shutdownHook)
	go func() {
		select {
		case <-ctx.Done():
		case <-s.stopped:
		case <-shutdownHook:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("chat host listening", "addr", s.addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("chat host failed: %w", err)
	}
	return nil
}

// Stop shuts the listener down. Idempotent.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() { close(s.stopped) })
	return nil
}

// SendFeedback delivers a message to every connection the user currently
// has open.
func (s *Server) SendFeedback(_ context.Context, userID string, message string) error {
	s.mu.Lock()
	var conns []*websocket.Conn
	for conn, id := range s.clients {
		if id == userID {
			conns = append(conns, conn)
		}
	}
	s.mu.Unlock()

	if len(conns) == 0 {
		return fmt.Errorf("no open connection for user %s", userID)
	}

	out := outboundMessage{Type: "feedback", Message: message}
	var errs []error
	for _, conn := range conns {
		if err := s.writeJSON(conn, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = ""
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("client connection dropped", "error", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if s.transcriber == nil {
				continue
			}
			if err := s.transcriber.SendAudio(msg); err != nil {
				logger.Warn("failed to forward voice audio", "error", err)
			}
		case websocket.TextMessage:
			s.handleTextMessage(conn, msg)
		}
	}
}

func (s *Server) handleTextMessage(conn *websocket.Conn, msg []byte) {
	var inbound inboundMessage
	if err := json.Unmarshal(msg, &inbound); err != nil {
		logger.Warn("failed to unmarshal client message", "error", err)
		return
	}

	if inbound.UserID != "" {
		s.mu.Lock()
		s.clients[conn] = inbound.UserID
		s.mu.Unlock()
	}

	switch inbound.Type {
	case "chat":
		s.handleChat(conn, inbound)
	default:
		logger.Warn("unknown client message type", "type", inbound.Type)
	}
}

func (s *Server) handleChat(conn *websocket.Conn, inbound inboundMessage) {
	if s.commands != nil && s.commands.IsCommand(inbound.Text) && slices.Contains(s.adminIDs, inbound.UserID) {
		result, err := s.commands.Execute(inbound.Text)
		if err != nil {
			result = "command failed: " + err.Error()
		}
		if err := s.writeJSON(conn, outboundMessage{Type: "command_result", Message: result}); err != nil {
			logger.Warn("failed to send command result", "error", err)
		}
		return
	}

	s.submit(orchestration.Submission{
		Content:  inbound.Text,
		Source:   orchestration.SourceLiveChat,
		UserID:   inbound.UserID,
		UserName: inbound.UserName,
	}, conn)
}

// submit offers a message to the queue and relays rejections back to the
// sender when the connection is known.
func (s *Server) submit(sub orchestration.Submission, conn *websocket.Conn) {
	if _, err := s.submitter.Submit(sub); err != nil {
		logger.Info("submission rejected", "source", sub.Source, "user", sub.UserID, "error", err)
		if conn == nil {
			return
		}
		out := outboundMessage{Type: "rejected", Message: rejectionMessage(err)}
		if writeErr := s.writeJSON(conn, out); writeErr != nil {
			logger.Warn("failed to send rejection notice", "error", writeErr)
		}
	}
}

func (s *Server) writeJSON(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, orchestration.ErrQueueFull):
		return "The queue is full right now, please try again in a moment."
	case errors.Is(err, orchestration.ErrSourceDisabled):
		return "Messages from this source are currently muted."
	case errors.Is(err, orchestration.ErrQueueStopped), errors.Is(err, orchestration.ErrNotRunning):
		return "The stream is shutting down."
	default:
		return "Your message could not be queued."
	}
}

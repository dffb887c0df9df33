package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Vioneyy/AI-VTuber-demo/core/audio"
	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
)

const keepAliveInterval = 5 * time.Second

// TranscriptionCallbacks receive transcription results. Only OnTranscript is
// required; it fires once per finished utterance with the full accumulated
// text.
type TranscriptionCallbacks struct {
	OnTranscript     func(transcript string)
	OnSpeechStarted  func()
	OnInterimUpdated func(transcript string)
}

// Transcriber streams linear16 PCM to Deepgram's listen websocket and turns
// the interim and final results into utterance-level transcripts. One
// Transcriber handles one audio stream at a time.
type Transcriber struct {
	apiKey     string
	sampleRate int

	connMu    sync.Mutex
	conn      *websocket.Conn
	lastMsgTs time.Time

	callbacks             TranscriptionCallbacks
	accumulatedTranscript string
	unendedSegment        bool
}

type TranscriberOption func(*Transcriber)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) TranscriberOption {
	return func(t *Transcriber) { t.apiKey = apiKey }
}

func WithSampleRate(sampleRate int) TranscriberOption {
	return func(t *Transcriber) { t.sampleRate = sampleRate }
}

func NewTranscriber(opts ...TranscriberOption) (*Transcriber, error) {
	t := &Transcriber{sampleRate: audio.DefaultSampleRate}
	for _, opt := range opts {
		opt(t)
	}

	if t.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		t.apiKey = apiKey
	}

	return t, nil
}

// Start opens the listen websocket and begins processing results. It returns
// once the connection is up; results arrive on the callbacks until Stop is
// called or ctx is cancelled.
func (t *Transcriber) Start(ctx context.Context, callbacks TranscriptionCallbacks) error {
	listenUrl, _ := url.Parse("wss://api.deepgram.com/v1/listen")
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", audio.DefaultFormat)
	queryParams.Set("sample_rate", strconv.Itoa(t.sampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", "nova-3")
	queryParams.Set("language", "en-US")
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("endpointing", "300")
	queryParams.Set("vad_events", "true")
	listenUrl.RawQuery = queryParams.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, listenUrl.String(),
		http.Header{"Authorization": {"Token " + t.apiKey}})
	if err != nil {
		return fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.lastMsgTs = time.Now()
	t.callbacks = callbacks
	t.accumulatedTranscript = ""
	t.unendedSegment = false
	t.connMu.Unlock()

	go t.readAndProcessMessages(ctx, conn)

	return nil
}

// SendAudio forwards one PCM chunk to the open stream.
func (t *Transcriber) SendAudio(pcm []byte) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return fmt.Errorf("transcription stream not open")
	}

	t.lastMsgTs = time.Now()
	if err := t.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("failed to write to deepgram client: %w", err)
	}
	return nil
}

// Stop asks Deepgram to finalize and close the stream.
func (t *Transcriber) Stop() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil
	}
	if err := t.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		return fmt.Errorf("failed to close deepgram stream through websocket: %w", err)
	}
	return nil
}

func (t *Transcriber) sendKeepAlive() {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return
	}
	if err := t.conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: "KeepAlive"}); err != nil {
		logger.Warn("failed to send keepalive to deepgram", "error", err)
	}
}

func (t *Transcriber) readAndProcessMessages(ctx context.Context, conn *websocket.Conn) {
	keepAliveCtx, keepAliveCancel := context.WithCancel(ctx)
	defer keepAliveCancel()
	go t.keepAlive(keepAliveCtx)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("failed to read deepgram websocket message", "error", err)
			}

			t.connMu.Lock()
			t.conn = nil
			t.connMu.Unlock()
			conn.Close()
			return
		}
		if msgType != websocket.BinaryMessage {
			t.processMessage(msg)
		}
	}
}

// keepAlive keeps the stream open through pauses. Deepgram drops the
// connection after roughly ten seconds without traffic.
func (t *Transcriber) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.connMu.Lock()
			idle := time.Since(t.lastMsgTs) >= keepAliveInterval
			t.connMu.Unlock()
			if idle {
				t.sendKeepAlive()
			}
		}
	}
}

func (t *Transcriber) processMessage(msg []byte) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		logger.Warn("failed to unmarshal deepgram message", "error", err)
		return
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			logger.Warn("failed to unmarshal deepgram transcript message", "error", err)
			return
		}
		t.processTranscript(msgResp)

	case api.TypeUtteranceEndResponse:
		if t.unendedSegment {
			t.finishUtterance()
		}

	case api.TypeSpeechStartedResponse:
		t.unendedSegment = true
		if t.callbacks.OnSpeechStarted != nil {
			t.callbacks.OnSpeechStarted()
		}
	}
}

func (t *Transcriber) processTranscript(msgResp api.MessageResponse) {
	if len(msgResp.Channel.Alternatives) == 0 {
		return
	}
	transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)

	if msgResp.IsFinal {
		if len(transcript) > 0 {
			t.accumulatedTranscript += " " + transcript
		}
		if msgResp.SpeechFinal {
			t.finishUtterance()
		}
		return
	}

	if len(transcript) > 0 && t.callbacks.OnInterimUpdated != nil {
		t.callbacks.OnInterimUpdated(strings.TrimSpace(t.accumulatedTranscript + " " + transcript))
	}
}

func (t *Transcriber) finishUtterance() {
	t.unendedSegment = false
	fullTranscript := strings.TrimSpace(t.accumulatedTranscript)
	t.accumulatedTranscript = ""
	if len(fullTranscript) > 0 && t.callbacks.OnTranscript != nil {
		t.callbacks.OnTranscript(fullTranscript)
	}
}

package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/Vioneyy/AI-VTuber-demo/core/audio"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Synthesizer turns text into linear16 PCM audio through Deepgram's speak
// websocket. Each Synthesize call opens its own connection; there is no
// shared state between calls, so the synthesizer is safe for use from the
// pipeline without extra locking.
type Synthesizer struct {
	apiKey     string
	voice      Voice
	sampleRate int
}

type SynthesizerOption func(*Synthesizer)

// WithAPIKey overrides the DEEPGRAM_API_KEY environment variable.
func WithAPIKey(apiKey string) SynthesizerOption {
	return func(s *Synthesizer) { s.apiKey = apiKey }
}

func WithVoice(voice Voice) SynthesizerOption {
	return func(s *Synthesizer) { s.voice = voice }
}

func WithSampleRate(sampleRate int) SynthesizerOption {
	return func(s *Synthesizer) { s.sampleRate = sampleRate }
}

func NewSynthesizer(opts ...SynthesizerOption) (*Synthesizer, error) {
	s := &Synthesizer{
		voice:      defaultVoice,
		sampleRate: audio.DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.apiKey == "" {
		apiKey, ok := os.LookupEnv("DEEPGRAM_API_KEY")
		if !ok {
			return nil, fmt.Errorf("deepgram api key not found")
		}
		s.apiKey = apiKey
	}

	if !slices.Contains(AvailableVoices(), s.voice) {
		return nil, fmt.Errorf("invalid voice %q", s.voice)
	}

	return s, nil
}

type websocketMessage struct {
	Type string `json:"type"`
}

type speakMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	closeMsg = websocketMessage{Type: "Close"}
)

// Synthesize sends text over a fresh speak websocket and collects audio
// frames until Deepgram confirms the flush. The returned clip uses the
// synthesizer's configured sample rate.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (audio.Clip, error) {
	ctx, span := tracer.Start(ctx, "synthesize speech")
	span.SetAttributes(
		attribute.String("voice", string(s.voice)),
		attribute.Int("text_length", len(text)),
	)
	defer span.End()

	if text == "" {
		return audio.Clip{}, nil
	}

	conn, err := s.dial(ctx)
	if err != nil {
		recordedErr := fmt.Errorf("failed to open speak websocket: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return audio.Clip{}, recordedErr
	}

	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { _ = conn.Close() }) }
	defer closeConn()

	cancelHook := make(chan struct{})
	defer close(cancelHook)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-cancelHook:
		}
	}()

	if err := conn.WriteJSON(speakMessage{Type: "Speak", Text: text}); err != nil {
		return audio.Clip{}, fmt.Errorf("failed to send text to deepgram: %w", err)
	}
	if err := conn.WriteJSON(flushMsg); err != nil {
		return audio.Clip{}, fmt.Errorf("failed to flush deepgram buffer: %w", err)
	}

	pcm, err := collectAudio(conn)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		recordedErr := fmt.Errorf("failed to receive synthesized audio: %w", err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return audio.Clip{}, recordedErr
	}

	if err := conn.WriteJSON(closeMsg); err != nil {
		logger.Warn("failed to send close message to deepgram", "error", err)
	}

	return audio.ClipFromPCM16(pcm, s.sampleRate), nil
}

func (s *Synthesizer) dial(ctx context.Context) (*websocket.Conn, error) {
	urlValues := url.Values{}
	urlValues.Set("encoding", audio.DefaultFormat)
	urlValues.Set("sample_rate", strconv.Itoa(s.sampleRate))
	urlValues.Set("model", string(s.voice))
	urlValues.Set("container", "none")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx,
		(&url.URL{
			Scheme: "wss",
			Host:   "api.deepgram.com", Path: "/v1/speak",
			RawQuery: urlValues.Encode(),
		}).String(),
		http.Header{"Authorization": {"token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}

	return conn, nil
}

// collectAudio reads frames until the flush confirmation arrives. Binary
// frames carry PCM; text frames carry control messages.
func collectAudio(conn *websocket.Conn) ([]byte, error) {
	var pcm bytes.Buffer
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("websocket read failed: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			pcm.Write(msg)
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				logger.Warn("failed to unmarshal deepgram message", "error", err)
				continue
			}

			switch parsedMsg.Type {
			case "Flushed":
				return pcm.Bytes(), nil
			case "Warning":
				logger.Warn("deepgram reported a warning", "message", string(msg))
			}
		}
	}
}

// Package oto plays processed clips on the local audio device.
package oto

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Vioneyy/AI-VTuber-demo/core/audio"
	"github.com/ebitengine/oto/v3"
)

// Sink owns one audio device context. The device is opened lazily on the
// first Play call because oto contexts cannot be re-created per clip.
type Sink struct {
	sampleRate int

	mu  sync.Mutex
	ctx *oto.Context
}

type Option func(*Sink)

func WithSampleRate(sampleRate int) Option {
	return func(s *Sink) { s.sampleRate = sampleRate }
}

func NewSink(opts ...Option) *Sink {
	s := &Sink{sampleRate: audio.DefaultSampleRate}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) deviceContext() (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return s.ctx, nil
	}

	ctx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   s.sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-readyChan

	s.ctx = ctx
	return ctx, nil
}

// Play blocks until the whole clip has been played or ctx is cancelled.
// Cancellation stops playback mid-clip; the pipeline decides whether to pass
// a cancellable context here.
func (s *Sink) Play(ctx context.Context, clip audio.Clip) error {
	if clip.IsZero() {
		return nil
	}

	deviceCtx, err := s.deviceContext()
	if err != nil {
		return err
	}

	if clip.SampleRate != s.sampleRate {
		logger.Warn("clip sample rate differs from device",
			"clip_rate", clip.SampleRate, "device_rate", s.sampleRate)
	}

	player := deviceCtx.NewPlayer(bytes.NewReader(clip.PCM16()))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

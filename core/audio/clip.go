package audio

import "time"

// Clip is a mono audio buffer in normalized floating point, the interchange
// format between synthesis, post-processing and playback.
type Clip struct {
	Samples    []float64
	SampleRate int
}

func (c Clip) IsZero() bool {
	return len(c.Samples) == 0 || c.SampleRate <= 0
}

func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.SampleRate) * float64(time.Second))
}

// ClipFromPCM16 converts little-endian 16-bit signed PCM into a Clip.
func ClipFromPCM16(pcm []byte, sampleRate int) Clip {
	samples := make([]float64, len(pcm)/2)
	for i := range samples {
		v := int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
		samples[i] = float64(v) / 32768.0
	}
	return Clip{Samples: samples, SampleRate: sampleRate}
}

// PCM16 converts the clip back to little-endian 16-bit signed PCM, clamping
// out-of-range samples instead of wrapping.
func (c Clip) PCM16() []byte {
	pcm := make([]byte, len(c.Samples)*2)
	for i, s := range c.Samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		v := int16(s * 32767.0)
		pcm[2*i] = byte(uint16(v))
		pcm[2*i+1] = byte(uint16(v) >> 8)
	}
	return pcm
}

package audio

import (
	"fmt"
	"math"
)

// peakTarget leaves headroom against clipping in downstream resamplers and
// device buffers.
const peakTarget = 0.95

// PostProcess returns a cleaned copy of the clip, ready for playback: the DC
// offset is removed and the buffer is peak-normalized to 95% of full scale.
// Removing the offset first keeps the mean at zero after scaling.
//
// The input is never mutated. The only failure mode is non-finite input.
func PostProcess(clip Clip) (Clip, error) {
	for i, s := range clip.Samples {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return Clip{}, fmt.Errorf("non-finite sample at index %d", i)
		}
	}

	samples := make([]float64, len(clip.Samples))
	copy(samples, clip.Samples)

	if len(samples) > 0 {
		mean := 0.0
		for _, s := range samples {
			mean += s
		}
		mean /= float64(len(samples))
		for i := range samples {
			samples[i] -= mean
		}
	}

	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		scale := peakTarget / peak
		for i := range samples {
			samples[i] *= scale
		}
	}

	return Clip{Samples: samples, SampleRate: clip.SampleRate}, nil
}

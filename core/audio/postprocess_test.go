package audio

import (
	"math"
	"testing"
)

const tolerance = 1e-9

func TestPostProcessNormalizesPeakAndMean(t *testing.T) {
	clip := Clip{Samples: []float64{0.1, -0.4, 0.2}, SampleRate: 48000}

	processed, err := PostProcess(clip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	peak := 0.0
	mean := 0.0
	for _, s := range processed.Samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
		mean += s
	}
	mean /= float64(len(processed.Samples))

	if math.Abs(peak-0.95) > tolerance {
		t.Fatalf("expected peak 0.95, got %v", peak)
	}
	if math.Abs(mean) > tolerance {
		t.Fatalf("expected zero mean, got %v", mean)
	}
	if processed.SampleRate != clip.SampleRate {
		t.Fatalf("expected sample rate to pass through, got %d", processed.SampleRate)
	}
}

func TestPostProcessDoesNotMutateInput(t *testing.T) {
	clip := Clip{Samples: []float64{0.1, -0.4, 0.2}, SampleRate: 48000}

	if _, err := PostProcess(clip); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if clip.Samples[0] != 0.1 || clip.Samples[1] != -0.4 || clip.Samples[2] != 0.2 {
		t.Fatalf("input buffer was mutated: %v", clip.Samples)
	}
}

func TestPostProcessSilenceStaysSilent(t *testing.T) {
	clip := Clip{Samples: []float64{0, 0, 0, 0}, SampleRate: 48000}

	processed, err := PostProcess(clip)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range processed.Samples {
		if s != 0 {
			t.Fatalf("expected silence to stay silent, sample %d is %v", i, s)
		}
	}
}

func TestPostProcessEmptyBuffer(t *testing.T) {
	processed, err := PostProcess(Clip{SampleRate: 48000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(processed.Samples) != 0 {
		t.Fatalf("expected empty output, got %d samples", len(processed.Samples))
	}
}

func TestPostProcessRejectsNonFiniteInput(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		clip := Clip{Samples: []float64{0.1, bad, 0.2}, SampleRate: 48000}
		if _, err := PostProcess(clip); err == nil {
			t.Fatalf("expected error for sample %v", bad)
		}
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	clip := Clip{Samples: []float64{0, 0.5, -0.5, 0.25}, SampleRate: 48000}

	back := ClipFromPCM16(clip.PCM16(), clip.SampleRate)
	if len(back.Samples) != len(clip.Samples) {
		t.Fatalf("expected %d samples, got %d", len(clip.Samples), len(back.Samples))
	}
	for i := range clip.Samples {
		if math.Abs(back.Samples[i]-clip.Samples[i]) > 1.0/32768.0 {
			t.Fatalf("sample %d drifted: %v -> %v", i, clip.Samples[i], back.Samples[i])
		}
	}
}

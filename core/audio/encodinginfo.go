package audio

// Encoding shared by the speech services and the playback device. Everything
// downstream assumes mono linear16 at this rate.
const (
	DefaultSampleRate = 48000
	DefaultFormat     = "linear16"
)

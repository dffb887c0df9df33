package deepgram

// Voice identifies a Deepgram Aura voice model.
type Voice string

const (
	VoiceAsteriaEN Voice = "aura-asteria-en"
	VoiceLunaEN    Voice = "aura-luna-en"
	VoiceStellaEN  Voice = "aura-stella-en"
	VoiceAthenaEN  Voice = "aura-athena-en"
	VoiceHeraEN    Voice = "aura-hera-en"
	VoiceOrionEN   Voice = "aura-orion-en"
	VoiceArcasEN   Voice = "aura-arcas-en"
	VoicePerseusEN Voice = "aura-perseus-en"
)

const defaultVoice = VoiceAsteriaEN

// AvailableVoices lists the voices the synthesizer accepts.
func AvailableVoices() []Voice {
	return []Voice{
		VoiceAsteriaEN,
		VoiceLunaEN,
		VoiceStellaEN,
		VoiceAthenaEN,
		VoiceHeraEN,
		VoiceOrionEN,
		VoiceArcasEN,
		VoicePerseusEN,
	}
}

package deepgram

import (
	"fmt"
	"testing"
)

func transcriptMessage(t *testing.T, transcript string, isFinal, speechFinal bool) []byte {
	t.Helper()

	return fmt.Appendf(nil,
		`{"type":"Results","is_final":%t,"speech_final":%t,"channel":{"alternatives":[{"transcript":%q}]}}`,
		isFinal, speechFinal, transcript)
}

func TestFinalSegmentsAccumulateIntoOneUtterance(t *testing.T) {
	var utterances []string
	transcriber := &Transcriber{callbacks: TranscriptionCallbacks{
		OnTranscript: func(transcript string) { utterances = append(utterances, transcript) },
	}}

	transcriber.processMessage(transcriptMessage(t, "hello", true, false))
	transcriber.processMessage(transcriptMessage(t, "there viewers", true, true))

	if len(utterances) != 1 {
		t.Fatalf("expected one utterance, got %d", len(utterances))
	}
	if utterances[0] != "hello there viewers" {
		t.Fatalf("expected accumulated utterance, got %q", utterances[0])
	}
}

func TestInterimResultsDoNotProduceUtterances(t *testing.T) {
	var utterances []string
	var interims []string
	transcriber := &Transcriber{callbacks: TranscriptionCallbacks{
		OnTranscript:     func(transcript string) { utterances = append(utterances, transcript) },
		OnInterimUpdated: func(transcript string) { interims = append(interims, transcript) },
	}}

	transcriber.processMessage(transcriptMessage(t, "hel", false, false))
	transcriber.processMessage(transcriptMessage(t, "hello", false, false))

	if len(utterances) != 0 {
		t.Fatalf("expected no utterances from interim results, got %d", len(utterances))
	}
	if len(interims) != 2 {
		t.Fatalf("expected interim updates, got %d", len(interims))
	}
	if interims[1] != "hello" {
		t.Fatalf("expected latest interim text, got %q", interims[1])
	}
}

func TestUtteranceEndFlushesUnendedSegment(t *testing.T) {
	var utterances []string
	transcriber := &Transcriber{callbacks: TranscriptionCallbacks{
		OnTranscript: func(transcript string) { utterances = append(utterances, transcript) },
	}}

	transcriber.processMessage([]byte(`{"type":"SpeechStarted"}`))
	transcriber.processMessage(transcriptMessage(t, "trailing words", true, false))
	transcriber.processMessage([]byte(`{"type":"UtteranceEnd"}`))

	if len(utterances) != 1 || utterances[0] != "trailing words" {
		t.Fatalf("expected the unended segment flushed, got %v", utterances)
	}
}

func TestEmptyFinalSegmentsAreIgnored(t *testing.T) {
	var utterances []string
	transcriber := &Transcriber{callbacks: TranscriptionCallbacks{
		OnTranscript: func(transcript string) { utterances = append(utterances, transcript) },
	}}

	transcriber.processMessage(transcriptMessage(t, "  ", true, true))

	if len(utterances) != 0 {
		t.Fatalf("expected no utterance from whitespace transcript, got %v", utterances)
	}
}

func TestSpeechStartedTriggersCallback(t *testing.T) {
	started := 0
	transcriber := &Transcriber{callbacks: TranscriptionCallbacks{
		OnSpeechStarted: func() { started++ },
	}}

	transcriber.processMessage([]byte(`{"type":"SpeechStarted"}`))

	if started != 1 {
		t.Fatalf("expected speech started callback once, got %d", started)
	}
}

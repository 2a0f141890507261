package stt

import (
	"strings"
	"time"
)

// Transcript is the result of a single Transcribe call.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the
	// provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when available (Deepgram).
	Words []WordDetail

	// Provider names the backend that produced the transcript. Set by the
	// fallback group and the answer pipeline for the check journal.
	Provider string

	// Duration is the length of the recognised audio.
	Duration time.Duration
}

// Empty reports whether the transcript contains no non-space text.
func (t Transcript) Empty() bool { return strings.TrimSpace(t.Text) == "" }

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// KeywordBoost is a keyword to boost in recognition.
type KeywordBoost struct {
	// Keyword is the text to boost (e.g., "apple").
	Keyword string

	// Boost is the intensity of the boost (provider-specific scale).
	Boost float64
}

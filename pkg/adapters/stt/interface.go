package stt

import (
	"context"
	"time"
)

// Segment is one timestamped span of transcribed speech.
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// Transcriber defines the contract for speech-to-text providers.
// Transcription operates on complete utterances, not partial streams.
type Transcriber interface {
	// Name returns the provider name for logging/metrics.
	Name() string
	// Transcribe converts a complete mono utterance into timestamped
	// segments. An empty slice means no speech was recognized.
	Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]Segment, error)
	// Close releases provider resources.
	Close() error
}

// Text joins segment texts with single spaces.
func Text(segments []Segment) string {
	out := ""
	for i, seg := range segments {
		if i > 0 {
			out += " "
		}
		out += seg.Text
	}
	return out
}

package synth

import "context"

// Stream is a lazy, finite, one-shot sequence of synthesized audio chunks.
// Next returns io.EOF after the final chunk. A stream may only be consumed
// once; Close abandons any chunks not yet pulled.
type Stream interface {
	// Next returns the next chunk of mono samples, or io.EOF when the
	// stream is exhausted.
	Next(ctx context.Context) ([]float32, error)
	// Close abandons the stream and releases its resources.
	Close() error
}

// Synthesizer defines the contract for text-to-speech providers.
type Synthesizer interface {
	// Name returns the provider name for logging/metrics.
	Name() string
	// Synthesize starts generating audio for text and returns a stream of
	// chunks as they become available.
	Synthesize(ctx context.Context, text string) (Stream, error)
	// SampleRate returns the sample rate of generated audio.
	SampleRate() int
	// Close releases provider resources.
	Close() error
}

package wake

// Model defines the contract for any wake-word model implementation.
// The model is a stateful session: it must be fed every chunk in capture
// order, even while its result is not being consulted, or its internal
// activation goes stale and re-triggers spuriously.
type Model interface {
	// Name returns the model name for logging/metrics.
	Name() string
	// Predict scores one chunk of exactly ChunkSize samples at SampleRate.
	Predict(chunk []float32) (float32, error)
	// ChunkSize returns the fixed chunk length the model accepts.
	ChunkSize() int
	// SampleRate returns the sample rate the model expects.
	SampleRate() int
	// Reset clears accumulated activation state.
	Reset()
	// Close releases model resources.
	Close() error
}

// Config contains model-agnostic wake-word configuration.
type Config struct {
	Phrase    string
	Threshold float32
}

package vad

// Model defines the contract for voice activity detection models.
type Model interface {
	// Name returns the model name for logging/metrics.
	Name() string
	// Predict returns the speech probability in [0, 1] for one chunk of
	// exactly ChunkSize samples at SampleRate.
	Predict(chunk []float32) (float32, error)
	// ChunkSize returns the fixed chunk length the model accepts.
	ChunkSize() int
	// SampleRate returns the sample rate the model expects.
	SampleRate() int
	// Reset clears the model's recurrent state between utterances.
	Reset()
	// Close releases model resources.
	Close() error
}

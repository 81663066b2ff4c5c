package speech

import (
	"time"

	"github.com/murmurlabs/murmur/pkg/adapters/vad"
)

// InProgress carries the audio and hysteresis state of an utterance being
// recorded. It is owned by exactly one pipeline state at a time and moves
// by value through transitions.
type InProgress struct {
	// Duration of speech accumulated since the wake word fired.
	Duration time.Duration
	// Samples accumulated so far, seeded with pre-roll audio.
	Samples []float32
	// Sliding window of recent chunk classifications, oldest first.
	// true means non-speech, false means speech.
	window []bool
}

// EndpointResult is the outcome of feeding chunks to the endpoint detector.
type EndpointResult struct {
	// Ended is true once the configured run of consecutive silent chunks
	// has been observed.
	Ended bool
	// State carries the updated in-progress utterance when Ended is false.
	State InProgress
	// Samples and Duration hold the finished utterance when Ended is true.
	// The silent chunk that completed the run is not included.
	Samples  []float32
	Duration time.Duration
}

// EndOfSpeechDetector declares the end of an utterance after a configured
// duration of consecutive non-speech chunks.
//
// The window tracks the chunks before the current one; the current chunk
// completes the run. During warm-up (window below capacity) non-speech
// markers are inserted at the front of the window while speech markers are
// appended at the back. Window order therefore differs from arrival order
// until capacity is reached. Normalizing this changes which exact silence
// pattern ends an utterance, so it stays as is.
type EndOfSpeechDetector struct {
	model         vad.Model
	threshold     float32
	chunkDuration time.Duration
	windowSize    int
}

// NewEndOfSpeechDetector builds a detector requiring silenceFor of
// consecutive non-speech before declaring an utterance over.
func NewEndOfSpeechDetector(model vad.Model, threshold float32, silenceFor time.Duration) *EndOfSpeechDetector {
	chunkDuration := time.Duration(model.ChunkSize()) * time.Second / time.Duration(model.SampleRate())
	silenceChunks := int((silenceFor + chunkDuration - 1) / chunkDuration)
	windowSize := silenceChunks - 1
	if windowSize < 0 {
		windowSize = 0
	}
	return &EndOfSpeechDetector{
		model:         model,
		threshold:     threshold,
		chunkDuration: chunkDuration,
		windowSize:    windowSize,
	}
}

// ChunkDuration returns the duration of one model chunk.
func (d *EndOfSpeechDetector) ChunkDuration() time.Duration {
	return d.chunkDuration
}

// ProcessChunks feeds each chunk through the VAD model and updates the
// utterance state. The utterance ends when the window is full of non-speech
// markers and another non-speech chunk arrives; that final chunk is excluded
// from the returned audio.
func (d *EndOfSpeechDetector) ProcessChunks(chunks [][]float32, state InProgress) (EndpointResult, error) {
	for _, chunk := range chunks {
		probability, err := d.model.Predict(chunk)
		if err != nil {
			return EndpointResult{}, err
		}

		if probability > d.threshold {
			// With a zero-capacity window the first non-speech chunk ends
			// the utterance on its own, so speech leaves no marker behind.
			if d.windowSize > 0 {
				if len(state.window) >= d.windowSize {
					state.window = state.window[1:]
				}
				state.window = append(state.window, false)
			}
			state.Samples = append(state.Samples, chunk...)
			state.Duration += d.chunkDuration
			continue
		}

		if len(state.window) >= d.windowSize {
			allNonSpeech := true
			for _, nonSpeech := range state.window {
				if !nonSpeech {
					allNonSpeech = false
					break
				}
			}
			if allNonSpeech {
				return EndpointResult{
					Ended:    true,
					Samples:  state.Samples,
					Duration: state.Duration,
				}, nil
			}
			if len(state.window) > 0 {
				state.window = state.window[1:]
			}
			state.window = append(state.window, true)
		} else {
			state.window = append([]bool{true}, state.window...)
		}
		state.Samples = append(state.Samples, chunk...)
		state.Duration += d.chunkDuration
	}

	return EndpointResult{State: state}, nil
}

// Reset clears the VAD model's recurrent state between utterances.
func (d *EndOfSpeechDetector) Reset() {
	d.model.Reset()
}

// seedInProgress starts a fresh utterance pre-seeded with the drained
// pre-roll audio.
func seedInProgress(preRoll []float32) InProgress {
	return InProgress{Samples: preRoll}
}

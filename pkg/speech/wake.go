package speech

import (
	"log/slog"

	"github.com/murmurlabs/murmur/pkg/adapters/wake"
	"github.com/murmurlabs/murmur/pkg/audio"
	"github.com/murmurlabs/murmur/pkg/logging"
)

// WakeWordDetector adapts incoming audio to a wake-word model's fixed
// chunk size and reports whether the wake phrase was heard.
//
// The detector must be fed every chunk of captured audio in order,
// including while an utterance is being recorded, so the model's internal
// activation decays naturally instead of firing again on stale state.
type WakeWordDetector struct {
	model     wake.Model
	threshold float32
	resampler *audio.Resampler
	logger    *slog.Logger
}

// NewWakeWordDetector wraps model with its own resampler from inputRate
// to the model's expected rate and chunk size.
func NewWakeWordDetector(model wake.Model, threshold float32, inputRate int) *WakeWordDetector {
	return &WakeWordDetector{
		model:     model,
		threshold: threshold,
		resampler: audio.NewResampler(inputRate, model.SampleRate(), model.ChunkSize()),
		logger:    logging.NewComponentLogger(nil, "wake"),
	}
}

// Detect feeds chunk through the model and reports whether any resulting
// model-sized chunk scored at or above the threshold. The model is always
// fed even when the caller ignores the result.
func (d *WakeWordDetector) Detect(chunk []float32) (bool, error) {
	detected := false
	for _, mc := range d.resampler.Resample(chunk) {
		score, err := d.model.Predict(mc)
		if err != nil {
			return false, err
		}
		if score >= d.threshold {
			d.logger.Debug("wake phrase detected", slog.Float64("score", float64(score)))
			detected = true
		}
	}
	return detected, nil
}

// Reset clears the model's activation state.
func (d *WakeWordDetector) Reset() {
	d.model.Reset()
}

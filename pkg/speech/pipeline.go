package speech

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/murmurlabs/murmur/pkg/audio"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/metrics"
)

// listenerState is the pipeline's current mode. Exactly one variant is
// live; transitions move the in-progress state by value, never sharing it.
type listenerState struct {
	listening  bool
	inProgress InProgress
}

// PipelineConfig carries the tunables of the speech pipeline.
type PipelineConfig struct {
	// InputRate is the capture device sample rate.
	InputRate int
	// WorkingRate is the rate the detectors and downstream consumers use.
	WorkingRate int
	// ChunkSize is the working chunk length in samples.
	ChunkSize int
	// PreRoll is how much audio before the wake word to keep.
	PreRoll time.Duration
}

// Pipeline turns raw captured audio into completed utterances. Process is
// called from a single feed goroutine, so it holds no locks of its own.
type Pipeline struct {
	state       listenerState
	resampler   *audio.Resampler
	rolling     *audio.RollingBuffer
	wake        *WakeWordDetector
	endpoint    *EndOfSpeechDetector
	emitter     *Emitter
	workingRate int
	logger      *slog.Logger
	observer    metrics.Observer
}

// NewPipeline wires the detectors together. The emitter is where completed
// utterances are delivered.
func NewPipeline(cfg PipelineConfig, wake *WakeWordDetector, endpoint *EndOfSpeechDetector, emitter *Emitter, observer metrics.Observer) *Pipeline {
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	chunkDuration := time.Duration(cfg.ChunkSize) * time.Second / time.Duration(cfg.WorkingRate)
	return &Pipeline{
		resampler:   audio.NewResampler(cfg.InputRate, cfg.WorkingRate, cfg.ChunkSize),
		rolling:     audio.NewRollingBuffer(cfg.PreRoll, chunkDuration),
		wake:        wake,
		endpoint:    endpoint,
		emitter:     emitter,
		workingRate: cfg.WorkingRate,
		logger:      logging.NewComponentLogger(nil, "pipeline"),
		observer:    observer,
	}
}

// Process consumes one raw capture buffer. The wake-word detector is fed
// on every call, in both modes, so its internal activation stays current;
// skipping it while recording makes it re-trigger instantly on stale state
// once idle listening resumes.
func (p *Pipeline) Process(raw []float32) error {
	chunks := p.resampler.Resample(raw)

	state := p.state
	p.state = listenerState{}

	if !state.listening {
		for _, chunk := range chunks {
			p.rolling.Push(chunk)
		}

		detected, err := p.wake.Detect(raw)
		if err != nil {
			p.state = state
			return err
		}
		if !detected {
			p.state = state
			return nil
		}

		p.logger.Info("wake phrase detected")
		p.observer.RecordEvent(metrics.MetricsEvent{Name: "speech.wake_detected", Value: 1})
		preRoll := p.rolling.DrainFlat()
		p.state = listenerState{
			listening:  true,
			inProgress: seedInProgress(preRoll),
		}
		return nil
	}

	if _, err := p.wake.Detect(raw); err != nil {
		p.state = state
		return err
	}

	result, err := p.endpoint.ProcessChunks(chunks, state.inProgress)
	if err != nil {
		p.state = state
		return err
	}
	if !result.Ended {
		p.state = listenerState{listening: true, inProgress: result.State}
		return nil
	}

	id := uuid.NewString()
	p.logger.Info("utterance complete",
		slog.String("utterance_id", id),
		slog.Duration("duration", result.Duration),
	)
	p.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "speech.utterance_seconds",
		Value: result.Duration.Seconds(),
	})
	p.endpoint.Reset()
	p.emitter.Emit(Event{
		UtteranceID: id,
		Samples:     result.Samples,
		SampleRate:  p.workingRate,
		Duration:    result.Duration,
	})
	return nil
}

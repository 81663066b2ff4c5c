package murmur

import (
	"context"
	"log/slog"
	"time"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/metrics"
	"github.com/murmurlabs/murmur/pkg/resilience"
	"github.com/murmurlabs/murmur/pkg/speech"
)

// Speaker plays a response through the synthesis subprocess. Satisfied
// by ttsbridge.Client.
type Speaker interface {
	GenerateAudio(text string) error
}

type WorkerConfig struct {
	WakePhrase string
	Fallback   string
	Retry      resilience.RetryPolicy
}

// TranscriptionWorker consumes utterance events one at a time:
// transcribe, clean, execute, speak. A failure anywhere in the chain
// speaks the fallback and moves on to the next utterance.
type TranscriptionWorker struct {
	cfg         WorkerConfig
	events      *speech.Emitter
	transcriber stt.Transcriber
	executor    Executor
	speaker     Speaker
	breaker     *resilience.CircuitBreaker
	logger      *slog.Logger
	observer    metrics.Observer
}

func NewTranscriptionWorker(
	cfg WorkerConfig,
	events *speech.Emitter,
	transcriber stt.Transcriber,
	executor Executor,
	speaker Speaker,
	breaker *resilience.CircuitBreaker,
	observer metrics.Observer,
) *TranscriptionWorker {
	if cfg.Fallback == "" {
		cfg.Fallback = "Something went wrong. Please try again."
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &TranscriptionWorker{
		cfg:         cfg,
		events:      events,
		transcriber: transcriber,
		executor:    executor,
		speaker:     speaker,
		breaker:     breaker,
		logger:      logging.NewComponentLogger(nil, "transcribe"),
		observer:    observer,
	}
}

// Run blocks until the event queue is closed and drained or ctx is
// cancelled.
func (w *TranscriptionWorker) Run(ctx context.Context) {
	for {
		ev, ok := w.events.Next()
		if !ok {
			return
		}
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, ev)
	}
}

func (w *TranscriptionWorker) handle(ctx context.Context, ev speech.Event) {
	log := w.logger.With(slog.String("utterance_id", ev.UtteranceID))

	if w.breaker != nil && !w.breaker.Allow() {
		log.Warn("transcription circuit open, skipping utterance")
		w.record("murmur.stt_circuit_open", 1)
		w.speak(log, w.cfg.Fallback)
		return
	}

	started := time.Now()
	var segments []stt.Segment
	err := w.cfg.Retry.DoContext(ctx, func() error {
		var attemptErr error
		segments, attemptErr = w.transcriber.Transcribe(ctx, ev.Samples, ev.SampleRate)
		return attemptErr
	})
	if err != nil {
		if w.breaker != nil {
			w.breaker.OnError()
		}
		log.Error("transcription failed", slog.Any("error", err))
		w.record("murmur.stt_failure", 1)
		w.speak(log, w.cfg.Fallback)
		return
	}
	if w.breaker != nil {
		w.breaker.OnSuccess()
	}
	w.record("murmur.stt_seconds", time.Since(started).Seconds())

	text := speech.CleanTranscript(stt.Text(segments), w.cfg.WakePhrase)
	if text == "" {
		log.Debug("empty transcript after cleaning")
		return
	}
	log.Info("command recognized", slog.String("text", text))

	response, err := w.executor.Execute(ctx, text)
	if err != nil {
		log.Error("command failed", slog.Any("error", err))
		w.speak(log, w.cfg.Fallback)
		return
	}
	w.record("murmur.command_handled", 1)
	if response != "" {
		w.speak(log, response)
	}
}

func (w *TranscriptionWorker) speak(log *slog.Logger, text string) {
	if w.speaker == nil {
		return
	}
	if err := w.speaker.GenerateAudio(text); err != nil {
		log.Error("speak failed", slog.Any("error", err))
	}
}

func (w *TranscriptionWorker) record(name string, value float64) {
	w.observer.RecordEvent(metrics.MetricsEvent{
		Name:  name,
		Time:  time.Now(),
		Value: value,
	})
}

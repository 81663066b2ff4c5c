package murmur

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/murmurlabs/murmur/pkg/devices"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/metrics"
	"github.com/murmurlabs/murmur/pkg/observers"
	"github.com/murmurlabs/murmur/pkg/resilience"
	"github.com/murmurlabs/murmur/pkg/runner"
	"github.com/murmurlabs/murmur/pkg/speech"
	"github.com/murmurlabs/murmur/pkg/ttsbridge"
)

// Engine wires microphone capture through the listening pipeline to
// the transcription worker and the synthesis subprocess.
type Engine struct {
	cfg       Config
	providers *ProviderRegistry
	executor  Executor
	logger    *slog.Logger
	asyncObs  *metrics.AsyncObserver

	devctx   *devices.Context
	capture  *devices.CaptureDevice
	emitter  *speech.Emitter
	tts      *ttsbridge.Client
	closers  []func()
	workerWg sync.WaitGroup
	audioWg  sync.WaitGroup
	audioQ   *captureQueue
	runner   *runner.LifecycleRunner
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Executor  Executor
}

func NewEngine(opts EngineOptions) *Engine {
	cfg := opts.Config
	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("murmur_init",
		"wake_provider", cfg.Providers.Wake.Provider,
		"vad_provider", cfg.Providers.VAD.Provider,
		"stt_provider", cfg.Providers.STT.Provider,
		"wake_phrase", cfg.Listen.WakePhrase,
	)

	logObs := observers.NewLoggerObserver(logger)
	multiObs := observers.NewMultiObserver(logObs)
	asyncObs := metrics.NewAsyncObserver(multiObs, 2048)

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	return &Engine{
		cfg:       cfg,
		providers: providers,
		executor:  opts.Executor,
		logger:    logging.NewComponentLogger(logger, "engine"),
		asyncObs:  asyncObs,
	}
}

// Run builds the full chain, starts capture and the worker, and blocks
// until ctx is cancelled. Teardown drains in reverse order.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.start(ctx); err != nil {
		e.teardown()
		return err
	}
	e.runner = runner.NewLifecycleRunner(drainFunc(e.drain), runner.Hooks{
		OnStart: func() { e.logger.Info("listening") },
		OnStop:  func() { e.logger.Info("stopped") },
	}, 15*time.Second)
	return e.runner.Run(ctx)
}

func (e *Engine) Stop() error {
	if e.runner == nil {
		return nil
	}
	return e.runner.Stop()
}

func (e *Engine) start(ctx context.Context) error {
	cfg := e.cfg

	wakeModel, err := e.providers.BuildWake(cfg.Providers.Wake)
	if err != nil {
		return fmt.Errorf("build wake model: %w", err)
	}
	e.closers = append(e.closers, func() { _ = wakeModel.Close() })

	vadModel, err := e.providers.BuildVAD(cfg.Providers.VAD)
	if err != nil {
		return fmt.Errorf("build vad model: %w", err)
	}
	e.closers = append(e.closers, func() { _ = vadModel.Close() })

	transcriber, err := e.providers.BuildSTT(cfg.Providers.STT)
	if err != nil {
		return fmt.Errorf("build transcriber: %w", err)
	}
	e.closers = append(e.closers, func() { _ = transcriber.Close() })

	tts, err := ttsbridge.NewClient(ttsbridge.ClientConfig{
		BinaryPath: cfg.Synthd.BinaryPath,
		Args:       cfg.Synthd.Args,
		SocketPath: cfg.Synthd.SocketPath,
	})
	if err != nil {
		return fmt.Errorf("start synthesis subprocess: %w", err)
	}
	e.tts = tts

	e.emitter = speech.NewEmitter(cfg.Listen.QueueCapacity, e.asyncObs)

	breaker := resilience.NewCircuitBreaker(
		cfg.Resilience.BreakerThreshold,
		time.Duration(cfg.Resilience.BreakerCooldownMS)*time.Millisecond,
	)
	retry := resilience.NewRetryPolicy(
		cfg.Resilience.STTRetries,
		time.Duration(cfg.Resilience.STTBackoffMS)*time.Millisecond,
	)
	worker := NewTranscriptionWorker(WorkerConfig{
		WakePhrase: cfg.Listen.WakePhrase,
		Fallback:   cfg.Fallback,
		Retry:      retry,
	}, e.emitter, transcriber, e.executor, tts, breaker, e.asyncObs)

	e.workerWg.Add(1)
	go func() {
		defer e.workerWg.Done()
		worker.Run(ctx)
	}()

	devctx, err := devices.NewContext()
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}
	e.devctx = devctx

	// Capture callbacks only copy into the queue; detection runs on its
	// own goroutine so the device thread never blocks on inference.
	// Overflow drops are counted as murmur.capture_dropped.
	e.audioQ = newCaptureQueue(64, e.asyncObs)
	capture, err := devices.OpenCapture(devctx, devices.CaptureConfig{}, func(samples []float32, sampleRate int) {
		e.audioQ.push(samples)
	})
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	e.capture = capture

	pipeline := speech.NewPipeline(speech.PipelineConfig{
		InputRate:   capture.SampleRate(),
		WorkingRate: cfg.Audio.SampleRate,
		ChunkSize:   cfg.Audio.ChunkSize,
		PreRoll:     cfg.Listen.PreRoll(),
	},
		speech.NewWakeWordDetector(wakeModel, float32(cfg.Listen.WakeThreshold), capture.SampleRate()),
		speech.NewEndOfSpeechDetector(vadModel, float32(cfg.Listen.VADThreshold), cfg.Listen.SilenceFor()),
		e.emitter,
		e.asyncObs,
	)

	e.audioWg.Add(1)
	go func() {
		defer e.audioWg.Done()
		for chunk := range e.audioQ.buffers() {
			if err := pipeline.Process(chunk); err != nil {
				e.logger.Error("pipeline error", slog.Any("error", err))
			}
		}
	}()

	return nil
}

// drain stops the chain source-first so each stage sees a clean end.
func (e *Engine) drain() error {
	e.teardown()
	return nil
}

func (e *Engine) teardown() {
	if e.capture != nil {
		e.capture.Close()
		e.capture = nil
	}
	if e.audioQ != nil {
		if drops := e.audioQ.drops(); drops > 0 {
			e.logger.Warn("capture buffers dropped", slog.Uint64("count", drops))
		}
		e.audioQ.close()
		e.audioWg.Wait()
		e.audioQ = nil
	}
	if e.emitter != nil {
		e.emitter.Close()
	}
	e.workerWg.Wait()
	if e.tts != nil {
		if err := e.tts.Close(); err != nil {
			e.logger.Warn("synthesis subprocess close", slog.Any("error", err))
		}
		e.tts = nil
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
	if e.devctx != nil {
		e.devctx.Close()
		e.devctx = nil
	}
	if e.asyncObs != nil {
		e.asyncObs.Close()
		e.asyncObs = nil
	}
}

type drainFunc func() error

func (f drainFunc) Drain() error { return f() }

package murmur

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
	"github.com/murmurlabs/murmur/pkg/resilience"
	"github.com/murmurlabs/murmur/pkg/speech"
)

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   int
	failFor int
	text    string
}

func (f *fakeTranscriber) Name() string { return "fake" }
func (f *fakeTranscriber) Close() error { return nil }

func (f *fakeTranscriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]stt.Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFor {
		return nil, errors.New("backend unavailable")
	}
	return []stt.Segment{{End: time.Second, Text: f.text}}, nil
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (s *recordingSpeaker) GenerateAudio(text string) error {
	s.mu.Lock()
	s.spoken = append(s.spoken, text)
	s.mu.Unlock()
	return nil
}

func (s *recordingSpeaker) all() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

func runWorker(t *testing.T, w *TranscriptionWorker) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not drain")
	}
}

func testEvent() speech.Event {
	return speech.Event{
		UtteranceID: "u1",
		Samples:     make([]float32, 512),
		SampleRate:  16000,
		Duration:    32 * time.Millisecond,
	}
}

func TestWorkerSpeaksExecutorResponse(t *testing.T) {
	emitter := speech.NewEmitter(4, nil)
	speaker := &recordingSpeaker{}
	executor := ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		if text != "turn on the lights" {
			t.Errorf("executor got %q", text)
		}
		return "done", nil
	})
	w := NewTranscriptionWorker(WorkerConfig{
		WakePhrase: "alexa",
		Retry:      resilience.NewRetryPolicy(1, time.Millisecond),
	}, emitter, &fakeTranscriber{text: "Alexa, turn on the lights!"}, executor, speaker, nil, nil)

	emitter.Emit(testEvent())
	emitter.Close()
	runWorker(t, w)

	if got := speaker.all(); len(got) != 1 || got[0] != "done" {
		t.Fatalf("spoken = %v", got)
	}
}

func TestWorkerRetriesTransientFailure(t *testing.T) {
	emitter := speech.NewEmitter(4, nil)
	speaker := &recordingSpeaker{}
	tr := &fakeTranscriber{text: "alexa hello", failFor: 1}
	executor := ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		return "hi", nil
	})
	w := NewTranscriptionWorker(WorkerConfig{
		WakePhrase: "alexa",
		Retry:      resilience.NewRetryPolicy(2, time.Millisecond),
	}, emitter, tr, executor, speaker, nil, nil)

	emitter.Emit(testEvent())
	emitter.Close()
	runWorker(t, w)

	if tr.calls != 2 {
		t.Fatalf("transcriber calls = %d", tr.calls)
	}
	if got := speaker.all(); len(got) != 1 || got[0] != "hi" {
		t.Fatalf("spoken = %v", got)
	}
}

func TestWorkerSpeaksFallbackOnFailure(t *testing.T) {
	emitter := speech.NewEmitter(4, nil)
	speaker := &recordingSpeaker{}
	tr := &fakeTranscriber{failFor: 100}
	executor := ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		t.Error("executor should not run")
		return "", nil
	})
	w := NewTranscriptionWorker(WorkerConfig{
		Retry: resilience.NewRetryPolicy(1, time.Millisecond),
	}, emitter, tr, executor, speaker, nil, nil)

	emitter.Emit(testEvent())
	emitter.Close()
	runWorker(t, w)

	if got := speaker.all(); len(got) != 1 || got[0] != "Something went wrong. Please try again." {
		t.Fatalf("spoken = %v", got)
	}
}

func TestWorkerCircuitOpenSkipsBackend(t *testing.T) {
	emitter := speech.NewEmitter(4, nil)
	speaker := &recordingSpeaker{}
	tr := &fakeTranscriber{text: "alexa hello"}
	breaker := resilience.NewCircuitBreaker(1, time.Minute)
	breaker.OnError() // trip it
	executor := ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		return "unused", nil
	})
	w := NewTranscriptionWorker(WorkerConfig{
		Retry: resilience.NewRetryPolicy(1, time.Millisecond),
	}, emitter, tr, executor, speaker, breaker, nil)

	emitter.Emit(testEvent())
	emitter.Close()
	runWorker(t, w)

	if tr.calls != 0 {
		t.Fatalf("transcriber calls = %d", tr.calls)
	}
	if got := speaker.all(); len(got) != 1 || got[0] != "Something went wrong. Please try again." {
		t.Fatalf("spoken = %v", got)
	}
}

func TestWorkerSkipsEmptyTranscript(t *testing.T) {
	emitter := speech.NewEmitter(4, nil)
	speaker := &recordingSpeaker{}
	// Transcript is only the wake phrase, nothing remains after cleaning.
	tr := &fakeTranscriber{text: "Alexa."}
	executor := ExecutorFunc(func(ctx context.Context, text string) (string, error) {
		t.Error("executor should not run")
		return "", nil
	})
	w := NewTranscriptionWorker(WorkerConfig{
		WakePhrase: "alexa",
		Retry:      resilience.NewRetryPolicy(1, time.Millisecond),
	}, emitter, tr, executor, speaker, nil, nil)

	emitter.Emit(testEvent())
	emitter.Close()
	runWorker(t, w)

	if got := speaker.all(); len(got) != 0 {
		t.Fatalf("spoken = %v", got)
	}
}

func TestRegistryBuildsByName(t *testing.T) {
	r := NewProviderRegistry()
	r.RegisterSTT("Fake", func(settings map[string]any) (stt.Transcriber, error) {
		return &fakeTranscriber{text: "ok"}, nil
	})
	if _, err := r.BuildSTT(ProviderConfig{Provider: "  fake "}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := r.BuildSTT(ProviderConfig{Provider: "missing"}); err == nil {
		t.Fatal("expected unregistered error")
	}
}

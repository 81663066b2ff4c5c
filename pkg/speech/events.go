package speech

import (
	"sync"
	"time"

	"github.com/murmurlabs/murmur/pkg/metrics"
)

// Event is a completed utterance handed off to the transcription consumer.
type Event struct {
	// UtteranceID identifies the utterance across the pipeline and logs.
	UtteranceID string
	// Samples is the full utterance audio including pre-roll, mono at the
	// pipeline's working sample rate.
	Samples []float32
	// SampleRate of the samples.
	SampleRate int
	// Duration of detected speech, excluding pre-roll.
	Duration time.Duration
}

// Emitter hands completed utterances from the capture thread to a slower
// consumer without ever blocking the producer. The queue is bounded: when
// full, the oldest queued utterance is dropped in favor of the new one and
// the drop is counted.
type Emitter struct {
	mu       sync.Mutex
	queue    []Event
	capacity int
	closed   bool
	ready    chan struct{}
	dropped  uint64
	observer metrics.Observer
}

// NewEmitter creates an emitter holding at most capacity pending
// utterances.
func NewEmitter(capacity int, observer metrics.Observer) *Emitter {
	if capacity < 1 {
		capacity = 1
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &Emitter{
		capacity: capacity,
		ready:    make(chan struct{}, 1),
		observer: observer,
	}
}

// Emit enqueues an utterance. It never blocks; if the queue is full the
// oldest pending utterance is discarded.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if len(e.queue) >= e.capacity {
		e.queue = e.queue[1:]
		e.dropped++
		e.observer.RecordEvent(metrics.MetricsEvent{
			Name:  "speech.utterance_dropped",
			Value: float64(e.dropped),
		})
	}
	e.queue = append(e.queue, ev)
	// Notify under the lock: Close also closes ready under it, so the
	// send can never hit a closed channel.
	select {
	case e.ready <- struct{}{}:
	default:
	}
	e.mu.Unlock()
}

// Next blocks until an utterance is available or the emitter is closed.
// The second return is false once the emitter is closed and drained.
func (e *Emitter) Next() (Event, bool) {
	for {
		e.mu.Lock()
		if len(e.queue) > 0 {
			ev := e.queue[0]
			e.queue = e.queue[1:]
			e.mu.Unlock()
			return ev, true
		}
		closed := e.closed
		e.mu.Unlock()
		if closed {
			return Event{}, false
		}
		<-e.ready
	}
}

// Pending returns how many utterances are queued but not yet consumed.
func (e *Emitter) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// Dropped returns how many utterances were discarded due to a full queue.
func (e *Emitter) Dropped() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}

// Close wakes any blocked consumer; pending utterances remain readable.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ready)
}

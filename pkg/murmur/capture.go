package murmur

import (
	"sync"

	"github.com/murmurlabs/murmur/pkg/metrics"
)

// captureQueue decouples the device callback from detector inference.
// The callback only copies samples in; a dedicated goroutine feeds the
// speech pipeline. Like the utterance emitter, the producer side never
// blocks: when the consumer falls behind, the incoming buffer is dropped
// and the drop is counted.
type captureQueue struct {
	ch       chan []float32
	observer metrics.Observer

	mu      sync.Mutex
	closed  bool
	dropped uint64
}

func newCaptureQueue(depth int, observer metrics.Observer) *captureQueue {
	if depth < 1 {
		depth = 1
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	return &captureQueue{
		ch:       make(chan []float32, depth),
		observer: observer,
	}
}

// push copies samples into the queue. The buffer handed to the device
// callback is reused by the driver, so the copy is mandatory.
func (q *captureQueue) push(samples []float32) {
	chunk := make([]float32, len(samples))
	copy(chunk, samples)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	select {
	case q.ch <- chunk:
	default:
		q.dropped++
		q.observer.RecordEvent(metrics.MetricsEvent{
			Name:  "murmur.capture_dropped",
			Value: float64(q.dropped),
		})
	}
}

func (q *captureQueue) buffers() <-chan []float32 { return q.ch }

func (q *captureQueue) drops() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *captureQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

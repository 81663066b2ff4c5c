// Package playback renders audio through a single owned output sink.
// A controller actor serializes all playback commands; streamed audio
// flows through a shared sample queue consumed one sample at a time by
// the device renderer.
package playback

import (
	"sync"
	"time"
)

// starvationPoll is how long the consumer sleeps when the stream is
// empty but not yet finished. Sub-millisecond keeps render latency low
// without yielding silence, which clicks.
const starvationPoll = 100 * time.Microsecond

// SampleSource is a pull-based mono sample stream consumed by a sink.
type SampleSource interface {
	// Next returns the next sample; false means the stream has ended.
	Next() (float32, bool)
	// SampleRate of the samples.
	SampleRate() int
}

// BufferedSource plays a fully materialized sample buffer.
type BufferedSource struct {
	samples    []float32
	pos        int
	sampleRate int
}

// NewBufferedSource wraps samples for one-shot playback.
func NewBufferedSource(samples []float32, sampleRate int) *BufferedSource {
	return &BufferedSource{samples: samples, sampleRate: sampleRate}
}

func (s *BufferedSource) Next() (float32, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	v := s.samples[s.pos]
	s.pos++
	return v, true
}

func (s *BufferedSource) SampleRate() int { return s.sampleRate }

// streamState is shared between exactly one producer handle and one
// consumer source. The mutex is held per operation only.
type streamState struct {
	mu       sync.Mutex
	samples  []float32
	pos      int
	finished bool
}

// StreamingSource is the consumer side of a playback stream. When the
// queue is empty but the stream is unfinished, Next retries after a
// short sleep rather than inventing silence. Once the stream is both
// finished and drained, every subsequent pull reports end of stream.
type StreamingSource struct {
	state      *streamState
	poll       time.Duration
	sampleRate int
}

// StreamingHandle is the producer side: push chunks, then mark the
// stream finished. Clear resets both queue and flag for reuse.
type StreamingHandle struct {
	state *streamState
}

// NewStream creates a connected source/handle pair for one streaming
// session.
func NewStream(sampleRate int) (*StreamingSource, *StreamingHandle) {
	state := &streamState{}
	source := &StreamingSource{
		state:      state,
		poll:       starvationPoll,
		sampleRate: sampleRate,
	}
	return source, &StreamingHandle{state: state}
}

func (s *StreamingSource) Next() (float32, bool) {
	for {
		s.state.mu.Lock()
		if s.state.pos < len(s.state.samples) {
			v := s.state.samples[s.state.pos]
			s.state.pos++
			if s.state.pos == len(s.state.samples) {
				s.state.samples = s.state.samples[:0]
				s.state.pos = 0
			}
			s.state.mu.Unlock()
			return v, true
		}
		finished := s.state.finished
		s.state.mu.Unlock()
		if finished {
			return 0, false
		}
		time.Sleep(s.poll)
	}
}

func (s *StreamingSource) SampleRate() int { return s.sampleRate }

// PushChunk appends samples to the stream queue.
func (h *StreamingHandle) PushChunk(samples []float32) {
	h.state.mu.Lock()
	h.state.samples = append(h.state.samples, samples...)
	h.state.mu.Unlock()
}

// MarkFinished declares that no more chunks will arrive. The consumer
// drains what remains and then ends.
func (h *StreamingHandle) MarkFinished() {
	h.state.mu.Lock()
	h.state.finished = true
	h.state.mu.Unlock()
}

// Finished reports whether the producer has marked the stream done.
func (h *StreamingHandle) Finished() bool {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return h.state.finished
}

// Clear empties the queue and resets the finished flag.
func (h *StreamingHandle) Clear() {
	h.state.mu.Lock()
	h.state.samples = h.state.samples[:0]
	h.state.pos = 0
	h.state.finished = false
	h.state.mu.Unlock()
}

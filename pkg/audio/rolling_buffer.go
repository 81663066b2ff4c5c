package audio

import (
	"math"
	"time"
)

// RollingBuffer keeps the most recent audio chunks up to a configured
// duration. When a wake word fires, DrainFlat recovers the audio that
// preceded the detection (wake-word models report with inherent latency).
type RollingBuffer struct {
	chunks    [][]float32
	maxChunks int
}

// NewRollingBuffer stores up to duration worth of chunks, each chunkDuration
// long. Capacity rounds up so at least the requested span is retained.
func NewRollingBuffer(duration, chunkDuration time.Duration) *RollingBuffer {
	maxChunks := int(math.Ceil(duration.Seconds() / chunkDuration.Seconds()))
	if maxChunks < 1 {
		maxChunks = 1
	}
	return &RollingBuffer{
		chunks:    make([][]float32, 0, maxChunks),
		maxChunks: maxChunks,
	}
}

// Push appends a chunk, evicting the oldest whole chunk once at capacity.
func (b *RollingBuffer) Push(chunk []float32) {
	if len(b.chunks) >= b.maxChunks {
		copy(b.chunks, b.chunks[1:])
		b.chunks = b.chunks[:len(b.chunks)-1]
	}
	b.chunks = append(b.chunks, chunk)
}

// DrainFlat empties the buffer and returns its contents concatenated in
// arrival order. The buffer is empty afterwards.
func (b *RollingBuffer) DrainFlat() []float32 {
	total := 0
	for _, c := range b.chunks {
		total += len(c)
	}
	out := make([]float32, 0, total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = b.chunks[:0]
	return out
}

func (b *RollingBuffer) Len() int      { return len(b.chunks) }
func (b *RollingBuffer) Capacity() int { return b.maxChunks }

// Package audio holds the sample-level building blocks of the capture
// pipeline: linear-interpolation resampling with fixed-size re-chunking,
// and the rolling pre-roll buffer drained on wake-word detection.
package audio

import "math"

// Resampler converts an incoming sample stream to a target rate and
// re-chunks the output into frames of exactly ChunkSize samples.
// Leftover samples smaller than one chunk carry over to the next call.
//
// Input is treated as a single undifferentiated sample stream. Interleaved
// multi-channel audio must be reduced to one channel before it reaches the
// resampler; the capture layer enforces that.
type Resampler struct {
	inputRate  int
	outputRate int
	chunkSize  int
	carry      []float32
}

func NewResampler(inputRate, outputRate, chunkSize int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		chunkSize:  chunkSize,
	}
}

func (r *Resampler) ChunkSize() int { return r.chunkSize }

// Resample converts input to the output rate and returns zero or more
// chunks of exactly chunkSize samples. Never blocks.
func (r *Resampler) Resample(input []float32) [][]float32 {
	if len(input) > 0 {
		ratio := float64(r.outputRate) / float64(r.inputRate)
		outputLen := int(float64(len(input)) * ratio)

		for i := 0; i < outputLen; i++ {
			srcIndex := float64(i) / ratio
			floor := int(math.Floor(srcIndex))
			ceil := floor + 1
			if ceil > len(input)-1 {
				// Flat-extrapolate the tail instead of ringing past the edge.
				ceil = len(input) - 1
			}
			frac := float32(srcIndex - float64(floor))
			r.carry = append(r.carry, input[floor]*(1-frac)+input[ceil]*frac)
		}
	}

	var chunks [][]float32
	for len(r.carry) >= r.chunkSize {
		chunk := make([]float32, r.chunkSize)
		copy(chunk, r.carry[:r.chunkSize])
		r.carry = r.carry[:copy(r.carry, r.carry[r.chunkSize:])]
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Pending reports how many resampled samples are carried over, waiting to
// fill the next chunk.
func (r *Resampler) Pending() int { return len(r.carry) }

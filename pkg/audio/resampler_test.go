package audio

import (
	"math"
	"testing"
)

func flatten(chunks [][]float32) []float32 {
	var out []float32
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestResamplerIdentityRate(t *testing.T) {
	r := NewResampler(16000, 16000, 4)

	input := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
	got := flatten(r.Resample(input))

	// Identical rates must be lossless up to chunking: two full chunks out,
	// one sample carried over.
	if len(got) != 8 {
		t.Fatalf("expected 8 samples in full chunks, got %d", len(got))
	}
	for i, s := range got {
		if math.Abs(float64(s-input[i])) > 1e-6 {
			t.Fatalf("sample %d: got %v want %v", i, s, input[i])
		}
	}
	if r.Pending() != 1 {
		t.Fatalf("expected 1 carried sample, got %d", r.Pending())
	}
}

func TestResamplerChunkSizes(t *testing.T) {
	r := NewResampler(48000, 16000, 512)

	chunks := r.Resample(make([]float32, 4800))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks from 1600 resampled samples, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) != 512 {
			t.Fatalf("chunk %d: size %d, want 512", i, len(c))
		}
	}
	if r.Pending() != 1600-3*512 {
		t.Fatalf("carry = %d, want %d", r.Pending(), 1600-3*512)
	}
}

func TestResamplerRatioConvergence(t *testing.T) {
	const (
		inputRate  = 44100
		outputRate = 16000
		chunkSize  = 512
		inputLen   = 1024
		calls      = 50
	)
	r := NewResampler(inputRate, outputRate, chunkSize)
	input := make([]float32, inputLen)
	for i := range input {
		input[i] = float32(math.Sin(float64(i) / 30))
	}

	total := 0
	for i := 0; i < calls; i++ {
		for _, c := range r.Resample(input) {
			total += len(c)
		}
	}
	total += r.Pending()

	want := float64(calls*inputLen) * float64(outputRate) / float64(inputRate)
	if math.Abs(float64(total)-want) > chunkSize {
		t.Fatalf("total output %d not within one chunk of %f", total, want)
	}
}

func TestResamplerUpsampleInterpolates(t *testing.T) {
	r := NewResampler(8000, 16000, 2)

	chunks := r.Resample([]float32{0, 1})
	got := flatten(chunks)
	// 2 input samples at 2x ratio yield 4 output samples; position 1 sits
	// halfway between input[0] and input[1].
	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	if math.Abs(float64(got[1]-0.5)) > 1e-6 {
		t.Fatalf("interpolated sample = %v, want 0.5", got[1])
	}
	// The tail is flat-extrapolated, never overshoots.
	if got[3] != 1 {
		t.Fatalf("tail sample = %v, want 1 (flat extrapolation)", got[3])
	}
}

func TestResamplerEmptyInput(t *testing.T) {
	r := NewResampler(48000, 16000, 512)
	if chunks := r.Resample(nil); chunks != nil {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
}

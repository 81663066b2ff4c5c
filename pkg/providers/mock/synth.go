package mock

import (
	"context"
	"io"

	"github.com/murmurlabs/murmur/pkg/adapters/synth"
)

type SynthConfig struct {
	SampleRate int
	ChunkSize  int
	// ChunksPerUtterance controls how many silent chunks each request
	// yields.
	ChunksPerUtterance int
	Err                error
}

// Synthesizer yields silent PCM chunks for any text.
type Synthesizer struct {
	cfg SynthConfig
}

func NewSynth(cfg SynthConfig) *Synthesizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1024
	}
	if cfg.ChunksPerUtterance == 0 {
		cfg.ChunksPerUtterance = 4
	}
	return &Synthesizer{cfg: cfg}
}

func (s *Synthesizer) Name() string    { return "mock_synth" }
func (s *Synthesizer) SampleRate() int { return s.cfg.SampleRate }
func (s *Synthesizer) Close() error    { return nil }

func (s *Synthesizer) Synthesize(ctx context.Context, text string) (synth.Stream, error) {
	if s.cfg.Err != nil {
		return nil, s.cfg.Err
	}
	return &silenceStream{
		remaining: s.cfg.ChunksPerUtterance,
		chunkSize: s.cfg.ChunkSize,
	}, nil
}

type silenceStream struct {
	remaining int
	chunkSize int
}

func (s *silenceStream) Next(ctx context.Context) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.remaining == 0 {
		return nil, io.EOF
	}
	s.remaining--
	return make([]float32, s.chunkSize), nil
}

func (s *silenceStream) Close() error { return nil }

var _ synth.Synthesizer = (*Synthesizer)(nil)

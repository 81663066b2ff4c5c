package mock

import (
	"context"
	"time"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
)

type STTConfig struct {
	Transcript string
	Err        error
}

// Transcriber returns a canned transcript spanning the submitted audio.
type Transcriber struct {
	cfg STTConfig
}

func NewSTT(cfg STTConfig) *Transcriber {
	if cfg.Transcript == "" {
		cfg.Transcript = "mock transcript"
	}
	return &Transcriber{cfg: cfg}
}

func (t *Transcriber) Name() string { return "mock_stt" }

func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]stt.Segment, error) {
	if t.cfg.Err != nil {
		return nil, t.cfg.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	return []stt.Segment{{Start: 0, End: end, Text: t.cfg.Transcript}}, nil
}

func (t *Transcriber) Close() error { return nil }

var _ stt.Transcriber = (*Transcriber)(nil)

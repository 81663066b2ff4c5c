package mock

import (
	"github.com/murmurlabs/murmur/pkg/adapters/vad"
)

type VADConfig struct {
	ChunkSize  int
	SampleRate int
	// EnergyGate is the mean absolute amplitude above which a chunk
	// scores as speech.
	EnergyGate float32
}

// VADModel scores chunks by signal energy instead of a neural model.
type VADModel struct {
	cfg VADConfig
}

func NewVAD(cfg VADConfig) *VADModel {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 512
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.EnergyGate == 0 {
		cfg.EnergyGate = 0.01
	}
	return &VADModel{cfg: cfg}
}

func (m *VADModel) Name() string    { return "mock_vad" }
func (m *VADModel) ChunkSize() int  { return m.cfg.ChunkSize }
func (m *VADModel) SampleRate() int { return m.cfg.SampleRate }

func (m *VADModel) Predict(chunk []float32) (float32, error) {
	if len(chunk) == 0 {
		return 0, nil
	}
	var sum float32
	for _, s := range chunk {
		if s < 0 {
			sum -= s
		} else {
			sum += s
		}
	}
	if sum/float32(len(chunk)) > m.cfg.EnergyGate {
		return 1.0, nil
	}
	return 0, nil
}

func (m *VADModel) Reset() {}

func (m *VADModel) Close() error { return nil }

var _ vad.Model = (*VADModel)(nil)

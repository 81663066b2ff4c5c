// Package mock provides deterministic in-process providers for wiring
// tests and offline development.
package mock

import (
	"sync"

	"github.com/murmurlabs/murmur/pkg/adapters/wake"
)

type WakeConfig struct {
	Phrase     string
	ChunkSize  int
	SampleRate int
	// FireAfter triggers a 1.0 score on the Nth Predict call; zero
	// means never fire.
	FireAfter int
}

// WakeModel scores silence until its trigger call, then scores 1.0
// exactly once.
type WakeModel struct {
	cfg   WakeConfig
	mu    sync.Mutex
	calls int
}

func NewWake(cfg WakeConfig) *WakeModel {
	if cfg.Phrase == "" {
		cfg.Phrase = "alexa"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1280
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	return &WakeModel{cfg: cfg}
}

func (m *WakeModel) Name() string    { return "mock_wake" }
func (m *WakeModel) ChunkSize() int  { return m.cfg.ChunkSize }
func (m *WakeModel) SampleRate() int { return m.cfg.SampleRate }

func (m *WakeModel) Predict(chunk []float32) (float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.cfg.FireAfter > 0 && m.calls == m.cfg.FireAfter {
		return 1.0, nil
	}
	return 0, nil
}

func (m *WakeModel) Reset() {
	m.mu.Lock()
	m.calls = 0
	m.mu.Unlock()
}

func (m *WakeModel) Close() error { return nil }

var _ wake.Model = (*WakeModel)(nil)

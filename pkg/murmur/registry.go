package murmur

import (
	"fmt"
	"strings"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
	"github.com/murmurlabs/murmur/pkg/adapters/synth"
	"github.com/murmurlabs/murmur/pkg/adapters/vad"
	"github.com/murmurlabs/murmur/pkg/adapters/wake"
)

type WakeFactory func(settings map[string]any) (wake.Model, error)
type VADFactory func(settings map[string]any) (vad.Model, error)
type STTFactory func(settings map[string]any) (stt.Transcriber, error)
type SynthFactory func(settings map[string]any) (synth.Synthesizer, error)

// ProviderRegistry maps config provider names to constructors.
type ProviderRegistry struct {
	wake  map[string]WakeFactory
	vad   map[string]VADFactory
	stt   map[string]STTFactory
	synth map[string]SynthFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		wake:  make(map[string]WakeFactory),
		vad:   make(map[string]VADFactory),
		stt:   make(map[string]STTFactory),
		synth: make(map[string]SynthFactory),
	}
}

func (r *ProviderRegistry) RegisterWake(name string, factory WakeFactory) {
	r.wake[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) RegisterVAD(name string, factory VADFactory) {
	r.vad[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) RegisterSTT(name string, factory STTFactory) {
	r.stt[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) RegisterSynth(name string, factory SynthFactory) {
	r.synth[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) BuildWake(cfg ProviderConfig) (wake.Model, error) {
	fn := r.wake[normalizeProvider(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("wake provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

func (r *ProviderRegistry) BuildVAD(cfg ProviderConfig) (vad.Model, error) {
	fn := r.vad[normalizeProvider(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("vad provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

func (r *ProviderRegistry) BuildSTT(cfg ProviderConfig) (stt.Transcriber, error) {
	fn := r.stt[normalizeProvider(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

func (r *ProviderRegistry) BuildSynth(cfg ProviderConfig) (synth.Synthesizer, error) {
	fn := r.synth[normalizeProvider(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("synth provider not registered: %s", cfg.Provider)
	}
	return fn(cfg.Settings)
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

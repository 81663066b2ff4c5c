package murmur

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Audio      AudioConfig      `mapstructure:"audio"`
	Listen     ListenConfig     `mapstructure:"listen"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Synthd     SynthdConfig     `mapstructure:"synthd"`
	Resilience ResilienceConfig `mapstructure:"resilience"`
	Fallback   string           `mapstructure:"fallback_response"`
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"`
}

type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	ChunkSize  int `mapstructure:"chunk_size"`
}

type ListenConfig struct {
	WakePhrase    string  `mapstructure:"wake_phrase"`
	WakeThreshold float64 `mapstructure:"wake_threshold"`
	VADThreshold  float64 `mapstructure:"vad_threshold"`
	SilenceForMS  int     `mapstructure:"silence_for_ms"`
	PreRollMS     int     `mapstructure:"pre_roll_ms"`
	QueueCapacity int     `mapstructure:"queue_capacity"`
}

func (c ListenConfig) SilenceFor() time.Duration {
	return time.Duration(c.SilenceForMS) * time.Millisecond
}

func (c ListenConfig) PreRoll() time.Duration {
	return time.Duration(c.PreRollMS) * time.Millisecond
}

type ProviderConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type ProvidersConfig struct {
	Wake  ProviderConfig `mapstructure:"wake"`
	VAD   ProviderConfig `mapstructure:"vad"`
	STT   ProviderConfig `mapstructure:"stt"`
	Synth ProviderConfig `mapstructure:"synth"`
}

// SynthdConfig locates the synthesis subprocess binary.
type SynthdConfig struct {
	BinaryPath string   `mapstructure:"binary_path"`
	Args       []string `mapstructure:"args"`
	SocketPath string   `mapstructure:"socket_path"`
}

type ResilienceConfig struct {
	STTRetries        int `mapstructure:"stt_retries"`
	STTBackoffMS      int `mapstructure:"stt_backoff_ms"`
	BreakerThreshold  int `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("audio.sample_rate", 16000)
	v.SetDefault("audio.chunk_size", 512)
	v.SetDefault("listen.wake_phrase", "alexa")
	v.SetDefault("listen.wake_threshold", 0.2)
	v.SetDefault("listen.vad_threshold", 0.75)
	v.SetDefault("listen.silence_for_ms", 1000)
	v.SetDefault("listen.pre_roll_ms", 2000)
	v.SetDefault("listen.queue_capacity", 8)
	v.SetDefault("providers.wake.provider", "onnx")
	v.SetDefault("providers.vad.provider", "onnx")
	v.SetDefault("providers.stt.provider", "deepgram")
	v.SetDefault("providers.synth.provider", "mock")
	v.SetDefault("synthd.binary_path", "murmur-synthd")
	v.SetDefault("resilience.stt_retries", 2)
	v.SetDefault("resilience.stt_backoff_ms", 200)
	v.SetDefault("resilience.breaker_threshold", 3)
	v.SetDefault("resilience.breaker_cooldown_ms", 30000)
	v.SetDefault("fallback_response", "Something went wrong. Please try again.")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be positive")
	}
	if c.Audio.ChunkSize <= 0 {
		return fmt.Errorf("audio.chunk_size must be positive")
	}
	if c.Listen.SilenceForMS <= 0 {
		return fmt.Errorf("listen.silence_for_ms must be positive")
	}
	for path, p := range map[string]ProviderConfig{
		"providers.wake":  c.Providers.Wake,
		"providers.vad":   c.Providers.VAD,
		"providers.stt":   c.Providers.STT,
		"providers.synth": c.Providers.Synth,
	} {
		if strings.TrimSpace(p.Provider) == "" {
			return fmt.Errorf("%s.provider is required", path)
		}
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	cfg.Synthd.BinaryPath = os.ExpandEnv(cfg.Synthd.BinaryPath)
	cfg.Synthd.SocketPath = os.ExpandEnv(cfg.Synthd.SocketPath)
	for i := range cfg.Synthd.Args {
		cfg.Synthd.Args[i] = os.ExpandEnv(cfg.Synthd.Args[i])
	}
	cfg.Providers.Wake.Settings = expandSettings(cfg.Providers.Wake.Settings)
	cfg.Providers.VAD.Settings = expandSettings(cfg.Providers.VAD.Settings)
	cfg.Providers.STT.Settings = expandSettings(cfg.Providers.STT.Settings)
	cfg.Providers.Synth.Settings = expandSettings(cfg.Providers.Synth.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
	"github.com/murmurlabs/murmur/pkg/adapters/vad"
	"github.com/murmurlabs/murmur/pkg/adapters/wake"
	"github.com/murmurlabs/murmur/pkg/configutil"
	"github.com/murmurlabs/murmur/pkg/murmur"
	"github.com/murmurlabs/murmur/pkg/providers/deepgram"
	"github.com/murmurlabs/murmur/pkg/providers/mock"
	"github.com/murmurlabs/murmur/pkg/providers/onnx"
)

type onnxWakeSettings struct {
	MelspecModel   string `mapstructure:"melspec_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	WakewordModel  string `mapstructure:"wakeword_model"`
	RuntimeLibrary string `mapstructure:"runtime_library"`
}

type onnxVADSettings struct {
	ModelPath      string `mapstructure:"model_path"`
	RuntimeLibrary string `mapstructure:"runtime_library"`
}

type deepgramSettings struct {
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

type mockWakeSettings struct {
	FireAfter int `mapstructure:"fire_after"`
}

type mockSTTSettings struct {
	Transcript string `mapstructure:"transcript"`
}

func registerProviders(r *murmur.ProviderRegistry) {
	r.RegisterWake("onnx", func(settings map[string]any) (wake.Model, error) {
		var s onnxWakeSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return onnx.NewWakeWord(onnx.WakeConfig{
			MelspecModel:   s.MelspecModel,
			EmbeddingModel: s.EmbeddingModel,
			WakewordModel:  s.WakewordModel,
			RuntimeLibrary: s.RuntimeLibrary,
		})
	})
	r.RegisterWake("mock", func(settings map[string]any) (wake.Model, error) {
		var s mockWakeSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return mock.NewWake(mock.WakeConfig{FireAfter: s.FireAfter}), nil
	})

	r.RegisterVAD("onnx", func(settings map[string]any) (vad.Model, error) {
		var s onnxVADSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return onnx.NewVAD(onnx.VADConfig{
			ModelPath:      s.ModelPath,
			RuntimeLibrary: s.RuntimeLibrary,
		})
	})
	r.RegisterVAD("mock", func(settings map[string]any) (vad.Model, error) {
		return mock.NewVAD(mock.VADConfig{}), nil
	})

	r.RegisterSTT("deepgram", func(settings map[string]any) (stt.Transcriber, error) {
		var s deepgramSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "providers.stt.settings.api_key"); err != nil {
			return nil, err
		}
		return deepgram.New(deepgram.Config{
			APIKey:   s.APIKey,
			Model:    s.Model,
			Language: s.Language,
		}), nil
	})
	r.RegisterSTT("mock", func(settings map[string]any) (stt.Transcriber, error) {
		var s mockSTTSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		return mock.NewSTT(mock.STTConfig{Transcript: s.Transcript}), nil
	})
}

// builtinExecutor answers the few commands the front end handles on its
// own; everything else is echoed back.
func builtinExecutor(ctx context.Context, text string) (string, error) {
	switch strings.TrimSpace(text) {
	case "stop", "never mind", "cancel":
		return "", nil
	case "ping":
		return "pong", nil
	default:
		return "You said " + text, nil
	}
}

func main() {
	configPath := flag.String("config", "murmur.yaml", "path to config file")
	flag.Parse()

	cfg, err := murmur.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	providers := murmur.NewProviderRegistry()
	registerProviders(providers)

	engine := murmur.NewEngine(murmur.EngineOptions{
		Config:    cfg,
		Providers: providers,
		Executor:  murmur.ExecutorFunc(builtinExecutor),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Run(ctx); err != nil {
		slog.Error("engine stopped", "error", err)
		os.Exit(1)
	}
}

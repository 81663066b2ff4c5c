package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/murmurlabs/murmur/pkg/adapters/synth"
	"github.com/murmurlabs/murmur/pkg/configutil"
	"github.com/murmurlabs/murmur/pkg/devices"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/murmur"
	"github.com/murmurlabs/murmur/pkg/playback"
	"github.com/murmurlabs/murmur/pkg/providers/elevenlabs"
	"github.com/murmurlabs/murmur/pkg/providers/mock"
	"github.com/murmurlabs/murmur/pkg/ttsbridge"
)

type elevenlabsSettings struct {
	APIKey     string `mapstructure:"api_key"`
	VoiceID    string `mapstructure:"voice_id"`
	ModelID    string `mapstructure:"model_id"`
	SampleRate int    `mapstructure:"sample_rate"`
}

func buildSynthesizer(cfg murmur.ProviderConfig) (synth.Synthesizer, error) {
	registry := murmur.NewProviderRegistry()
	registry.RegisterSynth("elevenlabs", func(settings map[string]any) (synth.Synthesizer, error) {
		var s elevenlabsSettings
		if err := configutil.DecodeSettings(settings, &s); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.APIKey, "providers.synth.settings.api_key"); err != nil {
			return nil, err
		}
		if err := configutil.RequireString(s.VoiceID, "providers.synth.settings.voice_id"); err != nil {
			return nil, err
		}
		return elevenlabs.New(elevenlabs.Config{
			APIKey:     s.APIKey,
			VoiceID:    s.VoiceID,
			ModelID:    s.ModelID,
			SampleRate: s.SampleRate,
		}), nil
	})
	registry.RegisterSynth("mock", func(settings map[string]any) (synth.Synthesizer, error) {
		return mock.NewSynth(mock.SynthConfig{}), nil
	})
	return registry.BuildSynth(cfg)
}

func run() error {
	configPath := flag.String("config", "murmur.yaml", "path to config file")
	flag.Parse()

	cfg, err := murmur.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	logger := logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	slog.SetDefault(logger)

	synthesizer, err := buildSynthesizer(cfg.Providers.Synth)
	if err != nil {
		return fmt.Errorf("build synthesizer: %w", err)
	}
	defer synthesizer.Close()

	devctx, err := devices.NewContext()
	if err != nil {
		return fmt.Errorf("audio context: %w", err)
	}
	defer devctx.Close()

	controller := playback.NewController(devices.NewOutputOpener(devctx))
	defer controller.Close()

	listener, err := ttsbridge.Listen()
	if err != nil {
		return err
	}
	defer listener.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("synthd ready",
		"provider", synthesizer.Name(),
		"socket", listener.Addr().String(),
	)
	return ttsbridge.NewServer(synthesizer, controller).Serve(ctx, listener)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package murmur

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "murmur.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.ChunkSize != 512 {
		t.Fatalf("audio defaults = %+v", cfg.Audio)
	}
	if cfg.Listen.WakePhrase != "alexa" {
		t.Fatalf("wake phrase = %q", cfg.Listen.WakePhrase)
	}
	if cfg.Listen.SilenceFor() != time.Second {
		t.Fatalf("silence = %v", cfg.Listen.SilenceFor())
	}
	if cfg.Listen.PreRoll() != 2*time.Second {
		t.Fatalf("pre-roll = %v", cfg.Listen.PreRoll())
	}
	if cfg.Fallback != "Something went wrong. Please try again." {
		t.Fatalf("fallback = %q", cfg.Fallback)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadConfigExpandsEnvInSettings(t *testing.T) {
	t.Setenv("TEST_STT_KEY", "secret-token")
	path := writeConfig(t, strings.Join([]string{
		"providers:",
		"  stt:",
		"    provider: deepgram",
		"    settings:",
		"      api_key: ${TEST_STT_KEY}",
	}, "\n"))
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := cfg.Providers.STT.Settings["api_key"]; got != "secret-token" {
		t.Fatalf("api_key = %v", got)
	}
}

func TestLoadConfigRejectsMissingProvider(t *testing.T) {
	path := writeConfig(t, strings.Join([]string{
		"providers:",
		"  wake:",
		"    provider: \"\"",
	}, "\n"))
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadConfigRejectsBadAudio(t *testing.T) {
	path := writeConfig(t, "audio:\n  chunk_size: -1\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error")
	}
}

package ttsbridge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/playback"
)

func TestClientFatalWhenProcessDiesBeforeSocket(t *testing.T) {
	_, err := NewClient(ClientConfig{
		BinaryPath: "/bin/false",
		SocketPath: filepath.Join(t.TempDir(), "never.sock"),
	})
	if err == nil {
		t.Fatal("expected an error when the process exits before binding")
	}
	if !errorsx.HasReason(err, errorsx.ReasonTTSSpawn) {
		t.Fatalf("reason = %v, want %v", errorsx.Reason(err), errorsx.ReasonTTSSpawn)
	}
}

func TestClientSpawnFailure(t *testing.T) {
	_, err := NewClient(ClientConfig{
		BinaryPath: filepath.Join(t.TempDir(), "missing-binary"),
	})
	if err == nil {
		t.Fatal("expected an error for a missing binary")
	}
	if !errorsx.HasReason(err, errorsx.ReasonTTSSpawn) {
		t.Fatalf("reason = %v, want %v", errorsx.Reason(err), errorsx.ReasonTTSSpawn)
	}
}

// Runs the real server in-process on the socket the client expects,
// with an inert subprocess standing in for the synthesis binary.
func TestClientSessionAgainstServer(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "tts.sock")
	t.Setenv(SocketEnvVar, socketPath)

	listener, err := Listen()
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	controller := playback.NewController(&drainingOpener{})
	defer controller.Close()
	server := NewServer(&scriptSynth{chunks: [][]float32{{1, 2}, {3}}}, controller)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx, listener)

	client, err := NewClient(ClientConfig{
		BinaryPath: "/bin/sleep",
		Args:       []string{"60"},
		SocketPath: socketPath,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	if err := client.GenerateAudio("hello there"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := client.WaitUntilFinished(); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if err := client.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

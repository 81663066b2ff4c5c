// Package ttsbridge connects the assistant to its speech-synthesis
// subprocess over the ttsproto Unix-socket protocol. The client owns
// the subprocess lifecycle; the server side renders synthesized audio
// through the playback package.
package ttsbridge

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/ttsproto"
)

// SocketEnvVar tells the synthesis subprocess where to listen.
const SocketEnvVar = "MURMUR_TTS_SOCKET"

const (
	socketPollInterval = 100 * time.Millisecond
	socketPollAttempts = 500
)

// ClientConfig configures how the synthesis subprocess is launched.
type ClientConfig struct {
	// BinaryPath is the synthesis server executable.
	BinaryPath string
	// Args are extra arguments passed to the subprocess.
	Args []string
	// SocketPath overrides the default per-process socket location.
	SocketPath string
}

// Client spawns and talks to the synthesis subprocess. Exactly one
// request is outstanding at a time; responses for a request are read
// before the next request is written.
type Client struct {
	mu         sync.Mutex
	conn       net.Conn
	cmd        *exec.Cmd
	waitDone   chan struct{}
	waitErr    error
	stderr     *bytes.Buffer
	socketPath string
	logger     *slog.Logger
}

// NewClient launches the subprocess, waits for its socket to appear and
// connects. The subprocess exiting during the wait is fatal, with its
// stderr attached for diagnosis.
func NewClient(cfg ClientConfig) (*Client, error) {
	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath = filepath.Join(os.TempDir(), fmt.Sprintf("murmur-tts-%d.sock", os.Getpid()))
	}

	var stderr bytes.Buffer
	cmd := exec.Command(cfg.BinaryPath, cfg.Args...)
	cmd.Env = append(os.Environ(), SocketEnvVar+"="+socketPath)
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("spawn synthesis process %s: %w", cfg.BinaryPath, err), errorsx.ReasonTTSSpawn)
	}

	c := &Client{
		cmd:        cmd,
		waitDone:   make(chan struct{}),
		stderr:     &stderr,
		socketPath: socketPath,
		logger:     logging.NewComponentLogger(nil, "ttsclient"),
	}
	go func() {
		c.waitErr = cmd.Wait()
		close(c.waitDone)
	}()

	conn, err := c.awaitSocket()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) awaitSocket() (net.Conn, error) {
	for attempt := 0; attempt < socketPollAttempts; attempt++ {
		select {
		case <-c.waitDone:
			return nil, errorsx.New(errorsx.ReasonTTSSpawn, fmt.Sprintf(
				"synthesis process exited before creating its socket: %v; stderr: %s",
				c.waitErr, c.stderr.String()))
		case <-time.After(socketPollInterval):
		}
		if _, err := os.Stat(c.socketPath); err == nil {
			conn, err := net.Dial("unix", c.socketPath)
			if err != nil {
				return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
			}
			return conn, nil
		}
	}
	return nil, errorsx.New(errorsx.ReasonTTSConnect,
		"synthesis process did not create its socket in time")
}

// GenerateAudio asks the server to synthesize and play text. It blocks
// until the server reports playback complete or failed.
func (c *Client) GenerateAudio(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ttsproto.WriteCommand(c.conn, ttsproto.GenerateAudio(text)); err != nil {
		return err
	}
	resp, err := c.readSkippingProgress()
	if err != nil {
		return err
	}
	switch resp.Type {
	case ttsproto.ResponseStarted:
	case ttsproto.ResponseError:
		return errorsx.New(errorsx.ReasonSynthStream, resp.Message)
	default:
		return c.unexpected(resp, ttsproto.ResponseStarted)
	}

	resp, err = c.readSkippingProgress()
	if err != nil {
		return err
	}
	switch resp.Type {
	case ttsproto.ResponseFinished:
		return nil
	case ttsproto.ResponseError:
		return errorsx.New(errorsx.ReasonSynthStream, resp.Message)
	default:
		return c.unexpected(resp, ttsproto.ResponseFinished)
	}
}

// Stop halts current synthesis and playback.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ttsproto.WriteCommand(c.conn, ttsproto.Stop()); err != nil {
		return err
	}
	resp, err := c.readSkippingProgress()
	if err != nil {
		return err
	}
	switch resp.Type {
	case ttsproto.ResponseStopped:
		return nil
	case ttsproto.ResponseError:
		return errorsx.New(errorsx.ReasonSynthStream, resp.Message)
	default:
		return c.unexpected(resp, ttsproto.ResponseStopped)
	}
}

// WaitUntilFinished blocks until the server has finished rendering any
// current audio.
func (c *Client) WaitUntilFinished() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ttsproto.WriteCommand(c.conn, ttsproto.WaitUntilFinished()); err != nil {
		return err
	}
	resp, err := c.readSkippingProgress()
	if err != nil {
		return err
	}
	switch resp.Type {
	case ttsproto.ResponseFinished:
		return nil
	case ttsproto.ResponseError:
		return errorsx.New(errorsx.ReasonSynthStream, resp.Message)
	default:
		return c.unexpected(resp, ttsproto.ResponseFinished)
	}
}

// readSkippingProgress reads the next non-progress response. Chunk
// progress notifications are logged and skipped.
func (c *Client) readSkippingProgress() (ttsproto.Response, error) {
	for {
		resp, err := ttsproto.ReadResponse(c.conn)
		if err != nil {
			return ttsproto.Response{}, err
		}
		if resp.Type == ttsproto.ResponseChunkGenerated {
			c.logger.Debug("synthesis progress", slog.Uint64("seq", resp.Seq))
			continue
		}
		return resp, nil
	}
}

func (c *Client) unexpected(resp ttsproto.Response, want ttsproto.ResponseType) error {
	return errorsx.New(errorsx.ReasonTTSProtocol,
		fmt.Sprintf("unexpected response %q, want %q", resp.Type, want))
}

// Close tears the subprocess down: connection closed, process killed
// and reaped, socket file removed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	if c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	<-c.waitDone
	if err := os.Remove(c.socketPath); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("remove socket file", slog.Any("error", err))
	}
	return nil
}

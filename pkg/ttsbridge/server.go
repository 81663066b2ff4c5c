package ttsbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/murmurlabs/murmur/pkg/adapters/synth"
	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
	"github.com/murmurlabs/murmur/pkg/playback"
	"github.com/murmurlabs/murmur/pkg/ttsproto"
)

// Server renders synthesized speech for one client at a time. Incoming
// audio chunks stream into the playback controller as the model emits
// them, so rendering starts before synthesis completes.
type Server struct {
	synthesizer synth.Synthesizer
	controller  *playback.Controller
	logger      *slog.Logger
}

// NewServer wires a synthesizer to a playback controller.
func NewServer(synthesizer synth.Synthesizer, controller *playback.Controller) *Server {
	return &Server{
		synthesizer: synthesizer,
		controller:  controller,
		logger:      logging.NewComponentLogger(nil, "ttsserver"),
	}
}

// Listen binds the Unix socket named by the SocketEnvVar environment
// variable, replacing any stale socket file.
func Listen() (net.Listener, error) {
	socketPath := os.Getenv(SocketEnvVar)
	if socketPath == "" {
		return nil, errorsx.New(errorsx.ReasonTTSConnect, SocketEnvVar+" is not set")
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonTTSConnect)
	}
	return listener, nil
}

// Serve accepts connections one at a time until ctx is cancelled or the
// listener closes.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		listener.Close()
	}()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errorsx.Wrap(err, errorsx.ReasonTTSConnect)
		}
		s.HandleConn(ctx, conn)
	}
}

// HandleConn runs the per-connection command loop. A read or decode
// failure on the wire ends the loop; command execution errors are
// reported to the client and the loop continues.
func (s *Server) HandleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	for {
		cmd, err := ttsproto.ReadCommand(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.logger.Error("read command", slog.Any("error", err))
				if errorsx.HasReason(err, errorsx.ReasonTTSProtocol) && !isWireError(err) {
					// Decode failure on an intact connection: tell the
					// client and keep the session alive.
					if werr := ttsproto.WriteResponse(conn, ttsproto.Errorf("bad command: %v", err)); werr == nil {
						continue
					}
				}
			}
			return
		}

		switch cmd.Type {
		case ttsproto.CommandGenerateAudio:
			err = s.generate(ctx, conn, cmd.Text)
		case ttsproto.CommandStop:
			err = s.stop(conn)
		case ttsproto.CommandWaitUntilFinished:
			err = s.waitUntilFinished(ctx, conn)
		}
		if err != nil {
			s.logger.Error("handle command", slog.String("command", string(cmd.Type)), slog.Any("error", err))
			return
		}
	}
}

func (s *Server) generate(ctx context.Context, conn net.Conn, text string) error {
	if err := s.controller.Stop(); err != nil {
		return err
	}
	if err := ttsproto.WriteResponse(conn, ttsproto.Started()); err != nil {
		return err
	}

	stream, err := s.synthesizer.Synthesize(ctx, text)
	if err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("synthesize: %v", err))
	}
	defer stream.Close()

	if err := s.controller.StartStreaming(s.synthesizer.SampleRate()); err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("start playback: %v", err))
	}

	var seq uint64
	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = s.controller.FinishStreaming()
			return ttsproto.WriteResponse(conn, ttsproto.Errorf("synthesis stream: %v", err))
		}
		if err := s.controller.StreamChunk(chunk); err != nil {
			return ttsproto.WriteResponse(conn, ttsproto.Errorf("stream playback: %v", err))
		}
		if err := ttsproto.WriteResponse(conn, ttsproto.ChunkGenerated(seq)); err != nil {
			return err
		}
		seq++
	}

	if err := s.controller.FinishStreaming(); err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("finish playback: %v", err))
	}
	if err := s.controller.WaitUntilFinished(ctx); err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("wait for playback: %v", err))
	}
	return ttsproto.WriteResponse(conn, ttsproto.Finished())
}

func (s *Server) stop(conn net.Conn) error {
	if err := s.controller.Stop(); err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("stop playback: %v", err))
	}
	return ttsproto.WriteResponse(conn, ttsproto.Stopped())
}

func (s *Server) waitUntilFinished(ctx context.Context, conn net.Conn) error {
	if err := s.controller.WaitUntilFinished(ctx); err != nil {
		return ttsproto.WriteResponse(conn, ttsproto.Errorf("wait for playback: %v", err))
	}
	return ttsproto.WriteResponse(conn, ttsproto.Finished())
}

// isWireError distinguishes transport failures from decode failures.
func isWireError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

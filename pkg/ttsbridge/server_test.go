package ttsbridge

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/murmurlabs/murmur/pkg/adapters/synth"
	"github.com/murmurlabs/murmur/pkg/playback"
	"github.com/murmurlabs/murmur/pkg/ttsproto"
)

// drainingSink renders sources in the background like a device would.
type drainingSink struct {
	mu      sync.Mutex
	stopped bool
	sawEOF  bool
	samples []float32
}

func (s *drainingSink) Start(src playback.SampleSource) error {
	go func() {
		for {
			v, ok := src.Next()
			if !ok {
				s.mu.Lock()
				s.sawEOF = true
				s.mu.Unlock()
				return
			}
			s.mu.Lock()
			stopped := s.stopped
			if !stopped {
				s.samples = append(s.samples, v)
			}
			s.mu.Unlock()
			if stopped {
				return
			}
		}
	}()
	return nil
}

func (s *drainingSink) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

func (s *drainingSink) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.sawEOF
}

func (s *drainingSink) rendered() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float32, len(s.samples))
	copy(out, s.samples)
	return out
}

type drainingOpener struct {
	mu    sync.Mutex
	sinks []*drainingSink
}

func (o *drainingOpener) Open(sampleRate int) (playback.Sink, error) {
	s := &drainingSink{}
	o.mu.Lock()
	o.sinks = append(o.sinks, s)
	o.mu.Unlock()
	return s, nil
}

// scriptSynth yields fixed chunks, optionally failing after them.
type scriptSynth struct {
	chunks [][]float32
	err    error
}

func (s *scriptSynth) Name() string    { return "script" }
func (s *scriptSynth) SampleRate() int { return 16000 }
func (s *scriptSynth) Close() error    { return nil }

func (s *scriptSynth) Synthesize(ctx context.Context, text string) (synth.Stream, error) {
	return &scriptStream{chunks: s.chunks, err: s.err}, nil
}

type scriptStream struct {
	chunks [][]float32
	err    error
	pos    int
}

func (s *scriptStream) Next(ctx context.Context) ([]float32, error) {
	if s.pos < len(s.chunks) {
		chunk := s.chunks[s.pos]
		s.pos++
		return chunk, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, io.EOF
}

func (s *scriptStream) Close() error { return nil }

func TestServerGenerateSession(t *testing.T) {
	opener := &drainingOpener{}
	controller := playback.NewController(opener)
	defer controller.Close()

	server := NewServer(&scriptSynth{chunks: [][]float32{{1, 2}, {3}}}, controller)

	clientConn, serverConn := net.Pipe()
	done := make(chan struct{})
	go func() {
		server.HandleConn(context.Background(), serverConn)
		close(done)
	}()

	if err := ttsproto.WriteCommand(clientConn, ttsproto.GenerateAudio("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	types := readSession(t, clientConn)
	want := []ttsproto.ResponseType{
		ttsproto.ResponseStarted,
		ttsproto.ResponseChunkGenerated,
		ttsproto.ResponseChunkGenerated,
		ttsproto.ResponseFinished,
	}
	if len(types) != len(want) {
		t.Fatalf("session responses = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("response %d = %v, want %v", i, types[i], want[i])
		}
	}

	opener.mu.Lock()
	sink := opener.sinks[len(opener.sinks)-1]
	opener.mu.Unlock()
	if got := sink.rendered(); len(got) != 3 {
		t.Fatalf("rendered %v, want 3 samples", got)
	}

	clientConn.Close()
	<-done
}

func TestServerStreamErrorYieldsSingleTerminal(t *testing.T) {
	controller := playback.NewController(&drainingOpener{})
	defer controller.Close()

	server := NewServer(&scriptSynth{
		chunks: [][]float32{{1}},
		err:    errors.New("model overload"),
	}, controller)

	clientConn, serverConn := net.Pipe()
	go server.HandleConn(context.Background(), serverConn)

	if err := ttsproto.WriteCommand(clientConn, ttsproto.GenerateAudio("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}

	types := readSession(t, clientConn)
	if types[0] != ttsproto.ResponseStarted {
		t.Fatalf("first response = %v, want started", types[0])
	}
	terminal := types[len(types)-1]
	if terminal != ttsproto.ResponseError {
		t.Fatalf("terminal = %v, want error", terminal)
	}
	for _, typ := range types[1 : len(types)-1] {
		if typ != ttsproto.ResponseChunkGenerated {
			t.Fatalf("mid-session response = %v", typ)
		}
	}
	clientConn.Close()
}

func TestServerStopAndWait(t *testing.T) {
	controller := playback.NewController(&drainingOpener{})
	defer controller.Close()

	server := NewServer(&scriptSynth{}, controller)
	clientConn, serverConn := net.Pipe()
	go server.HandleConn(context.Background(), serverConn)

	if err := ttsproto.WriteCommand(clientConn, ttsproto.Stop()); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := ttsproto.ReadResponse(clientConn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != ttsproto.ResponseStopped {
		t.Fatalf("response = %v, want stopped", resp.Type)
	}

	if err := ttsproto.WriteCommand(clientConn, ttsproto.WaitUntilFinished()); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err = ttsproto.ReadResponse(clientConn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != ttsproto.ResponseFinished {
		t.Fatalf("response = %v, want finished", resp.Type)
	}
	clientConn.Close()
}

func TestServerRejectsBadCommandAndKeepsSession(t *testing.T) {
	controller := playback.NewController(&drainingOpener{})
	defer controller.Close()

	server := NewServer(&scriptSynth{}, controller)
	clientConn, serverConn := net.Pipe()
	go server.HandleConn(context.Background(), serverConn)

	if err := ttsproto.WriteMessage(clientConn, []byte(`{"type":"reboot"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := ttsproto.ReadResponse(clientConn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != ttsproto.ResponseError {
		t.Fatalf("response = %v, want error", resp.Type)
	}

	// The session survives a decode failure.
	if err := ttsproto.WriteCommand(clientConn, ttsproto.Stop()); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err = ttsproto.ReadResponse(clientConn)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != ttsproto.ResponseStopped {
		t.Fatalf("response = %v, want stopped", resp.Type)
	}
	clientConn.Close()
}

// readSession reads responses until a terminal one arrives.
func readSession(t *testing.T, conn net.Conn) []ttsproto.ResponseType {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var types []ttsproto.ResponseType
	for time.Now().Before(deadline) {
		resp, err := ttsproto.ReadResponse(conn)
		if err != nil {
			t.Fatalf("read response: %v", err)
		}
		types = append(types, resp.Type)
		switch resp.Type {
		case ttsproto.ResponseFinished, ttsproto.ResponseError, ttsproto.ResponseStopped:
			return types
		}
	}
	t.Fatal("no terminal response before deadline")
	return nil
}

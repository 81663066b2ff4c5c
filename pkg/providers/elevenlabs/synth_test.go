package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func pcm16Payload(samples ...int16) string {
	raw := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// fakeAPI upgrades the connection, consumes the input messages and
// plays back a scripted list of responses.
func fakeAPI(t *testing.T, responses []map[string]any) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") == "" {
			t.Error("missing api key header")
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		// init, text, end-of-input
		for i := 0; i < 3; i++ {
			if _, _, err := conn.ReadMessage(); err != nil {
				t.Errorf("read input %d: %v", i, err)
				return
			}
		}
		for _, resp := range responses {
			b, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
		// Hold the connection open so EOF only comes from isFinal.
		time.Sleep(200 * time.Millisecond)
	}))
}

func wsConfig() Config {
	return Config{APIKey: "key", VoiceID: "voice", SampleRate: 16000}
}

func dialFake(t *testing.T, s *Synthesizer, srv *httptest.Server, text string) *wsStream {
	t.Helper()
	// Point the provider at the local server.
	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	dialer := websocket.Dialer{}
	conn, _, err := dialer.Dial(u, http.Header{"xi-api-key": []string{"key"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	for _, payload := range []map[string]any{
		{"text": " "},
		{"text": text + " ", "try_trigger_generation": true},
		{"text": ""},
	} {
		if err := writeJSON(conn, payload); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	stream := &wsStream{
		conn:   conn,
		chunks: make(chan []float32, 64),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	go stream.readLoop()
	return stream
}

func TestStreamDeliversChunksThenEOF(t *testing.T) {
	srv := fakeAPI(t, []map[string]any{
		{"audio": pcm16Payload(16384, -16384)},
		{"audio": pcm16Payload(32767)},
		{"isFinal": true},
	})
	defer srv.Close()

	s := New(wsConfig())
	stream := dialFake(t, s, srv, "hello")
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	first, err := stream.Next(ctx)
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if len(first) != 2 || first[0] != 0.5 || first[1] != -0.5 {
		t.Fatalf("first chunk = %v", first)
	}
	if _, err := stream.Next(ctx); err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	if _, err := stream.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestStreamSurfacesServerError(t *testing.T) {
	srv := fakeAPI(t, []map[string]any{
		{"audio": pcm16Payload(100)},
		{"error": "quota_exceeded", "message": "no characters left"},
	})
	defer srv.Close()

	s := New(wsConfig())
	stream := dialFake(t, s, srv, "hello")
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := stream.Next(ctx); err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	_, err := stream.Next(ctx)
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota_exceeded") {
		t.Fatalf("error missing cause: %v", err)
	}
}

func TestNextHonorsContext(t *testing.T) {
	srv := fakeAPI(t, nil)
	defer srv.Close()

	s := New(wsConfig())
	stream := dialFake(t, s, srv, "hello")
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := stream.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCloseUnblocksAbandonedStream(t *testing.T) {
	responses := make([]map[string]any, 8)
	for i := range responses {
		responses[i] = map[string]any{"audio": pcm16Payload(int16(i))}
	}
	srv := fakeAPI(t, responses)
	defer srv.Close()

	u := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := (&websocket.Dialer{}).Dial(u, http.Header{"xi-api-key": []string{"key"}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	for _, payload := range []map[string]any{
		{"text": " "},
		{"text": "hello ", "try_trigger_generation": true},
		{"text": ""},
	} {
		if err := writeJSON(conn, payload); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	// One-slot buffer and no consumer: the read loop fills it and blocks
	// on the next send. Close must release it.
	stream := &wsStream{
		conn:   conn,
		chunks: make(chan []float32, 1),
		done:   make(chan struct{}),
		logger: New(wsConfig()).logger,
	}
	loopDone := make(chan struct{})
	go func() {
		stream.readLoop()
		close(loopDone)
	}()

	time.Sleep(50 * time.Millisecond)
	_ = stream.Close()

	select {
	case <-loopDone:
	case <-time.After(2 * time.Second):
		t.Fatal("read loop still blocked after Close")
	}
}

func TestDecodePCM16(t *testing.T) {
	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw[0:], 0x8000) // int16 min, -32768
	binary.LittleEndian.PutUint16(raw[2:], 0)
	out := decodePCM16(raw)
	if out[0] != -1 || out[1] != 0 {
		t.Fatalf("decoded = %v", out)
	}
}

func TestSynthesizeRequiresCredentials(t *testing.T) {
	s := New(Config{})
	if _, err := s.Synthesize(context.Background(), "hi"); err == nil {
		t.Fatal("expected credential error")
	}
}

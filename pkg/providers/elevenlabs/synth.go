// Package elevenlabs streams synthesized speech from the ElevenLabs
// websocket API as raw PCM chunks.
package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/murmurlabs/murmur/pkg/adapters/synth"
	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
)

// Config carries ElevenLabs credentials and voice selection.
type Config struct {
	APIKey  string
	VoiceID string
	ModelID string
	// SampleRate selects the pcm output format; 16000 by default.
	SampleRate int
}

// Synthesizer opens one websocket session per request. Each session is
// a lazy, one-shot chunk stream: audio arrives while generation is
// still running.
type Synthesizer struct {
	cfg    Config
	logger *slog.Logger
}

// New builds the provider.
func New(cfg Config) *Synthesizer {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	return &Synthesizer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(nil, "elevenlabs_synth"),
	}
}

func (s *Synthesizer) Name() string    { return "elevenlabs" }
func (s *Synthesizer) SampleRate() int { return s.cfg.SampleRate }
func (s *Synthesizer) Close() error    { return nil }

// Synthesize connects, submits the full text and closes the input side;
// the returned stream yields chunks as the server generates them.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (synth.Stream, error) {
	if s.cfg.APIKey == "" || s.cfg.VoiceID == "" {
		return nil, errorsx.New(errorsx.ReasonSynthStream, "missing elevenlabs credentials")
	}

	dialer := websocket.Dialer{Proxy: http.ProxyFromEnvironment}
	conn, _, err := dialer.DialContext(ctx, s.streamURL(), http.Header{
		"xi-api-key": []string{s.cfg.APIKey},
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonSynthStream)
	}

	init := map[string]any{
		"text": " ",
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.8,
		},
	}
	if !strings.HasSuffix(text, " ") {
		text += " "
	}
	for _, payload := range []map[string]any{
		init,
		{"text": text, "try_trigger_generation": true},
		{"text": ""}, // end of input
	} {
		if err := writeJSON(conn, payload); err != nil {
			conn.Close()
			return nil, errorsx.Wrap(err, errorsx.ReasonSynthStream)
		}
	}

	stream := &wsStream{
		conn:   conn,
		chunks: make(chan []float32, 64),
		done:   make(chan struct{}),
		logger: s.logger,
	}
	go stream.readLoop()
	return stream, nil
}

func (s *Synthesizer) streamURL() string {
	q := url.Values{}
	if s.cfg.ModelID != "" {
		q.Set("model_id", s.cfg.ModelID)
	}
	q.Set("output_format", "pcm_"+strconv.Itoa(s.cfg.SampleRate))
	return "wss://api.elevenlabs.io/v1/text-to-speech/" + s.cfg.VoiceID + "/stream-input?" + q.Encode()
}

func writeJSON(conn *websocket.Conn, payload map[string]any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

// wsStream adapts the websocket read loop to the synth.Stream pull
// contract.
type wsStream struct {
	conn   *websocket.Conn
	chunks chan []float32
	done   chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	readErr error
	closed  bool
}

type streamMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (w *wsStream) readLoop() {
	defer close(w.chunks)
	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			if !w.closed {
				w.readErr = errorsx.Wrap(err, errorsx.ReasonSynthStream)
			}
			w.mu.Unlock()
			return
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			w.logger.Warn("unparseable synthesis message", slog.Int("bytes", len(data)))
			continue
		}
		if msg.Error != "" {
			w.mu.Lock()
			w.readErr = errorsx.New(errorsx.ReasonSynthStream, msg.Error+": "+msg.Message)
			w.mu.Unlock()
			return
		}
		if msg.Audio != "" {
			raw, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				w.logger.Warn("bad audio payload", slog.Any("error", err))
				continue
			}
			// done unblocks the send when the consumer abandoned the
			// stream with a full buffer.
			select {
			case w.chunks <- decodePCM16(raw):
			case <-w.done:
				return
			}
		}
		if msg.IsFinal {
			return
		}
	}
}

// Next blocks for the following chunk; io.EOF after the final one.
func (w *wsStream) Next(ctx context.Context) ([]float32, error) {
	select {
	case chunk, ok := <-w.chunks:
		if !ok {
			w.mu.Lock()
			err := w.readErr
			w.mu.Unlock()
			if err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close abandons the stream; remaining chunks are discarded.
func (w *wsStream) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return w.conn.Close()
}

func decodePCM16(raw []byte) []float32 {
	n := len(raw) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:i*2+2]))) / 32768
	}
	return out
}

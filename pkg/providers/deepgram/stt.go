// Package deepgram transcribes complete utterances through the
// Deepgram pre-recorded API.
package deepgram

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	prerecorded "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/murmurlabs/murmur/pkg/adapters/stt"
	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
)

// Config carries Deepgram credentials and model selection.
type Config struct {
	APIKey   string
	Model    string
	Language string
}

// Transcriber sends one utterance per request and returns its
// timestamped segments.
type Transcriber struct {
	cfg    Config
	client *prerecorded.Client
	logger *slog.Logger
}

// New builds a pre-recorded transcription client.
func New(cfg Config) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	rest := listen.NewREST(cfg.APIKey, &interfaces.ClientOptions{})
	return &Transcriber{
		cfg:    cfg,
		client: prerecorded.New(rest),
		logger: logging.NewComponentLogger(nil, "deepgram_stt"),
	}
}

func (t *Transcriber) Name() string { return "deepgram_prerecorded" }

// Transcribe uploads the utterance as a 16-bit WAV and maps the
// response utterances to segments.
func (t *Transcriber) Transcribe(ctx context.Context, samples []float32, sampleRate int) ([]stt.Segment, error) {
	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.cfg.Model,
		Language:    t.cfg.Language,
		SmartFormat: true,
		Utterances:  true,
	}

	started := time.Now()
	res, err := t.client.FromStream(ctx, bytes.NewReader(encodeWAV(samples, sampleRate)), options)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonSTTTranscribe)
	}
	t.logger.Debug("utterance transcribed",
		slog.Duration("latency", time.Since(started)),
		slog.Int("samples", len(samples)),
	)

	var segments []stt.Segment
	for _, u := range res.Results.Utterances {
		segments = append(segments, stt.Segment{
			Start: time.Duration(u.Start * float64(time.Second)),
			End:   time.Duration(u.End * float64(time.Second)),
			Text:  u.Transcript,
		})
	}
	if len(segments) > 0 {
		return segments, nil
	}

	// No utterance splitting in the response; fall back to the top
	// alternative as one segment.
	for _, ch := range res.Results.Channels {
		for _, alt := range ch.Alternatives {
			if alt.Transcript == "" {
				continue
			}
			seg := stt.Segment{Text: alt.Transcript}
			if n := len(alt.Words); n > 0 {
				seg.Start = time.Duration(alt.Words[0].Start * float64(time.Second))
				seg.End = time.Duration(alt.Words[n-1].End * float64(time.Second))
			}
			segments = append(segments, seg)
			break
		}
		break
	}
	return segments, nil
}

func (t *Transcriber) Close() error { return nil }

// encodeWAV wraps float32 samples in a 16-bit PCM WAV container, which
// the pre-recorded endpoint detects without extra content-type hints.
func encodeWAV(samples []float32, sampleRate int) []byte {
	dataLen := len(samples) * 2
	buf := bytes.NewBuffer(make([]byte, 0, 44+dataLen))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	for _, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		binary.Write(buf, binary.LittleEndian, int16(s*32767))
	}
	return buf.Bytes()
}

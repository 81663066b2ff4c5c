package devices

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/playback"
)

// OutputOpener opens speaker sinks for the playback controller.
type OutputOpener struct {
	ctx *Context
}

// NewOutputOpener binds sink creation to an audio context.
func NewOutputOpener(ctx *Context) *OutputOpener {
	return &OutputOpener{ctx: ctx}
}

// Open creates a mono float32 playback device at the given rate.
func (o *OutputOpener) Open(sampleRate int) (playback.Sink, error) {
	return newOutputSink(o.ctx, sampleRate)
}

// outputSink renders a SampleSource on a miniaudio playback device. The
// device callback pulls one sample per output frame; after the source
// ends, remaining frames are filled with silence and the sink reports
// empty.
type outputSink struct {
	mu      sync.Mutex
	device  *malgo.Device
	src     playback.SampleSource
	done    bool
	stopped bool
}

func newOutputSink(ctx *Context, sampleRate int) (*outputSink, error) {
	s := &outputSink{}

	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.SampleRate = uint32(sampleRate)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = 1
	devCfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(out []byte, _ []byte, frameCount uint32) {
			s.fill(out, int(frameCount))
		},
	}
	device, err := malgo.InitDevice(ctx.ctx.Context, devCfg, callbacks)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonDeviceOutput)
	}
	s.device = device
	return s, nil
}

func (s *outputSink) Start(src playback.SampleSource) error {
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()
	if err := s.device.Start(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonDeviceOutput)
	}
	return nil
}

func (s *outputSink) fill(out []byte, frames int) {
	s.mu.Lock()
	src, done := s.src, s.done
	s.mu.Unlock()

	for i := 0; i < frames; i++ {
		var v float32
		if src != nil && !done {
			sample, ok := src.Next()
			if ok {
				v = sample
			} else {
				done = true
				s.mu.Lock()
				s.done = true
				s.mu.Unlock()
			}
		}
		binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(v))
	}
}

func (s *outputSink) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	_ = s.device.Stop()
	s.device.Uninit()
}

func (s *outputSink) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped || s.done
}

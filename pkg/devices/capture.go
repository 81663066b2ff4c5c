package devices

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/murmurlabs/murmur/pkg/errorsx"
)

// defaultRecoveryDelay separates attempts against a device that may
// still be releasing from a previous owner.
const defaultRecoveryDelay = 300 * time.Millisecond

// CaptureConfig narrows which device configurations are attempted.
// Capture is always requested mono: multi-channel input is not
// disambiguated downstream, so it is rejected at the device instead of
// flattened silently.
type CaptureConfig struct {
	// PreferredRates are tried in order; empty uses common rates.
	PreferredRates []int
	// RecoveryDelay is the pause between failed attempts.
	RecoveryDelay time.Duration
}

type captureCandidate struct {
	rate   int
	format malgo.FormatType
}

// CaptureDevice is an open microphone stream. The data callback runs on
// the device's own thread; the handler it invokes must not block.
type CaptureDevice struct {
	device *malgo.Device
	rate   int
	buf    []float32
}

// SampleRate returns the negotiated capture rate.
func (d *CaptureDevice) SampleRate() int { return d.rate }

// Close stops and releases the device.
func (d *CaptureDevice) Close() {
	_ = d.device.Stop()
	d.device.Uninit()
}

// OpenCapture tries candidate configurations in order until one starts,
// pausing between failures. Exhausting every candidate is fatal and the
// returned error lists each attempt with its failure.
func OpenCapture(ctx *Context, cfg CaptureConfig, onData func(samples []float32, sampleRate int)) (*CaptureDevice, error) {
	rates := cfg.PreferredRates
	if len(rates) == 0 {
		rates = []int{16000, 48000, 44100}
	}
	delay := cfg.RecoveryDelay
	if delay <= 0 {
		delay = defaultRecoveryDelay
	}

	var candidates []captureCandidate
	for _, rate := range rates {
		candidates = append(candidates,
			captureCandidate{rate: rate, format: malgo.FormatF32},
			captureCandidate{rate: rate, format: malgo.FormatS16},
		)
	}

	var attempts []string
	for i, cand := range candidates {
		if i > 0 {
			time.Sleep(delay)
		}
		dev, err := openCaptureCandidate(ctx, cand, onData)
		if err == nil {
			ctx.logger.Info("capture device opened",
				slog.Int("sample_rate", cand.rate),
				slog.String("format", formatName(cand.format)),
			)
			return dev, nil
		}
		attempts = append(attempts, fmt.Sprintf("rate=%d format=%s: %v",
			cand.rate, formatName(cand.format), err))
	}

	return nil, errorsx.New(errorsx.ReasonCaptureOpen, fmt.Sprintf(
		"no capture configuration could be opened:\n  %s",
		strings.Join(attempts, "\n  ")))
}

func openCaptureCandidate(ctx *Context, cand captureCandidate, onData func([]float32, int)) (*CaptureDevice, error) {
	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = uint32(cand.rate)
	devCfg.Capture.Format = cand.format
	devCfg.Capture.Channels = 1
	devCfg.Alsa.NoMMap = 1

	cd := &CaptureDevice{rate: cand.rate}
	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, frameCount uint32) {
			if len(raw) == 0 {
				return
			}
			samples := cd.decode(raw, cand.format)
			onData(samples, cand.rate)
		},
	}

	device, err := malgo.InitDevice(ctx.ctx.Context, devCfg, callbacks)
	if err != nil {
		return nil, err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}
	cd.device = device
	return cd, nil
}

// decode converts raw device bytes to float32 samples, reusing one
// buffer to keep the callback allocation-free in steady state.
func (d *CaptureDevice) decode(raw []byte, format malgo.FormatType) []float32 {
	switch format {
	case malgo.FormatF32:
		n := len(raw) / 4
		d.ensure(n)
		for i := 0; i < n; i++ {
			d.buf[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4 : i*4+4]))
		}
		return d.buf[:n]
	default:
		n := len(raw) / 2
		d.ensure(n)
		for i := 0; i < n; i++ {
			d.buf[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:i*2+2]))) / 32768
		}
		return d.buf[:n]
	}
}

func (d *CaptureDevice) ensure(n int) {
	if cap(d.buf) < n {
		d.buf = make([]float32, n)
	}
	d.buf = d.buf[:n]
}

func formatName(f malgo.FormatType) string {
	switch f {
	case malgo.FormatF32:
		return "f32"
	case malgo.FormatS16:
		return "s16"
	default:
		return fmt.Sprintf("format(%d)", f)
	}
}

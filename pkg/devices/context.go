// Package devices owns the hardware audio boundary: microphone capture
// and speaker output through miniaudio. Samples cross the boundary as
// mono float32 regardless of the negotiated device format.
package devices

import (
	"log/slog"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
)

// Context wraps the miniaudio backend context shared by all devices in
// the process.
type Context struct {
	ctx    *malgo.AllocatedContext
	logger *slog.Logger
}

// NewContext initializes the audio backend.
func NewContext() (*Context, error) {
	logger := logging.NewComponentLogger(nil, "devices")
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("miniaudio", slog.String("message", strings.TrimSpace(msg)))
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonCaptureOpen)
	}
	return &Context{ctx: ctx, logger: logger}, nil
}

// Close tears the backend down. Devices must be closed first.
func (c *Context) Close() {
	_ = c.ctx.Uninit()
	c.ctx.Free()
}

package playback

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/murmurlabs/murmur/pkg/errorsx"
	"github.com/murmurlabs/murmur/pkg/logging"
)

// completionPoll is how often pending waiters re-check for playback
// completion. Sink drain progress has no event to hook, so this stays
// a poll, shared across all waiters.
const completionPoll = 10 * time.Millisecond

// Sink renders a SampleSource on an output device. At most one sink is
// active per controller.
type Sink interface {
	// Start begins rendering from src and returns immediately.
	Start(src SampleSource) error
	// Stop halts rendering and discards anything queued.
	Stop()
	// Empty reports whether everything handed to the sink has been
	// rendered.
	Empty() bool
}

// SinkOpener opens an output sink for a given sample rate.
type SinkOpener interface {
	Open(sampleRate int) (Sink, error)
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdStop
	cmdStopAndPlay
	cmdStartStreaming
	cmdFinishStreaming
	cmdWait
)

type command struct {
	kind       commandKind
	samples    []float32
	sampleRate int
	done       chan struct{}
}

// Controller owns the only handle to the output sink and serializes all
// playback operations through a single consumer goroutine, giving a
// total order over play/stop/stream commands. Starting any new playback
// first stops the previous sink and invalidates any prior stream.
type Controller struct {
	opener SinkOpener
	cmds   chan command
	closed chan struct{}
	stop   sync.Once
	logger *slog.Logger

	// mu guards the fields below; held by the actor and the completion
	// poller, one operation at a time.
	mu      sync.Mutex
	sink    Sink
	handle  *StreamingHandle
	waiters []chan struct{}
	polling bool
}

// NewController starts the playback actor.
func NewController(opener SinkOpener) *Controller {
	c := &Controller{
		opener: opener,
		cmds:   make(chan command, 16),
		closed: make(chan struct{}),
		logger: logging.NewComponentLogger(nil, "playback"),
	}
	go c.run()
	return c
}

// Play renders a complete buffer, stopping any current playback or
// stream first.
func (c *Controller) Play(samples []float32, sampleRate int) error {
	return c.send(command{kind: cmdPlay, samples: samples, sampleRate: sampleRate})
}

// Stop halts the current playback and invalidates any active stream.
func (c *Controller) Stop() error {
	return c.send(command{kind: cmdStop})
}

// StopAndPlay stops the current audio and immediately starts the new
// buffer.
func (c *Controller) StopAndPlay(samples []float32, sampleRate int) error {
	return c.send(command{kind: cmdStopAndPlay, samples: samples, sampleRate: sampleRate})
}

// StartStreaming replaces any current playback with a fresh streaming
// session fed through StreamChunk. It returns only after the stream is
// installed and accepting chunks, so a caller may push immediately.
func (c *Controller) StartStreaming(sampleRate int) error {
	done := make(chan struct{})
	if err := c.send(command{kind: cmdStartStreaming, sampleRate: sampleRate, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-c.closed:
		return errorsx.New(errorsx.ReasonPlaybackClosed, "playback controller closed")
	}
}

// StreamChunk appends samples to the active stream. Chunks sent while
// no stream is active are discarded.
func (c *Controller) StreamChunk(samples []float32) error {
	select {
	case <-c.closed:
		return errorsx.New(errorsx.ReasonPlaybackClosed, "playback controller closed")
	default:
	}
	c.mu.Lock()
	if c.handle != nil {
		c.handle.PushChunk(samples)
	}
	c.mu.Unlock()
	return nil
}

// FinishStreaming marks the active stream complete; buffered audio
// still renders to the end.
func (c *Controller) FinishStreaming() error {
	c.mu.Lock()
	if c.handle != nil {
		c.handle.MarkFinished()
	}
	c.mu.Unlock()
	return c.send(command{kind: cmdFinishStreaming})
}

// WaitUntilFinished blocks until the sink is empty and any active
// stream has finished, or ctx is cancelled. Waiters share one poller
// and are all released together.
func (c *Controller) WaitUntilFinished(ctx context.Context) error {
	done := make(chan struct{})
	if err := c.send(command{kind: cmdWait, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return nil
	}
}

// Close stops playback, releases all waiters and shuts the actor down.
func (c *Controller) Close() {
	c.stop.Do(func() {
		close(c.closed)
	})
}

func (c *Controller) send(cmd command) error {
	select {
	case <-c.closed:
		return errorsx.New(errorsx.ReasonPlaybackClosed, "playback controller closed")
	default:
	}
	select {
	case c.cmds <- cmd:
		return nil
	case <-c.closed:
		return errorsx.New(errorsx.ReasonPlaybackClosed, "playback controller closed")
	}
}

func (c *Controller) run() {
	for {
		select {
		case cmd := <-c.cmds:
			c.handleCommand(cmd)
		case <-c.closed:
			c.teardown()
			return
		}
	}
}

func (c *Controller) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdPlay, cmdStopAndPlay:
		c.invalidateStream()
		c.replaceSink(NewBufferedSource(cmd.samples, cmd.sampleRate), cmd.sampleRate)
	case cmdStop:
		c.invalidateStream()
		c.mu.Lock()
		if c.sink != nil {
			c.sink.Stop()
			c.sink = nil
		}
		c.mu.Unlock()
	case cmdStartStreaming:
		c.invalidateStream()
		source, handle := NewStream(cmd.sampleRate)
		c.replaceSink(source, cmd.sampleRate)
		c.mu.Lock()
		c.handle = handle
		c.mu.Unlock()
		close(cmd.done)
	case cmdFinishStreaming:
		c.mu.Lock()
		if c.handle != nil {
			c.handle.MarkFinished()
			c.handle = nil
		}
		c.mu.Unlock()
	case cmdWait:
		c.addWaiter(cmd.done)
	}
}

// invalidateStream ends any active stream so its source drains out and
// its handle stops accepting chunks.
func (c *Controller) invalidateStream() {
	c.mu.Lock()
	if c.handle != nil {
		c.handle.MarkFinished()
		c.handle = nil
	}
	c.mu.Unlock()
}

func (c *Controller) replaceSink(src SampleSource, sampleRate int) {
	c.mu.Lock()
	if c.sink != nil {
		c.sink.Stop()
		c.sink = nil
	}
	c.mu.Unlock()

	sink, err := c.opener.Open(sampleRate)
	if err != nil {
		c.logger.Error("open playback sink", slog.Any("error", err))
		return
	}
	if err := sink.Start(src); err != nil {
		c.logger.Error("start playback sink", slog.Any("error", err))
		sink.Stop()
		return
	}
	c.mu.Lock()
	c.sink = sink
	c.mu.Unlock()
}

func (c *Controller) addWaiter(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finishedLocked() {
		close(done)
		return
	}
	c.waiters = append(c.waiters, done)
	if !c.polling {
		c.polling = true
		go c.pollCompletion()
	}
}

func (c *Controller) finishedLocked() bool {
	streamDone := c.handle == nil || c.handle.Finished()
	sinkEmpty := c.sink == nil || c.sink.Empty()
	return streamDone && sinkEmpty
}

func (c *Controller) pollCompletion() {
	for {
		select {
		case <-c.closed:
			c.releaseWaiters()
			return
		case <-time.After(completionPoll):
		}
		c.mu.Lock()
		if len(c.waiters) == 0 {
			c.polling = false
			c.mu.Unlock()
			return
		}
		if c.finishedLocked() {
			for _, w := range c.waiters {
				close(w)
			}
			c.waiters = nil
			c.polling = false
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

func (c *Controller) releaseWaiters() {
	c.mu.Lock()
	for _, w := range c.waiters {
		close(w)
	}
	c.waiters = nil
	c.polling = false
	c.mu.Unlock()
}

func (c *Controller) teardown() {
	c.mu.Lock()
	if c.handle != nil {
		c.handle.MarkFinished()
		c.handle = nil
	}
	if c.sink != nil {
		c.sink.Stop()
		c.sink = nil
	}
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()
	for _, w := range waiters {
		close(w)
	}
}

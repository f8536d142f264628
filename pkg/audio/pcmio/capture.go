package pcmio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/callwaiting/voxbridge/pkg/audio/pcm"
	"github.com/callwaiting/voxbridge/pkg/bridge"
)

// DefaultFrameDuration is the audio length of each captured frame.
const DefaultFrameDuration = 20 * time.Millisecond

// OpenFunc acquires the audio source. It plays the role of opening the
// microphone and is called on every Start.
type OpenFunc func(ctx context.Context) (io.Reader, error)

// StreamCapture streams PCM from a reader to the bridge in real time, one
// fixed-duration frame per tick.
type StreamCapture struct {
	open    OpenFunc
	format  pcm.Format
	frame   time.Duration
	w       bridge.FrameWriter
	onError func(error)
	onEOF   func()
	log     *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// CaptureOption configures a StreamCapture.
type CaptureOption func(*StreamCapture)

// WithFrameDuration sets the frame length.
func WithFrameDuration(d time.Duration) CaptureOption {
	return func(c *StreamCapture) {
		c.frame = d
	}
}

// WithEOF sets a callback run when the source is exhausted.
func WithEOF(f func()) CaptureOption {
	return func(c *StreamCapture) {
		c.onEOF = f
	}
}

// WithCaptureLogger sets the logger.
func WithCaptureLogger(l *slog.Logger) CaptureOption {
	return func(c *StreamCapture) {
		c.log = l
	}
}

// NewStreamCapture creates a capture that reads format-encoded audio from
// sources returned by open and writes frames to w. Read and write failures
// after Start go to onError.
func NewStreamCapture(open OpenFunc, format pcm.Format, w bridge.FrameWriter, onError func(error), opts ...CaptureOption) *StreamCapture {
	c := &StreamCapture{
		open:    open,
		format:  format,
		frame:   DefaultFrameDuration,
		w:       w,
		onError: onError,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "pcmio.capture")
	return c
}

// CaptureFactory returns a bridge.CaptureFactory producing StreamCaptures.
func CaptureFactory(open OpenFunc, format pcm.Format, opts ...CaptureOption) bridge.CaptureFactory {
	return func(w bridge.FrameWriter, onError func(error)) bridge.Capture {
		return NewStreamCapture(open, format, w, onError, opts...)
	}
}

// Start opens the source and begins streaming. Calling Start on a running
// capture does nothing.
func (c *StreamCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if c.frame <= 0 {
		return fmt.Errorf("pcmio: invalid frame duration %v", c.frame)
	}

	r, err := c.open(ctx)
	if err != nil {
		return fmt.Errorf("pcmio: open source: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	go c.run(runCtx, r, c.done)
	c.log.Debug("capture started", "format", c.format, "frame", c.frame)
	return nil
}

func (c *StreamCapture) run(ctx context.Context, r io.Reader, done chan struct{}) {
	eof := false
	defer func() {
		closeSource(r)
		close(done)
		// Runs after done is closed so the callback may call Stop.
		if eof && c.onEOF != nil {
			c.onEOF()
		}
	}()

	ticker := time.NewTicker(c.frame)
	defer ticker.Stop()
	for {
		chunk, err := c.format.ReadChunk(r, c.frame)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.log.Debug("capture source exhausted")
				eof = true
			} else if ctx.Err() == nil {
				c.fail(fmt.Errorf("pcmio: read: %w", err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		if err := c.w.WriteAudio(chunk); err != nil {
			if ctx.Err() == nil {
				c.fail(fmt.Errorf("pcmio: write frame: %w", err))
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StreamCapture) fail(err error) {
	c.log.Warn("capture failed", "error", err)
	if c.onError != nil {
		c.onError(err)
	}
}

// Stop ends streaming and waits for the pump to exit. It is idempotent.
func (c *StreamCapture) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.cancel()
	done := c.done
	c.mu.Unlock()
	<-done
	c.log.Debug("capture stopped")
}

func closeSource(r io.Reader) {
	if rc, ok := r.(io.Closer); ok {
		rc.Close()
	}
}

package bridge

import "context"

// FrameWriter sends captured audio over the open channel.
type FrameWriter interface {
	WriteAudio(frame []byte) error
}

// Capture owns the input audio device.
//
// Start acquires the device and begins streaming encoded frames to the
// FrameWriter the capture was built with; it returns an error when the
// device cannot be opened. ctx bounds acquisition only, not the stream.
// Stop must be idempotent. Failures after Start are reported through the
// onError callback given to the factory.
type Capture interface {
	Start(ctx context.Context) error
	Stop()
}

// CaptureFactory builds a Capture bound to w.
type CaptureFactory func(w FrameWriter, onError func(error)) Capture

// Playback owns the output audio device.
//
// Resume is called before every chunk so that suspended outputs recover.
// Stop discards queued audio (barge-in). Close releases the device; calls
// racing with or following Close must return errors rather than panic.
type Playback interface {
	Resume(ctx context.Context) error
	PlayChunk(ctx context.Context, chunk []byte) error
	Stop()
	Close() error
}

// PlaybackFactory builds the Playback for a manager.
type PlaybackFactory func() (Playback, error)

// discardPlayback drops audio. It is used when no output is configured.
type discardPlayback struct{}

func (discardPlayback) Resume(context.Context) error            { return nil }
func (discardPlayback) PlayChunk(context.Context, []byte) error { return nil }
func (discardPlayback) Stop()                                   {}
func (discardPlayback) Close() error                            { return nil }

// conn is a channel owned by a Manager plus the per-channel flags the
// read loop consults. Identity comparison against Manager.conn tells
// callbacks whether they still refer to the live channel.
type conn struct {
	ch Channel

	// fatal is set when the server reported an error; the close that
	// follows is not retried. Guarded by Manager.mu.
	fatal bool
}

// WriteAudio implements FrameWriter.
func (c *conn) WriteAudio(frame []byte) error {
	return c.ch.WriteBinary(frame)
}

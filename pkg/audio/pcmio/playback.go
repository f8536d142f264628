package pcmio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/callwaiting/voxbridge/pkg/audio/pcm"
	"github.com/callwaiting/voxbridge/pkg/audio/resampler"
	"github.com/callwaiting/voxbridge/pkg/bridge"
)

// ErrClosed is returned by a playback after Close.
var ErrClosed = errors.New("pcmio: playback closed")

// StreamPlayback writes received agent audio to an io.Writer, resampling
// from the bridge format to the sink format.
type StreamPlayback struct {
	w        io.Writer
	src, dst pcm.Format
	log      *slog.Logger

	mu      sync.Mutex
	rs      *resampler.Resampler
	stopped bool
	closed  bool
	written int64
	dropped int
}

// NewStreamPlayback creates a playback writing dst-encoded audio to w. The
// caller owns w.
func NewStreamPlayback(w io.Writer, src, dst pcm.Format, logger *slog.Logger) (*StreamPlayback, error) {
	rs, err := resampler.New(src, dst)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPlayback{
		w:   w,
		src: src,
		dst: dst,
		rs:  rs,
		log: logger.With("component", "pcmio.playback"),
	}, nil
}

// PlaybackFactory returns a bridge.PlaybackFactory writing to w.
func PlaybackFactory(w io.Writer, src, dst pcm.Format, logger *slog.Logger) bridge.PlaybackFactory {
	return func() (bridge.Playback, error) {
		return NewStreamPlayback(w, src, dst, logger)
	}
}

// Resume re-arms the playback after Stop.
func (p *StreamPlayback) Resume(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.stopped = false
	return nil
}

// PlayChunk resamples chunk and writes it. Chunks arriving while stopped
// are dropped.
func (p *StreamPlayback) PlayChunk(_ context.Context, chunk []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.stopped {
		p.dropped++
		return nil
	}
	out, err := p.rs.Process(chunk)
	if err != nil {
		return err
	}
	if len(out) == 0 {
		return nil
	}
	n, err := p.w.Write(out)
	p.written += int64(n)
	if err != nil {
		return fmt.Errorf("pcmio: write: %w", err)
	}
	return nil
}

// Stop discards resampler state so the next utterance starts clean.
func (p *StreamPlayback) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.stopped {
		return
	}
	p.stopped = true
	if rs, err := resampler.New(p.src, p.dst); err == nil {
		p.rs = rs
	}
	p.log.Debug("playback interrupted", "written", p.written)
}

// Close releases the playback. Later calls return ErrClosed.
func (p *StreamPlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Debug("playback closed", "written", p.written, "dropped", p.dropped)
	return nil
}

// Written returns the number of bytes written to the sink.
func (p *StreamPlayback) Written() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Format returns the sink format.
func (p *StreamPlayback) Format() pcm.Format {
	return p.dst
}

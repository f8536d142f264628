package resampler

import (
	"fmt"
	"io"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"

	"github.com/callwaiting/voxbridge/pkg/audio/pcm"
)

// Resampler converts a stream of L16 mono chunks from one rate to another.
// Filter state carries across chunks so consecutive calls produce a
// continuous signal. A Resampler is not safe for concurrent use.
type Resampler struct {
	src, dst pcm.Format
	rs       resampling.Resampler

	// carry holds a trailing odd byte until the next chunk completes it.
	carry []byte
}

// New creates a Resampler from src to dst. When the rates match it copies
// data through unchanged.
func New(src, dst pcm.Format) (*Resampler, error) {
	r := &Resampler{src: src, dst: dst}
	if src.SampleRate() == dst.SampleRate() {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(src.SampleRate()),
		OutputRate: float64(dst.SampleRate()),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("resampler: %s to %s: %w", src, dst, err)
	}
	r.rs = rs
	return r, nil
}

// Src returns the input format.
func (r *Resampler) Src() pcm.Format { return r.src }

// Dst returns the output format.
func (r *Resampler) Dst() pcm.Format { return r.dst }

// Process resamples chunk. The result may be empty while the filter is
// priming.
func (r *Resampler) Process(chunk []byte) ([]byte, error) {
	if len(r.carry) > 0 {
		chunk = append(r.carry, chunk...)
		r.carry = nil
	}
	if odd := len(chunk) % 2; odd != 0 {
		r.carry = []byte{chunk[len(chunk)-1]}
		chunk = chunk[:len(chunk)-1]
	}
	if len(chunk) == 0 {
		return nil, nil
	}
	if r.rs == nil {
		return append([]byte(nil), chunk...), nil
	}

	out, err := r.rs.Process(toFloat(chunk))
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	return fromFloat(out), nil
}

// Convert resamples a complete buffer in one call.
func Convert(data []byte, src, dst pcm.Format) ([]byte, error) {
	r, err := New(src, dst)
	if err != nil {
		return nil, err
	}
	return r.Process(data)
}

// Reader resamples everything read from an underlying reader.
type Reader struct {
	src io.Reader
	rs  *Resampler
	buf []byte

	mu       sync.Mutex
	pending  []byte
	closeErr error
}

// NewReader wraps src, whose data is in srcFmt, so that reads return dstFmt.
func NewReader(src io.Reader, srcFmt, dstFmt pcm.Format) (*Reader, error) {
	rs, err := New(srcFmt, dstFmt)
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, rs: rs}, nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.pending) == 0 {
		if r.closeErr != nil {
			return 0, r.closeErr
		}
		// Read roughly what p needs at the source rate.
		want := len(p) * r.rs.src.SampleRate() / r.rs.dst.SampleRate()
		want += 4 - want%2
		if cap(r.buf) < want {
			r.buf = make([]byte, want)
		}
		n, err := r.src.Read(r.buf[:want])
		if n > 0 {
			out, perr := r.rs.Process(r.buf[:n])
			if perr != nil {
				return 0, perr
			}
			r.pending = out
		}
		if err != nil {
			if len(r.pending) > 0 {
				break
			}
			return 0, err
		}
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// Close marks the reader closed. Subsequent reads return io.ErrClosedPipe.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closeErr == nil {
		r.closeErr = fmt.Errorf("resampler: %w", io.ErrClosedPipe)
	}
	r.pending = nil
	return nil
}

func toFloat(b []byte) []float64 {
	out := make([]float64, len(b)/2)
	for i := range out {
		s := int16(b[i*2]) | int16(b[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

func fromFloat(in []float64) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		var v int16
		switch {
		case s >= 1.0:
			v = 32767
		case s < -1.0:
			v = -32768
		default:
			v = int16(s * 32767.0)
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

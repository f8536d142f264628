// Package resampler converts L16 mono audio between sample rates using a
// pure Go resampler (no CGO).
//
// Resampler works chunk by chunk and keeps filter state between calls, which
// suits audio that arrives in network frames. Reader does the same for an
// io.Reader source.
//
// Example usage:
//
//	rs, err := resampler.New(pcm.L16Mono16K, pcm.L16Mono48K)
//	if err != nil {
//	    return err
//	}
//	out, err := rs.Process(frame)
package resampler

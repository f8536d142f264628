// Package pcm provides types and utilities for working with PCM audio data.
//
// Every format is 16-bit little-endian mono (audio/L16) at one of the
// rates voice bridges commonly use: 8, 16, 24 or 48 kHz.
//
// Key pieces:
//   - Format: sample rate plus byte/duration conversions
//   - ReadChunk: whole-sample reads of a fixed duration
//   - WAV headers: WriteWAV, ReadWAVHeader
//
// Example usage:
//
//	format, err := pcm.ParseFormat(16000)
//	if err != nil {
//	    return err
//	}
//
//	// Bytes needed for 20ms of audio
//	n := format.BytesInDuration(20 * time.Millisecond)
//
//	// Save collected audio
//	err = pcm.WriteWAV(file, format, audio)
package pcm

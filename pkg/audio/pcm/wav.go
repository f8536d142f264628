package pcm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WAVHeaderSize is the length of the canonical PCM WAV header.
const WAVHeaderSize = 44

// WAVHeader returns the RIFF header for dataLen bytes of audio in f.
func WAVHeader(f Format, dataLen int) []byte {
	h := make([]byte, WAVHeaderSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataLen))
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(f.Channels()))
	binary.LittleEndian.PutUint32(h[24:28], uint32(f.SampleRate()))
	binary.LittleEndian.PutUint32(h[28:32], uint32(f.BytesRate()))
	binary.LittleEndian.PutUint16(h[32:34], uint16(f.FrameBytes()))
	binary.LittleEndian.PutUint16(h[34:36], uint16(f.Depth()))

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataLen))
	return h
}

// WriteWAV writes data as a complete WAV file to w.
func WriteWAV(w io.Writer, f Format, data []byte) error {
	if _, err := w.Write(WAVHeader(f, len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadWAVHeader consumes a canonical 44-byte header from r and returns the
// audio format it declares. Only 16-bit mono PCM at a supported rate is
// accepted.
func ReadWAVHeader(r io.Reader) (Format, error) {
	h := make([]byte, WAVHeaderSize)
	if _, err := io.ReadFull(r, h); err != nil {
		return 0, fmt.Errorf("pcm: read wav header: %w", err)
	}
	if string(h[0:4]) != "RIFF" || string(h[8:12]) != "WAVE" || string(h[12:16]) != "fmt " || string(h[36:40]) != "data" {
		return 0, errors.New("pcm: not a canonical wav file")
	}
	if tag := binary.LittleEndian.Uint16(h[20:22]); tag != 1 {
		return 0, fmt.Errorf("pcm: wav encoding %d is not PCM", tag)
	}
	if ch, depth := binary.LittleEndian.Uint16(h[22:24]), binary.LittleEndian.Uint16(h[34:36]); ch != 1 || depth != 16 {
		return 0, fmt.Errorf("pcm: wav is %d-channel %d-bit, want mono 16-bit", ch, depth)
	}
	return ParseFormat(int(binary.LittleEndian.Uint32(h[24:28])))
}

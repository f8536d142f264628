package pcm

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		rate int
		want Format
	}{
		{8000, L16Mono8K},
		{16000, L16Mono16K},
		{24000, L16Mono24K},
		{48000, L16Mono48K},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.rate)
		if err != nil {
			t.Fatalf("ParseFormat(%d) error: %v", tt.rate, err)
		}
		if got != tt.want || got.SampleRate() != tt.rate {
			t.Errorf("ParseFormat(%d) = %v", tt.rate, got)
		}
	}
	if _, err := ParseFormat(44100); err == nil {
		t.Error("ParseFormat(44100) should fail")
	}
}

func TestFormatMaths(t *testing.T) {
	f := L16Mono16K
	if got := f.BytesInDuration(20 * time.Millisecond); got != 640 {
		t.Errorf("BytesInDuration(20ms) = %d; want 640", got)
	}
	if got := f.Duration(32000); got != time.Second {
		t.Errorf("Duration(32000) = %v; want 1s", got)
	}
	if got := L16Mono8K.BytesRate(); got != 16000 {
		t.Errorf("BytesRate() = %d; want 16000", got)
	}
	if got := f.String(); got != "audio/L16; rate=16000; channels=1" {
		t.Errorf("String() = %q", got)
	}
}

func TestReadChunk(t *testing.T) {
	f := L16Mono8K
	// 20ms at 8kHz is 320 bytes; supply 1.5 frames plus a stray byte.
	r := bytes.NewReader(make([]byte, 320+160+1))

	c, err := f.ReadChunk(r, 20*time.Millisecond)
	if err != nil || len(c) != 320 {
		t.Fatalf("first ReadChunk() = %d bytes, %v; want 320", len(c), err)
	}
	c, err = f.ReadChunk(r, 20*time.Millisecond)
	if err != nil || len(c) != 160 {
		t.Fatalf("second ReadChunk() = %d bytes, %v; want 160", len(c), err)
	}
	if d := f.Duration(int64(len(c))); d != 10*time.Millisecond {
		t.Errorf("Duration() = %v; want 10ms", d)
	}
	if _, err := f.ReadChunk(r, 20*time.Millisecond); err != io.EOF {
		t.Errorf("third ReadChunk() error = %v; want io.EOF", err)
	}
}

func TestWriteWAV(t *testing.T) {
	data := []byte{1, 0, 2, 0, 3, 0}
	var buf bytes.Buffer
	if err := WriteWAV(&buf, L16Mono24K, data); err != nil {
		t.Fatal(err)
	}
	out := buf.Bytes()
	if len(out) != WAVHeaderSize+len(data) {
		t.Fatalf("len = %d", len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" || string(out[36:40]) != "data" {
		t.Errorf("header = %q", out[:44])
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 24000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != uint32(len(data)) {
		t.Errorf("data size = %d", got)
	}
	if !bytes.Equal(out[44:], data) {
		t.Error("payload mismatch")
	}
}

func TestReadWAVHeader(t *testing.T) {
	var buf bytes.Buffer
	WriteWAV(&buf, L16Mono8K, []byte{9, 9})
	f, err := ReadWAVHeader(&buf)
	if err != nil {
		t.Fatalf("ReadWAVHeader error: %v", err)
	}
	if f != L16Mono8K {
		t.Errorf("format = %v; want %v", f, L16Mono8K)
	}
	if rest := buf.Bytes(); !bytes.Equal(rest, []byte{9, 9}) {
		t.Errorf("remaining = %v; want the audio payload", rest)
	}

	stereo := WAVHeader(L16Mono16K, 0)
	binary.LittleEndian.PutUint16(stereo[22:24], 2)
	bad := [][]byte{
		[]byte("short"),
		append([]byte("RIFX"), WAVHeader(L16Mono16K, 0)[4:]...),
		stereo,
	}
	for i, b := range bad {
		if _, err := ReadWAVHeader(bytes.NewReader(b)); err == nil {
			t.Errorf("case %d: ReadWAVHeader succeeded", i)
		}
	}
}

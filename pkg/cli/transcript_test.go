package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/callwaiting/voxbridge/pkg/jsontime"
	"github.com/callwaiting/voxbridge/pkg/transcript"
)

var at = jsontime.FromTime(time.Date(2024, 1, 15, 10, 30, 5, 0, time.Local))

func TestRenderMessage(t *testing.T) {
	s := NewStyles(DefaultTheme)
	m := transcript.Message{ID: "m1", Speaker: transcript.SpeakerAgent, Text: "How can I help?", IsFinal: true, Timestamp: at}

	got := s.RenderMessage(m, 0)
	for _, want := range []string{"10:30:05", "agent", "How can I help?"} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderMessage() = %q, missing %q", got, want)
		}
	}

	long := m
	long.Text = strings.Repeat("word ", 40)
	if got := s.RenderMessage(long, 40); !strings.Contains(got, "…") || strings.Contains(got, long.Text) {
		t.Errorf("RenderMessage(width 40) = %q, want truncated text", got)
	}
}

func TestRenderTranscript(t *testing.T) {
	s := NewStyles(DefaultTheme)
	out := s.RenderTranscript([]transcript.Message{
		{ID: "1", Speaker: transcript.SpeakerUser, Text: "hi", IsFinal: true, Timestamp: at},
		{ID: "2", Speaker: transcript.SpeakerAgent, Text: "hello", IsFinal: true, Timestamp: at},
	}, 0)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "hi") || !strings.Contains(lines[1], "hello") {
		t.Errorf("RenderTranscript() = %q", out)
	}
}

func TestLivePrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewLivePrinter(&buf, NewStyles(DefaultTheme))

	interim := transcript.Message{ID: "interim-1", Speaker: transcript.SpeakerUser, Text: "book a", Timestamp: at}
	p.Update([]transcript.Message{interim})
	if buf.Len() != 0 {
		t.Errorf("interim printed without Interim set: %q", buf.String())
	}

	final := interim
	final.Text, final.IsFinal = "book a cleaning", true
	reply := transcript.Message{ID: "msg-2", Speaker: transcript.SpeakerAgent, Text: "Sure", IsFinal: true, Timestamp: at}
	p.Update([]transcript.Message{final})
	p.Update([]transcript.Message{final, reply})

	out := buf.String()
	if strings.Count(out, "book a cleaning") != 1 || strings.Count(out, "Sure") != 1 {
		t.Errorf("each final should print once, got %q", out)
	}

	buf.Reset()
	p.Interim = true
	next := transcript.Message{ID: "interim-3", Speaker: transcript.SpeakerUser, Text: "tues", Timestamp: at}
	p.Update([]transcript.Message{final, reply, next})
	p.Update([]transcript.Message{final, reply, next})
	if strings.Count(buf.String(), "tues") != 1 {
		t.Errorf("unchanged interim should print once, got %q", buf.String())
	}

	buf.Reset()
	p.Status("connected %s", "t1")
	p.Error(errors.New("boom"))
	if !strings.Contains(buf.String(), "connected t1") || !strings.Contains(buf.String(), "error: boom") {
		t.Errorf("status/error output = %q", buf.String())
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"hello", 0, ""},
		{"你好世界", 4, "你好"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.s, tt.width); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

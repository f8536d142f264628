package transcript

import (
	"fmt"
	"testing"
)

func msg(text string, final bool) Message {
	return Message{ID: text, Speaker: SpeakerUser, Text: text, IsFinal: final}
}

func TestLog_AppendEvictsOldest(t *testing.T) {
	l := NewLog(3)
	for i := range 5 {
		evicted := l.Append(msg(fmt.Sprint(i), true))
		if want := i >= 3; evicted != want {
			t.Errorf("Append(%d) evicted = %v; want %v", i, evicted, want)
		}
	}

	got := l.Messages()
	want := []string{"2", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("len(Messages()) = %d; want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("Messages()[%d] = %q; want %q", i, got[i].Text, want[i])
		}
	}
}

func TestLog_TailOnEmpty(t *testing.T) {
	l := NewLog(0)
	if l.Cap() != DefaultCapacity {
		t.Errorf("Cap() = %d; want %d", l.Cap(), DefaultCapacity)
	}
	if _, ok := l.Tail(); ok {
		t.Error("Tail() on empty log reported ok")
	}
	if l.ReplaceTail(msg("x", true)) {
		t.Error("ReplaceTail() on empty log reported true")
	}
}

func TestLog_AppendOrReplaceTail(t *testing.T) {
	tests := []struct {
		name     string
		tail     Message
		next     Message
		replaced bool
		wantLen  int
	}{
		{
			name:     "interim same speaker",
			tail:     msg("a", false),
			next:     msg("ab", false),
			replaced: true,
			wantLen:  1,
		},
		{
			name:    "final tail",
			tail:    msg("a", true),
			next:    msg("b", false),
			wantLen: 2,
		},
		{
			name:    "interim other speaker",
			tail:    msg("a", false),
			next:    Message{ID: "b", Speaker: SpeakerAgent, Text: "b"},
			wantLen: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLog(4)
			l.Append(tt.tail)
			if got := l.AppendOrReplaceTail(tt.next); got != tt.replaced {
				t.Errorf("AppendOrReplaceTail() = %v; want %v", got, tt.replaced)
			}
			if l.Len() != tt.wantLen {
				t.Errorf("Len() = %d; want %d", l.Len(), tt.wantLen)
			}
			if tail, _ := l.Tail(); tail.Text != tt.next.Text {
				t.Errorf("tail = %q; want %q", tail.Text, tt.next.Text)
			}
		})
	}
}

func TestLog_ReplaceTailAfterWrap(t *testing.T) {
	l := NewLog(2)
	l.Append(msg("a", true))
	l.Append(msg("b", true))
	l.Append(msg("c", false))
	l.ReplaceTail(msg("c2", true))

	got := l.Messages()
	if got[0].Text != "b" || got[1].Text != "c2" {
		t.Errorf("Messages() = %q, %q; want b, c2", got[0].Text, got[1].Text)
	}
}

func TestLog_Reset(t *testing.T) {
	l := NewLog(2)
	l.Append(msg("a", true))
	l.Reset()
	if l.Len() != 0 {
		t.Errorf("Len() after Reset = %d; want 0", l.Len())
	}
	if got := l.Messages(); len(got) != 0 {
		t.Errorf("Messages() after Reset = %v; want empty", got)
	}
}

package transcript

// DefaultCapacity is the number of messages a Log retains.
const DefaultCapacity = 100

// Log is a bounded ring of messages. When full, appending evicts the oldest
// message.
type Log struct {
	buf        []Message
	head, tail int64
}

// NewLog creates a Log holding at most capacity messages. A non-positive
// capacity selects DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{buf: make([]Message, capacity)}
}

// Len returns the number of messages held.
func (l *Log) Len() int {
	return int(l.tail - l.head)
}

// Cap returns the maximum number of messages held.
func (l *Log) Cap() int {
	return len(l.buf)
}

// Append adds m at the tail and reports whether the oldest message was
// evicted to make room.
func (l *Log) Append(m Message) (evicted bool) {
	size := int64(len(l.buf))
	l.buf[l.tail%size] = m
	l.tail++
	if l.tail-l.head > size {
		l.head++
		return true
	}
	return false
}

// Tail returns the most recent message.
func (l *Log) Tail() (Message, bool) {
	if l.tail == l.head {
		return Message{}, false
	}
	return l.buf[(l.tail-1)%int64(len(l.buf))], true
}

// ReplaceTail overwrites the most recent message. It reports false if the
// log is empty.
func (l *Log) ReplaceTail(m Message) bool {
	if l.tail == l.head {
		return false
	}
	l.buf[(l.tail-1)%int64(len(l.buf))] = m
	return true
}

// AppendOrReplaceTail replaces the tail when it is an interim message from
// the same speaker as m, and appends m otherwise. It reports whether the
// tail was replaced.
func (l *Log) AppendOrReplaceTail(m Message) (replaced bool) {
	if tail, ok := l.Tail(); ok && tail.IsInterim() && tail.Speaker == m.Speaker {
		return l.ReplaceTail(m)
	}
	l.Append(m)
	return false
}

// Messages returns a copy of the log, oldest first.
func (l *Log) Messages() []Message {
	out := make([]Message, 0, l.Len())
	size := int64(len(l.buf))
	for i := l.head; i < l.tail; i++ {
		out = append(out, l.buf[i%size])
	}
	return out
}

// Reset empties the log.
func (l *Log) Reset() {
	clear(l.buf)
	l.head, l.tail = 0, 0
}

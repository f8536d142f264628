package transcript

import (
	"time"

	"github.com/google/uuid"

	"github.com/callwaiting/voxbridge/pkg/jsontime"
)

// Default reconciliation windows.
const (
	DefaultDedupWindow = 500 * time.Millisecond
	DefaultStaleAfter  = 5 * time.Second
)

// Outcome describes what a Fold did to the log.
type Outcome int

const (
	// Duplicate means the event repeated the final tail and was dropped.
	Duplicate Outcome = iota
	// Promoted means an interim tail became final in place.
	Promoted
	// Appended means a new final message was added.
	Appended
	// InterimUpdated means the interim tail was rewritten in place.
	InterimUpdated
	// InterimAppended means a new interim message was added.
	InterimAppended
)

var outcomeNames = [...]string{
	Duplicate:       "duplicate",
	Promoted:        "promoted",
	Appended:        "appended",
	InterimUpdated:  "interim_updated",
	InterimAppended: "interim_appended",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Finalized reports whether the fold produced a new finalized utterance.
func (o Outcome) Finalized() bool {
	return o == Promoted || o == Appended
}

// Reconciler holds the reconciliation policy. The zero value is not usable;
// call NewReconciler.
type Reconciler struct {
	// DedupWindow is how recent a final tail must be for an identical final
	// event to count as a redelivery.
	DedupWindow time.Duration

	// StaleAfter is how long an interim tail may go without updates before
	// its owner should call PromoteStale.
	StaleAfter time.Duration

	// NewID generates message ids.
	NewID func(interim bool) string
}

// NewReconciler returns a Reconciler with the default windows.
func NewReconciler() *Reconciler {
	return &Reconciler{
		DedupWindow: DefaultDedupWindow,
		StaleAfter:  DefaultStaleAfter,
		NewID:       newMessageID,
	}
}

func newMessageID(interim bool) string {
	if interim {
		return InterimIDPrefix + uuid.NewString()
	}
	return FinalIDPrefix + uuid.NewString()
}

// Fold applies ev to l as of now.
func (r *Reconciler) Fold(l *Log, ev Event, now time.Time) Outcome {
	if ev.IsFinal {
		return r.foldFinal(l, ev, now)
	}
	return r.foldInterim(l, ev, now)
}

func (r *Reconciler) foldFinal(l *Log, ev Event, now time.Time) Outcome {
	tail, ok := l.Tail()
	if ok && tail.IsFinal && tail.Speaker == ev.Speaker && tail.Text == ev.Text &&
		now.Sub(tail.Timestamp.Time()) < r.DedupWindow {
		return Duplicate
	}
	if ok && tail.IsInterim() && tail.Speaker == ev.Speaker {
		tail.Text = ev.Text
		tail.Confidence = ev.Confidence
		tail.IsFinal = true
		l.ReplaceTail(tail)
		return Promoted
	}
	sealInterimTail(l)
	l.Append(Message{
		ID:         r.NewID(false),
		Speaker:    ev.Speaker,
		Text:       ev.Text,
		Confidence: ev.Confidence,
		IsFinal:    true,
		Timestamp:  jsontime.FromTime(now),
	})
	return Appended
}

func (r *Reconciler) foldInterim(l *Log, ev Event, now time.Time) Outcome {
	if tail, ok := l.Tail(); ok && tail.IsInterim() && tail.Speaker == ev.Speaker {
		tail.Text = ev.Text
		tail.Confidence = ev.Confidence
		tail.Timestamp = jsontime.FromTime(now)
		l.AppendOrReplaceTail(tail)
		return InterimUpdated
	}
	sealInterimTail(l)
	l.Append(Message{
		ID:         r.NewID(true),
		Speaker:    ev.Speaker,
		Text:       ev.Text,
		Confidence: ev.Confidence,
		Timestamp:  jsontime.FromTime(now),
	})
	return InterimAppended
}

// PromoteStale marks the tail final if it is still the interim message id.
// It reports whether anything changed.
func (r *Reconciler) PromoteStale(l *Log, id string) bool {
	tail, ok := l.Tail()
	if !ok || tail.ID != id || tail.IsFinal {
		return false
	}
	tail.IsFinal = true
	return l.ReplaceTail(tail)
}

// AppendResponse appends an authoritative agent message. Responses bypass
// the duplicate guard.
func (r *Reconciler) AppendResponse(l *Log, text string, now time.Time) Message {
	sealInterimTail(l)
	m := Message{
		ID:         r.NewID(false),
		Speaker:    SpeakerAgent,
		Text:       text,
		Confidence: DefaultConfidence,
		IsFinal:    true,
		Timestamp:  jsontime.FromTime(now),
	}
	l.Append(m)
	return m
}

// PendingInterim returns the interim tail, if any.
func PendingInterim(l *Log) (Message, bool) {
	tail, ok := l.Tail()
	if !ok || tail.IsFinal {
		return Message{}, false
	}
	return tail, true
}

// sealInterimTail finalizes an interim tail as-is so that it does not end up
// behind a newer message.
func sealInterimTail(l *Log) {
	if tail, ok := l.Tail(); ok && tail.IsInterim() {
		tail.IsFinal = true
		l.ReplaceTail(tail)
	}
}

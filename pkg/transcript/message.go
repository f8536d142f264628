// Package transcript folds a live stream of speech-recognition events into an
// ordered, deduplicated conversation log.
//
// The backend delivers interim (still changing) and final results for each
// utterance, possibly more than once. A [Reconciler] applies one [Event] at a
// time to a bounded [Log]:
//
//	log := transcript.NewLog(transcript.DefaultCapacity)
//	rec := transcript.NewReconciler()
//	rec.Fold(log, transcript.NewEvent("caller", "hel", false, nil), time.Now())
//	rec.Fold(log, transcript.NewEvent("caller", "hello", true, nil), time.Now())
//	// log now holds a single final "hello" from SpeakerUser.
//
// Neither type is safe for concurrent use; the owner serialises access.
package transcript

import (
	"strings"

	"github.com/callwaiting/voxbridge/pkg/jsontime"
)

// DefaultConfidence is used when an event carries no confidence score.
const DefaultConfidence = 0.95

// Id prefixes. Interim messages are distinguishable by id alone.
const (
	InterimIDPrefix = "interim-"
	FinalIDPrefix   = "msg-"
)

// Speaker is the logical author of a message.
type Speaker string

const (
	SpeakerUser  Speaker = "user"
	SpeakerAgent Speaker = "agent"
)

// ParseSpeaker maps the backend speaker vocabulary onto the two logical
// roles. Unrecognised values are attributed to the user, since the speech
// recogniser only transcribes the caller unless told otherwise.
func ParseSpeaker(wire string) Speaker {
	switch strings.ToLower(strings.TrimSpace(wire)) {
	case "agent", "assistant", "ai", "bot", "system", "voxanne":
		return SpeakerAgent
	default:
		return SpeakerUser
	}
}

// Message is one utterance in the conversation log.
type Message struct {
	ID         string         `json:"id" msgpack:"id"`
	Speaker    Speaker        `json:"speaker" msgpack:"speaker"`
	Text       string         `json:"text" msgpack:"text"`
	Confidence float64        `json:"confidence" msgpack:"confidence"`
	IsFinal    bool           `json:"is_final" msgpack:"is_final"`
	Timestamp  jsontime.Milli `json:"timestamp" msgpack:"timestamp"`
}

// IsInterim reports whether m may still change.
func (m Message) IsInterim() bool {
	return !m.IsFinal
}

// Event is a normalised transcript event ready to be folded.
type Event struct {
	Speaker    Speaker
	Text       string
	IsFinal    bool
	Confidence float64
}

// NewEvent adapts a wire transcript event: the speaker is normalised and a
// missing confidence becomes DefaultConfidence.
func NewEvent(wireSpeaker, text string, isFinal bool, confidence *float64) Event {
	c := DefaultConfidence
	if confidence != nil {
		c = *confidence
	}
	return Event{
		Speaker:    ParseSpeaker(wireSpeaker),
		Text:       text,
		IsFinal:    isFinal,
		Confidence: c,
	}
}

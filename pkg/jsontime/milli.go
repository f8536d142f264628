// Package jsontime provides time types with compact wire encodings.
//
// Milli serializes as Unix milliseconds in both JSON and msgpack, which is
// the resolution the voice bridge protocol and the session archive use.
package jsontime

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Milli is a time.Time that serializes to/from Unix milliseconds.
type Milli time.Time

// FromTime converts t to Milli, dropping sub-millisecond precision so that
// values survive an encode/decode round trip unchanged.
func FromTime(t time.Time) Milli {
	return Milli(time.UnixMilli(t.UnixMilli()))
}

// Time returns the underlying time.Time value.
func (ep Milli) Time() time.Time {
	return time.Time(ep)
}

// UnixMilli returns ep as milliseconds since the Unix epoch.
func (ep Milli) UnixMilli() int64 {
	return time.Time(ep).UnixMilli()
}

// Before reports whether ep is before t.
func (ep Milli) Before(t Milli) bool {
	return time.Time(ep).Before(time.Time(t))
}

// Equal reports whether ep and t represent the same instant.
func (ep Milli) Equal(t Milli) bool {
	return time.Time(ep).Equal(time.Time(t))
}

// IsZero reports whether ep is the zero time.
func (ep Milli) IsZero() bool {
	return time.Time(ep).IsZero()
}

// Sub returns the duration ep-t.
func (ep Milli) Sub(t Milli) time.Duration {
	return time.Time(ep).Sub(time.Time(t))
}

func (ep Milli) String() string {
	return time.Time(ep).Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler. The zero time encodes as 0.
func (ep Milli) MarshalJSON() ([]byte, error) {
	if ep.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(ep.UnixMilli())
}

// UnmarshalJSON implements json.Unmarshaler. Both 0 and null decode to the
// zero time.
func (ep *Milli) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*ep = Milli{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*ep = fromUnixMilli(ms)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (ep Milli) EncodeMsgpack(enc *msgpack.Encoder) error {
	if ep.IsZero() {
		return enc.EncodeInt(0)
	}
	return enc.EncodeInt(ep.UnixMilli())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (ep *Milli) DecodeMsgpack(dec *msgpack.Decoder) error {
	ms, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*ep = fromUnixMilli(ms)
	return nil
}

func fromUnixMilli(ms int64) Milli {
	if ms == 0 {
		return Milli{}
	}
	return Milli(time.UnixMilli(ms))
}

var (
	_ msgpack.CustomEncoder = Milli{}
	_ msgpack.CustomDecoder = (*Milli)(nil)
)

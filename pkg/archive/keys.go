package archive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Key layout:
//
//	sess:{YYYYMMDD}:{started_ms}:{id}  → msgpack-encoded Record
//	sid:{id}                           → the sess key (reverse index)
//
// started_ms is zero-padded so lexicographic order is chronological. The
// date partition lets List scan a day range without touching older data.

const (
	sessPrefix = "sess:"
	sidPrefix  = "sid:"
)

func recordKey(id string, started time.Time) []byte {
	return fmt.Appendf(nil, "%s%s:%016d:%s", sessPrefix, started.UTC().Format("20060102"), started.UnixMilli(), id)
}

func indexKey(id string) []byte {
	return []byte(sidPrefix + id)
}

// dayPrefix returns the key prefix for every record started on t's UTC day.
func dayPrefix(t time.Time) []byte {
	return []byte(sessPrefix + t.UTC().Format("20060102") + ":")
}

// parseRecordKey returns the id and start time encoded in a record key.
func parseRecordKey(k []byte) (string, time.Time, error) {
	parts := strings.SplitN(strings.TrimPrefix(string(k), sessPrefix), ":", 3)
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("archive: malformed key %q", k)
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("archive: malformed key %q: %w", k, err)
	}
	return parts[2], time.UnixMilli(ms), nil
}

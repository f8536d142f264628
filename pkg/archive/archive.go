// Package archive persists finished voice sessions and their transcripts.
//
// An Archive implements bridge.Archiver, so a Manager configured with
// bridge.WithArchiver stores every session as it ends. Records are
// msgpack-encoded and kept in BadgerDB (or in memory for tests), ordered by
// start time.
package archive

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/callwaiting/voxbridge/pkg/bridge"
	"github.com/callwaiting/voxbridge/pkg/jsontime"
	"github.com/callwaiting/voxbridge/pkg/transcript"
)

// ErrNotFound is returned when no session has the requested id.
var ErrNotFound = errors.New("archive: not found")

// Record is one archived session.
type Record struct {
	Session    bridge.Session       `json:"session" yaml:"session" msgpack:"session"`
	Messages   []transcript.Message `json:"messages" yaml:"messages" msgpack:"messages"`
	ArchivedAt jsontime.Milli       `json:"archived_at" yaml:"archived_at" msgpack:"archived_at"`
}

// ListOptions filters List.
type ListOptions struct {
	// Day restricts results to sessions started on this UTC day.
	Day time.Time

	// Since drops sessions started before this time.
	Since time.Time

	// Limit caps the number of results. Zero means no limit.
	Limit int

	// Oldest returns the oldest sessions first instead of the newest.
	Oldest bool
}

// Archive is the session store.
type Archive struct {
	db  backend
	now func() time.Time
	log *slog.Logger
}

// Option configures an Archive.
type Option func(*Archive)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archive) {
		a.log = l
	}
}

// WithClock replaces time.Now for ArchivedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archive) {
		a.now = now
	}
}

func newArchive(db backend, opts []Option) *Archive {
	a := &Archive{db: db, now: time.Now, log: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "archive")
	return a
}

var _ bridge.Archiver = (*Archive)(nil)

// Archive stores a finished session, replacing any earlier record with the
// same id.
func (a *Archive) Archive(ctx context.Context, s bridge.Session, messages []transcript.Message) error {
	if s.ID == "" {
		return errors.New("archive: session has no id")
	}
	rec := Record{
		Session:    s,
		Messages:   messages,
		ArchivedAt: jsontime.FromTime(a.now()),
	}
	val, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("archive: encode %s: %w", s.ID, err)
	}

	key := recordKey(s.ID, s.StartedAt.Time())
	sets := []entry{{key: key, val: val}, {key: indexKey(s.ID), val: key}}
	var dels [][]byte
	if old, err := a.db.get(indexKey(s.ID)); err == nil && string(old) != string(key) {
		dels = append(dels, old)
	} else if err != nil && !errors.Is(err, errNotFound) {
		return fmt.Errorf("archive: %s: %w", s.ID, err)
	}
	if err := a.db.write(sets, dels); err != nil {
		return fmt.Errorf("archive: store %s: %w", s.ID, err)
	}
	a.log.Info("session archived", "id", s.ID, "messages", len(messages))
	return nil
}

// Get returns the record for id.
func (a *Archive) Get(_ context.Context, id string) (*Record, error) {
	key, err := a.db.get(indexKey(id))
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	val, err := a.db.get(key)
	if err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return decodeRecord(val)
}

// List iterates archived sessions, newest first unless opts.Oldest.
func (a *Archive) List(_ context.Context, opts ListOptions) iter.Seq2[*Record, error] {
	prefix := []byte(sessPrefix)
	if !opts.Day.IsZero() {
		prefix = dayPrefix(opts.Day)
	}
	return func(yield func(*Record, error) bool) {
		n := 0
		for e, err := range a.db.scan(prefix, !opts.Oldest) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !opts.Since.IsZero() {
				_, started, err := parseRecordKey(e.key)
				if err != nil {
					if !yield(nil, err) {
						return
					}
					continue
				}
				if started.Before(opts.Since) {
					if opts.Oldest {
						continue
					}
					// Descending order: everything after is older.
					return
				}
			}
			rec, err := decodeRecord(e.val)
			if !yield(rec, err) {
				return
			}
			n++
			if opts.Limit > 0 && n >= opts.Limit {
				return
			}
		}
	}
}

// Delete removes the record for id. Missing ids are not an error.
func (a *Archive) Delete(_ context.Context, id string) error {
	key, err := a.db.get(indexKey(id))
	if errors.Is(err, errNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return a.db.write(nil, [][]byte{key, indexKey(id)})
}

// Close releases the underlying store.
func (a *Archive) Close() error {
	return a.db.close()
}

func decodeRecord(val []byte) (*Record, error) {
	var rec Record
	if err := msgpack.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("archive: decode: %w", err)
	}
	return &rec, nil
}

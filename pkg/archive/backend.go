package archive

import (
	"bytes"
	"errors"
	"iter"
	"log"
	"slices"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

var errNotFound = errors.New("archive: key not found")

type entry struct {
	key, val []byte
}

// backend is an ordered byte key-value store.
type backend interface {
	get(key []byte) ([]byte, error)
	// write applies sets and deletes atomically.
	write(sets []entry, dels [][]byte) error
	// scan yields entries under prefix in key order, or reverse order.
	scan(prefix []byte, reverse bool) iter.Seq2[entry, error]
	close() error
}

// BadgerOptions configures a BadgerDB-backed archive.
type BadgerOptions struct {
	// Dir holds the database files. Required unless InMemory.
	Dir string

	// InMemory keeps everything in memory, for tests.
	InMemory bool

	// Logger receives badger's own logs. Nil keeps only warnings and errors.
	Logger badger.Logger
}

// OpenBadger opens (or creates) an archive in a BadgerDB directory.
func OpenBadger(bopts BadgerOptions, opts ...Option) (*Archive, error) {
	if !bopts.InMemory && bopts.Dir == "" {
		return nil, errors.New("archive: BadgerOptions.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(bopts.Dir)
	if bopts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	if bopts.Logger != nil {
		dbOpts = dbOpts.WithLogger(bopts.Logger)
	} else {
		dbOpts = dbOpts.WithLogger(quietLogger{})
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}
	return newArchive(&badgerBackend{db: db}, opts), nil
}

type badgerBackend struct {
	db *badger.DB
}

func (b *badgerBackend) get(key []byte) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errNotFound
	}
	return val, err
}

func (b *badgerBackend) write(sets []entry, dels [][]byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for _, k := range dels {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, e := range sets {
			if err := txn.Set(e.key, e.val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *badgerBackend) scan(prefix []byte, reverse bool) iter.Seq2[entry, error] {
	return func(yield func(entry, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = prefix
			iterOpts.Reverse = reverse
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			seek := prefix
			if reverse {
				// Reverse iteration seeks to the last key <= seek.
				seek = append(slices.Clone(prefix), 0xff)
			}
			for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(entry{}, err) {
						return nil
					}
					continue
				}
				if !yield(entry{key: item.KeyCopy(nil), val: val}, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(entry{}, err)
		}
	}
}

func (b *badgerBackend) close() error {
	return b.db.Close()
}

// quietLogger forwards badger warnings and errors to the standard logger.
type quietLogger struct{}

func (quietLogger) Errorf(f string, v ...any)   { log.Printf("[badger] ERROR: "+f, v...) }
func (quietLogger) Warningf(f string, v ...any) { log.Printf("[badger] WARN: "+f, v...) }
func (quietLogger) Infof(string, ...any)        {}
func (quietLogger) Debugf(string, ...any)       {}

// NewMemory returns an archive that lives only as long as the process.
func NewMemory(opts ...Option) *Archive {
	return newArchive(&memoryBackend{data: map[string][]byte{}}, opts)
}

type memoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (m *memoryBackend) get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, errNotFound
	}
	return slices.Clone(v), nil
}

func (m *memoryBackend) write(sets []entry, dels [][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range dels {
		delete(m.data, string(k))
	}
	for _, e := range sets {
		m.data[string(e.key)] = slices.Clone(e.val)
	}
	return nil
}

func (m *memoryBackend) scan(prefix []byte, reverse bool) iter.Seq2[entry, error] {
	m.mu.RLock()
	var matches []entry
	for k, v := range m.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			matches = append(matches, entry{key: []byte(k), val: slices.Clone(v)})
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matches, func(a, b entry) int {
		if reverse {
			return bytes.Compare(b.key, a.key)
		}
		return bytes.Compare(a.key, b.key)
	})
	return func(yield func(entry, error) bool) {
		for _, e := range matches {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *memoryBackend) close() error {
	return nil
}

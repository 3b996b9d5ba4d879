// Package badger stores model snapshots in an embedded BadgerDB.
//
// Blob names map one-to-one to keys. Put runs in a single transaction, so a
// reader sees either the old or the new value of a name, never a mix.
package badger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/hupe1980/artlens/blobstore"
)

// Options configures the BadgerDB store.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives badger's warnings and errors. Nil uses slog.Default.
	Logger *slog.Logger
}

// Store implements blobstore.BlobStore on top of BadgerDB.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a BadgerDB-backed store.
func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogLogger{l: logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Open reads the named blob. The value is copied out of the transaction.
func (s *Store) Open(_ context.Context, name string) (blobstore.Blob, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("badger: %s: %w", name, blobstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("badger: get %s: %w", name, err)
	}
	return &valueBlob{data: val}, nil
}

// Put writes data under name.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	if name == "" {
		return errors.New("badger: empty blob name")
	}
	value := append([]byte(nil), data...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), value)
	})
}

// Delete removes name.
func (s *Store) Delete(_ context.Context, name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// List returns the names starting with prefix in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.PrefetchValues = false
		iterOpts.Prefix = []byte(prefix)
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(iterOpts.Prefix); it.ValidForPrefix(iterOpts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			names = append(names, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list %q: %w", prefix, err)
	}
	return names, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type valueBlob struct {
	data []byte
}

func (b *valueBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *valueBlob) Size() int64 { return int64(len(b.data)) }

func (b *valueBlob) Bytes() ([]byte, error) { return b.data, nil }

func (b *valueBlob) Close() error { return nil }

// slogLogger forwards badger's warnings and errors to slog and drops the
// chatty info and debug lines.
type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Errorf(f string, v ...interface{}) {
	s.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (s slogLogger) Warningf(f string, v ...interface{}) {
	s.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (slogLogger) Infof(string, ...interface{})  {}
func (slogLogger) Debugf(string, ...interface{}) {}

package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// Key layout, per collection:
//
//	<collection>/seq           last assigned sequence number
//	<collection>/rec/<^seq>    record data, inverted seq so iteration is newest first
//	<collection>/id/<id>       record key for lookup by id
const (
	badgerSeqSuffix = "/seq"
	badgerRecInfix  = "/rec/"
	badgerIDInfix   = "/id/"
)

// BadgerBackend stores records in badger. Every write is synced to disk
// before the transaction commit returns.
type BadgerBackend struct {
	db     *badger.DB
	logger *slog.Logger
}

// NewBadgerBackend opens a badger database in dataDir. An empty dataDir
// gives an in-memory database.
func NewBadgerBackend(dataDir string, logger *slog.Logger) (*BadgerBackend, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	var badgerOpts badger.Options
	if dataDir == "" {
		badgerOpts = badger.DefaultOptions("").
			WithInMemory(true)
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		badgerOpts = badger.DefaultOptions(filepath.Join(dataDir, "badger")).
			WithSyncWrites(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(newBadgerLogger(logger)).
		// The default INFO logging is a bit verbose
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerBackend{
		db:     db,
		logger: logger,
	}, nil
}

func (b *BadgerBackend) Append(_ context.Context, collection string, id string, data []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		idKey := badgerIDKey(collection, id)
		_, err := txn.Get(idKey)
		if err == nil {
			return ErrDuplicateID
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		seqKey := []byte(collection + badgerSeqSuffix)
		var seq uint64
		item, err := txn.Get(seqKey)
		switch {
		case err == nil:
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if len(val) != 8 {
				return fmt.Errorf("corrupt sequence for collection %s", collection)
			}
			seq = binary.BigEndian.Uint64(val)
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}
		seq++
		recKey := badgerRecKey(collection, seq)
		if err := txn.Set(recKey, data); err != nil {
			return err
		}
		if err := txn.Set(idKey, recKey); err != nil {
			return err
		}
		seqVal := make([]byte, 8)
		binary.BigEndian.PutUint64(seqVal, seq)
		return txn.Set(seqKey, seqVal)
	})
}

func (b *BadgerBackend) List(_ context.Context, collection string) ([][]byte, error) {
	ret := [][]byte{}
	err := b.db.View(func(txn *badger.Txn) error {
		prefix := []byte(collection + badgerRecInfix)
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         prefix,
			PrefetchValues: true,
			PrefetchSize:   100,
		})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			ret = append(ret, val)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

func (b *BadgerBackend) Get(_ context.Context, collection string, id string) ([]byte, error) {
	var ret []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerIDKey(collection, id))
		if err != nil {
			return err
		}
		recKey, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err = txn.Get(recKey)
		if err != nil {
			return err
		}
		ret, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Close closes the badger database
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}

func badgerIDKey(collection string, id string) []byte {
	return []byte(collection + badgerIDInfix + id)
}

func badgerRecKey(collection string, seq uint64) []byte {
	key := make([]byte, 0, len(collection)+len(badgerRecInfix)+8)
	key = append(key, collection...)
	key = append(key, badgerRecInfix...)
	return binary.BigEndian.AppendUint64(key, math.MaxUint64-seq)
}

// badgerLogger is a wrapper type to give our logger the interface badger expects
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(
		fmt.Sprintf(msg, args...),
		"component", "store",
	)
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(
		fmt.Sprintf(msg, args...),
		"component", "store",
	)
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(
		fmt.Sprintf(msg, args...),
		"component", "store",
	)
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(
		fmt.Sprintf(msg, args...),
		"component", "store",
	)
}

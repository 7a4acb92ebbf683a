// Package journal persists detected operations to a local Badger
// database so a watch session leaves an inspectable history.
package journal

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/filesift/filesift/internal/fileops"
)

const opPrefix = "op:"

// Journal records detected operations.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open creates or opens a journal at the given path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is too chatty for a CLI
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	return open(opts, logger)
}

// OpenInMemory opens a journal backed by memory only. Used in tests and
// when no journal path is configured but history is still wanted.
func OpenInMemory(logger *slog.Logger) (*Journal, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Journal, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{db: db, logger: logger}, nil
}

// Record persists one operation. Keys embed the operation's end time so
// iteration order is chronological, with a random suffix to keep
// same-nanosecond operations distinct.
func (j *Journal) Record(op fileops.FileOperation) error {
	value, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("failed to marshal operation: %w", err)
	}

	key := opKey(op.EndTime, uuid.NewString())
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}

	j.logger.Debug("operation recorded",
		"type", op.Type,
		"path", op.PrimaryPath,
		"confidence", op.Confidence)
	return nil
}

// Recent returns up to limit operations, newest first. A non-positive
// limit returns everything.
func (j *Journal) Recent(limit int) ([]fileops.FileOperation, error) {
	var ops []fileops.FileOperation

	err := j.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Reverse = true
		itOpts.Prefix = []byte(opPrefix)
		it := txn.NewIterator(itOpts)
		defer it.Close()

		// Reverse iteration needs a seek key past the whole prefix range.
		seek := append([]byte(opPrefix), 0xff)
		for it.Seek(seek); it.Valid(); it.Next() {
			if limit > 0 && len(ops) >= limit {
				break
			}
			var op fileops.FileOperation
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &op)
			})
			if err != nil {
				return fmt.Errorf("failed to decode operation at %s: %w", it.Item().Key(), err)
			}
			ops = append(ops, op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// Prune removes operations that ended before the cutoff.
func (j *Journal) Prune(before time.Time) (int, error) {
	cutoff := opKey(before, "")

	var keys [][]byte
	err := j.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte(opPrefix)
		itOpts.PrefetchValues = false
		it := txn.NewIterator(itOpts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().KeyCopy(nil)
			if string(key) >= string(cutoff) {
				break
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return len(keys), nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// opKey builds a chronologically sortable key for an operation.
func opKey(t time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", opPrefix, t.UnixNano(), id)
}

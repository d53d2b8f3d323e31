package badger

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/graphqa/conversation"
	"github.com/poiesic/graphqa/core"
	"github.com/vmihailenco/msgpack/v5"
)

// Store implements conversation.Store on BadgerDB.
type Store struct {
	db     *badger.DB
	seq    *badger.Sequence
	closed atomic.Bool
	logger *slog.Logger
}

var _ conversation.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// Open opens a store at path. An empty path keeps every turn in memory.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{logger: slog.Default().With("component", "conversation-store")}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	db, err := openDB(path, s.logger)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}
	seq, err := db.GetSequence([]byte(turnSeq), defaultSequenceBandwidth)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.db = db
	s.seq = seq
	return s, nil
}

// NewMemoryStore creates an in-memory store for testing.
// Caller must close the store when done.
func NewMemoryStore() (*Store, error) {
	return Open("")
}

// Append implements conversation.Store.
func (s *Store) Append(ctx context.Context, turn core.Turn) error {
	if s.closed.Load() {
		return conversation.ErrStoreClosed
	}
	if err := conversation.ValidateSessionID(turn.SessionID); err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	value, err := msgpack.Marshal(&turn)
	if err != nil {
		return fmt.Errorf("%w: %v", conversation.ErrSerializationFailed, err)
	}
	n, err := s.seq.Next()
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *badger.Txn) error {
		return tx.Set(makeTurnKey(turn.SessionID, turn.Timestamp, n), value)
	})
}

// History implements conversation.Store.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]core.Turn, error) {
	if s.closed.Load() {
		return nil, conversation.ErrStoreClosed
	}
	if err := conversation.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	var turns []core.Turn
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSessionPrefix(sessionID)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// newest first, so the limit keeps the most recent turns
		for iter.Seek(makeSessionEnd(sessionID)); iter.Valid(); iter.Next() {
			if limit > 0 && len(turns) >= limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			var turn core.Turn
			err := iter.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &turn)
			})
			if err != nil {
				return fmt.Errorf("%w: %v", conversation.ErrSerializationFailed, err)
			}
			turns = append(turns, turn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(turns)
	return turns, nil
}

// Clear implements conversation.Store.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if s.closed.Load() {
		return conversation.ErrStoreClosed
	}
	if err := conversation.ValidateSessionID(sessionID); err != nil {
		return err
	}

	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeSessionPrefix(sessionID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			wb.Cancel()
			return err
		}
	}
	return wb.Flush()
}

// Close releases the sequence and closes the database.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.seq.Release(); err != nil {
		s.logger.Warn("error releasing turn sequence", "err", err)
	}
	return s.db.Close()
}

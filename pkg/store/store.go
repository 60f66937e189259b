// Package store persists trained runs in BadgerDB so a later process can
// restore the exported model without retraining.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/djeday123/goml-sentiment/nn"
	"github.com/djeday123/goml-sentiment/train"
)

const (
	runPrefix = "run:"
	latestKey = "meta:latest"
)

// ErrNotFound is returned when a run id, or any run at all, is missing.
var ErrNotFound = errors.New("run not found")

// Run is everything needed to rebuild the export model plus how it got there.
type Run struct {
	ID             uuid.UUID      `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	ClassNames     []string       `json:"class_names"`
	Vocabulary     []string       `json:"vocabulary"` // learned tokens, ids 2..
	SequenceLength int            `json:"sequence_length"`
	Model          nn.State       `json:"model"`
	History        *train.History `json:"history,omitempty"`
	Test           *train.Metrics `json:"test,omitempty"`
}

// Summary is the listing view of a run.
type Summary struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	Epochs       int
	TestAccuracy float64
}

// Store wraps a badger database of runs.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens (creating if needed) the store at path. With inMemory the path
// is ignored and nothing touches disk.
func Open(path string, inMemory bool, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{log: log.With().Str("component", "badger").Logger()})
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	return &Store{db: db, log: log.With().Str("component", "store").Logger()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes run and marks it as the latest. A zero ID is replaced with
// a fresh UUID and a zero CreatedAt with the current time.
func (s *Store) SaveRun(run *Run) (uuid.UUID, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(run)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal failed: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(runKey(run.ID), data); err != nil {
			return err
		}
		return txn.Set([]byte(latestKey), []byte(run.ID.String()))
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	s.log.Info().Str("run", run.ID.String()).Int("bytes", len(data)).Msg("run saved")
	return run.ID, nil
}

// LoadRun reads one run by id.
func (s *Store) LoadRun(id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	return &run, nil
}

// Latest returns the most recently saved run.
func (s *Store) Latest() (*Run, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(latestKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	id, err := uuid.ParseBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt latest pointer %q: %w", raw, err)
	}
	return s.LoadRun(id)
}

// List summarizes every stored run, newest first.
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var run Run
				if err := json.Unmarshal(val, &run); err != nil {
					return err
				}
				sum := Summary{ID: run.ID, CreatedAt: run.CreatedAt}
				if run.History != nil {
					sum.Epochs = run.History.Len()
				}
				if run.Test != nil {
					sum.TestAccuracy = run.Test.Accuracy
				}
				out = append(out, sum)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b Summary) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func runKey(id uuid.UUID) []byte {
	return []byte(runPrefix + id.String())
}

// badgerLogger routes badger's printf-style logs through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(f string, v ...any)   { l.log.Error().Msg(trim(f, v)) }
func (l badgerLogger) Warningf(f string, v ...any) { l.log.Warn().Msg(trim(f, v)) }
func (l badgerLogger) Infof(f string, v ...any)    { l.log.Debug().Msg(trim(f, v)) }
func (l badgerLogger) Debugf(f string, v ...any)   { l.log.Trace().Msg(trim(f, v)) }

func trim(f string, v []any) string {
	return strings.TrimRight(fmt.Sprintf(f, v...), "\n")
}

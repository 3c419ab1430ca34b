// Package results keeps the history of solver runs in an embedded BadgerDB.
//
// Runs are stored as JSON under run/<started unix nanos>/<id>, so key order is
// chronological, with an id/<id> entry pointing back to the run key.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/gitrdm/intsolve/pkg/solver"
)

// ErrNotFound is returned by Get for an unknown run id.
var ErrNotFound = errors.New("results: run not found")

const (
	runPrefix = "run/"
	idPrefix  = "id/"
)

// Run is one recorded solve.
type Run struct {
	ID        string         `json:"id"`
	Model     string         `json:"model"`
	Mode      string         `json:"mode"`
	Status    string         `json:"status"`
	Objective *float64       `json:"objective,omitempty"`
	Values    map[string]int `json:"values,omitempty"`
	Stats     solver.Stats   `json:"stats"`
	Started   time.Time      `json:"started"`
	Duration  time.Duration  `json:"duration"`
	Error     string         `json:"error,omitempty"`
}

// SetObjective records v unless it is infinite.
func (r *Run) SetObjective(v float64) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		r.Objective = nil
		return
	}
	r.Objective = &v
}

// Config selects where the database lives.
type Config struct {
	Path     string
	InMemory bool
	Logger   *slog.Logger
}

// Store is a run history. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open opens or creates the database.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("results: path is required for a persistent store")
	}
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("results: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("results: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

func runKey(r *Run) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", runPrefix, r.Started.UnixNano(), r.ID))
}

// Save stores r, assigning an id and start time when they are empty.
func (s *Store) Save(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Started.IsZero() {
		r.Started = time.Now()
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("results: encode run: %w", err)
	}
	key := runKey(r)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, data); err != nil {
			return err
		}
		return txn.Set([]byte(idPrefix+r.ID), key)
	})
}

// Get returns the run with the given id.
func (s *Store) Get(id string) (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(idPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &run) })
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// reverse iteration starts past the last possible key of the prefix
		for it.Seek([]byte(runPrefix + "\xff")); it.ValidForPrefix([]byte(runPrefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(runs) >= limit {
				return nil
			}
			var run Run
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &run) }); err != nil {
				return fmt.Errorf("results: decode %s: %w", it.Item().Key(), err)
			}
			runs = append(runs, &run)
		}
		return nil
	})
	return runs, err
}

// SPDX-License-Identifier: MIT

// Package state persists packaging run history under the project's
// build directory.
package state

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	pslog "github.com/packspec/packspec/internal/log"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeRunning   Outcome = "running"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Run is one recorded packaging run.
type Run struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Profile    string    `json:"profile,omitempty"`
	AppVersion string    `json:"app_version,omitempty"`
	SpecDigest string    `json:"spec_digest"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Outcome    Outcome   `json:"outcome"`
	Artifact   string    `json:"artifact,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// Keys: runs under "run:<id>" (JSON), the id of the newest run under
// "meta:lastrun".
const (
	runPrefix  = "run:"
	lastRunKey = "meta:lastrun"
)

// ErrNoRuns is returned when the store holds no run yet.
var ErrNoRuns = errors.New("state: no runs recorded")

// Store persists run records in a badger database. A single process
// owns the database at a time.
type Store struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens the run store at dir, creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	logger := pslog.WithComponent("state")
	logger.Debug().Str(pslog.FieldPath, dir).Msg("state store opened")
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Digest returns the hex SHA-256 of a serialized document. Runs carry
// it so a later invocation can tell whether the document changed since.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Begin records the start of a run and marks it as the newest one.
func (s *Store) Begin(_ context.Context, target, profile, appVersion, specDigest string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		Target:     target,
		Profile:    profile,
		AppVersion: appVersion,
		SpecDigest: specDigest,
		StartedAt:  time.Now().UTC(),
		Outcome:    OutcomeRunning,
	}
	buf, err := json.Marshal(run)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(runPrefix+run.ID), buf); err != nil {
			return err
		}
		return txn.Set([]byte(lastRunKey), []byte(run.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str(pslog.FieldRunID, run.ID).
		Str(pslog.FieldTarget, target).
		Msg("run started")
	return run, nil
}

// Finish completes a run. The artifact path is kept for successful runs,
// errMsg for failed ones.
func (s *Store) Finish(_ context.Context, id string, outcome Outcome, artifact, errMsg string) (*Run, error) {
	key := []byte(runPrefix + id)
	var out Run
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}

		out.FinishedAt = time.Now().UTC()
		out.Outcome = outcome
		out.Artifact = artifact
		out.Error = errMsg

		buf, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("state: run %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str(pslog.FieldRunID, id).
		Str("outcome", string(outcome)).
		Msg("run finished")
	return &out, nil
}

// Get returns the run with the given id, or nil when it is unknown.
func (s *Store) Get(_ context.Context, id string) (*Run, error) {
	var out Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(runPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LastRun returns the newest recorded run. It fails with ErrNoRuns on an
// empty store.
func (s *Store) LastRun(ctx context.Context) (*Run, error) {
	var id string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(lastRunKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, err
	}

	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, ErrNoRuns
	}
	return run, nil
}

// List returns runs newest first. A limit of 0 returns all of them.
func (s *Store) List(_ context.Context, limit int) ([]*Run, error) {
	var runs []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(runPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return err
			}
			runs = append(runs, &r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Prune deletes all but the newest keep runs and returns how many were
// removed. Prune(0) empties the store.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	runs, err := s.List(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(runs) <= keep {
		return 0, nil
	}

	victims := runs[keep:]
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, r := range victims {
			if err := txn.Delete([]byte(runPrefix + r.ID)); err != nil {
				return err
			}
		}
		if keep == 0 {
			return txn.Delete([]byte(lastRunKey))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().
		Int("deleted", len(victims)).
		Int("kept", keep).
		Msg("pruned run history")
	return len(victims), nil
}

// SpecChanged reports whether digest differs from the digest recorded
// with the newest run. An empty store counts as changed.
func (s *Store) SpecChanged(ctx context.Context, digest string) (bool, error) {
	last, err := s.LastRun(ctx)
	if errors.Is(err, ErrNoRuns) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return last.SpecDigest != digest, nil
}
